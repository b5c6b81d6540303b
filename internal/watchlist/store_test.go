package watchlist

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Seed(t *testing.T) {
	s := New("AAPL", "googl", "aapl", " ")
	assert.Equal(t, "AAPL, GOOGL", s.View())
	assert.Equal(t, 2, s.Len())
}

func TestNew_Empty(t *testing.T) {
	s := New()
	assert.Equal(t, "", s.View())
	assert.Empty(t, s.Symbols())
}

func TestAdd_Messages(t *testing.T) {
	s := New("AAPL", "GOOGL")

	assert.Equal(t, "Added msft to watchlist.", s.Add("msft"))
	assert.Equal(t, "MSFT is already in the watchlist.", s.Add("MSFT"))
	assert.Equal(t, "aapl is already in the watchlist.", s.Add("aapl"))
	assert.Equal(t, "Ticker symbol must not be empty.", s.Add("   "))
	assert.Equal(t, "AAPL, GOOGL, MSFT", s.View())
}

func TestAdd_Idempotent(t *testing.T) {
	for _, ticker := range []string{"TSLA", "brk.b", "x", "Nvda"} {
		s := New("AAPL")
		s.Add(ticker)
		before := s.Len()
		s.Add(ticker)
		assert.Equal(t, before, s.Len(), "second add of %q changed length", ticker)
	}
}

func TestAdd_PreservesOrder(t *testing.T) {
	s := New()
	s.Add("ibm")
	s.Add("AMD")
	assert.Equal(t, []string{"IBM", "AMD"}, s.Symbols())
}

func TestView_InsertionOrderAfterAdds(t *testing.T) {
	s := New()
	want := []string{"ZM", "AA", "MMM", "C", "KO"}
	for _, sym := range want {
		s.Add(sym)
	}
	assert.Equal(t, "ZM, AA, MMM, C, KO", s.View())
}

func TestContains(t *testing.T) {
	s := New("AAPL")
	assert.True(t, s.Contains("aapl"))
	assert.True(t, s.Contains(" AAPL "))
	assert.False(t, s.Contains("GOOGL"))
}

func TestSymbols_ReturnsCopy(t *testing.T) {
	s := New("AAPL")
	out := s.Symbols()
	out[0] = "MUTATED"
	assert.Equal(t, "AAPL", s.View())
}

func TestAdd_ConcurrentSameSymbol(t *testing.T) {
	s := New("AAPL", "GOOGL")

	const workers = 64
	var wg sync.WaitGroup
	start := make(chan struct{})
	added := make(chan bool, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, ok := s.AddSymbol("XOM")
			added <- ok
		}()
	}
	close(start)
	wg.Wait()
	close(added)

	inserts := 0
	for ok := range added {
		if ok {
			inserts++
		}
	}
	assert.Equal(t, 1, inserts)
	assert.Equal(t, "AAPL, GOOGL, XOM", s.View())
}

func TestAdd_ConcurrentDistinctSymbols(t *testing.T) {
	s := New()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.Add(fmt.Sprintf("T%d", i%50))
			_ = s.View()
		}(i)
	}
	wg.Wait()

	symbols := s.Symbols()
	require.Len(t, symbols, 50)
	seen := make(map[string]bool, len(symbols))
	for _, sym := range symbols {
		assert.False(t, seen[sym], "duplicate %s", sym)
		seen[sym] = true
	}
}
