package news

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stock-mcp/internal/common"
	"stock-mcp/internal/models"
)

type fakeSearcher struct {
	items     []models.NewsItem
	err       error
	block     bool
	lastQuery string
	lastLimit int
}

func (f *fakeSearcher) SearchNews(ctx context.Context, query string, limit int) ([]models.NewsItem, error) {
	f.lastQuery = query
	f.lastLimit = limit
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.items, f.err
}

func makeItems(n int) []models.NewsItem {
	items := make([]models.NewsItem, n)
	for i := range items {
		items[i] = models.NewsItem{
			Title:  fmt.Sprintf("Headline %d", i+1),
			Source: fmt.Sprintf("Source %d", i+1),
			URL:    fmt.Sprintf("https://news.example.com/%d", i+1),
		}
	}
	return items
}

func TestGetMarketNews_NoResults(t *testing.T) {
	svc := NewService(&fakeSearcher{}, time.Second, common.NewSilentLogger())

	out, ok := svc.GetMarketNews(context.Background(), "obscure query")
	assert.True(t, ok)
	assert.Equal(t, "No news found.", out)
}

func TestGetMarketNews_CapsAtThree(t *testing.T) {
	f := &fakeSearcher{items: makeItems(5)}
	svc := NewService(f, time.Second, common.NewSilentLogger())

	out, ok := svc.GetMarketNews(context.Background(), "apple earnings")
	require.True(t, ok)

	assert.Equal(t, "apple earnings", f.lastQuery)
	assert.Equal(t, MaxResults, f.lastLimit)
	assert.Equal(t, 3, strings.Count(out, "Title: "))
	assert.Equal(t, 2, strings.Count(out, "\n---\n"))
	assert.NotContains(t, out, "Headline 4")
}

func TestGetMarketNews_Format(t *testing.T) {
	svc := NewService(&fakeSearcher{items: makeItems(2)}, time.Second, common.NewSilentLogger())

	out, ok := svc.GetMarketNews(context.Background(), "q")
	require.True(t, ok)

	want := "Title: Headline 1\nSource: Source 1\nLink: https://news.example.com/1\n" +
		"\n---\n" +
		"Title: Headline 2\nSource: Source 2\nLink: https://news.example.com/2\n"
	assert.Equal(t, want, out)
}

func TestGetMarketNews_ProviderError(t *testing.T) {
	svc := NewService(&fakeSearcher{err: errors.New("status 403")}, time.Second, common.NewSilentLogger())

	out, ok := svc.GetMarketNews(context.Background(), "tsla")
	assert.False(t, ok)
	assert.Equal(t, "Error fetching news for tsla: status 403", out)
}

func TestGetMarketNews_Timeout(t *testing.T) {
	svc := NewService(&fakeSearcher{block: true}, 20*time.Millisecond, common.NewSilentLogger())

	out, ok := svc.GetMarketNews(context.Background(), "slow")
	assert.False(t, ok)
	assert.Contains(t, out, context.DeadlineExceeded.Error())
}

func TestFormat_Single(t *testing.T) {
	out := Format(makeItems(1))
	assert.Equal(t, "Title: Headline 1\nSource: Source 1\nLink: https://news.example.com/1\n", out)
}
