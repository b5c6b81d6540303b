package duckduckgo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stock-mcp/internal/common"
)

func newsResults(n int) map[string]any {
	results := make([]map[string]any, n)
	for i := range results {
		results[i] = map[string]any{
			"date":    float64(1760000000 + i),
			"title":   fmt.Sprintf("Story %d &amp; <b>more</b>", i+1),
			"excerpt": "Something happened",
			"url":     fmt.Sprintf("https://www.example.com/story-%d", i+1),
			"source":  "Example Wire",
		}
	}
	return map[string]any{"results": results}
}

func newFakeDDG(t *testing.T, page string, news map[string]any) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(page))
	})
	mux.HandleFunc("/news.js", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("vqd") != "4-1234" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		if q.Get("o") != "json" || q.Get("l") != "wt-wt" || q.Get("p") != "-1" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(news)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(srv *httptest.Server) *Client {
	return New(common.DuckDuckGoConfig{
		BaseURL:    srv.URL,
		Region:     "wt-wt",
		SafeSearch: "moderate",
		Timeout:    "5s",
	}, srv.Client())
}

const scriptPage = `<html><head><script>DDG.deep.initialize('/d.js?q=apple&vqd="4-1234"&kl=wt-wt');</script></head><body></body></html>`

func TestSearchNews_Success(t *testing.T) {
	srv := newFakeDDG(t, scriptPage, newsResults(2))
	c := newTestClient(srv)

	items, err := c.SearchNews(context.Background(), "apple", 3)
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "Story 1 & more", items[0].Title)
	assert.Equal(t, "Example Wire", items[0].Source)
	assert.Equal(t, "https://www.example.com/story-1", items[0].URL)
	assert.Equal(t, time.Unix(1760000000, 0).UTC(), items[0].Published)
}

func TestSearchNews_Limit(t *testing.T) {
	srv := newFakeDDG(t, scriptPage, newsResults(5))
	c := newTestClient(srv)

	items, err := c.SearchNews(context.Background(), "apple", 3)
	require.NoError(t, err)
	assert.Len(t, items, 3)
}

func TestSearchNews_Empty(t *testing.T) {
	srv := newFakeDDG(t, scriptPage, map[string]any{"results": []any{}})
	c := newTestClient(srv)

	items, err := c.SearchNews(context.Background(), "nothing", 3)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestSearchNews_HiddenInputToken(t *testing.T) {
	page := `<html><body><form><input type="hidden" name="vqd" value="4-1234"></form></body></html>`
	srv := newFakeDDG(t, page, newsResults(1))
	c := newTestClient(srv)

	items, err := c.SearchNews(context.Background(), "apple", 3)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestSearchNews_NoToken(t *testing.T) {
	srv := newFakeDDG(t, `<html><body>captcha</body></html>`, newsResults(1))
	c := newTestClient(srv)

	_, err := c.SearchNews(context.Background(), "apple", 3)
	assert.True(t, errors.Is(err, ErrNoToken))
}

func TestSearchNews_UpstreamStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()
	c := newTestClient(srv)

	_, err := c.SearchNews(context.Background(), "apple", 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 503")
}

func TestSearchNews_EmptyQuery(t *testing.T) {
	c := New(common.DuckDuckGoConfig{BaseURL: "http://127.0.0.1:1"}, nil)
	_, err := c.SearchNews(context.Background(), "  ", 3)
	assert.Error(t, err)
}

func TestExtractVQD(t *testing.T) {
	assert.Equal(t, "4-1", extractVQD(`x vqd="4-1" y`))
	assert.Equal(t, "4-2", extractVQD(`/d.js?vqd=4-2&kl=us`))
	assert.Equal(t, "4-3", extractVQD(`vqd='4-3'`))
	assert.Equal(t, "", extractVQD(`no token here`))
	assert.Equal(t, "4-123", extractVQD(`<script>vqd='4-123';</script><a href="x?a=1&b=2">`))
	assert.Equal(t, "4-5", extractVQD(`vqd=4-5"></script><a href="x?a=1&b=2">`))
	assert.Equal(t, "", extractVQD(`vqd='<b>bad token</b>'`))
}

func TestNormalize(t *testing.T) {
	items := normalize([]any{
		map[string]any{"title": "A", "url": "https://www.reuters.com/a"},
		map[string]any{"title": "dup", "url": "https://www.reuters.com/a"},
		map[string]any{"title": "no link"},
		"garbage",
		map[string]any{"title": "B", "url": "https://example.org/b", "source": "Wire", "date": "2026-10-01T12:00:00Z"},
	})
	require.Len(t, items, 2)
	assert.Equal(t, "reuters.com", items[0].Source, "source falls back to link host")
	assert.Equal(t, "Wire", items[1].Source)
	assert.Equal(t, 2026, items[1].Published.Year())
}

func TestPlainText(t *testing.T) {
	assert.Equal(t, "Apple & Co", plainText("<b>Apple</b> &amp; Co"))
	assert.Equal(t, "plain", plainText("  plain "))
}
