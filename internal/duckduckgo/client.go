// Package duckduckgo provides a minimal client for DuckDuckGo news search.
package duckduckgo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"

	"stock-mcp/internal/common"
	"stock-mcp/internal/models"
)

// ErrNoToken is returned when the search page carries no vqd token
var ErrNoToken = errors.New("duckduckgo vqd token not found")

const maxBodyBytes = 4 << 20

var safeSearchCodes = map[string]string{
	"on":       "1",
	"moderate": "-1",
	"off":      "-2",
}

// Client is a minimal HTTP client for DuckDuckGo news search.
type Client struct {
	BaseURL    string
	Region     string
	SafeSearch string
	UserAgent  string
	HTTP       *http.Client
}

// New returns a new client. If httpClient is nil, a default with the
// configured timeout is used.
func New(cfg common.DuckDuckGoConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.GetTimeout()}
	}
	return &Client{
		BaseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		Region:     cfg.Region,
		SafeSearch: cfg.SafeSearch,
		UserAgent:  cfg.UserAgent,
		HTTP:       httpClient,
	}
}

// SearchNews implements news.Searcher. It returns at most limit items, newest
// first as ranked by DuckDuckGo, with duplicate links dropped.
func (c *Client) SearchNews(ctx context.Context, query string, limit int) ([]models.NewsItem, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("query is empty")
	}

	vqd, err := c.token(ctx, query)
	if err != nil {
		return nil, err
	}

	reqURL, err := c.buildNewsURL(query, vqd)
	if err != nil {
		return nil, err
	}
	resp, err := c.get(ctx, reqURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("duckduckgo news status %d", resp.StatusCode)
	}

	var body any
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode news response: %w", err)
	}

	items := normalize(extractItems(body))
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// token fetches the search page for query and pulls out the vqd token the
// news endpoint requires.
func (c *Client) token(ctx context.Context, query string) (string, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("ia", "news")
	resp, err := c.get(ctx, c.BaseURL+"/?"+q.Encode())
	if err != nil {
		return "", fmt.Errorf("fetch search page: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("duckduckgo search page status %d", resp.StatusCode)
	}

	page, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("read search page: %w", err)
	}
	vqd := extractVQD(string(page))
	if vqd == "" {
		return "", ErrNoToken
	}
	return vqd, nil
}

// buildNewsURL composes the news.js URL with query params.
func (c *Client) buildNewsURL(query, vqd string) (string, error) {
	u, err := url.Parse(c.BaseURL + "/news.js")
	if err != nil {
		return "", fmt.Errorf("invalid base url: %w", err)
	}
	q := u.Query()
	q.Set("l", firstNonEmpty(c.Region, "wt-wt"))
	q.Set("o", "json")
	q.Set("noamp", "1")
	q.Set("q", query)
	q.Set("vqd", vqd)
	q.Set("p", firstNonEmpty(safeSearchCodes[c.SafeSearch], safeSearchCodes["moderate"]))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *Client) get(ctx context.Context, reqURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	req.Header.Set("Referer", c.BaseURL+"/")
	return c.HTTP.Do(req)
}

// extractVQD finds the vqd token in a search page, either as a hidden form
// input or embedded in inline script.
func extractVQD(page string) string {
	if doc, err := html.Parse(strings.NewReader(page)); err == nil {
		if v := findInputValue(doc, "vqd"); v != "" {
			return v
		}
	}
	for _, quote := range []string{`"`, `'`} {
		if v := tokenAfter(page, "vqd="+quote, func(r rune) bool { return string(r) == quote }); v != "" {
			return v
		}
	}
	return tokenAfter(page, "vqd=", func(r rune) bool { return !isTokenRune(r) })
}

// tokenAfter returns the text between prefix and the first rune matching end,
// or "" if that text is empty or not a plausible token.
func tokenAfter(page, prefix string, end func(rune) bool) string {
	start := strings.Index(page, prefix)
	if start < 0 {
		return ""
	}
	rest := page[start+len(prefix):]
	stop := strings.IndexFunc(rest, end)
	if stop <= 0 {
		return ""
	}
	v := rest[:stop]
	if strings.IndexFunc(v, func(r rune) bool { return !isTokenRune(r) }) >= 0 {
		return ""
	}
	return v
}

// vqd tokens look like 4-1234567890 or 4-abc_DEF
func isTokenRune(r rune) bool {
	return r == '-' || r == '_' ||
		(r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func findInputValue(n *html.Node, name string) string {
	if n.Type == html.ElementNode && n.Data == "input" && attr(n, "name") == name {
		return attr(n, "value")
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if v := findInputValue(c, name); v != "" {
			return v
		}
	}
	return ""
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// extractItems tries the results field or an array root.
func extractItems(body any) []any {
	if m, ok := body.(map[string]any); ok {
		if v, ok := m["results"]; ok {
			if arr, ok := v.([]any); ok {
				return arr
			}
		}
	}
	if arr, ok := body.([]any); ok {
		return arr
	}
	return nil
}

// normalize converts raw items into NewsItems, skipping entries without a
// link and repeated links.
func normalize(items []any) []models.NewsItem {
	out := make([]models.NewsItem, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		m, _ := it.(map[string]any)
		link := getString(m, "url")
		if link == "" {
			continue
		}
		if _, dup := seen[link]; dup {
			continue
		}
		seen[link] = struct{}{}
		out = append(out, models.NewsItem{
			Title:     plainText(getString(m, "title")),
			Source:    firstNonEmpty(plainText(getString(m, "source")), hostOf(link)),
			URL:       link,
			Excerpt:   plainText(getString(m, "excerpt")),
			Published: parseDate(m["date"]),
		})
	}
	return out
}

// plainText strips markup and decodes entities, e.g. "<b>Apple</b> &amp; Co".
func plainText(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.TrimSpace(s)
	}
	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return strings.TrimSpace(s)
	}
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return strings.TrimSpace(sb.String())
}

func getString(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func hostOf(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}

// parseDate accepts unix seconds or an RFC3339 string.
func parseDate(v any) time.Time {
	switch t := v.(type) {
	case float64:
		if t > 0 {
			return time.Unix(int64(t), 0).UTC()
		}
	case string:
		if ts, err := time.Parse(time.RFC3339, t); err == nil {
			return ts
		}
	}
	return time.Time{}
}
