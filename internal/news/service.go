// Package news formats recent news search results as text.
package news

import (
	"context"
	"fmt"
	"strings"
	"time"

	"stock-mcp/internal/common"
	"stock-mcp/internal/models"
)

// MaxResults caps the number of entries returned by GetMarketNews
const MaxResults = 3

// NoResults is returned when the search yields nothing
const NoResults = "No news found."

const entrySeparator = "\n---\n"

// Searcher runs a news search returning at most limit items
type Searcher interface {
	SearchNews(ctx context.Context, query string, limit int) ([]models.NewsItem, error)
}

// Service runs news searches and renders them for the tool surface
type Service struct {
	searcher Searcher
	timeout  time.Duration
	logger   *common.Logger
}

// NewService creates a news service. A non-positive timeout disables the
// per-search deadline.
func NewService(searcher Searcher, timeout time.Duration, logger *common.Logger) *Service {
	return &Service{
		searcher: searcher,
		timeout:  timeout,
		logger:   logger,
	}
}

// Search returns up to MaxResults items for query
func (s *Service) Search(ctx context.Context, query string) ([]models.NewsItem, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	items, err := s.searcher.SearchNews(ctx, query, MaxResults)
	if err != nil {
		return nil, err
	}
	if len(items) > MaxResults {
		items = items[:MaxResults]
	}
	return items, nil
}

// GetMarketNews returns formatted news for query. Provider failures come back
// as "Error fetching news for ..." with ok=false so they are not mistaken for
// an empty result.
func (s *Service) GetMarketNews(ctx context.Context, query string) (string, bool) {
	items, err := s.Search(ctx, query)
	if err != nil {
		s.logger.Warn().Err(err).Str("query", query).Msg("News search failed")
		return fmt.Sprintf("Error fetching news for %s: %s", query, err), false
	}
	return Format(items), true
}

// Format renders items as Title/Source/Link blocks separated by "---".
func Format(items []models.NewsItem) string {
	if len(items) == 0 {
		return NoResults
	}
	entries := make([]string, 0, len(items))
	for _, it := range items {
		entries = append(entries, fmt.Sprintf("Title: %s\nSource: %s\nLink: %s\n", it.Title, it.Source, it.URL))
	}
	return strings.Join(entries, entrySeparator)
}
