// Package market looks up quote snapshots for ticker symbols.
package market

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"stock-mcp/internal/common"
	"stock-mcp/internal/models"
)

// SummaryLimit is the number of characters of business summary kept in a snapshot
const SummaryLimit = 200

const summaryEllipsis = "..."

var (
	// ErrEmptyTicker is returned for a blank ticker; the provider is not called.
	ErrEmptyTicker = errors.New("ticker is empty")
	// ErrNoData is returned when the provider reports success with no quote.
	ErrNoData = errors.New("no data returned")
)

// Provider fetches raw quote info for an upper-cased symbol
type Provider interface {
	QuoteInfo(ctx context.Context, symbol string) (*models.QuoteInfo, error)
}

// Service builds quote snapshots from a Provider
type Service struct {
	provider Provider
	timeout  time.Duration
	logger   *common.Logger
}

// NewService creates a market service. A non-positive timeout disables the
// per-lookup deadline.
func NewService(provider Provider, timeout time.Duration, logger *common.Logger) *Service {
	return &Service{
		provider: provider,
		timeout:  timeout,
		logger:   logger,
	}
}

// Snapshot fetches the current quote for ticker
func (s *Service) Snapshot(ctx context.Context, ticker string) (*models.Snapshot, error) {
	symbol := strings.ToUpper(strings.TrimSpace(ticker))
	if symbol == "" {
		return nil, ErrEmptyTicker
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	info, err := s.provider.QuoteInfo(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if info == nil {
		return nil, ErrNoData
	}

	return &models.Snapshot{
		Symbol:          symbol,
		CurrentPrice:    info.CurrentPrice,
		MarketCap:       info.MarketCap,
		PERatio:         info.TrailingPE,
		Recommendation:  info.RecommendationKey,
		BusinessSummary: TruncateSummary(info.LongBusinessSummary),
	}, nil
}

// GetStockData returns the snapshot for ticker as indented JSON, or an
// "Error fetching data for ..." message with ok=false. Provider failures
// never escape as errors; use Snapshot for a structured result.
func (s *Service) GetStockData(ctx context.Context, ticker string) (string, bool) {
	snap, err := s.Snapshot(ctx, ticker)
	if err != nil {
		s.logger.Warn().Err(err).Str("symbol", ticker).Msg("Stock data lookup failed")
		return fmt.Sprintf("Error fetching data for %s: %s", ticker, err), false
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		return fmt.Sprintf("Error fetching data for %s: %s", ticker, err), false
	}
	return strings.TrimRight(buf.String(), "\n"), true
}

// TruncateSummary keeps the first SummaryLimit characters of summary and
// appends an ellipsis. Nil or blank summaries stay nil.
func TruncateSummary(summary *string) *string {
	if summary == nil || strings.TrimSpace(*summary) == "" {
		return nil
	}
	runes := []rune(*summary)
	if len(runes) > SummaryLimit {
		runes = runes[:SummaryLimit]
	}
	out := string(runes) + summaryEllipsis
	return &out
}
