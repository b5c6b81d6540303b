// Package yahoo provides a quote provider backed by Yahoo Finance.
package yahoo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	finance "github.com/piquette/finance-go"
	"github.com/piquette/finance-go/equity"

	"stock-mcp/internal/common"
	"stock-mcp/internal/models"
)

// ErrSymbolNotFound is returned when Yahoo has no quote for the symbol
var ErrSymbolNotFound = errors.New("symbol not found")

// ErrNoCrumb is returned when a session crumb could not be obtained
var ErrNoCrumb = errors.New("yahoo session crumb unavailable")

const (
	crumbKey     = "crumb"
	crumbTTL     = 30 * time.Minute
	summaryPath  = "/v10/finance/quoteSummary/"
	crumbPath    = "/v1/test/getcrumb"
	summaryMods  = "price,summaryDetail,financialData,assetProfile"
	maxBodyBytes = 4 << 20
)

// EquityFunc fetches an equity quote by symbol; equity.Get satisfies it.
type EquityFunc func(symbol string) (*finance.Equity, error)

// Client fetches quote profiles from the quoteSummary endpoint, falling back
// to the finance-go equity quote for pricing fields when that fails.
type Client struct {
	BaseURL    string
	SessionURL string
	UserAgent  string
	HTTP       *http.Client
	Equity     EquityFunc

	crumbs *Cache
	logger *common.Logger
}

// New returns a client for cfg. If httpClient is nil, one with a cookie jar and
// the configured timeout is created; Yahoo ties the crumb to session cookies,
// so a supplied client should carry a jar too.
func New(cfg common.YahooConfig, httpClient *http.Client, logger *common.Logger) *Client {
	if httpClient == nil {
		jar, _ := cookiejar.New(nil)
		httpClient = &http.Client{Jar: jar, Timeout: cfg.GetTimeout()}
	}
	return &Client{
		BaseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		SessionURL: cfg.SessionURL,
		UserAgent:  cfg.UserAgent,
		HTTP:       httpClient,
		Equity:     equity.Get,
		crumbs:     NewCache(),
		logger:     logger,
	}
}

// UseHTTPClient points the finance-go backend at client. finance-go keeps a
// package-level client, so this affects every Client in the process.
func UseHTTPClient(client *http.Client) {
	finance.SetHTTPClient(client)
}

// QuoteInfo implements market.Provider
func (c *Client) QuoteInfo(ctx context.Context, symbol string) (*models.QuoteInfo, error) {
	info, err := c.quoteSummary(ctx, symbol)
	if err == nil {
		return info, nil
	}
	if errors.Is(err, ErrSymbolNotFound) || ctx.Err() != nil || c.Equity == nil {
		return nil, err
	}

	c.logger.Debug().Err(err).Str("symbol", symbol).Msg("quoteSummary failed, trying equity quote")
	info, eqErr := c.equityQuoteWith(ctx, symbol, c.Equity)
	if eqErr != nil {
		c.logger.Debug().Err(eqErr).Str("symbol", symbol).Msg("equity quote failed")
		return nil, err
	}
	return info, nil
}

func (c *Client) quoteSummary(ctx context.Context, symbol string) (*models.QuoteInfo, error) {
	crumb, err := c.crumb(ctx)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("modules", summaryMods)
	q.Set("crumb", crumb)
	reqURL := c.BaseURL + summaryPath + url.PathEscape(symbol) + "?" + q.Encode()

	resp, err := c.get(ctx, reqURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		c.crumbs.Delete(crumbKey)
		return nil, fmt.Errorf("yahoo api status %d", resp.StatusCode)
	}

	var body summaryResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&body); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("yahoo api status %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("decode quoteSummary: %w", err)
	}
	if e := body.QuoteSummary.Error; e != nil {
		if e.Code == "Not Found" || resp.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", ErrSymbolNotFound, e.Description)
		}
		return nil, fmt.Errorf("yahoo api error %s: %s", e.Code, e.Description)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("yahoo api status %d", resp.StatusCode)
	}
	if len(body.QuoteSummary.Result) == 0 {
		return nil, ErrSymbolNotFound
	}

	return body.QuoteSummary.Result[0].toInfo(symbol), nil
}

// crumb returns the cached session crumb, establishing a session if needed.
func (c *Client) crumb(ctx context.Context) (string, error) {
	if v, ok := c.crumbs.Get(crumbKey); ok {
		return v, nil
	}

	if c.SessionURL != "" {
		resp, err := c.get(ctx, c.SessionURL)
		if err != nil {
			return "", fmt.Errorf("failed to get cookie: %w", err)
		}
		// fc.yahoo.com answers 404 but still sets the session cookie
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		resp.Body.Close()
	}

	resp, err := c.get(ctx, c.BaseURL+crumbPath)
	if err != nil {
		return "", fmt.Errorf("failed to get crumb: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if err != nil {
		return "", fmt.Errorf("failed to read crumb: %w", err)
	}
	crumb := strings.TrimSpace(string(raw))
	if resp.StatusCode != http.StatusOK || crumb == "" || strings.ContainsAny(crumb, "<{ ") {
		return "", fmt.Errorf("%w (status %d)", ErrNoCrumb, resp.StatusCode)
	}

	c.crumbs.Set(crumbKey, crumb, crumbTTL)
	return crumb, nil
}

func (c *Client) get(ctx context.Context, reqURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	req.Header.Set("Accept", "application/json,text/html;q=0.9,*/*;q=0.8")
	return c.HTTP.Do(req)
}

// equityQuoteWith runs the context-less finance-go lookup and abandons it if
// ctx ends first.
func (c *Client) equityQuoteWith(ctx context.Context, symbol string, get EquityFunc) (*models.QuoteInfo, error) {
	type result struct {
		eq  *finance.Equity
		err error
	}
	ch := make(chan result, 1)
	go func() {
		eq, err := get(symbol)
		ch <- result{eq: eq, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.err != nil {
			return nil, r.err
		}
		if r.eq == nil {
			return nil, ErrSymbolNotFound
		}
		return equityToInfo(symbol, r.eq), nil
	}
}

func equityToInfo(symbol string, eq *finance.Equity) *models.QuoteInfo {
	info := &models.QuoteInfo{Symbol: symbol}
	if v := float64(eq.RegularMarketPrice); v != 0 {
		info.CurrentPrice = &v
	}
	if v := int64(eq.MarketCap); v != 0 {
		info.MarketCap = &v
	}
	if v := float64(eq.TrailingPE); v != 0 {
		info.TrailingPE = &v
	}
	return info
}

type summaryResponse struct {
	QuoteSummary struct {
		Result []summaryResult `json:"result"`
		Error  *apiError       `json:"error"`
	} `json:"quoteSummary"`
}

type apiError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type summaryResult struct {
	Price *struct {
		RegularMarketPrice rawValue `json:"regularMarketPrice"`
		MarketCap          rawValue `json:"marketCap"`
	} `json:"price"`
	SummaryDetail *struct {
		MarketCap  rawValue `json:"marketCap"`
		TrailingPE rawValue `json:"trailingPE"`
	} `json:"summaryDetail"`
	FinancialData *struct {
		CurrentPrice      rawValue `json:"currentPrice"`
		RecommendationKey *string  `json:"recommendationKey"`
	} `json:"financialData"`
	AssetProfile *struct {
		LongBusinessSummary *string `json:"longBusinessSummary"`
	} `json:"assetProfile"`
}

func (r summaryResult) toInfo(symbol string) *models.QuoteInfo {
	info := &models.QuoteInfo{Symbol: symbol}

	var marketCap *float64
	if r.FinancialData != nil {
		info.CurrentPrice = r.FinancialData.CurrentPrice.Value
		info.RecommendationKey = r.FinancialData.RecommendationKey
	}
	if r.SummaryDetail != nil {
		info.TrailingPE = r.SummaryDetail.TrailingPE.Value
		marketCap = r.SummaryDetail.MarketCap.Value
	}
	if r.Price != nil {
		if info.CurrentPrice == nil {
			info.CurrentPrice = r.Price.RegularMarketPrice.Value
		}
		if marketCap == nil {
			marketCap = r.Price.MarketCap.Value
		}
	}
	if marketCap != nil {
		v := int64(math.Round(*marketCap))
		info.MarketCap = &v
	}
	if r.AssetProfile != nil {
		info.LongBusinessSummary = r.AssetProfile.LongBusinessSummary
	}
	return info
}

// rawValue decodes Yahoo's {"raw": n, "fmt": "..."} wrapper, or a bare number.
// Anything else ({} , "Infinity", null) leaves Value nil.
type rawValue struct {
	Value *float64
}

func (v *rawValue) UnmarshalJSON(data []byte) error {
	if isNull(data) {
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		v.Value = &n
		return nil
	}
	var wrapped struct {
		Raw json.RawMessage `json:"raw"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil || len(wrapped.Raw) == 0 || isNull(wrapped.Raw) {
		return nil
	}
	if err := json.Unmarshal(wrapped.Raw, &n); err == nil {
		v.Value = &n
	}
	return nil
}

func isNull(data []byte) bool {
	return string(bytes.TrimSpace(data)) == "null"
}
