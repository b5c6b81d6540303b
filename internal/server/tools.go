package server

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// createGetStockDataTool returns the get_stock_data tool definition
func createGetStockDataTool() mcp.Tool {
	return mcp.NewTool("get_stock_data",
		mcp.WithDescription("Get current price, market cap, P/E ratio, analyst recommendation and a short business summary for a stock."),
		mcp.WithString("ticker",
			mcp.Required(),
			mcp.Description("Stock ticker symbol (e.g., 'AAPL', 'MSFT')"),
		),
	)
}

// createGetMarketNewsTool returns the get_market_news tool definition
func createGetMarketNewsTool() mcp.Tool {
	return mcp.NewTool("get_market_news",
		mcp.WithDescription("Search for the latest financial news about a company or topic. Returns up to 3 articles."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Free-text search query (e.g., 'Apple earnings')"),
		),
	)
}

// createAddToWatchlistTool returns the add_to_watchlist tool definition
func createAddToWatchlistTool() mcp.Tool {
	return mcp.NewTool("add_to_watchlist",
		mcp.WithDescription("Add a stock ticker to the watchlist."),
		mcp.WithString("ticker",
			mcp.Required(),
			mcp.Description("Stock ticker symbol to track"),
		),
	)
}

func createWatchlistResource() mcp.Resource {
	return mcp.NewResource(WatchlistURI, "watchlist",
		mcp.WithResourceDescription("View the current user's stock watchlist."),
		mcp.WithMIMEType("text/plain"),
	)
}

func (s *Server) handleGetStockData(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ticker, errRes := stringArg(request, "ticker")
	if errRes != nil {
		return errRes, nil
	}

	text, ok := s.stocks.GetStockData(ctx, ticker)
	if !ok {
		return errorResult(text), nil
	}
	return textResult(text), nil
}

func (s *Server) handleGetMarketNews(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, errRes := stringArg(request, "query")
	if errRes != nil {
		return errRes, nil
	}

	text, ok := s.news.GetMarketNews(ctx, query)
	if !ok {
		return errorResult(text), nil
	}
	return textResult(text), nil
}

func (s *Server) handleAddToWatchlist(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ticker, errRes := stringArg(request, "ticker")
	if errRes != nil {
		return errRes, nil
	}

	msg := s.watchlist.Add(ticker)
	s.logger.Info().Str("ticker", ticker).Str("watchlist", s.watchlist.View()).Msg("Watchlist add")
	return textResult(msg), nil
}

func (s *Server) handleWatchlistResource(_ context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "text/plain",
			Text:     s.watchlist.View(),
		},
	}, nil
}

// stringArg reads a required string argument, returning an error result that
// tells a missing argument apart from one of the wrong type.
func stringArg(request mcp.CallToolRequest, key string) (string, *mcp.CallToolResult) {
	v, ok := request.GetArguments()[key]
	if !ok || v == nil {
		return "", errorResult(fmt.Sprintf("Error: %s parameter is required", key))
	}
	str, ok := v.(string)
	if !ok {
		return "", errorResult(fmt.Sprintf("Error: %s parameter must be a string", key))
	}
	return str, nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(text),
		},
	}
}

func errorResult(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(message),
		},
		IsError: true,
	}
}

// resultText returns the text of the first text content block
func resultText(result *mcp.CallToolResult) string {
	if result == nil {
		return ""
	}
	for _, c := range result.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}
