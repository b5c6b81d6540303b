// Package server exposes the stock tools over MCP and a small JSON HTTP API.
package server

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"stock-mcp/internal/common"
)

// Name is the MCP server name reported to clients
const Name = "Wall Street Analyst"

// WatchlistURI is the URI of the watchlist resource
const WatchlistURI = "stock://watchlist"

// StockData looks up a quote snapshot as text; ok is false for error text.
type StockData interface {
	GetStockData(ctx context.Context, ticker string) (text string, ok bool)
}

// MarketNews searches news as text; ok is false for error text.
type MarketNews interface {
	GetMarketNews(ctx context.Context, query string) (text string, ok bool)
}

// Watchlist is the shared list read by the resource and appended by a tool.
type Watchlist interface {
	View() string
	Add(ticker string) string
}

// Server contains the MCP server, the HTTP router and the tool handlers both dispatch to.
type Server struct {
	stocks    StockData
	news      MarketNews
	watchlist Watchlist
	logger    *common.Logger

	mcp          *mcpserver.MCPServer
	router       *chi.Mux
	tools        []mcp.Tool
	toolHandlers map[string]mcpserver.ToolHandlerFunc
}

// New constructs a Server with tools, the watchlist resource and routes registered.
func New(stocks StockData, news MarketNews, watchlist Watchlist, logger *common.Logger) *Server {
	s := &Server{
		stocks:    stocks,
		news:      news,
		watchlist: watchlist,
		logger:    logger,
		router:    chi.NewRouter(),
		mcp: mcpserver.NewMCPServer(
			Name,
			common.GetVersion(),
			mcpserver.WithToolCapabilities(false),
			mcpserver.WithResourceCapabilities(false, false),
			mcpserver.WithRecovery(),
		),
	}

	s.registerToolHandlers()
	s.registerResources()
	s.registerRoutes()

	return s
}

func (s *Server) registerToolHandlers() {
	s.toolHandlers = make(map[string]mcpserver.ToolHandlerFunc)
	s.addTool(createGetStockDataTool(), s.handleGetStockData)
	s.addTool(createGetMarketNewsTool(), s.handleGetMarketNews)
	s.addTool(createAddToWatchlistTool(), s.handleAddToWatchlist)
}

func (s *Server) addTool(tool mcp.Tool, handler mcpserver.ToolHandlerFunc) {
	s.tools = append(s.tools, tool)
	s.toolHandlers[tool.Name] = handler
	s.mcp.AddTool(tool, handler)
}

func (s *Server) registerResources() {
	s.mcp.AddResource(createWatchlistResource(), s.handleWatchlistResource)
}

func (s *Server) registerRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(s.logger))
	s.router.Use(middleware.Recoverer)

	s.router.Get("/health", s.handleHealth)

	// Streamable HTTP holds SSE streams open, so it sits outside the timeout group.
	s.router.Handle("/mcp", mcpserver.NewStreamableHTTPServer(s.mcp,
		mcpserver.WithStateLess(true),
	))

	s.router.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))
		r.Get("/tools", s.handleListTools)
		r.Post("/call", s.handleCall)
		r.Get("/watchlist", s.handleViewWatchlist)
	})
}

// Router exposes the root HTTP handler for the server.
func (s *Server) Router() http.Handler { return s.router }

// MCP exposes the underlying MCP server, e.g. for the stdio transport.
func (s *Server) MCP() *mcpserver.MCPServer { return s.mcp }

// ServeStdio runs the MCP server over newline-delimited JSON-RPC on in and out
// until ctx is cancelled or in is closed. Diagnostics go to the logger, never out.
func (s *Server) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := mcpserver.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(log.New(s.logger, "", 0))
	return stdio.Listen(ctx, in, out)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": common.GetVersion()})
}

func (s *Server) handleListTools(w http.ResponseWriter, _ *http.Request) {
	tools := make([]Tool, 0, len(s.tools))
	for _, t := range s.tools {
		tools = append(tools, Tool{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.InputSchema,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"tools": tools})
}

func (s *Server) handleCall(w http.ResponseWriter, r *http.Request) {
	var req CallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	handler, ok := s.toolHandlers[req.Name]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown tool"})
		return
	}

	call := mcp.CallToolRequest{}
	call.Params.Name = req.Name
	call.Params.Arguments = req.Args
	result, err := handler(r.Context(), call)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, CallResponse{
		Result:  resultText(result),
		IsError: result.IsError,
	})
}

func (s *Server) handleViewWatchlist(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(s.watchlist.View()))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
