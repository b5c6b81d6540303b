// Command stock-mcp serves stock quotes, market news and a watchlist to MCP clients.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stock-mcp/internal/common"
	"stock-mcp/internal/duckduckgo"
	"stock-mcp/internal/market"
	"stock-mcp/internal/news"
	"stock-mcp/internal/server"
	"stock-mcp/internal/watchlist"
	"stock-mcp/internal/yahoo"
)

var (
	configPath = flag.String("config", "stock-mcp.toml", "Path to TOML config file (skipped if missing)")
	transport  = flag.String("transport", "", "Transport to serve: stdio or http (overrides config)")
	version    = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *version {
		fmt.Println(common.GetFullVersion())
		return
	}

	cfg, err := common.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *transport != "" {
		cfg.Server.Transport = *transport
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "Invalid config: %v\n", err)
			os.Exit(1)
		}
	}

	// stdout belongs to the stdio transport, so logs always go to stderr.
	logger := common.NewLogger(cfg.Logging.Level)

	srv := newServer(cfg, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info().
		Str("version", common.GetVersion()).
		Str("transport", cfg.Server.Transport).
		Strs("watchlist", cfg.Watchlist.Seed).
		Msg("Starting stock-mcp")

	switch cfg.Server.Transport {
	case common.TransportHTTP:
		err = serveHTTP(ctx, cfg.Server, srv, logger)
	default:
		err = srv.ServeStdio(ctx, os.Stdin, os.Stdout)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("Server failed")
	}
	logger.Info().Msg("Server stopped")
}

func newServer(cfg *common.Config, logger *common.Logger) *server.Server {
	// One cookie-carrying client serves both the quoteSummary path and finance-go.
	jar, _ := cookiejar.New(nil)
	yahooHTTP := &http.Client{Jar: jar, Timeout: cfg.Clients.Yahoo.GetTimeout()}
	yahoo.UseHTTPClient(yahooHTTP)
	quotes := yahoo.New(cfg.Clients.Yahoo, yahooHTTP, logger)

	ddg := duckduckgo.New(cfg.Clients.DuckDuckGo, nil)

	return server.New(
		market.NewService(quotes, cfg.Clients.Yahoo.GetTimeout(), logger),
		news.NewService(ddg, cfg.Clients.DuckDuckGo.GetTimeout(), logger),
		watchlist.New(cfg.Watchlist.Seed...),
		logger,
	)
}

func serveHTTP(ctx context.Context, cfg common.ServerConfig, srv *server.Server, logger *common.Logger) error {
	httpServer := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      srv.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 300 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if cfg.TLSCertFile != "" && cfg.TLSKeyFile != "" {
			logger.Info().Str("addr", cfg.Addr()).Msg("Starting HTTPS server")
			errCh <- httpServer.ListenAndServeTLS(cfg.TLSCertFile, cfg.TLSKeyFile)
			return
		}
		logger.Info().Str("addr", cfg.Addr()).Msg("Starting HTTP server")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("Shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
