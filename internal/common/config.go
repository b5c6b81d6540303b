package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

const defaultTimeout = 10 * time.Second

// Transport names accepted by ServerConfig.Transport
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// Config holds all configuration for stock-mcp
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Clients   ClientsConfig   `toml:"clients"`
	Watchlist WatchlistConfig `toml:"watchlist"`
	Logging   LoggingConfig   `toml:"logging"`
}

// ServerConfig holds transport configuration. TLS is only used by the http
// transport, and only when both files are set.
type ServerConfig struct {
	Transport   string `toml:"transport"`
	Host        string `toml:"host"`
	Port        int    `toml:"port"`
	TLSCertFile string `toml:"tls_cert_file"`
	TLSKeyFile  string `toml:"tls_key_file"`
}

// Addr returns the listen address for the http transport
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ClientsConfig holds external provider configuration
type ClientsConfig struct {
	Yahoo      YahooConfig      `toml:"yahoo"`
	DuckDuckGo DuckDuckGoConfig `toml:"duckduckgo"`
}

// YahooConfig holds Yahoo Finance configuration
type YahooConfig struct {
	BaseURL    string `toml:"base_url"`
	SessionURL string `toml:"session_url"`
	UserAgent  string `toml:"user_agent"`
	Timeout    string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *YahooConfig) GetTimeout() time.Duration {
	return parseTimeout(c.Timeout)
}

// DuckDuckGoConfig holds DuckDuckGo news search configuration
type DuckDuckGoConfig struct {
	BaseURL    string `toml:"base_url"`
	Region     string `toml:"region"`
	SafeSearch string `toml:"safesearch"`
	UserAgent  string `toml:"user_agent"`
	Timeout    string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *DuckDuckGoConfig) GetTimeout() time.Duration {
	return parseTimeout(c.Timeout)
}

// WatchlistConfig holds the symbols the watchlist starts with
type WatchlistConfig struct {
	Seed []string `toml:"seed"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `toml:"level"`
}

const defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Transport: TransportStdio,
			Host:      "0.0.0.0",
			Port:      3000,
		},
		Clients: ClientsConfig{
			Yahoo: YahooConfig{
				BaseURL:    "https://query1.finance.yahoo.com",
				SessionURL: "https://fc.yahoo.com",
				UserAgent:  defaultUserAgent,
				Timeout:    "10s",
			},
			DuckDuckGo: DuckDuckGoConfig{
				BaseURL:    "https://duckduckgo.com",
				Region:     "wt-wt",
				SafeSearch: "moderate",
				UserAgent:  defaultUserAgent,
				Timeout:    "10s",
			},
		},
		Watchlist: WatchlistConfig{
			Seed: []string{"AAPL", "GOOGL"},
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides.
// Missing files are skipped; later files override earlier ones.
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate reports configuration values the server cannot start with
func (c *Config) Validate() error {
	switch c.Server.Transport {
	case TransportStdio, TransportHTTP:
	default:
		return fmt.Errorf("unknown transport %q (want %q or %q)", c.Server.Transport, TransportStdio, TransportHTTP)
	}
	if c.Server.Transport == TransportHTTP && (c.Server.Port <= 0 || c.Server.Port > 65535) {
		return fmt.Errorf("invalid port %d", c.Server.Port)
	}
	if (c.Server.TLSCertFile == "") != (c.Server.TLSKeyFile == "") {
		return fmt.Errorf("tls_cert_file and tls_key_file must be set together")
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	config.Server.Transport = getEnv("STOCK_MCP_TRANSPORT", config.Server.Transport)
	config.Server.Host = getEnv("STOCK_MCP_HOST", config.Server.Host)
	config.Server.Port = getEnvInt("STOCK_MCP_PORT", config.Server.Port)
	config.Server.TLSCertFile = getEnv("STOCK_MCP_TLS_CERT_FILE", config.Server.TLSCertFile)
	config.Server.TLSKeyFile = getEnv("STOCK_MCP_TLS_KEY_FILE", config.Server.TLSKeyFile)
	config.Logging.Level = getEnv("STOCK_MCP_LOG_LEVEL", config.Logging.Level)

	if seed := splitCSV(os.Getenv("STOCK_MCP_WATCHLIST")); len(seed) > 0 {
		config.Watchlist.Seed = seed
	}
}

func parseTimeout(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return defaultTimeout
	}
	return d
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func splitCSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
