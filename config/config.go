package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/spooky-finn/go-bitmex-orderbook/domain"
	"gopkg.in/yaml.v3"
)

const (
	BackoffKind_Fixed       = "fixed"
	BackoffKind_Exponential = "exponential"
)

type Feed struct {
	Endpoint      string        `yaml:"endpoint" env:"BITMEX_ENDPOINT"`
	Symbol        string        `yaml:"symbol" env:"BITMEX_SYMBOL"`
	SymbolTopics  []string      `yaml:"symbol_topics" env:"BITMEX_SYMBOL_TOPICS" envSeparator:","`
	GenericTopics []string      `yaml:"generic_topics" env:"BITMEX_GENERIC_TOPICS" envSeparator:","`
	Handshake     time.Duration `yaml:"handshake_timeout" env:"BITMEX_HANDSHAKE_TIMEOUT"`

	// credentials come from the environment only
	APIKey    string `yaml:"-" env:"BITMEX_API_KEY"`
	APISecret string `yaml:"-" env:"BITMEX_API_SECRET"`
}

type Book struct {
	Depth           int           `yaml:"depth" env:"BOOK_DEPTH"`
	PublishInterval time.Duration `yaml:"publish_interval" env:"BOOK_PUBLISH_INTERVAL"`
}

type Backoff struct {
	Kind string        `yaml:"kind" env:"BACKOFF_KIND"`
	Min  time.Duration `yaml:"min" env:"BACKOFF_MIN"`
	Max  time.Duration `yaml:"max" env:"BACKOFF_MAX"`
}

type Supervisor struct {
	ConnectAttempts int           `yaml:"connect_attempts" env:"CONNECT_ATTEMPTS"`
	ConnectInterval time.Duration `yaml:"connect_interval" env:"CONNECT_INTERVAL"`
	Backoff         Backoff       `yaml:"backoff"`
}

type Logging struct {
	Level  string `yaml:"level" env:"LOG_LEVEL"`
	Pretty bool   `yaml:"pretty" env:"LOG_PRETTY"`
}

type Server struct {
	GRPCAddr    string `yaml:"grpc_addr" env:"GRPC_ADDR"`
	MetricsAddr string `yaml:"metrics_addr" env:"METRICS_ADDR"`
}

type Config struct {
	Feed       Feed       `yaml:"feed"`
	Book       Book       `yaml:"book"`
	Supervisor Supervisor `yaml:"supervisor"`
	Logging    Logging    `yaml:"logging"`
	Server     Server     `yaml:"server"`
	DebugMode  bool       `yaml:"debug" env:"DEBUG"`
}

func Default() Config {
	var c Config
	c.Feed.Endpoint = "wss://www.bitmex.com/realtime"
	c.Feed.Symbol = "XBTUSD"
	c.Feed.SymbolTopics = []string{"orderBookL2"}
	c.Feed.GenericTopics = []string{}
	c.Feed.Handshake = 5 * time.Second
	c.Book.Depth = 5
	c.Book.PublishInterval = time.Millisecond
	c.Supervisor.ConnectAttempts = 5
	c.Supervisor.ConnectInterval = time.Second
	c.Supervisor.Backoff.Kind = BackoffKind_Fixed
	c.Supervisor.Backoff.Min = 10 * time.Second
	c.Supervisor.Backoff.Max = 10 * time.Second
	c.Logging.Level = "info"
	c.Server.GRPCAddr = ":50051"
	c.Server.MetricsAddr = ":8080"
	return c
}

// Load builds the config from defaults, then the YAML file at path (or $BITMEX_CONFIG),
// then .env and the process environment.
func Load(path string) (*Config, error) {
	c := Default()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if path == "" {
		path = os.Getenv("BITMEX_CONFIG")
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := env.Parse(&c); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) Validate() error {
	if c.Feed.APIKey != "" && c.Feed.APISecret == "" {
		return fmt.Errorf("%w: api secret is required if api key is provided", domain.ErrConfig)
	}
	if c.Feed.APIKey == "" && c.Feed.APISecret != "" {
		return fmt.Errorf("%w: api key is required if api secret is provided", domain.ErrConfig)
	}
	if _, err := domain.NewMarketSymbol(c.Feed.Symbol); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrConfig, err)
	}
	if c.Feed.Endpoint == "" {
		return fmt.Errorf("%w: endpoint must not be empty", domain.ErrConfig)
	}
	if c.Book.Depth < 1 {
		return fmt.Errorf("%w: book depth must be positive", domain.ErrConfig)
	}
	if c.Supervisor.ConnectAttempts < 1 {
		return fmt.Errorf("%w: connect attempts must be positive", domain.ErrConfig)
	}
	switch c.Supervisor.Backoff.Kind {
	case BackoffKind_Fixed, BackoffKind_Exponential:
	default:
		return fmt.Errorf("%w: unknown backoff kind %q", domain.ErrConfig, c.Supervisor.Backoff.Kind)
	}
	if c.Supervisor.Backoff.Min <= 0 || c.Supervisor.Backoff.Max < c.Supervisor.Backoff.Min {
		return fmt.Errorf("%w: backoff bounds are invalid", domain.ErrConfig)
	}
	return nil
}
