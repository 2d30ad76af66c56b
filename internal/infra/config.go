package infra

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"stock_checker/internal/domain"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config는 애플리케이션의 모든 설정을 담습니다.
// LoadConfig로 로드된 후에 환경 변수를 통해 민감 내용을 덮어씁니다.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Server struct {
		Addr            string `yaml:"addr"`
		ReadTimeoutSec  int    `yaml:"read_timeout_sec"`
		WriteTimeoutSec int    `yaml:"write_timeout_sec"`
		TrustProxy      bool   `yaml:"trust_proxy"`
	} `yaml:"server"`

	Storage struct {
		Driver     string `yaml:"driver"` // "sqlite" or "redis"
		SQLitePath string `yaml:"sqlite_path"`
		Redis      struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"storage"`

	Quote struct {
		BaseURL   string  `yaml:"base_url"`
		TimeoutMS int     `yaml:"timeout_ms"`
		RPS       float64 `yaml:"rps"`
		Burst     int     `yaml:"burst"`
	} `yaml:"quote"`

	Security struct {
		HashCost int `yaml:"hash_cost"`
	} `yaml:"security"`

	Logging struct {
		Level string `yaml:"level"`
		Dir   string `yaml:"dir"`
	} `yaml:"logging"`
}

// DefaultConfig returns the settings used for anything the file leaves out
func DefaultConfig() *Config {
	var cfg Config
	cfg.App.Name = "Stock Price Checker"
	cfg.App.Version = "dev"
	cfg.Server.Addr = ":3000"
	cfg.Server.ReadTimeoutSec = 10
	cfg.Server.WriteTimeoutSec = 15
	cfg.Storage.Driver = "sqlite"
	cfg.Storage.SQLitePath = "data/stocks.db"
	cfg.Storage.Redis.Addr = "localhost:6379"
	cfg.Quote.BaseURL = "https://stock-price-checker-proxy.freecodecamp.rocks"
	cfg.Quote.TimeoutMS = 5000
	cfg.Quote.RPS = 10
	cfg.Quote.Burst = 20
	cfg.Security.HashCost = 12
	cfg.Logging.Level = "info"
	cfg.Logging.Dir = "logs"
	return &cfg
}

// LoadConfig는 설정 파일을 읽고 파싱합니다.
// A missing file is not an error; defaults and environment still apply.
func LoadConfig(path string) (*Config, error) {
	// .env is optional; real environment variables win over it
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("Failed to load .env file", slog.Any("error", err))
	}

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		slog.Info("Config file not found, using defaults", slog.String("path", path))
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, &domain.ConfigError{Field: path, Err: err}
		}
	}

	// 4원칙: 보안 우선 - 환경 변수 오버라이드 지원
	overrideWithEnv(cfg)

	// 5원칙: 설정 유효성 검사
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return &domain.ConfigError{Field: "server.addr", Err: errors.New("must not be empty")}
	}

	switch c.Storage.Driver {
	case "sqlite":
		if c.Storage.SQLitePath == "" {
			return &domain.ConfigError{Field: "storage.sqlite_path", Err: errors.New("required for sqlite driver")}
		}
	case "redis":
		if c.Storage.Redis.Addr == "" {
			return &domain.ConfigError{Field: "storage.redis.addr", Err: errors.New("required for redis driver")}
		}
	default:
		return &domain.ConfigError{Field: "storage.driver", Err: fmt.Errorf("unsupported driver %q", c.Storage.Driver)}
	}

	if !strings.HasPrefix(c.Quote.BaseURL, "http://") && !strings.HasPrefix(c.Quote.BaseURL, "https://") {
		return &domain.ConfigError{Field: "quote.base_url", Err: fmt.Errorf("invalid URL: %s", c.Quote.BaseURL)}
	}
	if c.Quote.TimeoutMS <= 0 {
		return &domain.ConfigError{Field: "quote.timeout_ms", Err: errors.New("must be positive")}
	}

	return nil
}

// QuoteTimeout returns the per-fetch deadline
func (c *Config) QuoteTimeout() time.Duration {
	return time.Duration(c.Quote.TimeoutMS) * time.Millisecond
}

// overrideWithEnv는 환경 변수가 존재할 경우 설정 값을 덮어씁니다.
func overrideWithEnv(cfg *Config) {
	if addr := os.Getenv("STOCK_SERVER_ADDR"); addr != "" {
		cfg.Server.Addr = addr
	} else if port := os.Getenv("PORT"); port != "" {
		cfg.Server.Addr = ":" + port
	}
	if driver := os.Getenv("STOCK_STORAGE_DRIVER"); driver != "" {
		cfg.Storage.Driver = driver
	}
	if path := os.Getenv("STOCK_SQLITE_PATH"); path != "" {
		cfg.Storage.SQLitePath = path
	}
	if addr := os.Getenv("STOCK_REDIS_ADDR"); addr != "" {
		cfg.Storage.Redis.Addr = addr
	}
	if pass := os.Getenv("STOCK_REDIS_PASSWORD"); pass != "" {
		cfg.Storage.Redis.Password = pass
	}
	if url := os.Getenv("STOCK_QUOTE_URL"); url != "" {
		cfg.Quote.BaseURL = url
	}
	if cost := os.Getenv("STOCK_HASH_COST"); cost != "" {
		if n, err := strconv.Atoi(cost); err == nil {
			cfg.Security.HashCost = n
		}
	}
	if level := os.Getenv("STOCK_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
}
