package config

import (
	"fmt"
	"os"
	"time"

	"MarketPulse/pkg/util"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Tradier struct {
		APIKey          string        `yaml:"api_key"`
		Environment     string        `yaml:"environment"` // sandbox or production
		Timeout         time.Duration `yaml:"timeout"`
		MaxAttempts     int           `yaml:"max_attempts"`
		BackoffBase     time.Duration `yaml:"backoff_base"`
		PenaltyCooldown time.Duration `yaml:"penalty_cooldown"`
	} `yaml:"tradier"`
	RateLimit struct {
		Capacity     float64 `yaml:"capacity"`
		RefillPerMin float64 `yaml:"refill_per_min"`
	} `yaml:"ratelimit"`
	Cache struct {
		QuoteTTL       time.Duration `yaml:"quote_ttl"`
		ChainTTL       time.Duration `yaml:"chain_ttl"`
		HistoryTTL     time.Duration `yaml:"history_ttl"`
		SentimentTTL   time.Duration `yaml:"sentiment_ttl"`
		StaleRetention time.Duration `yaml:"stale_retention"`
		SweepInterval  time.Duration `yaml:"sweep_interval"`
		Redis          struct {
			Enabled  bool   `yaml:"enabled"`
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	Sentiment struct {
		Underlying      string        `yaml:"underlying"`
		VIXTicker       string        `yaml:"vix_ticker"`
		FuturesTicker   string        `yaml:"futures_ticker"`
		VIXLow          float64       `yaml:"vix_low"`
		VIXHigh         float64       `yaml:"vix_high"`
		FuturesBullish  float64       `yaml:"futures_bullish_pct"`
		RSIPeriod       int           `yaml:"rsi_period"`
		RSIUpper        float64       `yaml:"rsi_upper"`
		RSILower        float64       `yaml:"rsi_lower"`
		MAPeriod        int           `yaml:"ma_period"`
		BollPeriod      int           `yaml:"bollinger_period"`
		BollStdDev      float64       `yaml:"bollinger_std_dev"`
		BollInnerRange  float64       `yaml:"bollinger_inner_range"`
		MinScore        float64       `yaml:"min_score"`
		HistoryDays     int           `yaml:"history_days"`
		RefreshInterval time.Duration `yaml:"refresh_interval"` // 0 disables the scheduler
	} `yaml:"sentiment"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("TRADIER_API_KEY"); v != "" {
		c.Tradier.APIKey = v
	}
	if v := os.Getenv("TRADIER_ENV"); v != "" {
		c.Tradier.Environment = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Cache.Redis.Addr = v
		c.Cache.Redis.Enabled = true
	}
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Port = util.ParseIntDefault(v, c.Server.Port)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Tradier.Environment == "" {
		c.Tradier.Environment = "sandbox"
	}
	if c.Tradier.Timeout == 0 {
		c.Tradier.Timeout = 10 * time.Second
	}
	if c.Tradier.MaxAttempts == 0 {
		c.Tradier.MaxAttempts = 3
	}
	if c.Tradier.BackoffBase == 0 {
		c.Tradier.BackoffBase = 500 * time.Millisecond
	}
	if c.Tradier.PenaltyCooldown == 0 {
		c.Tradier.PenaltyCooldown = 5 * time.Minute
	}
	if c.RateLimit.Capacity == 0 {
		c.RateLimit.Capacity = 5
	}
	if c.RateLimit.RefillPerMin == 0 {
		c.RateLimit.RefillPerMin = 5
	}
	if c.Cache.QuoteTTL == 0 {
		c.Cache.QuoteTTL = 60 * time.Second
	}
	if c.Cache.ChainTTL == 0 {
		c.Cache.ChainTTL = 5 * time.Minute
	}
	if c.Cache.HistoryTTL == 0 {
		c.Cache.HistoryTTL = time.Hour
	}
	if c.Cache.SentimentTTL == 0 {
		c.Cache.SentimentTTL = 5 * time.Minute
	}
	if c.Cache.StaleRetention == 0 {
		c.Cache.StaleRetention = 24 * time.Hour
	}
	if c.Cache.SweepInterval == 0 {
		c.Cache.SweepInterval = 5 * time.Minute
	}
	if c.Sentiment.Underlying == "" {
		c.Sentiment.Underlying = "SPY"
	}
	if c.Sentiment.VIXLow == 0 {
		c.Sentiment.VIXLow = 16
	}
	if c.Sentiment.VIXHigh == 0 {
		c.Sentiment.VIXHigh = 20
	}
	if c.Sentiment.FuturesBullish == 0 {
		c.Sentiment.FuturesBullish = 0.1
	}
	if c.Sentiment.RSIPeriod == 0 {
		c.Sentiment.RSIPeriod = 14
	}
	if c.Sentiment.RSIUpper == 0 {
		c.Sentiment.RSIUpper = 70
	}
	if c.Sentiment.RSILower == 0 {
		c.Sentiment.RSILower = 30
	}
	if c.Sentiment.MAPeriod == 0 {
		c.Sentiment.MAPeriod = 20
	}
	if c.Sentiment.BollPeriod == 0 {
		c.Sentiment.BollPeriod = 20
	}
	if c.Sentiment.BollStdDev == 0 {
		c.Sentiment.BollStdDev = 2
	}
	if c.Sentiment.BollInnerRange == 0 {
		c.Sentiment.BollInnerRange = 0.8
	}
	if c.Sentiment.MinScore == 0 {
		c.Sentiment.MinScore = 60
	}
	if c.Sentiment.HistoryDays == 0 {
		c.Sentiment.HistoryDays = 60
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Tradier.APIKey == "" {
		return fmt.Errorf("tradier.api_key is required")
	}
	if c.Tradier.Environment != "sandbox" && c.Tradier.Environment != "production" {
		return fmt.Errorf("tradier.environment must be 'sandbox' or 'production', got '%s'", c.Tradier.Environment)
	}
	if c.RateLimit.Capacity <= 0 {
		return fmt.Errorf("ratelimit.capacity must be positive")
	}
	if c.RateLimit.RefillPerMin <= 0 {
		return fmt.Errorf("ratelimit.refill_per_min must be positive")
	}
	if c.Sentiment.VIXHigh <= c.Sentiment.VIXLow {
		return fmt.Errorf("sentiment.vix_high must exceed sentiment.vix_low")
	}
	if c.Cache.Redis.Enabled && c.Cache.Redis.Addr == "" {
		return fmt.Errorf("cache.redis.addr is required when redis is enabled")
	}
	return nil
}
