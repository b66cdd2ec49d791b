package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

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
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"logging"`
	Redis struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix"`
	} `yaml:"redis"`
	Kafka struct {
		Enabled       bool     `yaml:"enabled"`
		Brokers       []string `yaml:"brokers"`
		ProgressTopic string   `yaml:"progress_topic"`
		RequiredAcks  int      `yaml:"required_acks"`
		Compression   string   `yaml:"compression"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Enabled     bool          `yaml:"enabled"`
		Host        string        `yaml:"host"`
		Port        int           `yaml:"port"`
		Database    string        `yaml:"database"`
		User        string        `yaml:"user"`
		Password    string        `yaml:"password"`
		DialTimeout time.Duration `yaml:"dial_timeout"`
	} `yaml:"clickhouse"`
	Fetch struct {
		CryptoBaseURL string        `yaml:"crypto_base_url"`
		EquityBaseURL string        `yaml:"equity_base_url"`
		EquityAPIKey  string        `yaml:"equity_api_key"`
		Timeout       time.Duration `yaml:"timeout"`
	} `yaml:"fetch"`
	OHLCV struct {
		CacheTTL   time.Duration `yaml:"cache_ttl"`   // OHLCV_CACHE_TTL
		MaxCandles int           `yaml:"max_candles"` // BATCH_MAX_CANDLES
	} `yaml:"ohlcv"`
	Decision struct {
		CacheTTL time.Duration `yaml:"cache_ttl"` // DECISION_CACHE_TTL
	} `yaml:"decision"`
	Batch struct {
		MaxSymbols int           `yaml:"max_symbols"` // BATCH_MAX_SYMBOLS
		JobTimeout time.Duration `yaml:"job_timeout"` // BATCH_JOB_TIMEOUT
		Workers    int           `yaml:"workers"`
	} `yaml:"batch"`
	Orchestrator struct {
		VolTargetAnnual     float64                       `yaml:"vol_target_annual"`
		MaxPositionFraction float64                       `yaml:"max_position_fraction"`
		Weights             map[string]map[string]float64 `yaml:"weights"` // regime -> engine -> weight
	} `yaml:"orchestrator"`
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

// LoadWithEnv loads config from YAML and overrides with environment
// variables. Missing files are tolerated: the defaults plus env cover
// every knob.
func LoadWithEnv(path string) (*Config, error) {
	var c Config
	if b, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}

	c.applyDefaults()
	c.applyEnv()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 10 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 10 * time.Second
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "stdout"
	}
	if c.Redis.Host == "" {
		c.Redis.Host = "localhost"
	}
	if c.Redis.Port == 0 {
		c.Redis.Port = 6379
	}
	if c.Redis.Prefix == "" {
		c.Redis.Prefix = "draks"
	}
	if c.Kafka.ProgressTopic == "" {
		c.Kafka.ProgressTopic = "draks.progress"
	}
	if c.Kafka.Compression == "" {
		c.Kafka.Compression = "gzip"
	}
	if c.Fetch.CryptoBaseURL == "" {
		c.Fetch.CryptoBaseURL = "https://api.binance.com"
	}
	if c.Fetch.Timeout == 0 {
		c.Fetch.Timeout = 15 * time.Second
	}
	if c.OHLCV.CacheTTL == 0 {
		c.OHLCV.CacheTTL = 600 * time.Second
	}
	if c.OHLCV.MaxCandles == 0 {
		c.OHLCV.MaxCandles = 500
	}
	if c.Decision.CacheTTL == 0 {
		c.Decision.CacheTTL = 600 * time.Second
	}
	if c.Batch.MaxSymbols == 0 {
		c.Batch.MaxSymbols = 50
	}
	if c.Batch.JobTimeout == 0 {
		c.Batch.JobTimeout = 300 * time.Second
	}
	if c.Batch.Workers == 0 {
		c.Batch.Workers = 4
	}
	if c.Orchestrator.VolTargetAnnual == 0 {
		c.Orchestrator.VolTargetAnnual = 0.15
	}
	if c.Orchestrator.MaxPositionFraction == 0 {
		c.Orchestrator.MaxPositionFraction = 0.02
	}
}

func (c *Config) applyEnv() {
	if v := os.Getenv("OHLCV_CACHE_TTL"); v != "" {
		if s, err := strconv.Atoi(v); err == nil {
			c.OHLCV.CacheTTL = time.Duration(s) * time.Second
		}
	}
	if v := os.Getenv("DECISION_CACHE_TTL"); v != "" {
		if s, err := strconv.Atoi(v); err == nil {
			c.Decision.CacheTTL = time.Duration(s) * time.Second
		}
	}
	if v := os.Getenv("BATCH_MAX_CANDLES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.OHLCV.MaxCandles = n
		}
	}
	if v := os.Getenv("BATCH_MAX_SYMBOLS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Batch.MaxSymbols = n
		}
	}
	if v := os.Getenv("BATCH_JOB_TIMEOUT"); v != "" {
		if s, err := strconv.Atoi(v); err == nil {
			c.Batch.JobTimeout = time.Duration(s) * time.Second
		}
	}
	if v := os.Getenv("ORCHESTRATOR_VOL_TARGET_ANNUAL"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Orchestrator.VolTargetAnnual = f
		}
	}
	if v := os.Getenv("ORCHESTRATOR_MAX_POSITION_FRACTION"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Orchestrator.MaxPositionFraction = f
		}
	}
	for env, regime := range map[string]string{
		"ENGINE_WEIGHTS_RISK_ON":  "risk_on",
		"ENGINE_WEIGHTS_RISK_OFF": "risk_off",
		"ENGINE_WEIGHTS_MIXED":    "mixed",
	} {
		v := os.Getenv(env)
		if v == "" {
			continue
		}
		var m map[string]float64
		if err := json.Unmarshal([]byte(v), &m); err == nil {
			if c.Orchestrator.Weights == nil {
				c.Orchestrator.Weights = make(map[string]map[string]float64)
			}
			c.Orchestrator.Weights[regime] = m
		}
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		if host, port, ok := splitHostPort(v); ok {
			c.Redis.Host = host
			if port != 0 {
				c.Redis.Port = port
			}
		}
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = splitCSV(v)
		c.Kafka.Enabled = true
	}
	if v := os.Getenv("EQUITY_API_KEY"); v != "" {
		c.Fetch.EquityAPIKey = v
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.OHLCV.MaxCandles <= 0 {
		return fmt.Errorf("ohlcv.max_candles must be positive")
	}
	if c.Batch.MaxSymbols <= 0 {
		return fmt.Errorf("batch.max_symbols must be positive")
	}
	if c.Batch.JobTimeout <= 0 {
		return fmt.Errorf("batch.job_timeout must be positive")
	}
	if c.Orchestrator.MaxPositionFraction <= 0 || c.Orchestrator.MaxPositionFraction > 1 {
		return fmt.Errorf("orchestrator.max_position_fraction must be in (0,1]")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers required when kafka is enabled")
	}
	if c.ClickHouse.Enabled && c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host required when clickhouse is enabled")
	}
	return nil
}

// JobRetention is how long job meta and per-symbol results are kept.
func (c *Config) JobRetention() time.Duration {
	return c.Batch.JobTimeout * 10
}

func splitCSV(s string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	return out
}

func splitHostPort(s string) (string, int, bool) {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == ':' {
			p, err := strconv.Atoi(s[i+1:])
			if err != nil {
				return "", 0, false
			}
			return s[:i], p, true
		}
	}
	return s, 0, true
}
