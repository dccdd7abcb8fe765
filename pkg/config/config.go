package config

import (
	"fmt"
	"os"
	"strings"
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
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Backend struct {
		Type         string        `yaml:"type"`
		BatchSize    int           `yaml:"batch_size"`
		BatchTimeout time.Duration `yaml:"batch_timeout"`
	} `yaml:"backend"`
	Kafka struct {
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic"`
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id"`
			Workers    int           `yaml:"workers"`
			BufferSize int           `yaml:"buffer_size"`
			RetryMax   int           `yaml:"retry_max"`
			BackoffMin time.Duration `yaml:"backoff_min"`
			BackoffMax time.Duration `yaml:"backoff_max"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes"`
			MaxBytes   int           `yaml:"max_bytes"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Binance struct {
		APIKey         string        `yaml:"api_key"`
		SecretKey      string        `yaml:"secret_key"`
		Symbols        []string      `yaml:"symbols"`
		Timeframes     []string      `yaml:"timeframes"`
		BackfillBars   int           `yaml:"backfill_bars"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay"`
	} `yaml:"binance"`
	Agent struct {
		CycleInterval      time.Duration `yaml:"cycle_interval"`
		AutoStart          bool          `yaml:"auto_start"`
		ConsensusThreshold float64       `yaml:"consensus_threshold"`
		AutonomyThreshold  float64       `yaml:"autonomy_threshold"`
		MaxAgents          int           `yaml:"max_agents"`
		StaleAfter         time.Duration `yaml:"stale_after"`
	} `yaml:"agent"`
	Risk struct {
		AccountBalance       float64 `yaml:"account_balance"`
		RiskPerTrade         float64 `yaml:"risk_per_trade"`
		MaxDailyDrawdown     float64 `yaml:"max_daily_drawdown"`
		MaxDailyLoss         float64 `yaml:"max_daily_loss"`
		MaxConsecutiveLosses int     `yaml:"max_consecutive_losses"`
		MaxOpenPositions     int     `yaml:"max_open_positions"`
		MaxPerSymbol         int     `yaml:"max_per_symbol"`
		MinRiskReward        float64 `yaml:"min_risk_reward"`
	} `yaml:"risk"`
	LLM struct {
		Provider    string        `yaml:"provider"`
		BaseURL     string        `yaml:"base_url"`
		APIKey      string        `yaml:"api_key"`
		Model       string        `yaml:"model"`
		Temperature float64       `yaml:"temperature"`
		MaxTokens   int           `yaml:"max_tokens"`
		Timeout     time.Duration `yaml:"timeout"`
	} `yaml:"llm"`
	Sentiment struct {
		FearGreedURL string        `yaml:"fear_greed_url"`
		CacheTTL     time.Duration `yaml:"cache_ttl"`
	} `yaml:"sentiment"`
	Calendar struct {
		FeedURL  string        `yaml:"feed_url"`
		CacheTTL time.Duration `yaml:"cache_ttl"`
	} `yaml:"calendar"`
	Settings struct {
		Path       string `yaml:"path"`
		WatchFile  bool   `yaml:"watch_file"`
		HistoryCap int    `yaml:"history_cap"`
	} `yaml:"settings"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Learning struct {
		ModelDir      string `yaml:"model_dir"`
		RetrainEvery  int    `yaml:"retrain_every"`
		MinSamples    int    `yaml:"min_samples"`
		BufferSize    int    `yaml:"buffer_size"`
		WindowTrades  int    `yaml:"window_trades"`
		RecentLookups int    `yaml:"recent_lookups"`
	} `yaml:"learning"`
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

	// Validate required fields
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

	// Override with environment variables
	if v := os.Getenv("BINANCE_API_KEY"); v != "" {
		c.Binance.APIKey = v
	}
	if v := os.Getenv("BINANCE_SECRET_KEY"); v != "" {
		c.Binance.SecretKey = v
	}
	if v := os.Getenv("SYMBOLS"); v != "" {
		c.Binance.Symbols = strings.Split(v, ",")
	}
	if v := os.Getenv("BACKEND"); v != "" {
		c.Backend.Type = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}

	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Backend.Type == "" {
		return fmt.Errorf("backend.type is required")
	}
	if c.Backend.Type != "kafka" && c.Backend.Type != "clickhouse" {
		return fmt.Errorf("backend.type must be 'kafka' or 'clickhouse', got '%s'", c.Backend.Type)
	}
	if len(c.Binance.Symbols) == 0 {
		return fmt.Errorf("binance.symbols cannot be empty")
	}
	if len(c.Binance.Timeframes) == 0 {
		return fmt.Errorf("binance.timeframes cannot be empty")
	}
	if c.Risk.RiskPerTrade < 0 || c.Risk.RiskPerTrade > 0.1 {
		return fmt.Errorf("risk.risk_per_trade must be within [0, 0.1], got %v", c.Risk.RiskPerTrade)
	}
	if c.Agent.ConsensusThreshold < 0 || c.Agent.ConsensusThreshold > 1 {
		return fmt.Errorf("agent.consensus_threshold must be within [0, 1], got %v", c.Agent.ConsensusThreshold)
	}
	return nil
}
