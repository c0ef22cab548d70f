package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"required"`

	Server struct {
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	} `yaml:"server"`

	Log struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"console"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"log"`

	// Symbols is the fixed instrument set the pipeline tracks.
	Symbols []string `yaml:"symbols" validate:"min=1"`

	Ingest struct {
		Transport  string `yaml:"transport" default:"kafka" validate:"oneof=kafka ws"`
		MaxRPS     int    `yaml:"max_rps" default:"50"`
		BufferSize int    `yaml:"buffer_size" default:"2000"`
	} `yaml:"ingest"`

	Kafka struct {
		Brokers      []string `yaml:"brokers"`
		TicksTopic   string   `yaml:"ticks_topic" default:"market.ticks"`
		SignalsTopic string   `yaml:"signals_topic" default:"signals.enhanced"`
		RequiredAcks int      `yaml:"required_acks" default:"-1"`
		Compression  string   `yaml:"compression" default:"gzip"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"1s"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id" default:"signalforge"`
			Workers    int           `yaml:"workers" default:"2"`
			BufferSize int           `yaml:"buffer_size" default:"256"`
			RetryMax   int           `yaml:"retry_max" default:"3"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"50ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"2s"`
			MinBytes   int           `yaml:"min_bytes" default:"1"`
			MaxBytes   int           `yaml:"max_bytes" default:"10000000"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`

	// Bridge configures the WebSocket market-data bridge when
	// ingest.transport is "ws".
	Bridge struct {
		URL            string        `yaml:"url"`
		APIKey         string        `yaml:"api_key"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay" default:"5s"`
		PingInterval   time.Duration `yaml:"ping_interval" default:"30s"`
	} `yaml:"bridge"`

	Consensus struct {
		Sources []struct {
			Name    string        `yaml:"name" validate:"required"`
			URL     string        `yaml:"url" validate:"required"`
			Timeout time.Duration `yaml:"timeout" default:"2s"`
		} `yaml:"sources"`
		MinSources    int           `yaml:"min_sources" default:"3"`
		MaxDeviation  float64       `yaml:"max_deviation" default:"0.005"`
		MinConfidence float64       `yaml:"min_confidence" default:"75"`
		MaxOutliers   int           `yaml:"max_outliers" default:"1"`
		MaxAge        time.Duration `yaml:"max_age" default:"60s"`
		CacheTTL      time.Duration `yaml:"cache_ttl" default:"15s"`
		QueryTimeout  time.Duration `yaml:"query_timeout" default:"3s"`
	} `yaml:"consensus"`

	Threshold struct {
		Baseline     float64       `yaml:"baseline" default:"82"`
		PollInterval time.Duration `yaml:"poll_interval" default:"30s"`
	} `yaml:"threshold"`

	Publisher struct {
		Cooldown   time.Duration `yaml:"cooldown" default:"5m"`
		DailyCap   int           `yaml:"daily_cap" default:"30"`
		SessionCap int           `yaml:"session_cap" default:"10"`
	} `yaml:"publisher"`

	Outcome struct {
		Backend string `yaml:"backend" default:"redis" validate:"oneof=redis clickhouse"`
		Redis   struct {
			Addr     string `yaml:"addr" default:"localhost:6379"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Key      string `yaml:"key" default:"signalforge:outcomes"`
		} `yaml:"redis"`
		ClickHouse struct {
			Host        string        `yaml:"host" default:"localhost"`
			Port        int           `yaml:"port" default:"9000"`
			Database    string        `yaml:"database" default:"signalforge"`
			User        string        `yaml:"user" default:"default"`
			Password    string        `yaml:"password"`
			Table       string        `yaml:"table" default:"signal_outcomes"`
			DialTimeout time.Duration `yaml:"dial_timeout" default:"5s"`
		} `yaml:"clickhouse"`
	} `yaml:"outcome"`
}

// Load reads and parses a YAML configuration file, applies defaults and
// validates required fields.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
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

	if v := os.Getenv("SYMBOLS"); v != "" {
		c.Symbols = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("INGEST_TRANSPORT"); v != "" {
		c.Ingest.Transport = v
	}
	if v := os.Getenv("BRIDGE_URL"); v != "" {
		c.Bridge.URL = v
	}
	if v := os.Getenv("BRIDGE_API_KEY"); v != "" {
		c.Bridge.APIKey = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Outcome.Redis.Addr = v
	}
	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}
	if c.Ingest.Transport == "kafka" && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers required for kafka ingest transport")
	}
	if c.Ingest.Transport == "ws" && c.Bridge.URL == "" {
		return fmt.Errorf("bridge.url required for ws ingest transport")
	}
	return nil
}
