package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Log         struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"json"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"log"`
	Server struct {
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"30s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		DisableCORS     bool          `yaml:"disable_cors"`
		RateLimit       struct {
			Rate  float64 `yaml:"rate" default:"5"`
			Burst int     `yaml:"burst" default:"10"`
		} `yaml:"rate_limit"`
	} `yaml:"server"`
	Metrics struct {
		Disabled bool   `yaml:"disabled"`
		Path     string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Source struct {
		Type           string        `yaml:"type" default:"http"`
		URL            string        `yaml:"url"`
		Path           string        `yaml:"path"`
		Table          string        `yaml:"table" default:"daily_indicators"`
		ChunkSize      int           `yaml:"chunk_size" default:"5000"`
		Timeout        time.Duration `yaml:"timeout" default:"60s"`
		ReloadInterval time.Duration `yaml:"reload_interval"`
		Cache          struct {
			Enabled bool          `yaml:"enabled"`
			TTL     time.Duration `yaml:"ttl" default:"10m"`
			Redis   struct {
				Enabled  bool   `yaml:"enabled"`
				Addr     string `yaml:"addr" default:"localhost:6379"`
				Password string `yaml:"password"`
				DB       int    `yaml:"db"`
				Prefix   string `yaml:"prefix" default:"screener:"`
			} `yaml:"redis"`
		} `yaml:"cache"`
	} `yaml:"source"`
	ClickHouse struct {
		Host        string        `yaml:"host" default:"localhost"`
		Port        int           `yaml:"port" default:"9000"`
		Database    string        `yaml:"database" default:"default"`
		User        string        `yaml:"user" default:"default"`
		Password    string        `yaml:"password"`
		UseHTTP     bool          `yaml:"use_http"`
		DialTimeout time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout time.Duration `yaml:"read_timeout" default:"60s"`
	} `yaml:"clickhouse"`
	Window struct {
		Policy string `yaml:"policy" default:"last_n_records"`
		Size   int    `yaml:"size" default:"7"`
		Anchor string `yaml:"anchor" default:"wall_clock"`
	} `yaml:"window"`
	Filters struct {
		FlagField  string `yaml:"flag_field" default:"BB_Flag"`
		Duplicates string `yaml:"duplicates" default:"keep_all"`
	} `yaml:"filters"`
	Schema struct {
		// Aliases adds or replaces header spellings per logical field.
		Aliases map[string][]string `yaml:"aliases"`
	} `yaml:"schema"`
	Indicators struct {
		Enrich bool `yaml:"enrich"`
	} `yaml:"indicators"`
	Events struct {
		Kafka struct {
			Enabled      bool          `yaml:"enabled"`
			Brokers      []string      `yaml:"brokers"`
			Topic        string        `yaml:"topic" default:"screener.events"`
			RequiredAcks int           `yaml:"required_acks" default:"1"`
			Compression  string        `yaml:"compression" default:"snappy"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"5s"`
		} `yaml:"kafka"`
	} `yaml:"events"`
}

// Default returns a configuration populated only from struct defaults.
func Default() *Config {
	var c Config
	_ = defaults.Set(&c)
	return &c
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	c, err := readFile(path)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// Parse decodes YAML over the struct defaults and validates the result.
func Parse(b []byte) (*Config, error) {
	c, err := decode(b)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func readFile(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return decode(b)
}

func decode(b []byte) (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads .env (if present), the YAML file, then applies
// environment overrides. Validation runs once, after the overrides, so the
// environment may supply values the file leaves out.
func LoadWithEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	c := Default()
	if path != "" {
		loaded, err := readFile(path)
		if err != nil {
			return nil, err
		}
		c = loaded
	}

	if err := c.applyEnv(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("SCREENER_ENV"); v != "" {
		c.Environment = v
	}
	if v := os.Getenv("SCREENER_SOURCE_TYPE"); v != "" {
		c.Source.Type = v
	}
	if v := os.Getenv("SCREENER_SOURCE_URL"); v != "" {
		c.Source.URL = v
	}
	if v := os.Getenv("SCREENER_SOURCE_PATH"); v != "" {
		c.Source.Path = v
	}
	if v := os.Getenv("SCREENER_WINDOW_POLICY"); v != "" {
		c.Window.Policy = v
	}
	if v := os.Getenv("SCREENER_WINDOW_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SCREENER_WINDOW_SIZE: %w", err)
		}
		c.Window.Size = n
	}
	if v := os.Getenv("SCREENER_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("SCREENER_PORT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SCREENER_PORT: %w", err)
		}
		c.Server.Port = n
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Events.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Source.Cache.Redis.Addr = v
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	switch c.Source.Type {
	case "http":
		if c.Source.URL == "" {
			return errors.New("source.url is required for source.type 'http'")
		}
	case "file":
		if c.Source.Path == "" {
			return errors.New("source.path is required for source.type 'file'")
		}
	case "clickhouse":
		if c.Source.Table == "" {
			return errors.New("source.table is required for source.type 'clickhouse'")
		}
	default:
		return fmt.Errorf("source.type must be 'http', 'file' or 'clickhouse', got '%s'", c.Source.Type)
	}
	if c.Source.ChunkSize <= 0 {
		return fmt.Errorf("source.chunk_size must be positive, got %d", c.Source.ChunkSize)
	}
	if c.Window.Policy != "last_n_records" && c.Window.Policy != "last_n_days" {
		return fmt.Errorf("window.policy must be 'last_n_records' or 'last_n_days', got '%s'", c.Window.Policy)
	}
	if c.Window.Size < 0 {
		return fmt.Errorf("window.size cannot be negative, got %d", c.Window.Size)
	}
	if c.Window.Anchor != "wall_clock" && c.Window.Anchor != "dataset_latest" {
		return fmt.Errorf("window.anchor must be 'wall_clock' or 'dataset_latest', got '%s'", c.Window.Anchor)
	}
	switch c.Filters.Duplicates {
	case "keep_all", "first_wins", "last_wins":
	default:
		return fmt.Errorf("filters.duplicates must be 'keep_all', 'first_wins' or 'last_wins', got '%s'", c.Filters.Duplicates)
	}
	if strings.TrimSpace(c.Filters.FlagField) == "" {
		return errors.New("filters.flag_field is required")
	}
	if c.Events.Kafka.Enabled && len(c.Events.Kafka.Brokers) == 0 {
		return errors.New("events.kafka.brokers cannot be empty when kafka events are enabled")
	}
	return nil
}
