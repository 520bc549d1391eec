package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"RegimeScan/pkg/util"
)

type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"required"`

	Logging struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"console"` // json or console
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"logging"`

	Input struct {
		CSVPath string `yaml:"csv_path" validate:"required"`
		Series  string `yaml:"series" default:"brent"`
		From    string `yaml:"from"` // optional focus window, 2006-01-02
		To      string `yaml:"to"`
	} `yaml:"input"`

	Model struct {
		Regimes    int     `yaml:"regimes" default:"3" validate:"min=2"`
		Chains     int     `yaml:"chains" default:"4" validate:"min=1"`
		Draws      int     `yaml:"draws" default:"1000" validate:"min=1"`
		WarmUp     int     `yaml:"warm_up" default:"500" validate:"min=0"`
		Seed       uint64  `yaml:"seed" default:"42"`
		MeanScale  float64 `yaml:"mean_scale" default:"10"`
		SigmaScale float64 `yaml:"sigma_scale" default:"2"`
	} `yaml:"model"`

	ClickHouse struct {
		Enabled     bool          `yaml:"enabled"`
		Host        string        `yaml:"host"`
		Port        int           `yaml:"port" default:"9000"`
		Database    string        `yaml:"database" default:"regimescan"`
		User        string        `yaml:"user" default:"default"`
		Password    string        `yaml:"password"`
		DialTimeout time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
	} `yaml:"clickhouse"`

	Kafka struct {
		Enabled      bool          `yaml:"enabled"`
		Brokers      []string      `yaml:"brokers"`
		Topic        string        `yaml:"topic" default:"regimescan.results"`
		RequiredAcks int           `yaml:"required_acks" default:"-1"`
		Compression  string        `yaml:"compression" default:"gzip"`
		MaxAttempts  int           `yaml:"max_attempts" default:"3"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
	} `yaml:"kafka"`

	Cache struct {
		Enabled bool          `yaml:"enabled"`
		TTL     time.Duration `yaml:"ttl" default:"24h"`
		Redis   struct {
			Enabled  bool   `yaml:"enabled"`
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"cache"`
}

// Load reads and parses a YAML configuration file, fills defaults, and
// validates it.
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

// LoadWithEnv loads config from YAML and overrides with environment
// variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("INPUT_CSV"); v != "" {
		c.Input.CSVPath = v
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
		c.ClickHouse.Enabled = true
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Cache.Redis.Addr = v
		c.Cache.Redis.Enabled = true
	}
	if v := os.Getenv("MODEL_SEED"); v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("MODEL_SEED: %w", err)
		}
		c.Model.Seed = seed
	}
	return c, nil
}

// Validate checks declarative field constraints and the cross-field rules
// the tags cannot express. Any violation stops the run before model
// construction.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%s failed constraint %q (got %v)", fe.Namespace(), fe.Tag(), fe.Value())
		}
		return err
	}

	if c.Input.From != "" {
		if _, ok := util.ParseDate(c.Input.From); !ok {
			return fmt.Errorf("input.from: unparseable date %q", c.Input.From)
		}
	}
	if c.Input.To != "" {
		if _, ok := util.ParseDate(c.Input.To); !ok {
			return fmt.Errorf("input.to: unparseable date %q", c.Input.To)
		}
	}
	if c.Input.From != "" && c.Input.To != "" {
		from, _ := util.ParseDate(c.Input.From)
		to, _ := util.ParseDate(c.Input.To)
		if to.Before(from) {
			return fmt.Errorf("input window inverted: %s after %s", c.Input.From, c.Input.To)
		}
	}
	if c.ClickHouse.Enabled && c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host is required when clickhouse is enabled")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Cache.Redis.Enabled && c.Cache.Redis.Addr == "" {
		return fmt.Errorf("cache.redis.addr is required when redis cache is enabled")
	}
	return nil
}
