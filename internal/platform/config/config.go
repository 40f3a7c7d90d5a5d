// Package config loads service configuration: built-in defaults, then an
// optional YAML file, then SAFEHARBOUR_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	dErrors "safeharbour/pkg/domain-errors"
)

const envPrefix = "safeharbour"

type Config struct {
	Server   Server   `yaml:"server"`
	Database Database `yaml:"database"`
	Redis    Redis    `yaml:"redis"`
	Kafka    Kafka    `yaml:"kafka"`
	Secrets  Secrets  `yaml:"secrets"`
	Worker   Worker   `yaml:"worker"`
	Deadline Deadline `yaml:"deadline"`
	Reveal   Reveal   `yaml:"reveal"`
	Log      Log      `yaml:"log"`
	Tracing  Tracing  `yaml:"tracing"`
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string        `yaml:"addr"            envconfig:"ADDR"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" split_words:"true"`
}

type Database struct {
	URL          string `yaml:"url"          envconfig:"URL"`
	MaxOpenConns int    `yaml:"maxOpenConns" split_words:"true"`
}

// Redis configures the alert queue. An empty URL selects the in-memory queue.
type Redis struct {
	URL          string        `yaml:"url"          envconfig:"URL"`
	PoolSize     int           `yaml:"poolSize"     split_words:"true"`
	MinIdleConns int           `yaml:"minIdleConns" split_words:"true"`
	DialTimeout  time.Duration `yaml:"dialTimeout"  split_words:"true"`
	ReadTimeout  time.Duration `yaml:"readTimeout"  split_words:"true"`
	WriteTimeout time.Duration `yaml:"writeTimeout" split_words:"true"`
	QueueKey     string        `yaml:"queueKey"     split_words:"true"`
}

// Kafka configures the audit outbox relay. No brokers disables it.
type Kafka struct {
	Brokers  []string      `yaml:"brokers"  envconfig:"BROKERS"`
	Topic    string        `yaml:"topic"    envconfig:"TOPIC"`
	Interval time.Duration `yaml:"interval" envconfig:"INTERVAL"`
}

// Secrets are hex encoded. CodecKey and BlindIndexKey are derived from
// Master when left empty.
type Secrets struct {
	Master        string `yaml:"master"        envconfig:"MASTER"`
	CodecKey      string `yaml:"codecKey"      split_words:"true"`
	BlindIndexKey string `yaml:"blindIndexKey" split_words:"true"`
	JWTSigningKey string `yaml:"jwtSigningKey" envconfig:"JWT_SIGNING_KEY"`
}

type Worker struct {
	Concurrency  int           `yaml:"concurrency"  envconfig:"CONCURRENCY"`
	PollInterval time.Duration `yaml:"pollInterval" split_words:"true"`
	MaxAttempts  int           `yaml:"maxAttempts"  split_words:"true"`
	BatchSize    int           `yaml:"batchSize"    split_words:"true"`
}

// Deadline carries the statutory policy. Durations are expressed in days.
type Deadline struct {
	InitialWindowDays      int `yaml:"initialWindowDays"      split_words:"true"`
	StatutoryLimitDays     int `yaml:"statutoryLimitDays"     split_words:"true"`
	AmberOffsetDays        int `yaml:"amberOffsetDays"        split_words:"true"`
	RedOffsetDays          int `yaml:"redOffsetDays"          split_words:"true"`
	MinExtensionReasonRune int `yaml:"minExtensionReasonRune" split_words:"true"`
}

type Reveal struct {
	MinReasonLength int `yaml:"minReasonLength" split_words:"true"`
}

type Log struct {
	Level  string `yaml:"level"  envconfig:"LEVEL"`
	Format string `yaml:"format" envconfig:"FORMAT"`
}

type Tracing struct {
	Enabled     bool   `yaml:"enabled"     envconfig:"ENABLED"`
	ServiceName string `yaml:"serviceName" split_words:"true"`
}

// Default returns the built-in configuration. Secrets are left empty on purpose.
func Default() Config {
	return Config{
		Server: Server{
			Addr:            ":8080",
			ShutdownTimeout: 15 * time.Second,
		},
		Database: Database{MaxOpenConns: 20},
		Redis: Redis{
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
			QueueKey:     "safeharbour:alerts",
		},
		Kafka: Kafka{
			Topic:    "safeharbour.audit",
			Interval: time.Second,
		},
		Worker: Worker{
			Concurrency:  4,
			PollInterval: time.Second,
			MaxAttempts:  5,
			BatchSize:    16,
		},
		Deadline: Deadline{
			InitialWindowDays:      90,
			StatutoryLimitDays:     90,
			AmberOffsetDays:        10,
			RedOffsetDays:          15,
			MinExtensionReasonRune: 20,
		},
		Reveal: Reveal{MinReasonLength: 30},
		Log:    Log{Level: "info", Format: "json"},
		Tracing: Tracing{
			ServiceName: "safeharbour",
		},
	}
}

// Load builds the configuration. path may be empty.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		buf, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(buf, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("process environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the service cannot start with.
func (c Config) Validate() error {
	var errs []error
	if c.Secrets.Master == "" && (c.Secrets.CodecKey == "" || c.Secrets.BlindIndexKey == "") {
		errs = append(errs, errors.New("secrets.master is required unless codecKey and blindIndexKey are both set"))
	}
	if c.Secrets.JWTSigningKey == "" {
		errs = append(errs, errors.New("secrets.jwtSigningKey is required"))
	}
	if c.Worker.Concurrency < 1 {
		errs = append(errs, errors.New("worker.concurrency must be at least 1"))
	}
	if c.Worker.MaxAttempts < 1 {
		errs = append(errs, errors.New("worker.maxAttempts must be at least 1"))
	}
	d := c.Deadline
	if d.InitialWindowDays <= 0 || d.StatutoryLimitDays < d.InitialWindowDays {
		errs = append(errs, errors.New("deadline.statutoryLimitDays must be at least initialWindowDays"))
	}
	if d.AmberOffsetDays <= 0 || d.RedOffsetDays <= 0 {
		errs = append(errs, errors.New("deadline alert offsets must be positive"))
	}
	if len(errs) > 0 {
		return dErrors.Wrap(errors.Join(errs...), dErrors.CodeConfiguration, "invalid configuration")
	}
	return nil
}

// DevMode reports whether the in-memory adapters are in use.
func (c Config) DevMode() bool {
	return c.Database.URL == ""
}
