package config

import (
	"errors"
	"fmt"
	"io/fs"
	"lodgr/pkg/client"
	kafka_config "lodgr/pkg/kafka/config"
	"lodgr/pkg/logger"
	"os"
	"regexp"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration

	Port string

	APISigningSecret string

	RateLimitRequests int
	RateLimitWindow   time.Duration

	RequestTimeout time.Duration
	IdempotencyTTL time.Duration
	MaxRequestSize int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	HoldSweepInterval     time.Duration
	HoldTerminalRetention time.Duration
	HoldPersistTimeout    time.Duration

	UnitIdleTimeout     time.Duration
	UnitJanitorInterval time.Duration
	UnitRestoreTimeout  time.Duration

	Kafka *kafka_config.Config

	Log    *logger.Logger
	Client *client.Client
}

// Load reads the service configuration from the environment, after applying
// an optional .env file. Invalid configuration is fatal.
func Load(serviceName string) *Config {
	envErr := LoadEnvFile(getEnvStr(EnvEnvFile, DefaultEnvFile))

	cfg := FromEnv(serviceName)
	if envErr != nil {
		cfg.Log.Warn("Failed to read env file", "error", envErr)
	}

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

// LoadEnvFile applies path on top of the process environment without
// overriding variables that are already set. A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// FromEnv builds a Config from the environment without validating it.
func FromEnv(serviceName string) *Config {
	kafkaCfg, kafkaErr := kafka_config.Load()

	cfg := &Config{
		MongoURI:          getEnvStr(EnvMongoURI, DefaultMongoURI),
		MongoDatabaseName: getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:  getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),

		Port: getEnvStr(EnvPort, DefaultPort),

		APISigningSecret: getEnvStr(EnvAPISigningSecret, ""),

		RateLimitRequests: getEnvNum(EnvRateLimitRequests, DefaultRateLimitRequests),
		RateLimitWindow:   getEnvDuration(EnvRateLimitWindow, DefaultRateLimitWindow),

		RequestTimeout: getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		IdempotencyTTL: getEnvDuration(EnvIdempotencyTTL, DefaultIdempotencyTTL),
		MaxRequestSize: getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		HoldSweepInterval:     getEnvDuration(EnvHoldSweepInterval, DefaultHoldSweepInterval),
		HoldTerminalRetention: getEnvDuration(EnvHoldTerminalRetention, DefaultHoldTerminalRetention),
		HoldPersistTimeout:    getEnvDuration(EnvHoldPersistTimeout, DefaultHoldPersistTimeout),

		UnitIdleTimeout:     getEnvDuration(EnvUnitIdleTimeout, DefaultUnitIdleTimeout),
		UnitJanitorInterval: getEnvDuration(EnvUnitJanitorInterval, DefaultUnitJanitorInterval),
		UnitRestoreTimeout:  getEnvDuration(EnvUnitRestoreTimeout, DefaultUnitRestoreTimeout),

		Kafka: kafkaCfg,

		Log: logger.New(logger.Config{
			Level:     getEnvStr(EnvLogLevel, DefaultLogLevel),
			Format:    getEnvStr(EnvLogFormat, DefaultLogFormat),
			AddSource: true,
			Service:   serviceName,
		}),
		Client: client.NewClient(),
	}

	if kafkaErr != nil {
		cfg.Log.Fatal(kafkaErr.Error())
	}
	return cfg
}

func (cfg *Config) SetMongo() {
	cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
}

func (cfg *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	if cfg.MongoURI == "" {
		errors = append(errors, "MongoURI cannot be empty")
	} else if len(cfg.MongoURI) < 10 || !regexp.MustCompile(`^mongodb(\+srv)?://`).MatchString(cfg.MongoURI) {
		errors = append(errors, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", redactMongoURI(cfg.MongoURI)))
	}

	if cfg.MongoDatabaseName == "" {
		errors = append(errors, "MongoDatabaseName cannot be empty")
	}

	positive := []struct {
		name  string
		value time.Duration
	}{
		{"MongoConnTimeout", cfg.MongoConnTimeout},
		{"RateLimitWindow", cfg.RateLimitWindow},
		{"RequestTimeout", cfg.RequestTimeout},
		{"IdempotencyTTL", cfg.IdempotencyTTL},
		{"ReadTimeout", cfg.ReadTimeout},
		{"WriteTimeout", cfg.WriteTimeout},
		{"IdleTimeout", cfg.IdleTimeout},
		{"ShutdownTimeout", cfg.ShutdownTimeout},
		{"HoldSweepInterval", cfg.HoldSweepInterval},
		{"HoldTerminalRetention", cfg.HoldTerminalRetention},
		{"HoldPersistTimeout", cfg.HoldPersistTimeout},
		{"UnitIdleTimeout", cfg.UnitIdleTimeout},
		{"UnitJanitorInterval", cfg.UnitJanitorInterval},
		{"UnitRestoreTimeout", cfg.UnitRestoreTimeout},
	}
	for _, p := range positive {
		if p.value <= 0 {
			errors = append(errors, fmt.Sprintf("%s must be positive, got: %s", p.name, p.value))
		}
	}

	if cfg.HoldPersistTimeout > 0 && cfg.RequestTimeout > 0 && cfg.HoldPersistTimeout >= cfg.RequestTimeout {
		errors = append(errors, fmt.Sprintf("HoldPersistTimeout (%s) must be shorter than RequestTimeout (%s)", cfg.HoldPersistTimeout, cfg.RequestTimeout))
	}

	if cfg.RateLimitRequests <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitRequests must be positive, got: %d", cfg.RateLimitRequests))
	}
	if cfg.MaxRequestSize <= 0 {
		errors = append(errors, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
	}

	if len(errors) > 0 {
		errMsg := "Configuration validation failed:\n"
		for i, err := range errors {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, err)
		}
		return fmt.Errorf("%s", errMsg)
	}

	return nil
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"mongo_uri", redactMongoURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"mongo_conn_timeout", cfg.MongoConnTimeout,
		"port", cfg.Port,
		"signing_secret_set", cfg.APISigningSecret != "",
		"rate_limit_requests", cfg.RateLimitRequests,
		"rate_limit_window", cfg.RateLimitWindow,
		"request_timeout", cfg.RequestTimeout,
		"idempotency_ttl", cfg.IdempotencyTTL,
		"max_request_size", cfg.MaxRequestSize,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
		"hold_sweep_interval", cfg.HoldSweepInterval,
		"hold_terminal_retention", cfg.HoldTerminalRetention,
		"hold_persist_timeout", cfg.HoldPersistTimeout,
		"unit_idle_timeout", cfg.UnitIdleTimeout,
		"unit_janitor_interval", cfg.UnitJanitorInterval,
		"unit_restore_timeout", cfg.UnitRestoreTimeout,
	)
	if cfg.Kafka != nil {
		cfg.Kafka.LogConfiguration(cfg.Log.Info)
	}
}

func redactMongoURI(uri string) string {
	credentialRegex := regexp.MustCompile(`(mongodb(\+srv)?://)[^:]+:[^@]+@`)
	return credentialRegex.ReplaceAllString(uri, "${1}***:***@")
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvNum(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func (cfg *Config) GracefulShutdown() {
	cfg.Client.GracefulShutdown(cfg.Log, cfg.ShutdownTimeout)
}
