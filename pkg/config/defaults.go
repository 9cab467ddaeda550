package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "lodgr"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort      = "8080"
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
	DefaultEnvFile   = ".env"

	DefaultRateLimitRequests = 120
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 10 * time.Second
	DefaultIdempotencyTTL = 1 * time.Hour
	DefaultMaxRequestSize = 64 * 1024 // 64KB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultHoldSweepInterval     = 30 * time.Second
	DefaultHoldTerminalRetention = 5 * time.Minute
	DefaultHoldPersistTimeout    = 2 * time.Second

	DefaultUnitIdleTimeout     = 10 * time.Minute
	DefaultUnitJanitorInterval = 1 * time.Minute
	DefaultUnitRestoreTimeout  = 5 * time.Second
)
