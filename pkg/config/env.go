package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvPort      = "PORT"
	EnvLogLevel  = "LOG_LEVEL"
	EnvLogFormat = "LOG_FORMAT"
	EnvEnvFile   = "ENV_FILE"

	EnvAPISigningSecret = "API_SIGNING_SECRET"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvHoldSweepInterval     = "HOLD_SWEEP_INTERVAL"
	EnvHoldTerminalRetention = "HOLD_TERMINAL_RETENTION"
	EnvHoldPersistTimeout    = "HOLD_PERSIST_TIMEOUT"

	EnvUnitIdleTimeout     = "UNIT_IDLE_TIMEOUT"
	EnvUnitJanitorInterval = "UNIT_JANITOR_INTERVAL"
	EnvUnitRestoreTimeout  = "UNIT_RESTORE_TIMEOUT"
)
