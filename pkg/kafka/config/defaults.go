package kafka_config

import "time"

const (
	DefaultKafkaBrokers = ""

	DefaultHoldEventsTopic    = "unit-hold-events"
	DefaultHoldEventsDLQTopic = ""

	// Producer defaults
	DefaultProducerMaxAttempts  = 3
	DefaultProducerBatchTimeout = 10 * time.Millisecond
	DefaultProducerRequireAcks  = -1 // Require all replicas
	DefaultProducerCompression  = "snappy"
	DefaultProducerWriteTimeout = 5 * time.Second

	// Publish queue defaults
	DefaultPublishQueueSize  = 1024
	DefaultPublishMaxRetries = 2

	DefaultEnableMiddleware = true
)
