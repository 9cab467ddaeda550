package kafka_config

const (
	// Empty brokers disables publishing
	EnvKafkaBrokers = "KAFKA_BROKERS"

	EnvKafkaHoldEventsTopic    = "HOLD_EVENTS_TOPIC"
	EnvKafkaHoldEventsDLQTopic = "HOLD_EVENTS_DLQ_TOPIC"

	EnvKafkaProducerMaxAttempts  = "KAFKA_PRODUCER_MAX_ATTEMPTS"
	EnvKafkaProducerBatchTimeout = "KAFKA_PRODUCER_BATCH_TIMEOUT"
	EnvKafkaProducerRequireAcks  = "KAFKA_PRODUCER_REQUIRE_ACKS"
	EnvKafkaProducerCompression  = "KAFKA_PRODUCER_COMPRESSION"
	EnvKafkaProducerWriteTimeout = "KAFKA_PRODUCER_WRITE_TIMEOUT"

	EnvKafkaPublishQueueSize  = "KAFKA_PUBLISH_QUEUE_SIZE"
	EnvKafkaPublishMaxRetries = "KAFKA_PUBLISH_MAX_RETRIES"

	EnvKafkaEnableMiddleware = "KAFKA_ENABLE_MIDDLEWARE"
)
