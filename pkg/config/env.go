package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvPaymentWebhookSecret = "PAYMENT_WEBHOOK_SECRET"

	EnvMeetAPIBaseURL = "MEET_API_BASE_URL"
	EnvMeetAPIToken   = "MEET_API_TOKEN"

	EnvEventsTopic      = "EVENTS_TOPIC"
	EnvEventsDLQTopic   = "EVENTS_DLQ_TOPIC"
	EnvPaymentsTopic    = "PAYMENTS_TOPIC"
	EnvPaymentsDLQTopic = "PAYMENTS_DLQ_TOPIC"
	EnvPaymentsGroupID  = "PAYMENTS_GROUP_ID"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvSlotLockTTL = "SLOT_LOCK_TTL"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"
)
