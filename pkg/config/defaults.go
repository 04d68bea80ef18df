package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "tutorhub"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort = "8080"

	DefaultLogLevel = "info"

	DefaultMeetAPIBaseURL = "http://localhost:9100"

	DefaultEventsTopic      = "tutorhub.lifecycle"
	DefaultEventsDLQTopic   = "tutorhub.lifecycle.dlq"
	DefaultPaymentsTopic    = "tutorhub.payments.confirmed"
	DefaultPaymentsDLQTopic = "tutorhub.payments.confirmed.dlq"
	DefaultPaymentsGroupID  = "billing"

	DefaultRateLimitRequests = 10
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultSlotLockTTL = 10 * time.Second

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultPaginationLimit = 100
)
