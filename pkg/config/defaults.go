package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "bookit"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort     = "8080"
	DefaultLogLevel = "info"

	DefaultRateLimitRequests = 30
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	// Optimistic reservation retries: bounded attempts with a short,
	// attempt-scaled backoff between guard failures.
	DefaultReserveMaxAttempts  = 5
	DefaultReserveRetryBackoff = 25 * time.Millisecond

	DefaultBookingEventsEnabled = true
	DefaultBookingEventsTopic   = "bookit.booking-events"
	DefaultBookingEventsDLQ     = "bookit.booking-events.dlq"

	DefaultPaginationLimit = 100
)

// DefaultPromoCodes matches the registry the service shipped with; it can
// be replaced wholesale through the PROMO_CODES environment variable.
const DefaultPromoCodes = `[
	{"code": "SAVE10", "type": "percentage", "value": 0.10, "description": "10% off the total price"},
	{"code": "FLAT100", "type": "flat", "value": 100, "description": "A stately $100 deduction"}
]`
