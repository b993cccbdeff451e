package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "parkade"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort     = "8080"
	DefaultLogLevel = "info"

	DefaultRateLimitRequests = 10
	DefaultRateLimitBurst    = 20

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	// Advisory lock lifetime. Generous against transaction runtimes, short
	// enough that a crashed worker frees its spaces quickly.
	DefaultSpaceLockTTL = 10 * time.Second

	DefaultReservationMaxWindow  = 24 * time.Hour
	DefaultOccupancyLookahead    = 2 * time.Hour
	DefaultUpcomingReleasesLimit = 10
	DefaultSnapshotCacheTTL      = 5 * time.Second

	DefaultAuditTopic = "parkade.audit"

	DefaultPaginationLimit = 100
)
