package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitBurst    = "RATE_LIMIT_BURST"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvSpaceLockTTL          = "SPACE_LOCK_TTL"
	EnvReservationMaxWindow  = "RESERVATION_MAX_WINDOW"
	EnvOccupancyLookahead    = "OCCUPANCY_LOOKAHEAD"
	EnvUpcomingReleasesLimit = "UPCOMING_RELEASES_LIMIT"
	EnvSnapshotCacheTTL      = "SNAPSHOT_CACHE_TTL"

	EnvVehicleRegistryURL = "VEHICLE_REGISTRY_URL"
	EnvAuditTopic         = "AUDIT_TOPIC"
)
