package config

import "time"

const (
	envPort             = "PORT"
	envProvider         = "PROVIDER"
	envDatabaseDSN      = "DATABASE_DSN"
	envAuthSecret       = "AUTH_JWT_SECRET"
	envLiveCadence      = "LIVE_POLL_CADENCE"
	envScheduleCadence  = "SCHEDULE_POLL_CADENCE"
	envFeaturedCadence  = "FEATURED_POLL_CADENCE"
	envReconcileCadence = "RECONCILE_CADENCE"
	envHistoryRetention = "JOB_HISTORY_RETENTION"
	envLiveCacheTTL     = "LIVE_CACHE_TTL"
	envFeaturedCacheTTL = "FEATURED_CACHE_TTL"
	envThrottleInterval = "BROADCAST_THROTTLE_INTERVAL"
	envThrottleIdle     = "BROADCAST_THROTTLE_RETENTION"
	envSportsfeedURL    = "SPORTSFEED_BASE_URL"
	envSportsfeedKey    = "SPORTSFEED_API_KEY"
	envProviderPacing   = "PROVIDER_RATE_LIMIT_INTERVAL"
	envMetricsPort      = "METRICS_PORT"
	envMetricsOn        = "METRICS_ENABLED"
	envOtelEndpoint     = "OTEL_EXPORTER_OTLP_ENDPOINT"
	envOtelService      = "OTEL_SERVICE_NAME"
	envOtelInsecure     = "OTEL_EXPORTER_OTLP_INSECURE"

	defaultPort        = "4000"
	defaultProvider    = "fixture"
	defaultDatabaseDSN = "livescores.db"
	defaultMetricsPort = "9090"

	// Cadences are cron specs consumed by the scheduler; @every keeps the
	// common case readable.
	defaultLiveCadence      = "@every 1m"
	defaultScheduleCadence  = "@every 6h"
	defaultFeaturedCadence  = "@every 5m"
	defaultReconcileCadence = "@every 15m"

	defaultHistoryRetention = 24 * time.Hour
	defaultLiveCacheTTL     = 60 * time.Second
	defaultFeaturedCacheTTL = 300 * time.Second
	defaultThrottleInterval = time.Second
	defaultThrottleIdle     = time.Hour
)
