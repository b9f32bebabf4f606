package config

// Config holds runtime configuration for the service.
type Config struct {
	Port       string
	Provider   string
	Database   DatabaseConfig
	Auth       AuthConfig
	Scheduler  SchedulerConfig
	Cache      CacheConfig
	Throttle   ThrottleConfig
	Metrics    MetricsConfig
	Sportsfeed SportsfeedConfig
}

// SportsfeedConfig points the upstream adapter at its API. A positive
// RateLimit paces outbound calls to stay under upstream quotas; zero
// disables pacing.
type SportsfeedConfig struct {
	BaseURL   string
	APIKey    string
	RateLimit Duration
}

// DatabaseConfig points the persistent store at its sqlite file.
type DatabaseConfig struct {
	DSN string
}

// AuthConfig controls connection authentication. An empty Secret enables the
// constrained development bypass instead of JWT verification.
type AuthConfig struct {
	Secret string
}

// SchedulerConfig carries the polling cadences and history retention.
type SchedulerConfig struct {
	LiveCadence      string
	ScheduleCadence  string
	FeaturedCadence  string
	ReconcileCadence string
	HistoryRetention Duration
}

// CacheConfig carries the per-mode result-set TTLs.
type CacheConfig struct {
	LiveTTL     Duration
	FeaturedTTL Duration
}

// ThrottleConfig bounds repeat score-update broadcasts per game.
type ThrottleConfig struct {
	MinInterval Duration
	IdleEvict   Duration
}

// MetricsConfig controls the telemetry exporters.
type MetricsConfig struct {
	Enabled      bool
	Port         string
	ServiceName  string
	OtlpEndpoint string
	OtlpInsecure bool
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	return Config{
		Port:     envOrDefault(envPort, defaultPort),
		Provider: envOrDefault(envProvider, defaultProvider),
		Database: DatabaseConfig{
			DSN: envOrDefault(envDatabaseDSN, defaultDatabaseDSN),
		},
		Auth: AuthConfig{
			Secret: envOrDefault(envAuthSecret, ""),
		},
		Scheduler: SchedulerConfig{
			LiveCadence:      envOrDefault(envLiveCadence, defaultLiveCadence),
			ScheduleCadence:  envOrDefault(envScheduleCadence, defaultScheduleCadence),
			FeaturedCadence:  envOrDefault(envFeaturedCadence, defaultFeaturedCadence),
			ReconcileCadence: envOrDefault(envReconcileCadence, defaultReconcileCadence),
			HistoryRetention: durationEnvOrDefault(envHistoryRetention, defaultHistoryRetention),
		},
		Cache: CacheConfig{
			LiveTTL:     durationEnvOrDefault(envLiveCacheTTL, defaultLiveCacheTTL),
			FeaturedTTL: durationEnvOrDefault(envFeaturedCacheTTL, defaultFeaturedCacheTTL),
		},
		Throttle: ThrottleConfig{
			MinInterval: durationEnvOrDefault(envThrottleInterval, defaultThrottleInterval),
			IdleEvict:   durationEnvOrDefault(envThrottleIdle, defaultThrottleIdle),
		},
		Metrics: loadMetrics(),
		Sportsfeed: SportsfeedConfig{
			BaseURL:   envOrDefault(envSportsfeedURL, ""),
			APIKey:    envOrDefault(envSportsfeedKey, ""),
			RateLimit: durationEnvOrDefault(envProviderPacing, 0),
		},
	}
}

func loadMetrics() MetricsConfig {
	return MetricsConfig{
		Enabled:      boolEnvOrDefault(envMetricsOn, false),
		Port:         envOrDefault(envMetricsPort, defaultMetricsPort),
		ServiceName:  envOrDefault(envOtelService, "livescores-service"),
		OtlpEndpoint: envOrDefault(envOtelEndpoint, ""),
		OtlpInsecure: boolEnvOrDefault(envOtelInsecure, false),
	}
}
