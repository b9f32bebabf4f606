package server

import (
	"log/slog"

	"livescores-service/internal/config"
	"livescores-service/internal/metrics"
	"livescores-service/internal/providers"
	"livescores-service/internal/providers/fixture"
	"livescores-service/internal/providers/sportsfeed"
)

// buildProvider resolves the configured adapter into the composed, retrying,
// instrumented ScoreProvider the agent consumes. Capability dispatch
// (preferred FetchLive vs legacy fallback) happens here, once.
func buildProvider(cfg config.Config, logger *slog.Logger, recorder *metrics.Recorder) (providers.ScoreProvider, error) {
	name := cfg.Provider
	var adapter any
	switch cfg.Provider {
	case "sportsfeed":
		adapter = sportsfeed.NewClient(sportsfeed.Config{
			BaseURL: cfg.Sportsfeed.BaseURL,
			APIKey:  cfg.Sportsfeed.APIKey,
		})
	default:
		name = "fixture"
		adapter = fixture.New()
	}

	composed, err := providers.Compose(adapter, 0)
	if err != nil {
		return nil, err
	}
	provider := providers.NewInstrumentedProvider(composed, name, recorder)
	if cfg.Sportsfeed.RateLimit > 0 {
		provider = providers.NewRateLimitedProvider(provider, cfg.Sportsfeed.RateLimit, logger)
	}
	return providers.NewRetryingProvider(provider, logger, 0, 0), nil
}
