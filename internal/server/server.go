// Package server wires the pipeline together: store, cache, providers,
// agent, gateway, scheduler and reconciler, plus the HTTP surface.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"livescores-service/internal/agent"
	"livescores-service/internal/cache"
	"livescores-service/internal/config"
	"livescores-service/internal/gateway"
	"livescores-service/internal/logging"
	"livescores-service/internal/metrics"
	"livescores-service/internal/reconciler"
	"livescores-service/internal/scheduler"
	"livescores-service/internal/store"
)

// Server owns every long-lived component and coordinates startup/shutdown.
type Server struct {
	cfg     config.Config
	logger  *slog.Logger
	metrics *metrics.Recorder

	store      *store.GormStore
	cache      cache.Cache
	hub        *gateway.Hub
	agent      *agent.Agent
	queue      scheduler.Queue
	sched      *scheduler.Scheduler
	reconciler *reconciler.Reconciler

	httpServer    *http.Server
	metricsServer *http.Server
	metricsStop   func(context.Context) error
}

// New constructs a fully wired server.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Server, error) {
	recorder, promHandler, metricsStop, err := metrics.Setup(ctx, metrics.TelemetryConfig{
		Enabled:      cfg.Metrics.Enabled,
		Port:         cfg.Metrics.Port,
		ServiceName:  cfg.Metrics.ServiceName,
		OtlpEndpoint: cfg.Metrics.OtlpEndpoint,
		OtlpInsecure: cfg.Metrics.OtlpInsecure,
	})
	if err != nil {
		return nil, fmt.Errorf("metrics setup: %w", err)
	}

	db, err := store.Open(cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	gameStore := store.New(db)

	queue, err := scheduler.NewQueue(db)
	if err != nil {
		return nil, fmt.Errorf("queue setup: %w", err)
	}

	gameCache := cache.NewMemory()

	var verifier gateway.Verifier
	if cfg.Auth.Secret != "" {
		verifier = gateway.NewJWTVerifier(cfg.Auth.Secret)
	} else {
		logging.Warn(logger, "no auth secret configured, using development bypass")
		verifier = gateway.DevVerifier{}
	}

	hub := gateway.NewHub(gateway.Config{
		Logger:   logger,
		Metrics:  recorder,
		Store:    gameStore,
		Verifier: verifier,
		Throttle: gateway.NewThrottler(cfg.Throttle.MinInterval, cfg.Throttle.IdleEvict),
	})

	provider, err := buildProvider(cfg, logger, recorder)
	if err != nil {
		return nil, fmt.Errorf("provider setup: %w", err)
	}

	scoresAgent := agent.New(agent.Config{
		Provider:    provider,
		Cache:       gameCache,
		Store:       gameStore,
		Broadcaster: hub,
		Logger:      logger,
		Metrics:     recorder,
		LiveTTL:     cfg.Cache.LiveTTL,
		FeaturedTTL: cfg.Cache.FeaturedTTL,
	})

	sched := scheduler.New(logger, queue)

	srv := &Server{
		cfg:         cfg,
		logger:      logger,
		metrics:     recorder,
		store:       gameStore,
		cache:       gameCache,
		hub:         hub,
		agent:       scoresAgent,
		queue:       queue,
		sched:       sched,
		metricsStop: metricsStop,
	}

	srv.reconciler = reconciler.New(reconciler.Config{
		Queue:     queue,
		Canceler:  sched,
		Register:  srv.registerTrigger,
		Store:     gameStore,
		Cache:     gameCache,
		Logger:    logger,
		Cadences:  cadences(cfg),
		Retention: cfg.Scheduler.HistoryRetention,
	})

	srv.httpServer = &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     loggingMiddleware(logger, recorder, newRouter(hub)),
		ReadTimeout: readTimeout,
		IdleTimeout: idleTimeout,
	}

	if promHandler != nil {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", promHandler)
		srv.metricsServer = &http.Server{
			Addr:    ":" + cfg.Metrics.Port,
			Handler: metricsMux,
		}
	}

	return srv, nil
}

func cadences(cfg config.Config) scheduler.Cadences {
	return scheduler.Cadences{
		Live:     cfg.Scheduler.LiveCadence,
		Schedule: cfg.Scheduler.ScheduleCadence,
		Featured: cfg.Scheduler.FeaturedCadence,
	}
}

// Run starts the HTTP surface and the scheduler, then blocks until the
// context is canceled and shutdown completes.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 2)

	go func() {
		logging.Info(s.logger, "http server listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	if s.metricsServer != nil {
		go func() {
			logging.Info(s.logger, "metrics server listening", "addr", s.metricsServer.Addr)
			if err := s.metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errCh <- err
			}
		}()
	}

	if err := s.bootstrapTriggers(ctx); err != nil {
		logging.Error(s.logger, "trigger bootstrap failed", err)
		// The reconciler repairs the trigger set on its next run; the
		// service still serves connections meanwhile.
	}

	select {
	case <-ctx.Done():
	case err := <-errCh:
		logging.Error(s.logger, "http server failed", err)
		s.shutdown()
		return err
	}

	s.shutdown()
	return nil
}

// bootstrapTriggers registers the desired repeatable triggers derived from
// the current roster, plus the maintenance trigger, in both the durable
// queue and the in-process scheduler.
func (s *Server) bootstrapTriggers(ctx context.Context) error {
	teams, err := s.store.GetTeamsByLeague(ctx, "")
	if err != nil {
		return fmt.Errorf("load roster: %w", err)
	}

	for _, d := range scheduler.DesiredTriggers(teams, cadences(s.cfg)) {
		if err := s.registerTrigger(ctx, d); err != nil {
			return err
		}
	}

	reconcileSpec := s.cfg.Scheduler.ReconcileCadence
	if err := s.queue.ScheduleRepeatable(ctx, scheduler.MaintenanceKey, reconcileSpec, nil); err != nil {
		return err
	}
	return s.sched.Schedule(ctx, scheduler.MaintenanceKey, reconcileSpec, func(ctx context.Context) error {
		_, err := s.reconciler.Run(ctx)
		return err
	})
}

// registerTrigger records one desired trigger in the durable queue and
// starts its in-process loop. The reconciler uses the same path to register
// triggers for teams that joined the roster after boot.
func (s *Server) registerTrigger(ctx context.Context, d scheduler.Desired) error {
	opts := agent.Options{
		TeamIDs: d.TeamIDs,
		Sport:   d.Sport,
		Mode:    d.Mode,
	}
	payload, err := json.Marshal(opts)
	if err != nil {
		return err
	}
	if err := s.queue.ScheduleRepeatable(ctx, d.Key, d.Spec, payload); err != nil {
		return err
	}
	return s.sched.Schedule(ctx, d.Key, d.Spec, s.agentHandler(opts))
}

// agentHandler adapts one trigger's options into a scheduler handler. A
// cycle that produced nothing but errors is recorded as failed.
func (s *Server) agentHandler(opts agent.Options) scheduler.Handler {
	return func(ctx context.Context) error {
		result := s.agent.RunOnce(ctx, opts)
		if result.Errors > 0 && result.Items == 0 {
			return fmt.Errorf("agent cycle produced no items (%d errors)", result.Errors)
		}
		return nil
	}
}

func (s *Server) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.sched.Stop(ctx); err != nil {
		logging.Error(s.logger, "scheduler stop failed", err)
	}
	if err := s.hub.Shutdown(ctx); err != nil {
		logging.Error(s.logger, "gateway shutdown failed", err)
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		logging.Error(s.logger, "http shutdown failed", err)
	}
	if s.metricsServer != nil {
		if err := s.metricsServer.Shutdown(ctx); err != nil {
			logging.Error(s.logger, "metrics shutdown failed", err)
		}
	}
	if err := s.cache.Close(); err != nil {
		logging.Error(s.logger, "cache close failed", err)
	}
	if s.metricsStop != nil {
		if err := s.metricsStop(ctx); err != nil {
			logging.Error(s.logger, "metrics flush failed", err)
		}
	}
	logging.Info(s.logger, "shutdown complete")
}

// Hub exposes the gateway for tests and the admin surface.
func (s *Server) Hub() *gateway.Hub {
	return s.hub
}
