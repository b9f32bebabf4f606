// Package scheduler drives repeated invocations of the scores agent. Each
// repeatable trigger gets its own timer loop; the durable registry lives in
// the queue so triggers survive restarts.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron"

	"livescores-service/internal/logging"
)

// Handler is one trigger's work function. Returned errors are recorded in
// run history; they never stop the loop.
type Handler func(ctx context.Context) error

// specParser accepts the standard 5-field layout plus @every/@hourly
// descriptors, matching the cadence strings carried in config.
var specParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// ParseSpec validates a cadence spec.
func ParseSpec(spec string) (cron.Schedule, error) {
	return specParser.Parse(spec)
}

type job struct {
	key    string
	cancel context.CancelFunc
	done   chan struct{}
}

// Scheduler runs one goroutine per scheduled trigger. It is an in-process
// abstraction over the durable queue: the queue says what should run, the
// scheduler makes it run.
type Scheduler struct {
	logger *slog.Logger
	queue  Queue
	now    func() time.Time

	mu   sync.Mutex
	jobs map[string]*job
	wg   sync.WaitGroup
}

// New constructs a Scheduler. The queue is optional; when present, every
// invocation is recorded in run history.
func New(logger *slog.Logger, queue Queue) *Scheduler {
	return &Scheduler{
		logger: logger,
		queue:  queue,
		now:    time.Now,
		jobs:   make(map[string]*job),
	}
}

// Schedule starts a repeating loop for key on the given cadence spec.
// Scheduling an already-scheduled key replaces its loop.
func (s *Scheduler) Schedule(ctx context.Context, key, spec string, handler Handler) error {
	sched, err := ParseSpec(spec)
	if err != nil {
		return err
	}

	s.Cancel(key)

	jobCtx, cancel := context.WithCancel(ctx)
	j := &job{key: key, cancel: cancel, done: make(chan struct{})}

	s.mu.Lock()
	s.jobs[key] = j
	s.mu.Unlock()

	s.wg.Add(1)
	go s.run(jobCtx, j, sched, handler)

	logging.Info(s.logger, "trigger scheduled", logging.FieldTrigger, key, "spec", spec)
	return nil
}

// Cancel stops the loop for key and waits for any in-flight invocation.
func (s *Scheduler) Cancel(key string) {
	s.mu.Lock()
	j, ok := s.jobs[key]
	if ok {
		delete(s.jobs, key)
	}
	s.mu.Unlock()

	if !ok {
		return
	}
	j.cancel()
	<-j.done
	logging.Info(s.logger, "trigger canceled", logging.FieldTrigger, key)
}

// Keys lists the currently scheduled trigger keys.
func (s *Scheduler) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(s.jobs))
	for key := range s.jobs {
		keys = append(keys, key)
	}
	return keys
}

// Stop cancels every loop and blocks until all in-flight invocations finish.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	jobs := make([]*job, 0, len(s.jobs))
	for key, j := range s.jobs {
		jobs = append(jobs, j)
		delete(s.jobs, key)
	}
	s.mu.Unlock()

	for _, j := range jobs {
		j.cancel()
	}

	finished := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) run(ctx context.Context, j *job, sched cron.Schedule, handler Handler) {
	defer func() {
		close(j.done)
		s.wg.Done()
	}()

	for {
		next := sched.Next(s.now())
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Until(next)):
			s.fire(ctx, j.key, handler)
		}
	}
}

func (s *Scheduler) fire(ctx context.Context, key string, handler Handler) {
	startedAt := s.now()
	err := handler(ctx)
	finishedAt := s.now()

	state := StateCompleted
	errMsg := ""
	if err != nil {
		state = StateFailed
		errMsg = err.Error()
		logging.Error(s.logger, "trigger handler failed", err, logging.FieldTrigger, key)
	}

	if s.queue != nil {
		recordCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if recordErr := s.queue.RecordRun(recordCtx, key, state, errMsg, startedAt, finishedAt); recordErr != nil {
			logging.Warn(s.logger, "run history write failed", logging.FieldTrigger, key, "error", recordErr)
		}
		cancel()
	}
}
