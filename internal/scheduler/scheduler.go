// Package scheduler runs the agent's background work: periodic jobs with
// execution constraints, named one-shot jobs, and backoff-driven retries.
// Periodic registrations keep the first registration under a name;
// one-shot scheduling replaces a pending job of the same name.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/roylee0704/gron"

	"tvagent/internal/infrastructure/logging"
	"tvagent/internal/platform"
	"tvagent/internal/types"
)

// Task is one unit of background work. attempt counts from 1 and rises
// across retries of the same run.
type Task func(ctx context.Context, attempt int) types.Outcome

// Constraints gate task execution. An unmet constraint defers the run: a
// periodic job waits for its next tick, a one-shot reschedules itself
// after a short delay.
type Constraints struct {
	RequiresNetwork       bool
	RequiresBatteryNotLow bool
}

// PermanentFailureFunc is notified when a job gives up for good.
type PermanentFailureFunc func(name string, outcome types.Outcome)

type periodicJob struct {
	interval    time.Duration
	constraints Constraints
	task        Task
}

type oneShotJob struct {
	timer *time.Timer
}

// Scheduler owns all background jobs. Create with New, register work, then
// Start. CancelAll stops everything; the scheduler can be started again
// afterwards.
type Scheduler struct {
	connectivity platform.ConnectivityChecker
	power        platform.PowerStatus
	logger       logging.Logger

	onPermanentFailure PermanentFailureFunc

	// newBackoff builds the delay sequence for one retry chain.
	// Overridden in tests to avoid real delays.
	newBackoff func() backoff.BackOff

	// oneShotDefer is the delay before a constraint-deferred one-shot
	// tries again.
	oneShotDefer time.Duration

	mu       sync.Mutex
	cron     *gron.Cron
	ctx      context.Context
	cancel   context.CancelFunc
	started  bool
	periodic map[string]periodicJob
	oneShots map[string]*oneShotJob
	wg       sync.WaitGroup
}

// New creates a stopped scheduler.
func New(connectivity platform.ConnectivityChecker, power platform.PowerStatus, logger logging.Logger) *Scheduler {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &Scheduler{
		connectivity: connectivity,
		power:        power,
		logger:       logger,
		newBackoff:   defaultRetryBackoff,
		oneShotDefer: 30 * time.Second,
		periodic:     make(map[string]periodicJob),
		oneShots:     make(map[string]*oneShotJob),
	}
}

// OnPermanentFailure sets the terminal-failure callback. Must be called
// before Start.
func (s *Scheduler) OnPermanentFailure(fn PermanentFailureFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onPermanentFailure = fn
}

// RegisterPeriodic registers a recurring job. Registering an existing name
// again keeps the first registration and reports false.
func (s *Scheduler) RegisterPeriodic(name string, interval time.Duration, constraints Constraints, task Task) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.periodic[name]; exists {
		s.logger.Debug("periodic job already registered", "job", name)
		return false
	}

	job := periodicJob{interval: interval, constraints: constraints, task: task}
	s.periodic[name] = job
	if s.started {
		s.addPeriodicLocked(name, job)
	}
	return true
}

// ScheduleOnce schedules a named one-shot job after delay. A pending
// one-shot with the same name is replaced.
func (s *Scheduler) ScheduleOnce(name string, delay time.Duration, constraints Constraints, task Task) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		s.logger.Warn("dropping one-shot job on stopped scheduler", "job", name)
		return
	}

	if existing, ok := s.oneShots[name]; ok {
		existing.timer.Stop()
		delete(s.oneShots, name)
		s.logger.Debug("replacing pending one-shot job", "job", name)
	}

	ctx := s.ctx
	job := &oneShotJob{}
	job.timer = time.AfterFunc(delay, func() {
		s.mu.Lock()
		delete(s.oneShots, name)
		s.mu.Unlock()
		if !s.beginRun(ctx) {
			return
		}
		defer s.wg.Done()
		s.execute(ctx, name, constraints, task, true)
	})
	s.oneShots[name] = job
}

// Start begins running registered jobs. Periodic jobs fire on their
// interval, not immediately.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return
	}

	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.cron = gron.New()
	for name, job := range s.periodic {
		s.addPeriodicLocked(name, job)
	}
	s.cron.Start()
	s.started = true
	s.logger.Info("scheduler started", "periodicJobs", len(s.periodic))
}

// CancelAll stops the cron, cancels pending one-shots, interrupts running
// tasks and waits for them to return. Periodic registrations survive so a
// later Start resumes them.
func (s *Scheduler) CancelAll() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	s.cron.Stop()
	s.cancel()
	for name, job := range s.oneShots {
		job.timer.Stop()
		delete(s.oneShots, name)
	}
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) addPeriodicLocked(name string, job periodicJob) {
	ctx := s.ctx
	s.cron.AddFunc(gron.Every(job.interval), func() {
		if !s.beginRun(ctx) {
			return
		}
		// A slow retry chain must not stall the cron loop.
		go func() {
			defer s.wg.Done()
			s.execute(ctx, name, job.constraints, job.task, false)
		}()
	})
}

// beginRun records an in-flight run under the lock. It refuses once the
// scheduler generation that produced ctx has been stopped, so CancelAll
// cannot observe a zero WaitGroup and then race a late Add.
func (s *Scheduler) beginRun(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ctx.Err() != nil || s.ctx != ctx {
		return false
	}
	s.wg.Add(1)
	return true
}

// execute runs one task occurrence, driving its retry chain to a terminal
// outcome. The caller holds the WaitGroup slot.
func (s *Scheduler) execute(ctx context.Context, name string, constraints Constraints, task Task, oneShot bool) {
	if !s.constraintsMet(ctx, constraints) {
		if oneShot {
			s.logger.Debug("constraints not met, rescheduling one-shot", "job", name, "delay", s.oneShotDefer)
			s.ScheduleOnce(name, s.oneShotDefer, constraints, task)
			return
		}
		s.logger.Debug("constraints not met, waiting for next tick", "job", name)
		return
	}

	bo := s.newBackoff()
	for attempt := 1; ; attempt++ {
		outcome := task(ctx, attempt)
		switch outcome.Code {
		case types.OutcomeSuccess:
			s.logger.Debug("job complete", "job", name, "attempt", attempt, "result", outcome.Message)
			return

		case types.OutcomeRetry:
			delay := bo.NextBackOff()
			if delay == backoff.Stop {
				s.failPermanently(name, types.PermanentFailure("retry budget exhausted", outcome.Err))
				return
			}
			s.logger.Warn("job will retry", "job", name, "attempt", attempt, "delay", delay, "reason", outcome.Message)
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}

		case types.OutcomePermanentFailure:
			s.failPermanently(name, outcome)
			return
		}
	}
}

func (s *Scheduler) constraintsMet(ctx context.Context, constraints Constraints) bool {
	if constraints.RequiresNetwork && !s.connectivity.Online(ctx) {
		return false
	}
	if constraints.RequiresBatteryNotLow && s.power.BatteryLow() {
		return false
	}
	return true
}

func (s *Scheduler) failPermanently(name string, outcome types.Outcome) {
	s.logger.Error("job failed permanently", "job", name, "reason", outcome.Message, "error", outcome.Err)

	s.mu.Lock()
	fn := s.onPermanentFailure
	s.mu.Unlock()
	if fn != nil {
		fn(name, outcome)
	}
}

// defaultRetryBackoff is the production delay sequence. The elapsed-time
// cap bounds how long a single run's retries can stretch.
func defaultRetryBackoff() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 10 * time.Second
	bo.MaxInterval = 5 * time.Minute
	bo.MaxElapsedTime = 30 * time.Minute
	// Reset picks up the intervals set above; the constructor already
	// primed the internal state with its defaults.
	bo.Reset()
	return bo
}
