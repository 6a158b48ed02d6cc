package bump

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Schedule yields the start of the next cycle. It matches robfig/cron's
// Schedule interface so parsed cron expressions can be plugged in directly.
type Schedule interface {
	Next(time.Time) time.Time
}

// Every is a Schedule that starts the next cycle exactly d after t.
type Every time.Duration

func (e Every) Next(t time.Time) time.Time { return t.Add(time.Duration(e)) }

// SchedulerConfig holds the scheduler's collaborators. Driver, Auth,
// Discovery and Executor are required.
type SchedulerConfig struct {
	Driver      AutomationDriver
	Credentials Credentials
	Session     SessionConfig
	Auth        *Authenticator
	Discovery   *Discovery
	Executor    *Executor
	// Schedule defaults to Every(Session.Interval).
	Schedule Schedule
	Clock    Clock
	Sink     ProgressSink
}

// Scheduler runs one session: a single login followed by an unbounded loop
// of discovery, bumping and waiting.
type Scheduler struct {
	driver    AutomationDriver
	creds     Credentials
	session   SessionConfig
	auth      *Authenticator
	discovery *Discovery
	executor  *Executor
	schedule  Schedule
	clock     Clock
	sink      ProgressSink

	mu      sync.RWMutex
	state   State
	cycle   int
	nextRun time.Time
}

func NewScheduler(cfg SchedulerConfig) *Scheduler {
	clock := cfg.Clock
	if clock == nil {
		clock = RealClock
	}
	sink := cfg.Sink
	if sink == nil {
		sink = discardSink{}
	}
	schedule := cfg.Schedule
	if schedule == nil {
		schedule = Every(cfg.Session.Interval)
	}
	return &Scheduler{
		driver:    cfg.Driver,
		creds:     cfg.Credentials,
		session:   cfg.Session,
		auth:      cfg.Auth,
		discovery: cfg.Discovery,
		executor:  cfg.Executor,
		schedule:  schedule,
		clock:     clock,
		sink:      sink,
		state:     Uninitialized,
	}
}

// State returns the current lifecycle state.
func (s *Scheduler) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// NextRun returns when the next cycle begins. Zero before the first wait.
func (s *Scheduler) NextRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nextRun
}

// Cycle returns the number of the current or most recent cycle.
func (s *Scheduler) Cycle() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cycle
}

// Run drives the session until ctx is cancelled or a fatal error occurs.
// It returns a *ConfigError before touching the driver, an *AuthError when
// login fails, and ctx.Err() on cancellation. Discovery and per-listing
// failures never end the session.
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.validate(); err != nil {
		s.emit(Event{Kind: EventFatal, Err: err})
		return err
	}

	s.emit(Event{
		Kind:     EventSessionStarted,
		Target:   s.session.Target,
		Interval: s.session.Interval,
		Identity: s.creds.Identity,
	})

	s.transition(Authenticating)
	page, err := s.login(ctx)
	if err != nil {
		s.transition(Failed)
		s.emit(Event{Kind: EventAuthFailed, Identity: s.creds.Identity, Err: err})
		s.emit(Event{Kind: EventFatal, Identity: s.creds.Identity, Err: err})
		return err
	}
	defer func() {
		if err := page.Close(); err != nil {
			slog.Warn("scheduler: failed to close page", "error", err)
		}
	}()
	s.emit(Event{Kind: EventAuthSucceeded, Identity: s.creds.Identity})
	s.transition(Idle)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		next, err := s.runCycle(ctx, page)
		if err != nil {
			return err
		}

		s.transition(Waiting)
		s.emit(Event{Kind: EventWaiting, Cycle: s.Cycle(), NextRun: next})
		if err := sleep(ctx, s.clock, next.Sub(s.clock.Now())); err != nil {
			return err
		}
	}
}

func (s *Scheduler) validate() error {
	if err := s.creds.Validate(); err != nil {
		return err
	}
	if err := s.session.Validate(); err != nil {
		return err
	}
	switch {
	case s.driver == nil:
		return &ConfigError{Field: "driver", Reason: "not configured"}
	case s.auth == nil:
		return &ConfigError{Field: "authenticator", Reason: "not configured"}
	case s.discovery == nil:
		return &ConfigError{Field: "discovery", Reason: "not configured"}
	case s.executor == nil:
		return &ConfigError{Field: "executor", Reason: "not configured"}
	}
	return nil
}

// login opens the session's only page and authenticates on it.
func (s *Scheduler) login(ctx context.Context) (Page, error) {
	s.emit(Event{Kind: EventAuthStarted, Identity: s.creds.Identity})

	page, err := s.driver.Open(ctx)
	if err != nil {
		return nil, &AuthError{Step: "open page", Identity: s.creds.Identity, Err: err}
	}
	if err := s.auth.Authenticate(ctx, page, s.creds); err != nil {
		if cerr := page.Close(); cerr != nil {
			slog.Warn("scheduler: failed to close page", "error", cerr)
		}
		return nil, err
	}
	return page, nil
}

// runCycle performs discovery and bumping, and returns when the next cycle
// should start. A cycle cut short by ctx is neither completed nor failed:
// runCycle returns ctx.Err() without planning the next run.
func (s *Scheduler) runCycle(ctx context.Context, page Page) (time.Time, error) {
	s.mu.Lock()
	s.cycle++
	cycle := s.cycle
	s.mu.Unlock()

	s.transition(Discovering)
	s.emit(Event{Kind: EventCycleStarted, Cycle: cycle, Target: s.session.Target})

	listings, err := s.discovery.Discover(ctx, page)
	if err != nil {
		if cerr := ctx.Err(); cerr != nil {
			return time.Time{}, cerr
		}
		next := s.planNext()
		slog.Warn("scheduler: discovery failed, retrying next cycle", "cycle", cycle, "error", err, "next_run", next)
		s.emit(Event{Kind: EventCycleFailed, Cycle: cycle, Err: err, NextRun: next})
		return next, nil
	}
	s.emit(Event{Kind: EventListingsFound, Cycle: cycle, Count: len(listings)})

	targets := Select(s.session.Target, listings)
	s.transition(Bumping)
	outcomes := s.executor.BumpAll(ctx, page, cycle, s.session.Target, targets)
	if err := ctx.Err(); err != nil {
		slog.Info("scheduler: cycle interrupted", "cycle", cycle, "attempted", len(outcomes), "total", len(targets))
		return time.Time{}, err
	}

	succeeded := 0
	for _, o := range outcomes {
		if o.Succeeded() {
			succeeded++
		}
	}
	next := s.planNext()
	s.emit(Event{
		Kind:      EventCycleCompleted,
		Cycle:     cycle,
		Total:     len(targets),
		Succeeded: succeeded,
		Failed:    len(outcomes) - succeeded,
		NextRun:   next,
	})
	return next, nil
}

func (s *Scheduler) planNext() time.Time {
	next := s.schedule.Next(s.clock.Now())
	s.mu.Lock()
	s.nextRun = next
	s.mu.Unlock()
	return next
}

func (s *Scheduler) transition(to State) {
	s.mu.Lock()
	from := s.state
	s.state = to
	cycle := s.cycle
	s.mu.Unlock()

	slog.Debug("scheduler: state changed", "from", from, "to", to, "cycle", cycle)
	s.emit(Event{Kind: EventStateChanged, Cycle: cycle, State: to})
}

func (s *Scheduler) emit(e Event) {
	if e.Time.IsZero() {
		e.Time = s.clock.Now()
	}
	if e.State == Uninitialized && e.Kind != EventStateChanged {
		e.State = s.State()
	}
	s.sink.Emit(e)
}
