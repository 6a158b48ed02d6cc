package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/coopco/dodgem/internal/browser"
	"github.com/coopco/dodgem/internal/bump"
	"github.com/coopco/dodgem/internal/bus"
	"github.com/coopco/dodgem/internal/channels"
	"github.com/coopco/dodgem/internal/config"
	"github.com/coopco/dodgem/internal/console"
	"github.com/coopco/dodgem/internal/cron"
	"github.com/coopco/dodgem/internal/heartbeat"
	"github.com/coopco/dodgem/internal/metrics"
	"github.com/coopco/dodgem/internal/session"
)

const busBuffer = 256

// run bumps until interrupted or until login fails.
func (a *app) run(ctx context.Context, cfg *config.Config, creds bump.Credentials, target bump.Target, minutes float64) error {
	sessionCfg := bump.SessionConfig{Target: target, Interval: bump.IntervalMinutes(minutes)}
	if err := sessionCfg.Validate(); err != nil {
		return err
	}
	if err := cfg.Site.Validate(); err != nil {
		return err
	}
	schedule, err := cfg.Schedule(sessionCfg)
	if err != nil {
		return err
	}
	level, err := channels.ParseNotifyLevel(cfg.Channels.Notify)
	if err != nil {
		return err
	}

	if warning := console.ShortIntervalWarning(target, minutes); warning != "" {
		a.printer.Warn(warning)
	}
	if !cfg.Bump.Schedule.IsZero() {
		for _, t := range cron.Upcoming(schedule, time.Now(), 3) {
			slog.Debug("session: scheduled run", "at", t.Format(time.DateTime))
		}
	}

	msgBus := bus.NewMessageBus(busBuffer)
	msgBus.SubscribeEvents("", a.printer.Emit)
	if cfg.History.Enabled {
		recorder := session.NewRecorder(session.NewManager(cfg.History.Dir))
		msgBus.SubscribeEvents("", recorder.Emit)
	}
	collector := metrics.NewCollector()
	msgBus.SubscribeEvents("", collector.Emit)

	var sched *bump.Scheduler
	chans := channels.NewManager(msgBus, level, func() string {
		return statusLine(sched, sessionCfg, time.Now())
	})
	for name, raw := range cfg.Channels.Enabled() {
		if err := chans.AddChannel(name, raw); err != nil {
			return err
		}
	}

	driver := browser.New(browser.Config{
		Headless:     cfg.Browser.Headless,
		ExecPath:     cfg.Browser.ExecPath,
		UserAgent:    cfg.Browser.UserAgent,
		WindowWidth:  cfg.Browser.WindowWidth,
		WindowHeight: cfg.Browser.WindowHeight,
		Timeout:      time.Duration(cfg.Browser.TimeoutSeconds) * time.Second,
	})
	sched = bump.NewScheduler(bump.SchedulerConfig{
		Driver:      driver,
		Credentials: creds,
		Session:     sessionCfg,
		Auth:        bump.NewAuthenticator(cfg.Site.LoginSteps()),
		Discovery:   bump.NewDiscovery(cfg.Site.IndexSteps()),
		Executor:    bump.NewExecutor(cfg.EditSteps(), nil, msgBus),
		Schedule:    schedule,
		Sink:        msgBus,
	})

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := chans.StartAll(ctx); err != nil {
		return err
	}
	defer func() {
		if err := chans.StopAll(); err != nil {
			slog.Warn("session: failed to stop channels", "error", err)
		}
	}()

	if minutes := cfg.Channels.HeartbeatMinutes; minutes > 0 && len(cfg.Channels.Enabled()) > 0 {
		beat := heartbeat.NewService(heartbeat.Config{
			Interval: bump.IntervalMinutes(minutes),
			Status:   func() string { return statusLine(sched, sessionCfg, time.Now()) },
			OnBeat:   func(message string) { chans.Broadcast(message, bus.TypeReport) },
		})
		beat.Start(ctx)
		defer beat.Stop()
	}

	g, gctx := errgroup.WithContext(ctx)
	// Dispatch ends when the bus closes so the final events still reach
	// every subscriber.
	g.Go(func() error {
		msgBus.Dispatch(context.Background())
		return nil
	})
	if cfg.Metrics.Addr != "" {
		g.Go(func() error { return collector.Serve(gctx, cfg.Metrics.Addr) })
	}
	g.Go(func() error {
		chans.ServeCommands(gctx)
		return nil
	})
	g.Go(func() error {
		defer msgBus.Close()
		return sessionResult(ctx, sched.Run(gctx))
	})
	return g.Wait()
}

// sessionResult maps the scheduler's exit to the command's result. An
// interrupt is a normal exit; errors the console already printed are
// marked as shown.
func sessionResult(ctx context.Context, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled) && ctx.Err() != nil:
		return nil
	case errors.Is(err, bump.ErrAuth), errors.Is(err, bump.ErrConfiguration):
		return shownError{err}
	default:
		return err
	}
}

// statusLine answers a status command from a chat channel.
func statusLine(s *bump.Scheduler, cfg bump.SessionConfig, now time.Time) string {
	line := console.Banner(cfg.Target, cfg.Interval.Minutes())
	if s == nil {
		return line + ". Not started yet."
	}
	state := s.State()
	line = fmt.Sprintf("%s. State: %s, cycle %d", line, state, s.Cycle())
	if next := s.NextRun(); state == bump.Waiting && !next.IsZero() {
		line += fmt.Sprintf(", next run at %s (in %s)", next.Local().Format("15:04:05"), next.Sub(now).Round(time.Second))
	}
	return line
}
