package bump

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// EditSteps describes how a single listing is re-saved.
type EditSteps struct {
	EditSelector   string
	SubmitSelector string

	// EditReady is awaited after clicking the edit entry point and Saved after
	// submitting. Both default to a navigation.
	EditReady Condition
	Saved     Condition

	// Settle is slept between the edit form loading and submitting it, to let
	// the site finish populating the form.
	Settle time.Duration
	// Cooldown is slept between consecutive listings in TargetAll mode.
	Cooldown time.Duration

	NavigateTimeout time.Duration
	ReadyTimeout    time.Duration
}

// Executor bumps listings one at a time. A listing's failure is recorded in
// its Outcome and never stops the remaining listings.
type Executor struct {
	steps EditSteps
	clock Clock
	sink  ProgressSink
}

func NewExecutor(steps EditSteps, clock Clock, sink ProgressSink) *Executor {
	if clock == nil {
		clock = RealClock
	}
	if sink == nil {
		sink = discardSink{}
	}
	return &Executor{steps: steps, clock: clock, sink: sink}
}

// BumpOne attempts a single listing. It always returns an Outcome; Elapsed
// covers the attempt from the first navigation to the saved condition.
func (e *Executor) BumpOne(ctx context.Context, page Page, listing Listing) (out Outcome) {
	start := e.clock.Now()
	out = Outcome{Listing: listing, Status: Success}

	defer func() {
		if r := recover(); r != nil {
			out.Status = Failure
			out.Reason = (&BumpError{Listing: listing, Step: "driver", Err: fmt.Errorf("panic: %v", r)}).Error()
		}
		out.Elapsed = e.clock.Now().Sub(start)
	}()

	if err := e.attempt(ctx, page, listing); err != nil {
		out.Status = Failure
		out.Reason = err.Error()
	}
	return out
}

func (e *Executor) attempt(ctx context.Context, page Page, listing Listing) error {
	s := e.steps
	fail := func(step string, err error) error {
		return &BumpError{Listing: listing, Step: step, Err: err}
	}

	if err := page.Navigate(ctx, listing.ID, Options{Timeout: s.NavigateTimeout}); err != nil {
		return fail("navigate", err)
	}
	if err := page.Click(ctx, s.EditSelector); err != nil {
		return fail("edit", err)
	}
	if err := page.WaitFor(ctx, s.EditReady, Options{Timeout: s.ReadyTimeout}); err != nil {
		return fail("wait edit "+s.EditReady.String(), err)
	}
	if err := sleep(ctx, e.clock, s.Settle); err != nil {
		return fail("settle", err)
	}
	if err := page.Click(ctx, s.SubmitSelector); err != nil {
		return fail("submit", err)
	}
	if err := page.WaitFor(ctx, s.Saved, Options{Timeout: s.ReadyTimeout}); err != nil {
		return fail("wait saved "+s.Saved.String(), err)
	}
	return nil
}

// BumpAll bumps listings strictly in order and returns one Outcome per
// attempted listing. In TargetAll mode the cooldown is slept between
// listings. It stops early only when ctx is cancelled, in which case the
// outcomes gathered so far are returned. An attempt that fails because ctx
// was cancelled is not an outcome and gets no bump_finished event.
func (e *Executor) BumpAll(ctx context.Context, page Page, cycle int, target Target, listings []Listing) []Outcome {
	outcomes := make([]Outcome, 0, len(listings))
	total := len(listings)

	for i, listing := range listings {
		if ctx.Err() != nil {
			slog.Debug("executor: cancelled before listing", "index", i+1, "total", total)
			break
		}

		e.sink.Emit(Event{
			Kind:    EventBumpStarted,
			Time:    e.clock.Now(),
			Cycle:   cycle,
			State:   Bumping,
			Target:  target,
			Listing: listing,
			Index:   i + 1,
			Total:   total,
		})

		out := e.BumpOne(ctx, page, listing)
		if !out.Succeeded() && ctx.Err() != nil {
			slog.Debug("executor: cancelled during listing", "listing", listing.ID, "reason", out.Reason)
			break
		}
		outcomes = append(outcomes, out)
		if !out.Succeeded() {
			slog.Warn("executor: bump failed", "listing", listing.ID, "reason", out.Reason)
		}

		e.sink.Emit(Event{
			Kind:    EventBumpFinished,
			Time:    e.clock.Now(),
			Cycle:   cycle,
			State:   Bumping,
			Target:  target,
			Listing: listing,
			Index:   i + 1,
			Total:   total,
			Outcome: &out,
		})

		if target == TargetAll && i < total-1 {
			if err := sleep(ctx, e.clock, e.steps.Cooldown); err != nil {
				break
			}
		}
	}
	return outcomes
}
