// Package console prints session progress for a person watching the terminal.
package console

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/coopco/dodgem/internal/bump"
)

// LoginFailedHint is shown when authentication fails.
const LoginFailedHint = "Login failed - please ensure login details are correct. Run `dodgem login` to update login details."

// Printer renders events as one line each. Colours follow the writer's
// terminal capabilities, so output to a file or buffer is plain text.
type Printer struct {
	out io.Writer
	mu  sync.Mutex

	info    lipgloss.Style
	success lipgloss.Style
	failure lipgloss.Style
	dimmed  lipgloss.Style
	banner  lipgloss.Style
}

func New(out io.Writer) *Printer {
	r := lipgloss.NewRenderer(out)
	return &Printer{
		out:     out,
		info:    r.NewStyle().Foreground(lipgloss.Color("12")),
		success: r.NewStyle().Foreground(lipgloss.Color("10")),
		failure: r.NewStyle().Foreground(lipgloss.Color("9")),
		dimmed:  r.NewStyle().Foreground(lipgloss.Color("8")),
		banner:  r.NewStyle().Bold(true),
	}
}

// Emit writes the line for e, if the kind has one.
func (p *Printer) Emit(e bump.Event) {
	if line := p.Render(e); line != "" {
		p.println(line)
	}
}

// Info, Succeed, Warn and Fail print a single status line outside the
// event stream, e.g. for the login prompt.
func (p *Printer) Info(msg string)    { p.println(p.info.Render("ℹ " + msg)) }
func (p *Printer) Succeed(msg string) { p.println(p.success.Render("✔ " + msg)) }
func (p *Printer) Warn(msg string)    { p.println(p.dimmed.Render("⚠ " + msg)) }
func (p *Printer) Fail(msg string)    { p.println(p.failure.Render("✖ " + msg)) }

func (p *Printer) println(line string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.out, line)
}

// Render returns the line for e, or "" for kinds that are not shown.
func (p *Printer) Render(e bump.Event) string {
	switch e.Kind {
	case bump.EventSessionStarted:
		return p.banner.Render(Banner(e.Target, e.Interval.Minutes()))
	case bump.EventAuthStarted:
		return p.info.Render(fmt.Sprintf("Logging in as: %s", e.Identity))
	case bump.EventAuthSucceeded:
		return p.success.Render(fmt.Sprintf("✔ Logged in as: %s", e.Identity))
	case bump.EventAuthFailed:
		return p.failure.Render("✖ " + LoginFailedHint)
	case bump.EventCycleStarted:
		return p.info.Render("Finding active trades")
	case bump.EventListingsFound:
		return p.info.Render(fmt.Sprintf("Found %d active trade%s", e.Count, plural(e.Count)))
	case bump.EventBumpStarted:
		return p.info.Render(bumpLabel(e))
	case bump.EventBumpFinished:
		return p.renderOutcome(e)
	case bump.EventCycleCompleted:
		return p.dimmed.Render(fmt.Sprintf("Bumped %d/%d trade%s", e.Succeeded, e.Total, plural(e.Total)))
	case bump.EventCycleFailed:
		return p.failure.Render(fmt.Sprintf("✖ Could not load active trades: %v", e.Err))
	case bump.EventWaiting:
		return p.dimmed.Render("Dodgem will run again at: " + e.NextRun.Local().Format("15:04:05"))
	case bump.EventFatal:
		// Login failures already printed their hint.
		if e.Err == nil || errors.Is(e.Err, bump.ErrAuth) {
			return ""
		}
		return p.failure.Render(fmt.Sprintf("✖ %v", e.Err))
	}
	return ""
}

func (p *Printer) renderOutcome(e bump.Event) string {
	if e.Outcome == nil {
		return ""
	}
	secs := strconv.FormatFloat(e.Outcome.Elapsed.Seconds(), 'f', 1, 64)
	if e.Outcome.Succeeded() {
		return p.success.Render(fmt.Sprintf("✔ %s (%ss)", doneLabel(e), secs))
	}
	return p.failure.Render(fmt.Sprintf("✖ %s (%ss): %s", failedLabel(e), secs, e.Outcome.Reason))
}

func bumpLabel(e bump.Event) string {
	if e.Target == bump.TargetOldest {
		return "Bumping oldest active trade"
	}
	return fmt.Sprintf("Bumping trade %d/%d", e.Index, e.Total)
}

func doneLabel(e bump.Event) string {
	if e.Target == bump.TargetOldest {
		return "Bumped oldest active trade"
	}
	return fmt.Sprintf("Bumped trade %d/%d", e.Index, e.Total)
}

// Banner describes what the session will do, e.g.
// "Bumping all trades every 15 minutes".
func Banner(target bump.Target, minutes float64) string {
	what := "all trades"
	if target == bump.TargetOldest {
		what = "the oldest trade"
	}
	n := strconv.FormatFloat(minutes, 'f', -1, 64)
	unit := "minutes"
	if n == "1" {
		unit = "minute"
	}
	return fmt.Sprintf("Bumping %s every %s %s", what, n, unit)
}

// ShortIntervalWarning returns a warning when bumping every trade more often
// than the site allows, or "" when the combination is fine.
func ShortIntervalWarning(target bump.Target, minutes float64) string {
	if target != bump.TargetAll || minutes >= 15 {
		return ""
	}
	return strings.Join([]string{
		"Warning: trades can only be bumped once every 15 minutes.",
		"Bumping all trades more often will fail for trades still cooling off.",
	}, " ")
}

func failedLabel(e bump.Event) string {
	if e.Target == bump.TargetOldest {
		return "Failed to bump oldest active trade"
	}
	return fmt.Sprintf("Failed to bump trade %d/%d", e.Index, e.Total)
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
