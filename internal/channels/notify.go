package channels

import (
	"fmt"
	"time"

	"github.com/coopco/dodgem/internal/bump"
	"github.com/coopco/dodgem/internal/bus"
)

// NotifyLevel selects which events become notifications.
type NotifyLevel string

const (
	NotifyAll    NotifyLevel = "all"    // cycle summaries and alerts
	NotifyErrors NotifyLevel = "errors" // only cycles with failures and alerts
)

// ParseNotifyLevel accepts "all", "errors" or "" (all).
func ParseNotifyLevel(s string) (NotifyLevel, error) {
	switch NotifyLevel(s) {
	case "", NotifyAll:
		return NotifyAll, nil
	case NotifyErrors:
		return NotifyErrors, nil
	}
	return "", fmt.Errorf("unknown notify level %q, expected all or errors", s)
}

// notification formats e for remote delivery. ok is false when the event
// is not worth a message at this level.
func notification(level NotifyLevel, e bump.Event) (content, msgType string, ok bool) {
	switch e.Kind {
	case bump.EventCycleCompleted:
		if level == NotifyErrors && e.Failed == 0 {
			return "", "", false
		}
		content = fmt.Sprintf("Cycle %d: bumped %d/%d trade(s)", e.Cycle, e.Succeeded, e.Total)
		if e.Failed > 0 {
			content += fmt.Sprintf(", %d failed", e.Failed)
		}
		return content + nextRunSuffix(e.NextRun), bus.TypeReport, true
	case bump.EventCycleFailed:
		return fmt.Sprintf("Cycle %d: could not load active trades: %v", e.Cycle, e.Err) + nextRunSuffix(e.NextRun), bus.TypeAlert, true
	case bump.EventFatal:
		return fmt.Sprintf("Bump session stopped: %v", e.Err), bus.TypeAlert, true
	}
	return "", "", false
}

func nextRunSuffix(next time.Time) string {
	if next.IsZero() {
		return ""
	}
	return ". Next run at " + next.Local().Format("15:04:05")
}
