package cron

import (
	"fmt"
	"time"

	robfigcron "github.com/robfig/cron/v3"

	"github.com/coopco/dodgem/internal/bump"
)

// Parse converts a CronSchedule into the schedule the bump scheduler waits on.
// "every" schedules count from the end of each cycle; "at" and "cron"
// schedules follow the wall clock in the local time zone.
func Parse(schedule CronSchedule) (bump.Schedule, error) {
	if schedule.Type == ScheduleEvery {
		d, err := time.ParseDuration(schedule.Expression)
		if err != nil {
			return nil, fmt.Errorf("invalid duration %q: %w", schedule.Expression, err)
		}
		if d <= 0 {
			return nil, fmt.Errorf("duration %q must be positive", schedule.Expression)
		}
		return bump.Every(d), nil
	}

	expr, err := toCronExpr(schedule)
	if err != nil {
		return nil, err
	}
	sched, err := robfigcron.ParseStandard(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return sched, nil
}

// Upcoming lists the next n run times of s after from.
func Upcoming(s bump.Schedule, from time.Time, n int) []time.Time {
	runs := make([]time.Time, 0, n)
	t := from
	for i := 0; i < n; i++ {
		t = s.Next(t)
		if t.IsZero() {
			break
		}
		runs = append(runs, t)
	}
	return runs
}

// toCronExpr converts a CronSchedule to a robfig/cron expression string.
func toCronExpr(schedule CronSchedule) (string, error) {
	switch schedule.Type {
	case ScheduleCron:
		if schedule.Expression == "" {
			return "", fmt.Errorf("empty cron expression")
		}
		return schedule.Expression, nil
	case ScheduleEvery:
		d, err := time.ParseDuration(schedule.Expression)
		if err != nil {
			return "", fmt.Errorf("invalid duration %q: %w", schedule.Expression, err)
		}
		return fmt.Sprintf("@every %s", d), nil
	case ScheduleAt:
		var h, m int
		if _, err := fmt.Sscanf(schedule.Expression, "%d:%d", &h, &m); err != nil {
			return "", fmt.Errorf("invalid time %q, expected HH:MM: %w", schedule.Expression, err)
		}
		if h < 0 || h > 23 || m < 0 || m > 59 {
			return "", fmt.Errorf("time %q out of range", schedule.Expression)
		}
		return fmt.Sprintf("%d %d * * *", m, h), nil
	default:
		return "", fmt.Errorf("unknown schedule type %q", schedule.Type)
	}
}
