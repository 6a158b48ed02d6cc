// Package cron turns a configured wait schedule into a bump.Schedule.
package cron

// ScheduleType defines how the next cycle is timed.
type ScheduleType string

const (
	ScheduleAt    ScheduleType = "at"    // specific time each day (e.g. "14:30")
	ScheduleEvery ScheduleType = "every" // interval after each cycle (e.g. "30m", "2h")
	ScheduleCron  ScheduleType = "cron"  // cron expression (e.g. "*/20 * * * *")
)

// CronSchedule is the config form of a wait schedule. The zero value means
// "use the session interval".
type CronSchedule struct {
	Type       ScheduleType `json:"type,omitempty"`
	Expression string       `json:"expression,omitempty"` // cron expr, time, or duration
}

// IsZero reports whether no schedule was configured.
func (c CronSchedule) IsZero() bool {
	return c.Type == "" && c.Expression == ""
}
