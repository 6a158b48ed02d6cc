package bump

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Credentials identify the account the session logs in as.
// The core never persists them.
type Credentials struct {
	Identity string
	Secret   string
}

// Validate reports a configuration error when either field is empty.
func (c Credentials) Validate() error {
	if strings.TrimSpace(c.Identity) == "" {
		return &ConfigError{Field: "identity", Reason: "not configured"}
	}
	if c.Secret == "" {
		return &ConfigError{Field: "secret", Reason: "not configured"}
	}
	return nil
}

// String redacts the secret so credentials are safe to log.
func (c Credentials) String() string {
	return fmt.Sprintf("Credentials{Identity: %q, Secret: <redacted>}", c.Identity)
}

// CredentialStore supplies the stored login. When nothing is configured it
// returns an error matching ErrConfiguration.
type CredentialStore interface {
	Credentials() (Credentials, error)
}

// Target selects which discovered listings are bumped each cycle.
type Target int

const (
	TargetAll Target = iota
	TargetOldest
)

func (t Target) String() string {
	switch t {
	case TargetAll:
		return "all"
	case TargetOldest:
		return "oldest"
	default:
		return "Target(" + strconv.Itoa(int(t)) + ")"
	}
}

// ParseTarget accepts "all" or "oldest", ignoring case and surrounding space.
func ParseTarget(s string) (Target, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "all":
		return TargetAll, nil
	case "oldest":
		return TargetOldest, nil
	default:
		return 0, &ConfigError{Field: "target", Reason: fmt.Sprintf("must be `all` or `oldest`, got %q", s)}
	}
}

// SessionConfig is fixed for the lifetime of a session.
type SessionConfig struct {
	Target   Target
	Interval time.Duration
}

// Validate rejects unknown targets and non-positive intervals.
func (c SessionConfig) Validate() error {
	if c.Target != TargetAll && c.Target != TargetOldest {
		return &ConfigError{Field: "target", Reason: "unknown target " + c.Target.String()}
	}
	if c.Interval <= 0 {
		return &ConfigError{Field: "interval", Reason: "must be greater than zero"}
	}
	return nil
}

// IntervalMinutes converts a possibly fractional number of minutes into a duration.
func IntervalMinutes(minutes float64) time.Duration {
	return time.Duration(minutes * float64(time.Minute))
}

var intervalPattern = regexp.MustCompile(`^\d+(\.\d+)?$`)

// ParseInterval parses a number or decimal of minutes such as "15" or "0.5".
func ParseInterval(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if !intervalPattern.MatchString(s) {
		return 0, &ConfigError{Field: "interval", Reason: fmt.Sprintf("must be a number or decimal of minutes, got %q", s)}
	}
	minutes, err := strconv.ParseFloat(s, 64)
	if err != nil || minutes <= 0 {
		return 0, &ConfigError{Field: "interval", Reason: fmt.Sprintf("must be a positive number or decimal of minutes, got %q", s)}
	}
	return IntervalMinutes(minutes), nil
}

// Listing is one discovered item. Position is its index in discovery order.
type Listing struct {
	ID       string
	Position int
}

// OutcomeStatus tags a per-listing result.
type OutcomeStatus int

const (
	Success OutcomeStatus = iota
	Failure
)

func (s OutcomeStatus) String() string {
	if s == Success {
		return "success"
	}
	return "failure"
}

// Outcome is produced exactly once for every attempted listing.
type Outcome struct {
	Listing Listing
	Status  OutcomeStatus
	Elapsed time.Duration
	Reason  string
}

func (o Outcome) Succeeded() bool { return o.Status == Success }

// State is the scheduler's position in the session lifecycle.
type State int

const (
	Uninitialized State = iota
	Authenticating
	Idle
	Discovering
	Bumping
	Waiting
	Failed
)

var stateNames = [...]string{
	Uninitialized:  "uninitialized",
	Authenticating: "authenticating",
	Idle:           "idle",
	Discovering:    "discovering",
	Bumping:        "bumping",
	Waiting:        "waiting",
	Failed:         "failed",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "State(" + strconv.Itoa(int(s)) + ")"
}
