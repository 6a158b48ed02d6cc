package bump

import (
	"errors"
	"fmt"
)

// Sentinels for errors.Is checks against the typed errors below.
var (
	ErrConfiguration = errors.New("configuration error")
	ErrAuth          = errors.New("authentication failed")
	ErrDiscovery     = errors.New("listing discovery failed")
	ErrBump          = errors.New("bump failed")
)

// ConfigError reports missing or invalid credentials or session settings.
// No cycle starts when one is returned.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error: %s %s", e.Field, e.Reason)
}

func (e *ConfigError) Is(target error) bool { return target == ErrConfiguration }

// AuthError is fatal: the session stops and login is not retried.
type AuthError struct {
	Step     string
	Identity string
	Err      error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("login as %s failed at %s: %v", e.Identity, e.Step, e.Err)
}

func (e *AuthError) Unwrap() error        { return e.Err }
func (e *AuthError) Is(target error) bool { return target == ErrAuth }

// DiscoveryError fails one cycle; the next cycle tries again after the interval.
type DiscoveryError struct {
	Step string
	Err  error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("listing discovery failed at %s: %v", e.Step, e.Err)
}

func (e *DiscoveryError) Unwrap() error        { return e.Err }
func (e *DiscoveryError) Is(target error) bool { return target == ErrDiscovery }

// BumpError describes a single listing's failure. It is recorded in that
// listing's Outcome and never escapes the executor.
type BumpError struct {
	Listing Listing
	Step    string
	Err     error
}

func (e *BumpError) Error() string {
	return fmt.Sprintf("bump %s failed at %s: %v", e.Listing.ID, e.Step, e.Err)
}

func (e *BumpError) Unwrap() error        { return e.Err }
func (e *BumpError) Is(target error) bool { return target == ErrBump }
