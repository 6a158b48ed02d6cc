package config

import (
	"fmt"
	"time"

	"github.com/coopco/dodgem/internal/bump"
	"github.com/coopco/dodgem/internal/cron"
)

// SessionConfig validates the target and interval from the bump section.
func (c *Config) SessionConfig() (bump.SessionConfig, error) {
	target, err := bump.ParseTarget(c.Bump.Target)
	if err != nil {
		return bump.SessionConfig{}, err
	}
	session := bump.SessionConfig{Target: target, Interval: bump.IntervalMinutes(c.Bump.IntervalMinutes)}
	if err := session.Validate(); err != nil {
		return bump.SessionConfig{}, err
	}
	return session, nil
}

// Schedule returns the configured wait schedule, falling back to a fixed
// wait of session.Interval after every cycle.
func (c *Config) Schedule(session bump.SessionConfig) (bump.Schedule, error) {
	if c.Bump.Schedule.IsZero() {
		return bump.Every(session.Interval), nil
	}
	s, err := cron.Parse(c.Bump.Schedule)
	if err != nil {
		return nil, &bump.ConfigError{Field: "schedule", Reason: err.Error()}
	}
	return s, nil
}

// LoginSteps builds the authenticator's steps from the site profile.
func (s SiteConfig) LoginSteps() bump.LoginSteps {
	return bump.LoginSteps{
		URL:              s.LoginURL,
		IdentitySelector: s.IdentitySelector,
		SecretSelector:   s.SecretSelector,
		SubmitSelector:   s.LoginSubmitSelector,
		Ready:            condition(s.LoggedInSelector),
		NavigateTimeout:  seconds(s.NavigateTimeoutSeconds),
		ReadyTimeout:     seconds(s.ReadyTimeoutSeconds),
	}
}

// IndexSteps builds the discovery steps from the site profile.
func (s SiteConfig) IndexSteps() bump.IndexSteps {
	return bump.IndexSteps{
		URL:             s.IndexURL,
		HoverSelector:   s.MenuSelector,
		LinkSelector:    s.IndexLinkSelector,
		Ready:           condition(s.IndexReadySelector),
		ListingSelector: s.ListingSelector,
		NavigateTimeout: seconds(s.NavigateTimeoutSeconds),
		ReadyTimeout:    seconds(s.ReadyTimeoutSeconds),
	}
}

// EditSteps builds the executor's steps from the site profile and pacing.
func (c *Config) EditSteps() bump.EditSteps {
	return bump.EditSteps{
		EditSelector:    c.Site.EditSelector,
		SubmitSelector:  c.Site.SaveSelector,
		EditReady:       condition(c.Site.EditReadySelector),
		Saved:           condition(c.Site.SavedSelector),
		Settle:          fractionalSeconds(c.Bump.SettleSeconds),
		Cooldown:        fractionalSeconds(c.Bump.CooldownSeconds),
		NavigateTimeout: seconds(c.Site.NavigateTimeoutSeconds),
		ReadyTimeout:    seconds(c.Site.ReadyTimeoutSeconds),
	}
}

// Validate reports site profile fields without which no session can work.
func (s SiteConfig) Validate() error {
	required := []struct {
		field, value string
	}{
		{"site.loginUrl", s.LoginURL},
		{"site.identitySelector", s.IdentitySelector},
		{"site.secretSelector", s.SecretSelector},
		{"site.loginSubmitSelector", s.LoginSubmitSelector},
		{"site.indexUrl", s.IndexURL},
		{"site.listingSelector", s.ListingSelector},
		{"site.editSelector", s.EditSelector},
		{"site.saveSelector", s.SaveSelector},
	}
	for _, r := range required {
		if r.value == "" {
			return &bump.ConfigError{Field: r.field, Reason: "not configured"}
		}
	}
	if s.NavigateTimeoutSeconds < 0 || s.ReadyTimeoutSeconds < 0 {
		return &bump.ConfigError{Field: "site timeouts", Reason: fmt.Sprintf("must not be negative (%d, %d)", s.NavigateTimeoutSeconds, s.ReadyTimeoutSeconds)}
	}
	return nil
}

// condition waits for selector when one is set and for a navigation otherwise.
func condition(selector string) bump.Condition {
	if selector == "" {
		return bump.Navigation()
	}
	return bump.Visible(selector)
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

func fractionalSeconds(f float64) time.Duration {
	if f <= 0 {
		return 0
	}
	return time.Duration(f * float64(time.Second))
}
