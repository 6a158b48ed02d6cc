package bump

import (
	"context"
	"log/slog"
	"time"
)

// LoginSteps describes the site's login form.
type LoginSteps struct {
	URL              string
	IdentitySelector string
	SecretSelector   string
	SubmitSelector   string

	// Ready is awaited after submitting the form.
	Ready           Condition
	NavigateTimeout time.Duration
	ReadyTimeout    time.Duration
}

// Authenticator performs a single login attempt.
type Authenticator struct {
	steps LoginSteps
}

func NewAuthenticator(steps LoginSteps) *Authenticator {
	return &Authenticator{steps: steps}
}

// Authenticate navigates to the login page, fills identity then secret,
// submits, and waits for the post-login ready condition. Any failure is
// returned as *AuthError naming the step; the secret never appears in it.
func (a *Authenticator) Authenticate(ctx context.Context, page Page, creds Credentials) error {
	fail := func(step string, err error) error {
		slog.Debug("auth: step failed", "step", step, "error", err)
		return &AuthError{Step: step, Identity: creds.Identity, Err: err}
	}

	if err := page.Navigate(ctx, a.steps.URL, Options{Timeout: a.steps.NavigateTimeout}); err != nil {
		return fail("navigate", err)
	}
	if err := page.FillField(ctx, a.steps.IdentitySelector, creds.Identity); err != nil {
		return fail("fill identity", err)
	}
	if err := page.FillField(ctx, a.steps.SecretSelector, creds.Secret); err != nil {
		return fail("fill secret", err)
	}
	if err := page.Click(ctx, a.steps.SubmitSelector); err != nil {
		return fail("submit", err)
	}
	if err := page.WaitFor(ctx, a.steps.Ready, Options{Timeout: a.steps.ReadyTimeout}); err != nil {
		return fail("wait "+a.steps.Ready.String(), err)
	}
	return nil
}
