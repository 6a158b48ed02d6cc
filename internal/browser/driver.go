// Package browser binds the bump engine's AutomationDriver to a headless
// Chrome controlled through the DevTools protocol.
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/coopco/dodgem/internal/bump"
)

// Config controls how Chrome is launched.
type Config struct {
	Headless     bool
	ExecPath     string
	UserAgent    string
	WindowWidth  int
	WindowHeight int
	// Timeout bounds operations whose caller passes no timeout.
	Timeout time.Duration
}

// Driver launches one Chrome process per opened page.
type Driver struct {
	cfg Config
}

func New(cfg Config) *Driver {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.WindowWidth <= 0 || cfg.WindowHeight <= 0 {
		cfg.WindowWidth, cfg.WindowHeight = 1920, 1080
	}
	return &Driver{cfg: cfg}
}

func (d *Driver) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.Flag("headless", d.cfg.Headless),
		chromedp.WindowSize(d.cfg.WindowWidth, d.cfg.WindowHeight),
	)
	if d.cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(d.cfg.ExecPath))
	}
	if d.cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(d.cfg.UserAgent))
	}
	return opts
}

// Open starts Chrome and returns its first tab. The browser exits when the
// page is closed or ctx is cancelled.
func (d *Driver) Open(ctx context.Context) (bump.Page, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, d.allocatorOptions()...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			slog.Debug("browser: " + fmt.Sprintf(format, args...))
		}),
		chromedp.WithErrorf(func(format string, args ...any) {
			slog.Debug("browser: cdp error", "detail", fmt.Sprintf(format, args...))
		}),
	)

	p := newPage(tabCtx, func() {
		tabCancel()
		allocCancel()
	}, d.cfg.Timeout)

	// The first Run starts the browser process and binds its lifetime to
	// tabCtx, so it must not carry a timeout.
	if err := chromedp.Run(tabCtx); err != nil {
		p.Close()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}
	slog.Debug("browser: started", "headless", d.cfg.Headless)
	return p, nil
}
