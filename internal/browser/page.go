package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/input"
	cdppage "github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/coopco/dodgem/internal/bump"
)

const navigationPoll = 100 * time.Millisecond

// Page is a single Chrome tab. Navigation is detected by watching the main
// frame's loader ID change after the last synchronisation point (a Navigate
// or a satisfied WaitFor).
type Page struct {
	tabCtx  context.Context
	cancel  context.CancelFunc
	timeout time.Duration

	mu     sync.Mutex
	loader cdp.LoaderID
	marked cdp.LoaderID
	closed bool
}

func newPage(tabCtx context.Context, cancel context.CancelFunc, timeout time.Duration) *Page {
	p := &Page{tabCtx: tabCtx, cancel: cancel, timeout: timeout}
	chromedp.ListenTarget(tabCtx, func(ev any) {
		if e, ok := ev.(*cdppage.EventFrameNavigated); ok && e.Frame != nil && e.Frame.ParentID == "" {
			p.mu.Lock()
			p.loader = e.Frame.LoaderID
			p.mu.Unlock()
		}
	})
	return p
}

// run executes actions on the tab, bounded by timeout and by ctx.
func (p *Page) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	if timeout <= 0 {
		timeout = p.timeout
	}
	opCtx, cancel := context.WithTimeout(p.tabCtx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(opCtx, actions...); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(opCtx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("timed out after %s: %w", timeout, err)
		}
		return err
	}
	return nil
}

func (p *Page) mark() {
	p.mu.Lock()
	p.marked = p.loader
	p.mu.Unlock()
}

func (p *Page) navigated() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loader != p.marked
}

func (p *Page) Navigate(ctx context.Context, location string, opts bump.Options) error {
	if err := p.run(ctx, opts.Timeout, chromedp.Navigate(location)); err != nil {
		return fmt.Errorf("navigate to %s: %w", location, err)
	}
	p.mark()
	return nil
}

func (p *Page) FillField(ctx context.Context, selector, value string) error {
	err := p.run(ctx, 0,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Focus(selector, chromedp.ByQuery),
		chromedp.SendKeys(selector, value, chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("fill %s: %w", selector, err)
	}
	return nil
}

func (p *Page) Click(ctx context.Context, selector string) error {
	err := p.run(ctx, 0,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Click(selector, chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("click %s: %w", selector, err)
	}
	return nil
}

// Hover moves the mouse to the centre of the element, which opens CSS
// hover menus that a synthetic click would not.
func (p *Page) Hover(ctx context.Context, selector string) error {
	var box *dom.BoxModel
	err := p.run(ctx, 0,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.ScrollIntoView(selector, chromedp.ByQuery),
		chromedp.Dimensions(selector, &box, chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			x, y, ok := quadCentre(box)
			if !ok {
				return fmt.Errorf("no box model for %s", selector)
			}
			return chromedp.MouseEvent(input.MouseMoved, x, y).Do(ctx)
		}),
	)
	if err != nil {
		return fmt.Errorf("hover %s: %w", selector, err)
	}
	return nil
}

func quadCentre(box *dom.BoxModel) (x, y float64, ok bool) {
	if box == nil || len(box.Content) < 8 {
		return 0, 0, false
	}
	q := box.Content
	return (q[0] + q[2] + q[4] + q[6]) / 4, (q[1] + q[3] + q[5] + q[7]) / 4, true
}

func (p *Page) WaitFor(ctx context.Context, cond bump.Condition, opts bump.Options) error {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = p.timeout
	}

	switch cond.Kind {
	case bump.ConditionSelector:
		if err := p.run(ctx, timeout, chromedp.WaitVisible(cond.Selector, chromedp.ByQuery)); err != nil {
			return fmt.Errorf("wait for %s: %w", cond, err)
		}
	default:
		if err := p.waitNavigation(ctx, timeout); err != nil {
			return fmt.Errorf("wait for %s: %w", cond, err)
		}
	}
	p.mark()
	return nil
}

func (p *Page) waitNavigation(ctx context.Context, timeout time.Duration) error {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(navigationPoll)
	defer ticker.Stop()

	for !p.navigated() {
		select {
		case <-ticker.C:
		case <-deadline.C:
			return fmt.Errorf("no navigation within %s", timeout)
		case <-ctx.Done():
			return ctx.Err()
		case <-p.tabCtx.Done():
			return errors.New("page closed")
		}
	}
	return p.run(ctx, timeout, chromedp.WaitReady("body", chromedp.ByQuery))
}

func (p *Page) Links(ctx context.Context, selector string) ([]string, error) {
	var html, base string
	err := p.run(ctx, 0,
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Location(&base),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return nil, fmt.Errorf("read page: %w", err)
	}
	return extractLinks(html, base, selector)
}

func (p *Page) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()
	p.cancel()
	return nil
}
