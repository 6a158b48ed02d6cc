package bump

import (
	"context"
	"time"
)

// AutomationDriver opens pages against the remote site.
type AutomationDriver interface {
	Open(ctx context.Context) (Page, error)
}

// Page is a single browser tab. It is not safe for concurrent use; the
// scheduler owns it exclusively for the whole session.
type Page interface {
	Navigate(ctx context.Context, location string, opts Options) error
	FillField(ctx context.Context, selector, value string) error
	Click(ctx context.Context, selector string) error
	Hover(ctx context.Context, selector string) error
	WaitFor(ctx context.Context, cond Condition, opts Options) error
	// Links returns the absolute href of every element matching selector,
	// in document order.
	Links(ctx context.Context, selector string) ([]string, error)
	Close() error
}

// Options bounds a single driver operation. Zero means the driver default.
type Options struct {
	Timeout time.Duration
}

// ConditionKind selects how WaitFor decides the page is ready.
type ConditionKind int

const (
	// ConditionNavigation waits for the location to change and the document to load.
	ConditionNavigation ConditionKind = iota
	// ConditionSelector waits for an element matching Selector to become visible.
	ConditionSelector
)

// Condition is a page-ready post-condition.
type Condition struct {
	Kind     ConditionKind
	Selector string
}

// Navigation returns a condition satisfied by the next completed navigation.
func Navigation() Condition { return Condition{Kind: ConditionNavigation} }

// Visible returns a condition satisfied once selector is visible.
func Visible(selector string) Condition {
	return Condition{Kind: ConditionSelector, Selector: selector}
}

func (c Condition) String() string {
	if c.Kind == ConditionSelector {
		return "visible(" + c.Selector + ")"
	}
	return "navigation"
}
