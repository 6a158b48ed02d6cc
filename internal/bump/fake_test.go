package bump

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// fakeClock advances only when something sleeps on it.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	c.sleeps = append(c.sleeps, d)
	ch := make(chan time.Time, 1)
	ch <- c.now
	return ch
}

func (c *fakeClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]time.Duration, len(c.sleeps))
	copy(out, c.sleeps)
	return out
}

// call is one recorded page interaction.
type call struct {
	Op  string
	Arg string
}

type linksResult struct {
	ids []string
	err error
}

// fakePage records every interaction and fails whichever one failOn selects.
type fakePage struct {
	mu       sync.Mutex
	calls    []call
	location string
	failOn   func(op, arg, location string) error
	links    []linksResult
	linkCall int
	closed   bool
}

func (p *fakePage) record(op, arg string) error {
	p.mu.Lock()
	p.calls = append(p.calls, call{Op: op, Arg: arg})
	loc := p.location
	fail := p.failOn
	p.mu.Unlock()
	if fail != nil {
		return fail(op, arg, loc)
	}
	return nil
}

func (p *fakePage) Navigate(ctx context.Context, location string, _ Options) error {
	p.mu.Lock()
	p.location = location
	p.mu.Unlock()
	return p.record("navigate", location)
}

func (p *fakePage) FillField(ctx context.Context, selector, value string) error {
	return p.record("fill", selector+"="+value)
}

func (p *fakePage) Click(ctx context.Context, selector string) error {
	return p.record("click", selector)
}

func (p *fakePage) Hover(ctx context.Context, selector string) error {
	return p.record("hover", selector)
}

func (p *fakePage) WaitFor(ctx context.Context, cond Condition, _ Options) error {
	return p.record("wait", cond.String())
}

func (p *fakePage) Links(ctx context.Context, selector string) ([]string, error) {
	if err := p.record("links", selector); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.links) == 0 {
		return nil, nil
	}
	i := p.linkCall
	if i >= len(p.links) {
		i = len(p.links) - 1
	}
	p.linkCall++
	return p.links[i].ids, p.links[i].err
}

func (p *fakePage) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	return nil
}

func (p *fakePage) Calls() []call {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]call, len(p.calls))
	copy(out, p.calls)
	return out
}

func (p *fakePage) countOp(op string) int {
	n := 0
	for _, c := range p.Calls() {
		if c.Op == op {
			n++
		}
	}
	return n
}

func (p *fakePage) navigatedTo(location string) bool {
	for _, c := range p.Calls() {
		if c.Op == "navigate" && c.Arg == location {
			return true
		}
	}
	return false
}

type fakeDriver struct {
	page    *fakePage
	openErr error
	opened  int
}

func (d *fakeDriver) Open(ctx context.Context) (Page, error) {
	d.opened++
	if d.openErr != nil {
		return nil, d.openErr
	}
	return d.page, nil
}

var testLogin = LoginSteps{
	URL:              "https://example.test/login",
	IdentitySelector: "#email",
	SecretSelector:   "#password",
	SubmitSelector:   "#login",
	Ready:            Visible(".welcome"),
}

var testIndex = IndexSteps{
	URL:             "https://example.test/trades/me",
	ListingSelector: ".trade > a",
}

var testEdit = EditSteps{
	EditSelector:   "a.edit",
	SubmitSelector: "#save",
	EditReady:      Navigation(),
	Saved:          Navigation(),
}

// failAt makes the click on selector fail while the page is at location.
func failAt(location, selector string) func(op, arg, loc string) error {
	return func(op, arg, loc string) error {
		if op == "click" && arg == selector && loc == location {
			return fmt.Errorf("element %s not found", selector)
		}
		return nil
	}
}

func listingsOf(ids ...string) []Listing {
	out := make([]Listing, len(ids))
	for i, id := range ids {
		out[i] = Listing{ID: id, Position: i}
	}
	return out
}

// eventLog is a ProgressSink that keeps every event.
type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (r *eventLog) Emit(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *eventLog) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

func (r *eventLog) Kinds() []EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventKind, len(r.events))
	for i, e := range r.events {
		out[i] = e.Kind
	}
	return out
}
