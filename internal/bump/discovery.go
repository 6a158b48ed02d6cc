package bump

import (
	"context"
	"time"
)

// IndexSteps describes how to reach the listing index and read it.
type IndexSteps struct {
	URL string

	// HoverSelector and LinkSelector are optional. When LinkSelector is set the
	// index is reached by clicking it (after hovering HoverSelector, if set)
	// from URL and waiting for navigation.
	HoverSelector string
	LinkSelector  string

	// Ready is awaited before extraction when it names a selector; a plain
	// navigation already waits for the document to load.
	Ready           Condition
	ListingSelector string
	NavigateTimeout time.Duration
	ReadyTimeout    time.Duration
}

// Discovery reads the ordered listing identifiers from the index.
type Discovery struct {
	steps IndexSteps
}

func NewDiscovery(steps IndexSteps) *Discovery {
	return &Discovery{steps: steps}
}

// Discover returns listings in index order, without dedup or re-sorting.
// Failures come back as *DiscoveryError.
func (d *Discovery) Discover(ctx context.Context, page Page) ([]Listing, error) {
	s := d.steps
	if err := page.Navigate(ctx, s.URL, Options{Timeout: s.NavigateTimeout}); err != nil {
		return nil, &DiscoveryError{Step: "navigate", Err: err}
	}
	if s.LinkSelector != "" {
		if s.HoverSelector != "" {
			if err := page.Hover(ctx, s.HoverSelector); err != nil {
				return nil, &DiscoveryError{Step: "hover", Err: err}
			}
		}
		if err := page.Click(ctx, s.LinkSelector); err != nil {
			return nil, &DiscoveryError{Step: "open index", Err: err}
		}
		if err := page.WaitFor(ctx, Navigation(), Options{Timeout: s.NavigateTimeout}); err != nil {
			return nil, &DiscoveryError{Step: "wait navigation", Err: err}
		}
	}
	if s.Ready.Kind == ConditionSelector {
		if err := page.WaitFor(ctx, s.Ready, Options{Timeout: s.ReadyTimeout}); err != nil {
			return nil, &DiscoveryError{Step: "wait " + s.Ready.String(), Err: err}
		}
	}

	ids, err := page.Links(ctx, s.ListingSelector)
	if err != nil {
		return nil, &DiscoveryError{Step: "extract", Err: err}
	}
	listings := make([]Listing, len(ids))
	for i, id := range ids {
		listings[i] = Listing{ID: id, Position: i}
	}
	return listings, nil
}
