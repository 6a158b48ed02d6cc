package bump

// Select narrows discovered listings to the ones bumped this cycle.
//
// TargetAll returns the listings unchanged. TargetOldest returns a new
// one-element slice holding the last listing, since the site orders its
// index newest first, or an empty slice when nothing was found. The input is
// never modified.
func Select(target Target, listings []Listing) []Listing {
	switch target {
	case TargetOldest:
		if len(listings) == 0 {
			return []Listing{}
		}
		return []Listing{listings[len(listings)-1]}
	default:
		return listings
	}
}
