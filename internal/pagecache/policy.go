package pagecache

// Policy is the lag bound policy: it decides whether a cached page may still
// be served or must be refreshed, given the page's tick stamp and the
// currently observed tick. The policy itself performs no I/O and no retries;
// staleness only ever triggers a refresh inside the [Cache].
type Policy struct {
	// MaxLag is the number of ticks a cached page may trail the currently
	// observed tick. A MaxLag of zero selects strict consistency mode, in
	// which every access refreshes.
	MaxLag uint64
}

// IsStale reports whether a page stamped at the given tick must be refreshed
// as of now. A stamp ahead of now (a lagging observer of the clock) is never
// stale, protecting against false invalidation. In strict consistency mode
// (MaxLag == 0) every page is stale on every access.
func (p Policy) IsStale(stamp, now uint64) bool {
	if p.MaxLag == 0 {
		return true
	}

	if now < stamp {
		return false
	}

	return now-stamp > p.MaxLag
}
