// Package pagecache implements the metadata page cache of the SWMR reader
// protocol. It serves tick-stamped metadata pages to readers, refreshing them
// from the backing storage when the lag bound policy flags staleness and
// evicting least-recently-used entries beyond the reserved capacity.
//
// A page handed out by the cache is an immutable snapshot: a refresh always
// swaps in a newly fetched content value and never updates a page in place,
// so a caller can never observe a torn page through the cache.
package pagecache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/tickloom/swmread/internal/trap"
)

const (
	// fetchRetryMax is the maximum number of re-fetches attempted when a
	// page fetch races an in-flight writer publish.
	fetchRetryMax = 10

	// fetchRetryBackoff is the constant backoff between such re-fetches.
	fetchRetryBackoff = 2 * time.Millisecond
)

// Page is a metadata page as served to readers. TickStamp is the tick that
// was observed immediately before the fetch producing this page began.
// Content must never be mutated after the page was inserted into the cache.
type Page struct {
	ID        uint32
	TickStamp uint64
	Content   []byte
}

// FragmentRef is a reference into out-of-band heap-fragment storage, as
// resolved from a fixed-size record inside a metadata page.
type FragmentRef struct {
	Offset uint64
	Length uint32
}

// End returns the exclusive end offset of the referenced fragment.
func (r FragmentRef) End() uint64 {
	return r.Offset + uint64(r.Length)
}

type clockSource interface {
	Current() uint64
}

type pageFetcher interface {
	FetchPage(ctx context.Context, pageID uint32) ([]byte, error)
}

type heapResolver interface {
	HeapBounds() (uint64, error)
	ReadFragmentAt(ctx context.Context, offset uint64, length uint32) ([]byte, error)
}

type faultReporter interface {
	Report(reason string) bool
}

// Cache is the principal implementation of the metadata page cache. It is
// safe for concurrent use, although the reader loop drives it sequentially.
type Cache struct {
	sync.Mutex
	policy   Policy
	clock    clockSource
	fetcher  pageFetcher
	resolver heapResolver
	trap     faultReporter
	capacity int
	lookup   map[uint32]*cacheEntry
	recency  *recencyList
}

type cacheEntry struct {
	page Page
	node *recencyNode
}

// NewCache returns a pointer to a new [Cache] with the given reserved page
// capacity. The capacity must be greater than zero.
func NewCache(policy Policy, clock clockSource, fetcher pageFetcher,
	resolver heapResolver, faultTrap faultReporter, capacity int,
) (*Cache, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("(pagecache) %w: capacity %d", ErrInvalidCapacity, capacity)
	}

	return &Cache{
		policy:   policy,
		clock:    clock,
		fetcher:  fetcher,
		resolver: resolver,
		trap:     faultTrap,
		capacity: capacity,
		lookup:   make(map[uint32]*cacheEntry),
		recency:  newRecencyList(),
	}, nil
}

// Get returns the most recent valid page content for a page ID. A missing
// entry is fetched from the backing storage and inserted, a fresh entry is
// returned without I/O and a stale entry is re-fetched with its content
// swapped atomically, so that concurrent holders of the old page value are
// never affected.
func (c *Cache) Get(ctx context.Context, pageID uint32) (Page, error) {
	c.Lock()
	defer c.Unlock()

	now := c.clock.Current()

	if entry, exists := c.lookup[pageID]; exists {
		if !c.policy.IsStale(entry.page.TickStamp, now) {
			c.recency.moveToFront(entry.node, now)

			return entry.page, nil
		}

		page, err := c.fetchPage(ctx, pageID)
		if err != nil {
			return Page{}, err
		}

		// Swap in the complete new value; the old one stays intact for
		// any caller still holding it.
		entry.page = page
		c.recency.moveToFront(entry.node, now)

		return entry.page, nil
	}

	page, err := c.fetchPage(ctx, pageID)
	if err != nil {
		return Page{}, err
	}

	c.insert(page)

	return page, nil
}

// ReadFragment resolves a heap-fragment reference, bounds-checking it against
// the current heap region. An out-of-bounds reference is routed through the
// boundary trap: if the trap suppresses it, the sentinel [ErrOutOfBounds] is
// returned for the caller to treat as the detected-and-handled condition;
// otherwise the violation propagates as fatal.
//
// The heap can shrink between the bounds check and the dereference (a writer
// compaction truncating it), so a read failing at the file end is re-checked
// against fresh bounds and routed through the trap the same way.
func (c *Cache) ReadFragment(ctx context.Context, ref FragmentRef) ([]byte, error) {
	bounds, err := c.resolver.HeapBounds()
	if err != nil {
		return nil, fmt.Errorf("(pagecache) heap bounds: %w", err)
	}

	if ref.End() > bounds {
		return nil, c.boundsViolation(ref, bounds)
	}

	content, err := c.resolver.ReadFragmentAt(ctx, ref.Offset, ref.Length)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			if fresh, boundsErr := c.resolver.HeapBounds(); boundsErr == nil && ref.End() > fresh {
				return nil, c.boundsViolation(ref, fresh)
			}
		}

		return nil, fmt.Errorf("(pagecache) read fragment: %w", err)
	}

	return content, nil
}

// boundsViolation reports an out-of-bounds fragment reference to the boundary
// trap and returns the matching sentinel: [ErrOutOfBounds] when suppressed,
// [ErrFragmentFatal] otherwise.
func (c *Cache) boundsViolation(ref FragmentRef, bounds uint64) error {
	if c.trap.Report(trap.ReasonOutOfBounds) {
		return fmt.Errorf("(pagecache) %w: fragment [%d:%d) beyond heap end %d",
			ErrFragmentFatal, ref.Offset, ref.End(), bounds)
	}

	return fmt.Errorf("(pagecache) %w: fragment [%d:%d) beyond heap end %d",
		ErrOutOfBounds, ref.Offset, ref.End(), bounds)
}

// Len returns the number of currently cached pages.
func (c *Cache) Len() int {
	c.Lock()
	defer c.Unlock()

	return len(c.lookup)
}

// fetchPage fetches a page from the backing storage, tagging it with the tick
// observed immediately before the fetch began. A fetch observing an in-flight
// writer publish (signalled by the fetcher as [ErrTornFetch]) is retried with
// a bounded constant backoff; exhaustion surfaces as a fatal I/O error.
func (c *Cache) fetchPage(ctx context.Context, pageID uint32) (Page, error) {
	stamp := c.clock.Current()

	var content []byte

	backoff := retry.WithMaxRetries(fetchRetryMax, retry.NewConstant(fetchRetryBackoff))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		fetched, err := c.fetcher.FetchPage(ctx, pageID)
		if err != nil {
			if isTornFetch(err) {
				return retry.RetryableError(err)
			}

			return err
		}
		content = fetched

		return nil
	})
	if err != nil {
		return Page{}, fmt.Errorf("(pagecache) fetch page %d: %w", pageID, err)
	}

	return Page{
		ID:        pageID,
		TickStamp: stamp,
		Content:   content,
	}, nil
}

// insert adds a freshly fetched page, evicting the least-recently-used entry
// first when the cache is at capacity (ties broken by lowest page ID).
func (c *Cache) insert(page Page) {
	if len(c.lookup) >= c.capacity {
		c.evict()
	}

	c.lookup[page.ID] = &cacheEntry{
		page: page,
		node: c.recency.pushFront(page.ID, page.TickStamp),
	}
}

// evict drops least-recently-used entries until the cache is below capacity.
// Dropping an entry never touches page values already handed to callers.
func (c *Cache) evict() {
	for len(c.lookup) >= c.capacity {
		victim, ok := c.recency.evictBack()
		if !ok {
			return
		}

		delete(c.lookup, victim)
	}
}
