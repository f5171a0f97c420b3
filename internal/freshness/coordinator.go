// Package freshness decides when a cached catalog read may be served and
// when it must be fetched again.
//
// Every read path has a Key whose Class selects a TTL from the Policy. An
// entry older than its TTL is Stale and is refetched on the next read. A
// mutation marks entries Invalidated, which only the next successful fetch
// clears; the passage of time never does.
package freshness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

// Class groups read paths that share a freshness window.
type Class int

const (
	ClassItem Class = iota + 1
	ClassCollection
	ClassAggregate
)

func (c Class) String() string {
	switch c {
	case ClassItem:
		return "item"
	case ClassCollection:
		return "collection"
	case ClassAggregate:
		return "aggregate"
	default:
		return fmt.Sprintf("class(%d)", int(c))
	}
}

// Key identifies one cached read path.
type Key struct {
	Class Class
	Name  string
}

func ItemKey(id string) Key         { return Key{Class: ClassItem, Name: id} }
func CollectionKey(name string) Key { return Key{Class: ClassCollection, Name: name} }
func AggregateKey(name string) Key  { return Key{Class: ClassAggregate, Name: name} }

func (k Key) String() string { return k.Class.String() + ":" + k.Name }

// State is the freshness of one key.
type State int

const (
	Absent State = iota
	Fresh
	Stale
	Invalidated
)

func (s State) String() string {
	switch s {
	case Fresh:
		return "fresh"
	case Stale:
		return "stale"
	case Invalidated:
		return "invalidated"
	default:
		return "absent"
	}
}

// Policy holds the TTL of each class.
type Policy struct {
	Item       time.Duration
	Collection time.Duration
	Aggregate  time.Duration
}

// DefaultPolicy returns the storefront defaults: detail pages change least,
// operational aggregates most.
func DefaultPolicy() Policy {
	return Policy{
		Item:       time.Hour,
		Collection: 2 * time.Minute,
		Aggregate:  time.Minute,
	}
}

// TTL returns the window for class c.
func (p Policy) TTL(c Class) time.Duration {
	switch c {
	case ClassItem:
		return p.Item
	case ClassCollection:
		return p.Collection
	case ClassAggregate:
		return p.Aggregate
	default:
		return 0
	}
}

// FetchError reports that the source of truth could not be read. Any
// previously cached value is still available through Cached.
type FetchError struct {
	Key Key
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Key, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Missing wraps err to report that the source of truth has no value for the
// key. Read returns err as is and does not cache, count or log it.
func Missing(err error) error {
	return &missingError{err: err}
}

type missingError struct{ err error }

func (e *missingError) Error() string { return e.err.Error() }
func (e *missingError) Unwrap() error { return e.err }

// FetchFunc loads the current value of a key from the source of truth.
type FetchFunc func(ctx context.Context) (any, error)

// Stats counts cache activity since construction.
type Stats struct {
	Hits    int64
	Fetches int64
	Errors  int64
}

type entry struct {
	value       any
	fetchedAt   time.Time
	invalidated bool
}

// Coordinator caches read results per Key. It is safe for concurrent use.
type Coordinator struct {
	mu          sync.Mutex
	policy      Policy
	now         func() time.Time
	logger      *log.Logger
	entries     map[Key]*entry
	epochs      map[Key]uint64
	classEpochs map[Class]uint64
	group       singleflight.Group

	hits, fetches, fetchErrors atomic.Int64
}

type Option func(*Coordinator)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

func WithLogger(logger *log.Logger) Option {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func New(policy Policy, opts ...Option) *Coordinator {
	c := &Coordinator{
		policy:      policy,
		now:         time.Now,
		logger:      log.New(io.Discard, "", 0),
		entries:     make(map[Key]*entry),
		epochs:      make(map[Key]uint64),
		classEpochs: make(map[Class]uint64),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Policy returns the configured windows.
func (c *Coordinator) Policy() Policy { return c.policy }

// Read returns the cached value for key when it is fresh, and otherwise
// fetches, stores and returns the current value.
//
// Concurrent reads of the same key collapse into one fetch, which runs with
// the context of the caller that started it. A read that starts after an
// invalidation never joins a fetch that started before it.
func (c *Coordinator) Read(ctx context.Context, key Key, fetch FetchFunc) (any, error) {
	c.mu.Lock()
	if e, ok := c.entries[key]; ok && c.stateLocked(key, e) == Fresh {
		v := e.value
		c.mu.Unlock()
		c.hits.Add(1)
		return v, nil
	}
	epoch := c.epochLocked(key)
	c.mu.Unlock()

	v, err, _ := c.group.Do(fmt.Sprintf("%s#%d", key, epoch), func() (any, error) {
		c.fetches.Add(1)
		val, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		c.store(key, epoch, val)
		return val, nil
	})
	if err != nil {
		var miss *missingError
		if errors.As(err, &miss) {
			return nil, miss.err
		}
		c.fetchErrors.Add(1)
		c.logger.Printf("freshness: fetch key=%s error=%v", key, err)
		return nil, &FetchError{Key: key, Err: err}
	}
	return v, nil
}

// Get is Read with a typed result.
func Get[T any](ctx context.Context, c *Coordinator, key Key, fetch func(context.Context) (T, error)) (T, error) {
	var zero T
	v, err := c.Read(ctx, key, func(ctx context.Context) (any, error) {
		return fetch(ctx)
	})
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("freshness: value for %s has type %T", key, v)
	}
	return t, nil
}

// Cached returns the last stored value for key whatever its state.
func (c *Coordinator) Cached(key Key) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	return e.value, true
}

// State reports the freshness of key at the current time.
func (c *Coordinator) State(key Key) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return Absent
	}
	return c.stateLocked(key, e)
}

// Invalidate marks keys stale regardless of age. Reads that begin after it
// returns fetch again.
func (c *Coordinator) Invalidate(keys ...Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		c.invalidateKeyLocked(k)
	}
}

// InvalidateEntities applies a catalog mutation of ids: their item paths and
// every collection and aggregate path that could include them, including
// paths whose first fetch is still in flight.
func (c *Coordinator) InvalidateEntities(ids ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		c.invalidateKeyLocked(ItemKey(id))
	}
	c.invalidateClassLocked(ClassCollection)
	c.invalidateClassLocked(ClassAggregate)
	c.logger.Printf("freshness: invalidated ids=%v with collections and aggregates", ids)
}

func (c *Coordinator) Stats() Stats {
	return Stats{Hits: c.hits.Load(), Fetches: c.fetches.Load(), Errors: c.fetchErrors.Load()}
}

func (c *Coordinator) store(key Key, epoch uint64, val any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	if c.epochLocked(key) == epoch {
		c.entries[key] = &entry{value: val, fetchedAt: now}
		return
	}
	// Invalidated while the fetch was in flight: keep the value as a fallback
	// but never let it count as fresh. A newer fetch may already have stored
	// a fresh value, which wins.
	if e, ok := c.entries[key]; ok && !e.invalidated {
		return
	}
	c.entries[key] = &entry{value: val, fetchedAt: now, invalidated: true}
}

func (c *Coordinator) stateLocked(key Key, e *entry) State {
	if e.invalidated {
		return Invalidated
	}
	if c.now().Sub(e.fetchedAt) > c.policy.TTL(key.Class) {
		return Stale
	}
	return Fresh
}

// epochLocked changes whenever key or its class is invalidated.
func (c *Coordinator) epochLocked(key Key) uint64 {
	return c.epochs[key] + c.classEpochs[key.Class]
}

func (c *Coordinator) invalidateKeyLocked(key Key) {
	c.epochs[key]++
	if e, ok := c.entries[key]; ok {
		e.invalidated = true
	}
}

func (c *Coordinator) invalidateClassLocked(class Class) {
	c.classEpochs[class]++
	for k, e := range c.entries {
		if k.Class == class {
			e.invalidated = true
		}
	}
}
