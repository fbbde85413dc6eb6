// Package query keeps the latest result of keyed fetches and tells
// subscribers when it changes.
package query

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"
)

type Status int

const (
	StatusPending Status = iota
	StatusError
	StatusSuccess
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusError:
		return "error"
	case StatusSuccess:
		return "success"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// State is a snapshot of one key. Data survives a failed refetch, so an
// error state may still carry the previous value.
type State[T any] struct {
	Status    Status
	Data      T
	Err       error
	UpdatedAt time.Time
	Fetching  bool
	HasData   bool
}

// Loading reports whether there is nothing to show yet.
func (s State[T]) Loading() bool {
	return s.Status == StatusPending && !s.HasData
}

type Fetcher[T any] func(ctx context.Context) (T, error)

type Options struct {
	// StaleTime is how long a successful result counts as fresh. Zero means
	// results are stale as soon as they land.
	StaleTime time.Duration
	// RefetchOnMount refetches stale entries when a view mounts them.
	RefetchOnMount bool
	Clock          clockwork.Clock
	Logger         *slog.Logger
}

type entry[T any] struct {
	state       State[T]
	invalidated bool
	subs        map[int]chan State[T]
}

// Cache maps keys to fetch state.
type Cache[T any] struct {
	opts  Options
	group singleflight.Group

	mu      sync.Mutex
	entries map[string]*entry[T]
	nextSub int
}

func New[T any](opts Options) *Cache[T] {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Cache[T]{
		opts:    opts,
		entries: make(map[string]*entry[T]),
	}
}

// entry returns the entry for key, creating it. Callers hold c.mu.
func (c *Cache[T]) entry(key string) *entry[T] {
	e, ok := c.entries[key]
	if !ok {
		e = &entry[T]{subs: make(map[int]chan State[T])}
		c.entries[key] = e
	}
	return e
}

func (c *Cache[T]) Get(key string) State[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		return e.state
	}
	return State[T]{}
}

// IsStale reports whether key should be refetched on the next mount.
func (c *Cache[T]) IsStale(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return true
	}
	return c.staleLocked(e)
}

func (c *Cache[T]) staleLocked(e *entry[T]) bool {
	if e.invalidated || !e.state.HasData || e.state.Status != StatusSuccess {
		return true
	}
	return c.opts.Clock.Since(e.state.UpdatedAt) >= c.opts.StaleTime
}

// Subscribe returns a channel that always holds the newest state of key.
// The current state is delivered immediately. Call the returned func to stop;
// it closes the channel.
func (c *Cache[T]) Subscribe(key string) (<-chan State[T], func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.entry(key)
	id := c.nextSub
	c.nextSub++
	ch := make(chan State[T], 1)
	ch <- e.state
	e.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			delete(e.subs, id)
			close(ch)
		})
	}
}

// Mount registers interest in key. It starts a background fetch when the key
// has never loaded, or when it is stale and RefetchOnMount is set, and
// returns the state as of the call.
func (c *Cache[T]) Mount(ctx context.Context, key string, fn Fetcher[T]) State[T] {
	c.mu.Lock()
	e := c.entry(key)
	neverLoaded := !e.state.HasData && e.state.Status == StatusPending
	start := !e.state.Fetching && (neverLoaded || (c.opts.RefetchOnMount && c.staleLocked(e)))
	if start {
		e.state.Fetching = true
		c.publishLocked(e)
	}
	st := e.state
	c.mu.Unlock()

	if start {
		go func() { _, _ = c.Fetch(ctx, key, fn) }()
	}
	return st
}

// Fetch runs fn for key, sharing the call with any fetch already in flight,
// and stores the outcome.
func (c *Cache[T]) Fetch(ctx context.Context, key string, fn Fetcher[T]) (T, error) {
	v, err, _ := c.group.Do(key, func() (any, error) {
		c.mu.Lock()
		e := c.entry(key)
		if !e.state.Fetching {
			e.state.Fetching = true
			c.publishLocked(e)
		}
		c.mu.Unlock()

		c.opts.Logger.Debug("fetch started", "key", key)
		data, err := fn(ctx)

		c.mu.Lock()
		defer c.mu.Unlock()
		e.state.Fetching = false
		e.state.UpdatedAt = c.opts.Clock.Now()
		if err != nil {
			e.state.Status = StatusError
			e.state.Err = err
			c.opts.Logger.Warn("fetch failed", "key", key, "err", err)
		} else {
			e.state.Status = StatusSuccess
			e.state.Data = data
			e.state.HasData = true
			e.state.Err = nil
			e.invalidated = false
			c.opts.Logger.Info("fetch succeeded", "key", key)
		}
		c.publishLocked(e)
		return data, err
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// Invalidate marks key stale so the next mount refetches it.
func (c *Cache[T]) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		e.invalidated = true
	}
}

// publishLocked replaces whatever each subscriber has not read yet with the
// current state. Callers hold c.mu, so only the reader can drain concurrently
// and the final send never blocks.
func (c *Cache[T]) publishLocked(e *entry[T]) {
	for _, ch := range e.subs {
		select {
		case ch <- e.state:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- e.state
		}
	}
}
