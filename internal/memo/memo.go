// Package memo provides compute-once caches shared by concurrent callers.
package memo

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Cache stores one computed value per key for the life of the Cache.
// Concurrent callers asking for the same missing key share a single
// computation. Failed computations are not stored. The zero value is ready
// to use.
type Cache[V any] struct {
	mu      sync.Mutex
	values  map[string]V
	flights map[string]*flight
	group   singleflight.Group
}

// flight is the context of one running computation and the number of
// callers still waiting on it.
type flight struct {
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

func (c *Cache[V]) lookup(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.values[key]
	return v, ok
}

func (c *Cache[V]) store(key string, v V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.values == nil {
		c.values = make(map[string]V)
	}
	c.values[key] = v
}

func (c *Cache[V]) join(ctx context.Context, key string) *flight {
	c.mu.Lock()
	defer c.mu.Unlock()

	f, ok := c.flights[key]
	if !ok {
		fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		f = &flight{ctx: fctx, cancel: cancel}
		if c.flights == nil {
			c.flights = make(map[string]*flight)
		}
		c.flights[key] = f
	}
	f.waiters++
	return f
}

// leave drops one waiter. When the last waiter gave up, the computation is
// cancelled and the key is released so the next Get starts afresh.
func (c *Cache[V]) leave(key string, f *flight, gaveUp bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	f.waiters--
	if f.waiters > 0 || !gaveUp {
		return
	}
	f.cancel()
	if c.flights[key] == f {
		delete(c.flights, key)
		c.group.Forget(key)
	}
}

func (c *Cache[V]) finish(key string, f *flight) {
	c.mu.Lock()
	defer c.mu.Unlock()

	f.cancel()
	if c.flights[key] == f {
		delete(c.flights, key)
	}
}

// Get returns the value for key, running compute if it is not cached yet.
// The computation outlives any single caller's cancellation and is only
// cancelled once every caller waiting on it has gone.
func (c *Cache[V]) Get(ctx context.Context, key string, compute func(ctx context.Context) (V, error)) (V, error) {
	if v, ok := c.lookup(key); ok {
		return v, nil
	}

	f := c.join(ctx, key)
	ch := c.group.DoChan(key, func() (any, error) {
		defer c.finish(key, f)

		// a flight that finished just before this one started may have stored it
		if v, ok := c.lookup(key); ok {
			return v, nil
		}

		v, err := compute(f.ctx)
		if err != nil {
			return v, err
		}

		c.store(key, v)
		return v, nil
	})

	select {
	case <-ctx.Done():
		c.leave(key, f, true)
		var zero V
		return zero, ctx.Err()
	case res := <-ch:
		c.leave(key, f, false)
		if res.Err != nil {
			var zero V
			return zero, res.Err
		}
		v, _ := res.Val.(V)
		return v, nil
	}
}

// Peek reports the cached value for key without computing it.
func (c *Cache[V]) Peek(key string) (V, bool) {
	return c.lookup(key)
}

func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.values)
}

// Lazy is a single memoized value.
type Lazy[V any] struct {
	cache   Cache[V]
	compute func(ctx context.Context) (V, error)
}

func NewLazy[V any](compute func(ctx context.Context) (V, error)) *Lazy[V] {
	return &Lazy[V]{compute: compute}
}

func (l *Lazy[V]) Get(ctx context.Context) (V, error) {
	return l.cache.Get(ctx, "", l.compute)
}
