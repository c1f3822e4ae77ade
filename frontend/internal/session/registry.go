package session

import (
	"context"
	"sync"
	"time"

	"github.com/itchan-dev/authgate/shared/logger"
	"github.com/itchan-dev/authgate/shared/middleware/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var activeStores = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: metrics.Namespace,
	Name:      "session_stores_active",
	Help:      "Visitor session stores currently held in memory",
})

type registryEntry struct {
	store    *Store
	lastUsed time.Time
}

// Registry keeps one Store per visitor id and tears down stores that have not
// been used for idleTTL.
type Registry struct {
	newSource func(sid string) Source
	opts      []Option
	idleTTL   time.Duration
	now       func() time.Time

	mu     sync.Mutex
	stores map[string]*registryEntry
	closed bool
}

func NewRegistry(newSource func(sid string) Source, idleTTL time.Duration, opts ...Option) *Registry {
	return &Registry{
		newSource: newSource,
		opts:      opts,
		idleTTL:   idleTTL,
		now:       time.Now,
		stores:    make(map[string]*registryEntry),
	}
}

// Acquire returns the visitor's store, creating it on first use.
func (r *Registry) Acquire(sid string) *Store {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.stores[sid]; ok {
		e.lastUsed = r.now()
		return e.store
	}

	s := NewStore(r.newSource(sid), r.opts...)
	if r.closed {
		// Shutting down: the store is closed before anyone can use it.
		s.Close()
		return s
	}
	r.stores[sid] = &registryEntry{store: s, lastUsed: r.now()}
	activeStores.Inc()
	return s
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stores)
}

// evictIdle closes stores unused since before now-idleTTL. A store with
// subscribers still has a request waiting on it and is kept.
func (r *Registry) evictIdle(now time.Time) int {
	r.mu.Lock()
	var idle []*Store
	for sid, e := range r.stores {
		if now.Sub(e.lastUsed) > r.idleTTL && e.store.observerCount() == 0 {
			idle = append(idle, e.store)
			delete(r.stores, sid)
		}
	}
	r.mu.Unlock()

	for _, s := range idle {
		s.Close()
		activeStores.Dec()
	}
	return len(idle)
}

// Run evicts idle stores until ctx is done, then closes the rest.
func (r *Registry) Run(ctx context.Context) error {
	interval := min(max(r.idleTTL/2, time.Second), time.Minute)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.Close()
			return nil
		case now := <-ticker.C:
			if n := r.evictIdle(now); n > 0 {
				logger.Log.Debug("evicted idle session stores", "count", n)
			}
		}
	}
}

// Close closes every held store. Acquire keeps working afterwards but hands
// out closed stores.
func (r *Registry) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	stores := r.stores
	r.stores = make(map[string]*registryEntry)
	r.mu.Unlock()

	for _, e := range stores {
		e.store.Close()
		activeStores.Dec()
	}
}
