// Package memory keeps visitor sessions in process memory. Sessions are lost
// on restart, which simply signs every visitor out.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/itchan-dev/authgate/frontend/internal/storage"
	"github.com/itchan-dev/authgate/shared/domain"
)

type entry struct {
	token     domain.Token
	expiresAt time.Time
}

// Storage is a thread-safe in-memory session store with TTL.
type Storage struct {
	mu      sync.RWMutex
	entries map[string]*entry
	ttl     time.Duration
	now     func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

var _ storage.Sessions = (*Storage)(nil)

// New creates a storage whose entries live for ttl after their last save.
// Close must be called to stop the cleanup goroutine.
func New(ttl time.Duration) *Storage {
	s := &Storage{
		entries: make(map[string]*entry),
		ttl:     ttl,
		now:     time.Now,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go s.cleanupLoop(time.Minute)
	return s
}

func (s *Storage) Load(_ context.Context, sid string) (*domain.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[sid]
	if !ok || s.now().After(e.expiresAt) {
		return nil, storage.ErrNotFound
	}
	tok := e.token
	return &tok, nil
}

func (s *Storage) Save(_ context.Context, sid string, tok domain.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[sid] = &entry{token: tok, expiresAt: s.now().Add(s.ttl)}
	return nil
}

func (s *Storage) Delete(_ context.Context, sid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, sid)
	return nil
}

func (s *Storage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *Storage) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for sid, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, sid)
		}
	}
}

func (s *Storage) cleanupLoop(interval time.Duration) {
	defer close(s.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

// Close stops the cleanup goroutine and waits for it to exit.
func (s *Storage) Close() error {
	s.stopOnce.Do(func() { close(s.stop) })
	<-s.done
	return nil
}
