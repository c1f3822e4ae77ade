package auth

import (
	"sync"

	"github.com/itchan-dev/authgate/shared/domain"
)

type EventKind string

const (
	SignedIn       EventKind = "SIGNED_IN"
	SignedOut      EventKind = "SIGNED_OUT"
	TokenRefreshed EventKind = "TOKEN_REFRESHED"
)

// Event is a change of a visitor's session. Seq grows monotonically across
// all events of the process, so a listener can drop anything older than what
// it has already applied.
type Event struct {
	Kind  EventKind
	Seq   uint64
	Token *domain.Token // nil for SignedOut
}

// Subscription releases an OnAuthStateChange listener.
type Subscription struct {
	once   sync.Once
	cancel func()
}

// NewSubscription wraps a release function. Useful for alternative event sources.
func NewSubscription(cancel func()) *Subscription {
	return &Subscription{cancel: cancel}
}

// Unsubscribe is idempotent. Once it returns the listener is never called again.
func (s *Subscription) Unsubscribe() {
	if s == nil {
		return
	}
	s.once.Do(s.cancel)
}

type listener struct {
	mu     sync.Mutex
	fn     func(Event)
	closed bool
}

func (l *listener) deliver(e Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.fn(e)
}

func (l *listener) close() {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
}

// hub fans events of one visitor out to its listeners.
type hub struct {
	mu        sync.Mutex
	nextID    uint64
	listeners map[uint64]*listener
}

func (h *hub) add(fn func(Event)) (uint64, *listener) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	l := &listener{fn: fn}
	h.listeners[h.nextID] = l
	return h.nextID, l
}

func (h *hub) snapshot() []*listener {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*listener, 0, len(h.listeners))
	for _, l := range h.listeners {
		out = append(out, l)
	}
	return out
}
