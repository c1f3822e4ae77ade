package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/itchan-dev/authgate/frontend/internal/apiclient"
	"github.com/itchan-dev/authgate/frontend/internal/auth"
	"github.com/itchan-dev/authgate/shared/domain"
	"github.com/itchan-dev/authgate/shared/logger"
	"github.com/sethvargo/go-retry"
)

// Source is what a Store reads from. *auth.Visitor implements it.
type Source interface {
	GetSession(ctx context.Context) (*domain.Token, error)
	OnAuthStateChange(fn func(auth.Event)) *auth.Subscription
}

type options struct {
	maxRetries    uint64
	retryBase     time.Duration
	queryTimeout  time.Duration
	refreshMargin time.Duration
}

type Option func(*options)

// WithRetry retries a transiently failing initial query up to max times.
func WithRetry(max uint64, base time.Duration) Option {
	return func(o *options) {
		o.maxRetries = max
		o.retryBase = base
	}
}

// WithQueryTimeout bounds each query to the source.
func WithQueryTimeout(d time.Duration) Option {
	return func(o *options) { o.queryTimeout = d }
}

// WithRefreshMargin re-queries the source this long before a held token
// expires, so the source gets a chance to refresh it.
func WithRefreshMargin(d time.Duration) Option {
	return func(o *options) { o.refreshMargin = d }
}

const refreshRetryAfter = 30 * time.Second

// Store is one visitor's session state.
type Store struct {
	src  Source
	opts options

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	srcSub *auth.Subscription

	// deliverMu is held from state change until all observers have been
	// notified, so observers see changes in the order they were applied.
	deliverMu sync.Mutex

	mu           sync.Mutex
	current      Session
	err          error
	lastSeq      uint64
	eventApplied bool
	closed       bool
	resolved     chan struct{}
	observers    map[uint64]*observer
	nextID       uint64
	timer        *time.Timer
}

// NewStore subscribes to src and then starts the initial query in the
// background. Subscribing first means no change can fall between the two.
func NewStore(src Source, opts ...Option) *Store {
	o := options{
		maxRetries:    2,
		retryBase:     100 * time.Millisecond,
		queryTimeout:  5 * time.Second,
		refreshMargin: time.Minute,
	}
	for _, opt := range opts {
		opt(&o)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Store{
		src:       src,
		opts:      o,
		ctx:       ctx,
		cancel:    cancel,
		resolved:  make(chan struct{}),
		observers: make(map[uint64]*observer),
	}
	s.srcSub = src.OnAuthStateChange(s.onEvent)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.initialQuery()
	}()
	return s
}

func (s *Store) initialQuery() {
	tok, err := s.query(s.ctx)
	if err != nil {
		if s.ctx.Err() != nil {
			return
		}
		logger.Log.Warn("initial session query failed, treating as signed out", "error", err)
	}

	s.update(func() bool {
		// A notification that arrived meanwhile is newer than this answer.
		if s.eventApplied {
			return false
		}
		s.current = FromToken(tok)
		s.err = err
		return true
	})
}

// query asks the source, retrying transient failures only.
func (s *Store) query(ctx context.Context) (*domain.Token, error) {
	var tok *domain.Token
	b := retry.WithMaxRetries(s.opts.maxRetries, retry.NewExponential(s.opts.retryBase))
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		qctx, cancel := context.WithTimeout(ctx, s.opts.queryTimeout)
		defer cancel()

		t, err := s.src.GetSession(qctx)
		if err != nil {
			if apiclient.IsTransient(err) || errors.Is(err, context.DeadlineExceeded) {
				return retry.RetryableError(err)
			}
			return err
		}
		tok = t
		return nil
	})
	return tok, err
}

func (s *Store) onEvent(e auth.Event) {
	s.update(func() bool {
		if e.Seq <= s.lastSeq {
			return false
		}
		s.lastSeq = e.Seq
		s.eventApplied = true
		if e.Kind == auth.SignedOut || e.Token == nil {
			s.current = None()
		} else {
			s.current = Present(*e.Token)
		}
		s.err = nil
		return true
	})
}

// update applies fn under the state lock and notifies observers when fn
// reports a change. Closed stores never change.
func (s *Store) update(fn func() bool) {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()

	s.mu.Lock()
	if s.closed || !fn() {
		s.mu.Unlock()
		return
	}
	current := s.current
	if current.Resolved() {
		select {
		case <-s.resolved:
		default:
			close(s.resolved)
		}
	}
	s.scheduleRefreshLocked()
	observers := make([]*observer, 0, len(s.observers))
	for _, o := range s.observers {
		observers = append(observers, o)
	}
	s.mu.Unlock()

	for _, o := range observers {
		o.deliver(current)
	}
}

func (s *Store) scheduleRefreshLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	tok, ok := s.current.Token()
	if !ok || tok.ExpiresAt.IsZero() {
		return
	}
	d := max(time.Until(tok.ExpiresAt)-s.opts.refreshMargin, 0)
	s.timer = time.AfterFunc(d, s.refreshDue)
}

// refreshDue re-queries the source before the held token expires. The source
// refreshes the token and notifies, so only a silent sign-out is applied here.
func (s *Store) refreshDue() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	seq := s.lastSeq
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()

	tok, err := s.query(s.ctx)
	if err != nil && s.ctx.Err() == nil {
		logger.Log.Warn("session refresh query failed", "error", err)
	}
	if err != nil || tok != nil {
		// Nothing was refreshed if no notification arrived; try again later.
		s.mu.Lock()
		if !s.closed && s.lastSeq == seq {
			s.timer = time.AfterFunc(refreshRetryAfter, s.refreshDue)
		}
		s.mu.Unlock()
		return
	}
	s.update(func() bool {
		if s.lastSeq != seq || !s.current.Resolved() || s.current.Status() == StatusNone {
			return false
		}
		s.current = None()
		return true
	})
}

// Current returns the held session.
func (s *Store) Current() Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Err is the error of a failed initial query, kept for diagnostics. The
// session itself collapses to None in that case.
func (s *Store) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Wait blocks until the session is resolved or ctx is done and returns the
// session held at that point (Unknown on timeout).
func (s *Store) Wait(ctx context.Context) Session {
	select {
	case <-s.resolved:
	case <-ctx.Done():
	}
	return s.Current()
}

// Subscribe calls fn with every later change of the session. fn runs
// synchronously with the change and must not unsubscribe itself or close the
// store.
func (s *Store) Subscribe(fn func(Session)) *Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()

	o := &observer{fn: fn}
	if s.closed {
		o.closed = true
		return &Subscription{o: o, cancel: func() {}}
	}
	s.nextID++
	id := s.nextID
	s.observers[id] = o
	return &Subscription{o: o, cancel: func() {
		s.mu.Lock()
		delete(s.observers, id)
		s.mu.Unlock()
	}}
}

func (s *Store) observerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.observers)
}

// Close releases the source subscription, stops the refresh timer and waits
// for background queries to finish. Later notifications are ignored.
func (s *Store) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	observers := s.observers
	s.observers = nil
	s.mu.Unlock()

	for _, o := range observers {
		o.close()
	}
	s.cancel()
	s.srcSub.Unsubscribe()
	s.wg.Wait()
}

type observer struct {
	mu     sync.Mutex
	fn     func(Session)
	closed bool
}

func (o *observer) deliver(sess Session) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	o.fn(sess)
}

func (o *observer) close() {
	o.mu.Lock()
	o.closed = true
	o.mu.Unlock()
}

// Subscription releases a Store observer.
type Subscription struct {
	once   sync.Once
	o      *observer
	cancel func()
}

// Unsubscribe is idempotent. Once it returns, the observer is never called again.
func (s *Subscription) Unsubscribe() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		s.cancel()
		s.o.close()
	})
}
