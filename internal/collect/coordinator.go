package collect

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"backend-stizi/internal/logging"
)

const (
	// DefaultTimeout matches the mobile transport's request timeout.
	DefaultTimeout = 10 * time.Second

	FallbackReason = "Failed to collect stamp"
	NetworkReason  = "Network error, please try again"
)

// Remote is the server-side stamp service as seen by the client.
type Remote interface {
	Collect(ctx context.Context, code string) (Stamp, error)
	Nearby(ctx context.Context, lat, lng, radiusM float64) ([]Stamp, error)
	Mine(ctx context.Context) ([]Stamp, error)
	CreateStamp(ctx context.Context, in NewStamp) (Stamp, error)
}

type State int

const (
	Idle State = iota
	InFlight
	Collected
	Failed
)

func (s State) String() string {
	switch s {
	case InFlight:
		return "in_flight"
	case Collected:
		return "collected"
	case Failed:
		return "failed"
	default:
		return "idle"
	}
}

// Transition is emitted to observers on every state change.
type Transition struct {
	Code   string
	From   State
	To     State
	Reason string
	Stamp  *Stamp
}

type Option func(*Coordinator)

func WithTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithObserver(fn func(Transition)) Option {
	return func(c *Coordinator) {
		c.observer = fn
	}
}

// Coordinator mediates collection attempts for one stamp on one screen. At
// most one attempt is in flight at a time; Collected is terminal.
type Coordinator struct {
	remote   Remote
	store    *Store
	timeout  time.Duration
	logger   *slog.Logger
	observer func(Transition)

	mu     sync.Mutex
	state  State
	reason string
	last   *CollectionAttempt
}

func NewCoordinator(remote Remote, store *Store, opts ...Option) *Coordinator {
	c := &Coordinator{
		remote:  remote,
		store:   store,
		timeout: DefaultTimeout,
		logger:  logging.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Reason is the human readable cause of the last failure.
func (c *Coordinator) Reason() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reason
}

// LastAttempt returns the attempt currently in flight, if any.
func (c *Coordinator) LastAttempt() (CollectionAttempt, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.last == nil {
		return CollectionAttempt{}, false
	}
	return *c.last, true
}

type collectResult struct {
	stamp Stamp
	err   error
}

// AttemptCollect sends one collect request for code. While a request is in
// flight further calls return ErrCollectInFlight without contacting the
// server. If ctx ends first the caller gets ctx.Err() but the attempt still
// resolves in the background once the server answers or the timeout fires.
func (c *Coordinator) AttemptCollect(ctx context.Context, code string) (Stamp, error) {
	return c.attempt(ctx, CollectionAttempt{Code: code})
}

func (c *Coordinator) attempt(ctx context.Context, attempt CollectionAttempt) (Stamp, error) {
	if attempt.Code == "" {
		return Stamp{}, ErrEmptyCode
	}

	c.mu.Lock()
	switch c.state {
	case InFlight:
		c.mu.Unlock()
		return Stamp{}, ErrCollectInFlight
	case Collected:
		c.mu.Unlock()
		return Stamp{}, ErrAlreadyCollectedLocally
	}
	from := c.state
	c.state = InFlight
	c.reason = ""
	if attempt.Attempted.IsZero() {
		attempt.Attempted = time.Now()
	}
	if attempt.UserID == "" && c.store != nil {
		attempt.UserID = c.store.UserID()
	}
	c.last = &attempt
	c.mu.Unlock()

	c.notify(Transition{Code: attempt.Code, From: from, To: InFlight})
	c.logger.Debug("collect attempt started", slog.String("code", attempt.Code), slog.String("user_id", attempt.UserID))

	done := make(chan collectResult, 1)
	go func() {
		done <- c.resolve(attempt.Code, c.call(ctx, attempt.Code))
	}()

	select {
	case res := <-done:
		return res.stamp, res.err
	case <-ctx.Done():
		return Stamp{}, ctx.Err()
	}
}

func (c *Coordinator) call(ctx context.Context, code string) collectResult {
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()

	resCh := make(chan collectResult, 1)
	go func() {
		st, err := c.remote.Collect(callCtx, code)
		resCh <- collectResult{stamp: st, err: err}
	}()

	select {
	case res := <-resCh:
		return res
	case <-callCtx.Done():
		return collectResult{err: &RemoteError{Kind: KindNetwork, Err: callCtx.Err()}}
	}
}

func (c *Coordinator) resolve(code string, res collectResult) collectResult {
	c.mu.Lock()
	t := Transition{Code: code, From: c.state}
	c.last = nil
	if res.err != nil {
		c.reason = ReasonFor(res.err)
		if KindOf(res.err) == KindUnauthenticated {
			c.state = Idle
		} else {
			c.state = Failed
		}
		t.To, t.Reason = c.state, c.reason
		c.mu.Unlock()

		c.logger.Info("collect attempt failed",
			slog.String("code", code),
			slog.String("kind", KindOf(res.err).String()),
			slog.String("reason", t.Reason),
		)
		c.notify(t)
		return res
	}

	if c.store != nil {
		c.store.MergeCollected(res.stamp)
	}
	c.state = Collected
	c.reason = ""
	c.mu.Unlock()

	st := res.stamp
	t.To, t.Stamp = Collected, &st
	c.logger.Info("collect attempt succeeded", slog.String("code", code), slog.String("stamp_id", st.ID))
	c.notify(t)
	return res
}

func (c *Coordinator) notify(t Transition) {
	if c.observer != nil {
		c.observer(t)
	}
}

// ReasonFor turns a collect failure into user-facing text.
func ReasonFor(err error) string {
	if err == nil {
		return ""
	}
	var re *RemoteError
	if errors.As(err, &re) {
		if re.Message != "" {
			return re.Message
		}
		if re.Kind == KindNetwork {
			return NetworkReason
		}
		return FallbackReason
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return NetworkReason
	}
	return FallbackReason
}
