package collect

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"backend-stizi/internal/shared/geo"
)

// DefaultNearbyRadiusM is the search radius the map screen uses.
const DefaultNearbyRadiusM = 10000.0

// Session ties the gate, the per-stamp coordinators and the caches together
// for one signed-in user.
type Session struct {
	remote   Remote
	store    *Store
	location LocationProvider
	opts     []Option

	// OnUnauthenticated is invoked when the server rejects the session. The
	// session collaborator tears down credentials; Session does not retry.
	OnUnauthenticated func(error)

	mu           sync.Mutex
	coordinators map[string]*Coordinator
}

func NewSession(remote Remote, store *Store, location LocationProvider, opts ...Option) *Session {
	return &Session{
		remote:       remote,
		store:        store,
		location:     location,
		opts:         opts,
		coordinators: map[string]*Coordinator{},
	}
}

func (s *Session) Store() *Store { return s.store }

// RefreshNearby fetches the stamps around the current location and replaces
// the nearby cache.
func (s *Session) RefreshNearby(ctx context.Context, radiusM float64) ([]Stamp, error) {
	if s.location == nil {
		return nil, ErrLocationUnavailable
	}
	loc, err := s.location.CurrentLocation(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLocationUnavailable, err)
	}
	if radiusM <= 0 {
		radiusM = DefaultNearbyRadiusM
	}
	stamps, err := s.remote.Nearby(ctx, loc.Lat, loc.Lng, radiusM)
	if err != nil {
		s.checkAuth(err)
		return nil, err
	}
	s.store.ReplaceNearby(stamps)
	return s.store.Nearby(), nil
}

func (s *Session) RefreshMine(ctx context.Context) ([]Stamp, error) {
	stamps, err := s.remote.Mine(ctx)
	if err != nil {
		s.checkAuth(err)
		return nil, err
	}
	s.store.ReplaceMine(stamps)
	return s.store.Mine(), nil
}

func (s *Session) Check(ctx context.Context, stamp Stamp) Decision {
	return EvaluateWith(ctx, s.location, stamp)
}

// Coordinator returns the coordinator for stampID, creating it on first use.
func (s *Session) Coordinator(stampID string) *Coordinator {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.coordinators[stampID]
	if !ok {
		c = NewCoordinator(s.remote, s.store, s.opts...)
		s.coordinators[stampID] = c
	}
	return c
}

// Collect gates on proximity and then attempts the collection. Gate failures
// and stamps the user already holds never reach the network. The returned
// Decision is always the proximity outcome for the current location, even
// when the error is ErrAlreadyCollectedLocally.
func (s *Session) Collect(ctx context.Context, stamp Stamp) (Stamp, Decision, error) {
	var loc *geo.Coordinate
	d := Decision{outcome: UnknownLocation}
	if s.location != nil {
		c, err := s.location.CurrentLocation(ctx)
		if err != nil {
			d.err = err
		} else {
			loc = &c
			d = Evaluate(loc, stamp.Coordinate())
		}
	}
	if s.store.IsCollected(stamp.ID) {
		return Stamp{}, d, ErrAlreadyCollectedLocally
	}
	if d.Outcome() != Eligible {
		return Stamp{}, d, d.Err()
	}

	co := s.Coordinator(stamp.ID)
	got, err := co.attempt(ctx, CollectionAttempt{
		UserID:    s.store.UserID(),
		Code:      stamp.QRCode,
		Location:  loc,
		Attempted: time.Now(),
	})
	if err != nil {
		s.checkAuth(err)
		return Stamp{}, d, err
	}
	return got, d, nil
}

// CreateStamp places a new stamp and adds it to the nearby collection.
func (s *Session) CreateStamp(ctx context.Context, in NewStamp) (Stamp, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" || !in.Location.Valid() {
		return Stamp{}, ErrInvalidStamp
	}
	st, err := s.remote.CreateStamp(ctx, in)
	if err != nil {
		s.checkAuth(err)
		return Stamp{}, err
	}
	s.store.AddNearby(st)
	return st, nil
}

// ApplyCollectedEvent folds a live collection event into the caches.
func (s *Session) ApplyCollectedEvent(stampID, userID string) {
	s.store.MarkCollected(stampID, userID)
}

func (s *Session) checkAuth(err error) {
	if errors.Is(err, ErrUnauthenticated) && s.OnUnauthenticated != nil {
		s.OnUnauthenticated(err)
	}
}
