package collect

import (
	"context"
	"errors"
	"sync"

	"backend-stizi/internal/shared/geo"
)

var ErrPermissionDenied = errors.New("location permission denied")

// LocationProvider yields the device's current position.
type LocationProvider interface {
	CurrentLocation(ctx context.Context) (geo.Coordinate, error)
}

// StaticLocation is a settable provider; the zero value has no fix yet.
type StaticLocation struct {
	mu  sync.RWMutex
	loc *geo.Coordinate
	err error
}

func NewStaticLocation(c geo.Coordinate) *StaticLocation {
	s := &StaticLocation{}
	s.Set(c)
	return s
}

func (s *StaticLocation) Set(c geo.Coordinate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loc = &c
	s.err = nil
}

// Fail makes subsequent lookups return err, e.g. ErrPermissionDenied.
func (s *StaticLocation) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loc = nil
	s.err = err
}

func (s *StaticLocation) CurrentLocation(_ context.Context) (geo.Coordinate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.err != nil {
		return geo.Coordinate{}, s.err
	}
	if s.loc == nil {
		return geo.Coordinate{}, ErrLocationUnavailable
	}
	if !s.loc.Valid() {
		return geo.Coordinate{}, errors.New("location out of range")
	}
	return *s.loc, nil
}
