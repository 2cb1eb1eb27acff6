package collect

import (
	"context"
	"fmt"
	"math"

	"backend-stizi/internal/shared/geo"
)

// Threshold is the proximity a user must be strictly within to collect.
const Threshold = 50.0

type Outcome int

const (
	UnknownLocation Outcome = iota
	Eligible
	TooFar
)

func (o Outcome) String() string {
	switch o {
	case Eligible:
		return "ELIGIBLE"
	case TooFar:
		return "TOO_FAR"
	default:
		return "UNKNOWN_LOCATION"
	}
}

// Decision is the gate result. Only TooFar and Eligible carry a distance.
type Decision struct {
	outcome  Outcome
	distance float64
	err      error
}

func (d Decision) Outcome() Outcome { return d.outcome }

// Distance reports the measured distance for TooFar decisions.
func (d Decision) Distance() (float64, bool) {
	if d.outcome != TooFar {
		return 0, false
	}
	return d.distance, true
}

// MeasuredDistance reports the distance for any decision made with a known
// location, including Eligible ones.
func (d Decision) MeasuredDistance() (float64, bool) {
	if d.outcome == UnknownLocation {
		return 0, false
	}
	return d.distance, true
}

// Err maps the decision onto the error taxonomy. Eligible decisions return nil.
func (d Decision) Err() error {
	switch d.outcome {
	case Eligible:
		return nil
	case TooFar:
		return fmt.Errorf("%w: %.0fm away", ErrTooFar, d.distance)
	default:
		if d.err != nil {
			return fmt.Errorf("%w: %v", ErrLocationUnavailable, d.err)
		}
		return ErrLocationUnavailable
	}
}

func (d Decision) Message() string {
	switch d.outcome {
	case Eligible:
		return "You are close enough to collect this stamp."
	case TooFar:
		return fmt.Sprintf("You need to be within %.0fm of the stamp to collect it. You are %.0fm away.", Threshold, math.Round(d.distance))
	default:
		return "Enable location services to collect stamps."
	}
}

// Decide applies the threshold to an already measured distance.
func Decide(distanceM float64) Decision {
	if distanceM < Threshold {
		return Decision{outcome: Eligible, distance: distanceM}
	}
	return Decision{outcome: TooFar, distance: distanceM}
}

// Evaluate decides whether a user at user may collect a stamp at target. A nil
// user location yields UnknownLocation regardless of target.
func Evaluate(user *geo.Coordinate, target geo.Coordinate) Decision {
	if user == nil {
		return Decision{outcome: UnknownLocation}
	}
	return Decide(geo.DistanceM(*user, target))
}

// EvaluateWith asks the provider for the current location first. Any provider
// error is reported as UnknownLocation.
func EvaluateWith(ctx context.Context, provider LocationProvider, stamp Stamp) Decision {
	if provider == nil {
		return Decision{outcome: UnknownLocation}
	}
	loc, err := provider.CurrentLocation(ctx)
	if err != nil {
		return Decision{outcome: UnknownLocation, err: err}
	}
	return Evaluate(&loc, stamp.Coordinate())
}
