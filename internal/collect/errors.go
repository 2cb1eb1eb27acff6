package collect

import (
	"errors"
	"fmt"
)

var (
	ErrLocationUnavailable = errors.New("location unavailable")
	ErrTooFar              = errors.New("too far from stamp")

	ErrInvalidCode      = errors.New("invalid code")
	ErrAlreadyCollected = errors.New("already collected")
	ErrServerRejected   = errors.New("server rejected")
	ErrTransport        = errors.New("network error")
	ErrUnauthenticated  = errors.New("unauthenticated")

	// ErrCollectInFlight is returned when an attempt is made while another is
	// still waiting on the server.
	ErrCollectInFlight = errors.New("collect already in flight")
	// ErrAlreadyCollectedLocally is returned once a coordinator has reached
	// the Collected state.
	ErrAlreadyCollectedLocally = errors.New("stamp already collected in this session")
	ErrEmptyCode               = errors.New("collection code required")
	ErrInvalidStamp            = errors.New("stamp needs a name and a valid location")
)

// Kind classifies remote failures.
type Kind int

const (
	KindServer Kind = iota
	KindInvalidCode
	KindAlreadyCollected
	KindNetwork
	KindUnauthenticated
)

func (k Kind) String() string {
	switch k {
	case KindInvalidCode:
		return "invalid_code"
	case KindAlreadyCollected:
		return "already_collected"
	case KindNetwork:
		return "network"
	case KindUnauthenticated:
		return "unauthenticated"
	default:
		return "server"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindInvalidCode:
		return ErrInvalidCode
	case KindAlreadyCollected:
		return ErrAlreadyCollected
	case KindNetwork:
		return ErrTransport
	case KindUnauthenticated:
		return ErrUnauthenticated
	default:
		return ErrServerRejected
	}
}

// RemoteError is returned by Remote implementations. Message is the
// server-provided text and may be empty.
type RemoteError struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

func (e *RemoteError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.sentinel().Error()
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *RemoteError) Is(target error) bool {
	return target == e.Kind.sentinel()
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// KindOf reports the remote failure kind for err. Errors that did not come
// from a Remote are treated as transport failures.
func KindOf(err error) Kind {
	var re *RemoteError
	if errors.As(err, &re) {
		return re.Kind
	}
	return KindNetwork
}
