// ABOUTME: Turn failure taxonomy for the assistant session.
// ABOUTME: Classifies gRPC and context errors into transport, deadline, and remote kinds.

package assistant

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Kind identifies the class of a turn failure.
type Kind int

const (
	// KindTransport is a channel-level failure (connection refused,
	// TLS failure, stream reset). The session stays usable.
	KindTransport Kind = iota
	// KindDeadline means the turn exceeded its time budget.
	KindDeadline
	// KindRemote is an application-level error reported by the service.
	KindRemote
)

// String returns the kind's name for logs.
func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindDeadline:
		return "deadline"
	case KindRemote:
		return "remote"
	default:
		return "unknown"
	}
}

// TurnError is the single failure value a turn surfaces to its caller.
type TurnError struct {
	Kind Kind
	err  error
}

func (e *TurnError) Error() string {
	return fmt.Sprintf("assistant turn failed (%s): %v", e.Kind, e.err)
}

func (e *TurnError) Unwrap() error { return e.err }

// classify maps a raw stream or dial error onto the turn taxonomy.
func classify(err error) *TurnError {
	if errors.Is(err, context.DeadlineExceeded) {
		return &TurnError{Kind: KindDeadline, err: err}
	}

	if st, ok := status.FromError(err); ok {
		switch st.Code() {
		case codes.DeadlineExceeded:
			return &TurnError{Kind: KindDeadline, err: err}
		case codes.Unavailable, codes.Canceled:
			return &TurnError{Kind: KindTransport, err: err}
		default:
			return &TurnError{Kind: KindRemote, err: err}
		}
	}

	return &TurnError{Kind: KindTransport, err: err}
}

// KindOf extracts the failure kind from an Ask error. The second return
// is false when the error did not originate from a turn.
func KindOf(err error) (Kind, bool) {
	var te *TurnError
	if errors.As(err, &te) {
		return te.Kind, true
	}
	return 0, false
}
