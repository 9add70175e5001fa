// Package failure classifies request errors and turns them into reasons that
// are safe to show to a caller.
package failure

import (
	"context"
	"errors"
	"fmt"

	"github.com/rotisserie/eris"
)

// Kind identifies a class of failure.
type Kind string

const (
	// ClassificationAmbiguous means a tier could not decide; the request moves on.
	ClassificationAmbiguous Kind = "classification_ambiguous"
	// CollaboratorUnavailable means an external lookup, search or generation call failed.
	CollaboratorUnavailable Kind = "collaborator_unavailable"
	// CollaboratorTimeout is treated like CollaboratorUnavailable.
	CollaboratorTimeout Kind = "collaborator_timeout"
	// MalformedFragment is an internal invariant violation.
	MalformedFragment Kind = "malformed_fragment"
	// RequestTimeout means the per-request deadline expired.
	RequestTimeout Kind = "request_timeout"
	// NoResults means every collaborator answered but nothing useful came back.
	NoResults Kind = "no_results"
)

// User-visible reasons. They never name a collaborator.
const (
	ReasonTimeout     = "timeout: the request took too long, please try again"
	ReasonUnavailable = "service temporarily unavailable, please try again shortly"
	ReasonNoResults   = "no results found for this question, try adding a part or model number"
	ReasonInternal    = "internal error while preparing the answer"
)

// Error is a classified failure. Op names the operation for logs only.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New wraps err with a kind. The wrapped error keeps an eris stack for logging.
func New(kind Kind, op string, err error) error {
	if err != nil {
		err = eris.Wrap(err, op)
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf reports the kind of err. Context deadline errors map to
// CollaboratorTimeout when unclassified.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return CollaboratorTimeout
	}
	return CollaboratorUnavailable
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// IsRecoverable reports whether the request can continue to the next tier
// after err.
func IsRecoverable(err error) bool {
	switch KindOf(err) {
	case ClassificationAmbiguous, CollaboratorUnavailable, CollaboratorTimeout, NoResults:
		return true
	default:
		return false
	}
}

// Reason maps err to the actionable text carried by a failed fragment.
func Reason(err error) string {
	switch KindOf(err) {
	case RequestTimeout:
		return ReasonTimeout
	case CollaboratorUnavailable, CollaboratorTimeout:
		return ReasonUnavailable
	case NoResults, ClassificationAmbiguous:
		return ReasonNoResults
	default:
		return ReasonInternal
	}
}
