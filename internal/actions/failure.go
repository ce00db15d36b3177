package actions

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// FailureKind buckets collaborator errors into the outcomes the dialog
// manager knows how to present to the user.
type FailureKind string

const (
	FailureValidation FailureKind = "validation"
	FailureNotFound   FailureKind = "not_found"
	FailureConflict   FailureKind = "conflict"
	FailureTransient  FailureKind = "transient"
	FailureFatal      FailureKind = "fatal"
)

// Sentinel errors collaborator implementations wrap so the executor can map
// them without inspecting collaborator-specific shapes.
var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

// Failure is a typed action failure. Entity names the thing that was missing
// or contested (a physician id, a slot name) for user-facing replies.
type Failure struct {
	Kind   FailureKind
	Entity string
	Err    error
}

func (f *Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("actions: %s failure (%s): %v", f.Kind, f.Entity, f.Err)
	}
	return fmt.Sprintf("actions: %s failure (%s)", f.Kind, f.Entity)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

func validationFailure(entity string) *Failure {
	return &Failure{Kind: FailureValidation, Entity: entity}
}

// mapError folds an arbitrary collaborator error into the taxonomy. Timeouts
// and network errors are transient; unrecognized errors are treated as
// transient external failures rather than fatal, so a flaky collaborator
// never wedges a conversation.
func mapError(entity string, err error) *Failure {
	var failure *Failure
	if errors.As(err, &failure) {
		return failure
	}

	kind := FailureTransient
	switch {
	case errors.Is(err, ErrNotFound):
		kind = FailureNotFound
	case errors.Is(err, ErrConflict):
		kind = FailureConflict
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		kind = FailureTransient
	default:
		var netErr net.Error
		if errors.As(err, &netErr) {
			kind = FailureTransient
		}
	}

	return &Failure{Kind: kind, Entity: entity, Err: err}
}
