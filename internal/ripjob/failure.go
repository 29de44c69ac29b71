package ripjob

import (
	"context"
	"errors"
	"fmt"

	"discmapper/internal/fileutil"
	"discmapper/internal/services"
)

// FailureKind classifies why a job failed. Every kind is terminal for the
// job and non-fatal for the controller.
type FailureKind string

const (
	FailureTimeout       FailureKind = "timeout"
	FailureRipToolError  FailureKind = "rip_tool_error"
	FailureNoValidOutput FailureKind = "no_valid_output"
	FailureMovePartial   FailureKind = "move_partial"
	FailureCancelled     FailureKind = "cancelled"
)

// Failure carries the phase a job died in and why.
type Failure struct {
	Kind  FailureKind
	Phase Phase
	Err   error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s in %s: %v", f.Kind, f.Phase, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

func newFailure(kind FailureKind, phase Phase, err error) *Failure {
	return &Failure{Kind: kind, Phase: phase, Err: err}
}

// classify maps an arbitrary phase error onto a failure kind. Explicit
// failures pass through; context cancellation and the error taxonomy
// markers decide the rest.
func classify(phase Phase, err error) *Failure {
	var failure *Failure
	if errors.As(err, &failure) {
		return failure
	}
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, services.ErrCancelled):
		return newFailure(FailureCancelled, phase, err)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, services.ErrTimeout):
		return newFailure(FailureTimeout, phase, err)
	case errors.Is(err, services.ErrExternalTool):
		return newFailure(FailureRipToolError, phase, err)
	}
	var moveFailed *fileutil.MoveFailed
	if errors.As(err, &moveFailed) {
		return newFailure(FailureMovePartial, phase, err)
	}
	// Anything uncategorized means the phase produced nothing usable.
	switch phase {
	case PhaseWaitForDisc, PhaseDiscDetected:
		return newFailure(FailureTimeout, phase, err)
	case PhaseRip:
		return newFailure(FailureRipToolError, phase, err)
	case PhaseCommitMoves:
		return newFailure(FailureMovePartial, phase, err)
	default:
		return newFailure(FailureNoValidOutput, phase, err)
	}
}
