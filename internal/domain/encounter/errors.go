package encounter

import (
	"errors"
	"fmt"
)

// Sentinel errors for the transition taxonomy. Handlers map these to HTTP
// status codes; detail-carrying variants below satisfy errors.Is against them.
var (
	ErrUnauthenticated        = errors.New("acting identity could not be resolved")
	ErrForbidden              = errors.New("role lacks the capability for this stage")
	ErrInvalidTransition      = errors.New("requested stage is not reachable")
	ErrNotFound               = errors.New("encounter not found")
	ErrConcurrentModification = errors.New("encounter was modified concurrently")
)

// ForbiddenError names the role and stage so the user-visible message is
// never a generic failure.
type ForbiddenError struct {
	Role  string
	Stage Stage
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("role %q may not move patients out of stage %q", e.Role, e.Stage)
}

func (e *ForbiddenError) Is(target error) bool { return target == ErrForbidden }

// InvalidTransitionError reports an unreachable stage, or an attempt to leave
// a terminal stage (To is empty in that case).
type InvalidTransitionError struct {
	From Stage
	To   Stage
}

func (e *InvalidTransitionError) Error() string {
	if e.From.IsTerminal() {
		return fmt.Sprintf("encounter is %s; no further transitions are possible", e.From)
	}
	return fmt.Sprintf("cannot move from %q to %q", e.From, e.To)
}

func (e *InvalidTransitionError) Is(target error) bool { return target == ErrInvalidTransition }
