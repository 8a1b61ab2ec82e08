package workitem

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidTransition      = errors.New("invalid work item transition")
	ErrProofRequired          = errors.New("proof of completion is required before submitting this work item")
	ErrConcurrentModification = errors.New("work item was modified concurrently, re-fetch and retry")
	ErrNotFound               = errors.New("work item not found")
	ErrUnknownStatus          = errors.New("unknown work item status")
	ErrUnknownKind            = errors.New("unknown work item kind")
	ErrUnknownPriority        = errors.New("unknown work item priority")
)

// TransitionError tells the actor which move was refused.
type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot move work item from %s to %s", e.From, e.To)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}
