// Package apperr defines the error kinds shared by every service. Each
// concrete error unwraps to exactly one of the sentinel kinds so callers can
// branch with errors.Is.
package apperr

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrScheduleConflict  = errors.New("schedule conflict")
	ErrConflict          = errors.New("conflict")
	ErrForbidden         = errors.New("forbidden")
)

// Error pairs a kind with a human readable message.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Msg == "" {
		return e.Kind.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Kind }

func Validationf(format string, args ...any) error {
	return &Error{Kind: ErrValidation, Msg: fmt.Sprintf(format, args...)}
}

// NotFound names the missing entity and its id.
func NotFound(entity string, id int64) error {
	return &Error{Kind: ErrNotFound, Msg: fmt.Sprintf("%s not found with id %d", entity, id)}
}

func Conflictf(format string, args ...any) error {
	return &Error{Kind: ErrConflict, Msg: fmt.Sprintf(format, args...)}
}

func Forbiddenf(format string, args ...any) error {
	return &Error{Kind: ErrForbidden, Msg: fmt.Sprintf(format, args...)}
}

// TransitionError reports a status change the lifecycle table forbids.
type TransitionError struct {
	From string
	To   string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid status transition from %s to %s", e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// ScheduleConflictError names the sprint whose range collides with a proposed one.
type ScheduleConflictError struct {
	SprintID   int64
	SprintName string
	Start      time.Time
	End        time.Time
}

func (e *ScheduleConflictError) Error() string {
	return fmt.Sprintf("sprint dates overlap with existing sprint '%s' (%s to %s)",
		e.SprintName, e.Start.Format(time.DateOnly), e.End.Format(time.DateOnly))
}

func (e *ScheduleConflictError) Unwrap() error { return ErrScheduleConflict }
