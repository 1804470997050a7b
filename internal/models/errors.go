package models

import "fmt"

// NotFoundError reports a referenced record that does not exist.
type NotFoundError struct {
	Resource string
	ID       int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Resource, e.ID)
}

// AccessDeniedError reports an ownership mismatch between the invoking user
// and the targeted record.
type AccessDeniedError struct {
	Resource string
	ID       int64
	UserID   int64
}

func (e *AccessDeniedError) Error() string {
	return fmt.Sprintf("user %d does not own %s %d", e.UserID, e.Resource, e.ID)
}

// AlreadyCompletedError reports a lifecycle action against a workout that has
// already reached its terminal state.
type AlreadyCompletedError struct {
	WorkoutID int64
}

func (e *AlreadyCompletedError) Error() string {
	return fmt.Sprintf("workout %d is already completed", e.WorkoutID)
}

// ValidationError reports a field that failed parsing or range validation.
// It carries enough detail for a caller to redisplay the offending input.
type ValidationError struct {
	SetID  int64
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.SetID != 0 {
		return fmt.Sprintf("set %d: invalid %s %q: %s", e.SetID, e.Field, e.Value, e.Reason)
	}
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}
