package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrDefinition is matched (errors.Is) by every definition-time failure.
var ErrDefinition = errors.New("definition error")

// ErrUnknownFrame is returned when a frame name is not registered.
var ErrUnknownFrame = errors.New("unknown frame")

// DefinitionError reports an invalid frame or dependency declaration, or run
// input that does not satisfy the start frame.
type DefinitionError struct {
	Frame  string
	Field  string
	Reason string
	// Err is the underlying cause, when there is one.
	Err error
}

func (e *DefinitionError) Error() string {
	reason := e.Reason
	if reason == "" && e.Err != nil {
		reason = e.Err.Error()
	}
	switch {
	case e.Frame != "" && e.Field != "":
		return fmt.Sprintf("definition error: frame %s field %s: %s", e.Frame, e.Field, reason)
	case e.Frame != "":
		return fmt.Sprintf("definition error: frame %s: %s", e.Frame, reason)
	default:
		return "definition error: " + reason
	}
}

func (e *DefinitionError) Is(target error) bool { return target == ErrDefinition }

func (e *DefinitionError) Unwrap() error { return e.Err }

// DependencyCycleError reports a cycle among chained dependency functions.
type DependencyCycleError struct {
	// Functions lists the cycle in walk order; the first name is repeated last.
	Functions []string
}

func (e *DependencyCycleError) Error() string {
	return "dependency cycle detected: " + strings.Join(e.Functions, " -> ")
}

func (e *DependencyCycleError) Is(target error) bool { return target == ErrDefinition }

// DependencyError wraps the failure of a dependency function.
type DependencyError struct {
	Frame    string
	Function string
	Err      error
	History  History
}

func (e *DependencyError) Error() string {
	if e.Frame == "" {
		return fmt.Sprintf("dependency %s failed: %v", e.Function, e.Err)
	}
	return fmt.Sprintf("frame %s: dependency %s failed: %v", e.Frame, e.Function, e.Err)
}

func (e *DependencyError) Unwrap() error { return e.Err }

// RecallNotFoundError reports that no prior frame holds a compatible value.
type RecallNotFoundError struct {
	Frame   string
	Field   string
	Target  string
	History History
}

func (e *RecallNotFoundError) Error() string {
	return fmt.Sprintf("frame %s field %s: no value of type %s in history (%d frames)",
		e.Frame, e.Field, e.Target, len(e.History))
}

// FillError reports a filler (or gate) failure, or filler output that could not
// be merged into the frame.
type FillError struct {
	Frame   string
	Err     error
	History History
}

func (e *FillError) Error() string {
	return fmt.Sprintf("frame %s: fill failed: %v", e.Frame, e.Err)
}

func (e *FillError) Unwrap() error { return e.Err }

// CancelledError reports a run stopped by its context.
// History holds what was produced before the cancellation.
type CancelledError struct {
	Frame   string
	Err     error
	History History
}

func (e *CancelledError) Error() string {
	return fmt.Sprintf("run cancelled at frame %s after %d frames: %v", e.Frame, len(e.History), e.Err)
}

func (e *CancelledError) Unwrap() error { return e.Err }

// StepLimitError reports a run that produced more frames than allowed.
type StepLimitError struct {
	Limit   int
	History History
}

func (e *StepLimitError) Error() string {
	return fmt.Sprintf("run exceeded the limit of %d frames", e.Limit)
}

// AnnotateHistory attaches the partial history to any run-fatal error type.
// Other errors are returned untouched.
func AnnotateHistory(err error, h History) error {
	var (
		depErr    *DependencyError
		recallErr *RecallNotFoundError
		fillErr   *FillError
		cancelErr *CancelledError
		limitErr  *StepLimitError
	)
	switch {
	case errors.As(err, &depErr):
		depErr.History = h
	case errors.As(err, &recallErr):
		recallErr.History = h
	case errors.As(err, &fillErr):
		fillErr.History = h
	case errors.As(err, &cancelErr):
		cancelErr.History = h
	case errors.As(err, &limitErr):
		limitErr.History = h
	}
	return err
}
