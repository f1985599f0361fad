package pipeline

import "fmt"

// ValidationError represents a rejected generation request. No Run is
// created when validation fails.
type ValidationError struct {
	Field   string
	Message string
	Cause   error
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Cause
}

// StageError represents a required stage failure that aborts the Run.
type StageError struct {
	Stage string
	Cause error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s failed: %v", e.Stage, e.Cause)
}

func (e *StageError) Unwrap() error {
	return e.Cause
}

// OptionalStageError represents an optional stage failure. It is logged
// and swallowed; the Run continues without that stage's artifacts.
type OptionalStageError struct {
	Stage string
	Cause error
}

func (e *OptionalStageError) Error() string {
	return fmt.Sprintf("optional stage %s failed: %v", e.Stage, e.Cause)
}

func (e *OptionalStageError) Unwrap() error {
	return e.Cause
}

// CancelledError represents an external cancellation observed at a stage
// boundary.
type CancelledError struct {
	Stage string
}

func (e *CancelledError) Error() string {
	if e.Stage != "" {
		return fmt.Sprintf("run cancelled before stage %s", e.Stage)
	}
	return "run cancelled"
}

// RunNotFoundError is returned when a run id is unknown to the service.
type RunNotFoundError struct {
	RunID string
}

func (e *RunNotFoundError) Error() string {
	return fmt.Sprintf("run not found: %s", e.RunID)
}

// NotReadyError is returned by Result while a run is still pending or
// running. Polling clients treat it as non-fatal.
type NotReadyError struct {
	RunID   string
	Percent int
}

func (e *NotReadyError) Error() string {
	return fmt.Sprintf("run %s not ready (%d%%)", e.RunID, e.Percent)
}

// FailedError is returned by Result for a run that ended in failure.
type FailedError struct {
	RunID   string
	Message string
}

func (e *FailedError) Error() string {
	return fmt.Sprintf("run %s failed: %s", e.RunID, e.Message)
}
