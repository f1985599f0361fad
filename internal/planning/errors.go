package planning

import "fmt"

// APICallError represents a failed planning model call.
type APICallError struct {
	Message string
	Cause   error
}

func (e *APICallError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("planning API error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("planning API error: %s", e.Message)
}

func (e *APICallError) Unwrap() error {
	return e.Cause
}

// PlanError represents a structurally invalid plan returned by the model.
type PlanError struct {
	Message string
	Cause   error
}

func (e *PlanError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("plan error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("plan error: %s", e.Message)
}

func (e *PlanError) Unwrap() error {
	return e.Cause
}
