package research

import "fmt"

// ResearchError represents an error during trend research.
type ResearchError struct {
	Message string
	Cause   error
}

func (e *ResearchError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("research error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("research error: %s", e.Message)
}

func (e *ResearchError) Unwrap() error {
	return e.Cause
}
