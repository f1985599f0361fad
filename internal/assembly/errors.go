// Package assembly renders the finished book document from the ordered
// pages and their images.
package assembly

import "fmt"

// TemplateError represents an error parsing or executing the book template
type TemplateError struct {
	Message string
	Cause   error
}

func (e *TemplateError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("template error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("template error: %s", e.Message)
}

func (e *TemplateError) Unwrap() error {
	return e.Cause
}

// AssembleError represents a general assembly failure
type AssembleError struct {
	Message string
	Cause   error
}

func (e *AssembleError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("assembly error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("assembly error: %s", e.Message)
}

func (e *AssembleError) Unwrap() error {
	return e.Cause
}
