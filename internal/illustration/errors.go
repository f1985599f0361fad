package illustration

import (
	"fmt"
	"sort"
	"strings"
)

// ImageError represents a single failed image generation.
type ImageError struct {
	PageNumber int
	Message    string
	Cause      error
}

func (e *ImageError) Error() string {
	label := pageLabel(e.PageNumber)
	if e.Cause != nil {
		return fmt.Sprintf("image error on %s: %s: %v", label, e.Message, e.Cause)
	}
	return fmt.Sprintf("image error on %s: %s", label, e.Message)
}

func (e *ImageError) Unwrap() error {
	return e.Cause
}

// GenerationError aggregates the pages whose images could not be produced.
// Successful pages are already persisted by the time this error is returned.
type GenerationError struct {
	FailedPages []int
}

func (e *GenerationError) Error() string {
	pages := append([]int(nil), e.FailedPages...)
	sort.Ints(pages)
	labels := make([]string, 0, len(pages))
	for _, n := range pages {
		labels = append(labels, pageLabel(n))
	}
	return fmt.Sprintf("image generation failed for %s", strings.Join(labels, ", "))
}

func pageLabel(n int) string {
	if n == 0 {
		return "cover"
	}
	return fmt.Sprintf("page %d", n)
}
