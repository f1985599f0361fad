// Package styling derives a reusable writing style profile from an example
// text, so the page-writing stage can imitate a requested voice.
package styling

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/jonathan/bookforge/internal/llm"
	"github.com/jonathan/bookforge/internal/prompts"
	"github.com/jonathan/bookforge/internal/types"
)

// maxExampleLength caps the example text passed to the model.
const maxExampleLength = 12000

// AnalysisError represents a failed style analysis.
type AnalysisError struct {
	Message string
	Cause   error
}

func (e *AnalysisError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("style analysis error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("style analysis error: %s", e.Message)
}

func (e *AnalysisError) Unwrap() error {
	return e.Cause
}

// Analyze produces a style profile from an example text.
func Analyze(ctx context.Context, client llm.Client, example string) (*types.StyleProfile, error) {
	example = strings.TrimSpace(example)
	if example == "" {
		return nil, &AnalysisError{Message: "no example text provided"}
	}
	example = truncate(example, maxExampleLength)

	template := prompts.MustGet("style.json", "analyze-style")
	prompt := prompts.Format(template, map[string]string{
		"Example": example,
	})

	responseText, err := client.GenerateJSON(ctx, prompt, llm.TierStandard)
	if err != nil {
		return nil, &AnalysisError{Message: "style analysis call failed", Cause: err}
	}

	var profile types.StyleProfile
	if err := json.Unmarshal([]byte(llm.CleanJSONBlock(responseText)), &profile); err != nil {
		return nil, &AnalysisError{Message: "failed to parse style profile", Cause: err}
	}
	if strings.TrimSpace(profile.Summary) == "" {
		return nil, &AnalysisError{Message: "style profile has no summary"}
	}
	return &profile, nil
}

// truncate clips s to at most max bytes without splitting a UTF-8 sequence.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}

// Guide renders the profile as a prompt section for the writing stage.
func Guide(profile *types.StyleProfile) string {
	if profile == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(profile.Summary)
	if profile.Voice != "" {
		fmt.Fprintf(&b, "\nVoice: %s", profile.Voice)
	}
	if profile.SentenceLength != "" {
		fmt.Fprintf(&b, "\nSentence length: %s", profile.SentenceLength)
	}
	if len(profile.Devices) > 0 {
		fmt.Fprintf(&b, "\nDevices: %s", strings.Join(profile.Devices, ", "))
	}
	return b.String()
}
