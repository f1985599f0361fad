// Package translation renders the finished book text into another language
// as a plain companion file, it does not touch the assembled book.
package translation

import (
	"context"
	"fmt"
	"strings"

	"github.com/jonathan/bookforge/internal/llm"
	"github.com/jonathan/bookforge/internal/prompts"
	"github.com/jonathan/bookforge/internal/types"
)

// TranslationError represents a failed translation call.
type TranslationError struct {
	Language string
	Message  string
	Cause    error
}

func (e *TranslationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("translation error (%s): %s: %v", e.Language, e.Message, e.Cause)
	}
	return fmt.Sprintf("translation error (%s): %s", e.Language, e.Message)
}

func (e *TranslationError) Unwrap() error {
	return e.Cause
}

// Translate renders the book's full text into targetLanguage. The pages are
// joined into one document so the model keeps names and phrasing consistent
// across pages.
func Translate(ctx context.Context, client llm.Client, plan *types.BookPlan, pages []types.PageText, targetLanguage string) (string, error) {
	if strings.TrimSpace(targetLanguage) == "" {
		return "", &TranslationError{Language: targetLanguage, Message: "no target language"}
	}
	if len(pages) == 0 {
		return "", &TranslationError{Language: targetLanguage, Message: "no pages to translate"}
	}

	template := prompts.MustGet("translation.json", "translate-text")
	prompt := prompts.Format(template, map[string]string{
		"TargetLanguage": targetLanguage,
		"Text":           JoinPages(plan, pages),
	})

	translated, err := client.GenerateContent(ctx, prompt, llm.TierStandard)
	if err != nil {
		return "", &TranslationError{Language: targetLanguage, Message: "translation call failed", Cause: err}
	}
	translated = strings.TrimSpace(translated)
	if translated == "" {
		return "", &TranslationError{Language: targetLanguage, Message: "model returned empty translation"}
	}
	return translated, nil
}

// JoinPages flattens the book into a single markdown document.
func JoinPages(plan *types.BookPlan, pages []types.PageText) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", plan.Title)
	for _, page := range pages {
		fmt.Fprintf(&b, "## Page %d\n\n%s\n\n", page.PageNumber, page.Markdown)
	}
	return b.String()
}
