// Package writing turns page outlines into the book's actual page text,
// one page at a time so each page can continue from the previous one.
package writing

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jonathan/bookforge/internal/llm"
	"github.com/jonathan/bookforge/internal/planning"
	"github.com/jonathan/bookforge/internal/prompts"
	"github.com/jonathan/bookforge/internal/types"
)

// WriteError represents a failed page text generation.
type WriteError struct {
	PageNumber int
	Message    string
	Cause      error
}

func (e *WriteError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("writing error on page %d: %s: %v", e.PageNumber, e.Message, e.Cause)
	}
	return fmt.Sprintf("writing error on page %d: %s", e.PageNumber, e.Message)
}

func (e *WriteError) Unwrap() error {
	return e.Cause
}

// WritePage generates the text for a single page. previousMarkdown is the
// text of the preceding page, empty for page 1.
func WritePage(ctx context.Context, client llm.Client, plan *types.BookPlan, outline *types.PageOutline, characters []types.Character, previousMarkdown, styleGuide string) (*types.PageText, error) {
	template := prompts.MustGet("writing.json", "write-page")
	prompt := prompts.Format(template, map[string]string{
		"PageNumber":       fmt.Sprintf("%d", outline.PageNumber),
		"TotalPages":       fmt.Sprintf("%d", plan.PageCount()),
		"Language":         plan.Language,
		"AgeGroup":         plan.AgeGroup,
		"StoryArc":         plan.StoryArc,
		"SceneDescription": outline.SceneDescription,
		"Characters":       planning.FormatCharacterBlock(presentCharacters(outline, characters)),
		"PreviousPage":     previousMarkdown,
		"StyleGuide":       styleGuide,
	})

	responseText, err := client.GenerateJSON(ctx, prompt, llm.TierStandard)
	if err != nil {
		return nil, &WriteError{PageNumber: outline.PageNumber, Message: "page text generation failed", Cause: err}
	}

	var pageText types.PageText
	if err := json.Unmarshal([]byte(llm.CleanJSONBlock(responseText)), &pageText); err != nil {
		return nil, &WriteError{PageNumber: outline.PageNumber, Message: "failed to parse page text", Cause: err}
	}
	if strings.TrimSpace(pageText.Markdown) == "" {
		return nil, &WriteError{PageNumber: outline.PageNumber, Message: "model returned empty page text"}
	}
	pageText.PageNumber = outline.PageNumber
	return &pageText, nil
}

// WriteAll writes every page in plan order. onPage, if non-nil, is called
// after each page is produced so the caller can persist completed pages
// before the next model call.
func WriteAll(ctx context.Context, client llm.Client, plan *types.BookPlan, characters []types.Character, styleGuide string, onPage func(types.PageText) error) ([]types.PageText, error) {
	pages := make([]types.PageText, 0, plan.PageCount())
	previous := ""
	for i := range plan.Pages {
		outline := &plan.Pages[i]
		pageText, err := WritePage(ctx, client, plan, outline, characters, previous, styleGuide)
		if err != nil {
			return pages, err
		}
		if onPage != nil {
			if err := onPage(*pageText); err != nil {
				return pages, &WriteError{PageNumber: outline.PageNumber, Message: "failed to persist page text", Cause: err}
			}
		}
		pages = append(pages, *pageText)
		previous = pageText.Markdown
	}
	return pages, nil
}

// presentCharacters filters the cast down to the names the outline lists.
// An outline with no character list gets the full cast.
func presentCharacters(outline *types.PageOutline, characters []types.Character) []types.Character {
	if len(outline.CharactersPresent) == 0 {
		return characters
	}
	wanted := make(map[string]bool, len(outline.CharactersPresent))
	for _, name := range outline.CharactersPresent {
		wanted[strings.ToLower(name)] = true
	}
	var present []types.Character
	for _, c := range characters {
		if wanted[strings.ToLower(c.Name)] {
			present = append(present, c)
		}
	}
	if len(present) == 0 {
		return characters
	}
	return present
}
