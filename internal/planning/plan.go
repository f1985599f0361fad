package planning

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jonathan/bookforge/internal/llm"
	"github.com/jonathan/bookforge/internal/prompts"
	"github.com/jonathan/bookforge/internal/schemas"
	"github.com/jonathan/bookforge/internal/types"
)

// CreatePlan asks the model for a page-by-page book plan, validates it against
// the plan schema and fills in the request metadata the model does not echo.
func CreatePlan(ctx context.Context, client llm.Client, req *types.GenerateRequest, characters []types.Character, trends *types.TrendReport) (*types.BookPlan, error) {
	template := prompts.MustGet("planning.json", "create-book-plan")
	prompt := prompts.Format(template, map[string]string{
		"StoryIdea":  req.StoryIdea,
		"Title":      req.Title,
		"Pages":      fmt.Sprintf("%d", req.Pages),
		"AgeGroup":   req.AgeGroup,
		"Language":   req.Language,
		"Themes":     strings.Join(req.Themes, ", "),
		"Characters": FormatCharacterBlock(characters),
		"Trends":     formatTrendBlock(trends),
	})

	responseText, err := client.GenerateJSON(ctx, prompt, llm.TierAdvanced)
	if err != nil {
		return nil, &APICallError{Message: "book plan generation failed", Cause: err}
	}

	cleaned := llm.CleanJSONBlock(responseText)
	if err := schemas.ValidateBookPlan(cleaned); err != nil {
		return nil, &PlanError{Message: "plan failed schema validation", Cause: err}
	}

	var plan types.BookPlan
	if err := json.Unmarshal([]byte(cleaned), &plan); err != nil {
		return nil, &PlanError{Message: "failed to parse book plan", Cause: err}
	}

	if plan.PageCount() != req.Pages {
		return nil, &PlanError{
			Message: fmt.Sprintf("plan has %d pages, requested %d", plan.PageCount(), req.Pages),
		}
	}

	// Page numbers come from the model; make them canonical.
	for i := range plan.Pages {
		plan.Pages[i].PageNumber = i + 1
	}

	if strings.TrimSpace(plan.Title) == "" {
		plan.Title = req.Title
	}
	plan.StoryIdea = req.StoryIdea
	plan.AgeGroup = req.AgeGroup
	plan.Language = req.Language
	if len(plan.Themes) == 0 {
		plan.Themes = req.Themes
	}
	return &plan, nil
}

// Summary renders a short human-readable digest of the plan, written next to
// the plan JSON so a run directory can be skimmed without a JSON viewer.
func Summary(plan *types.BookPlan) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\n", plan.Title)
	fmt.Fprintf(&b, "Age group: %s  Language: %s  Pages: %d\n", plan.AgeGroup, plan.Language, plan.PageCount())
	if len(plan.Themes) > 0 {
		fmt.Fprintf(&b, "Themes: %s\n", strings.Join(plan.Themes, ", "))
	}
	fmt.Fprintf(&b, "\nStory arc:\n%s\n", plan.StoryArc)
	fmt.Fprintf(&b, "\nCover: %s\n\n", plan.CoverConcept)
	for _, page := range plan.Pages {
		fmt.Fprintf(&b, "Page %d: %s\n", page.PageNumber, page.SceneDescription)
	}
	return b.String()
}

// FormatCharacterBlock renders the extracted characters as a prompt section.
func FormatCharacterBlock(characters []types.Character) string {
	var b strings.Builder
	for _, c := range characters {
		fmt.Fprintf(&b, "- %s (%s): %s", c.Name, c.Role, c.Appearance)
		if c.Personality != "" {
			fmt.Fprintf(&b, " Personality: %s", c.Personality)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func formatTrendBlock(trends *types.TrendReport) string {
	if trends == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(trends.Summary)
	if len(trends.Themes) > 0 {
		fmt.Fprintf(&b, "\nTrending themes: %s", strings.Join(trends.Themes, ", "))
	}
	return b.String()
}
