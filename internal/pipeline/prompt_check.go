package pipeline

import (
	"fmt"

	"github.com/jonathan/bookforge/internal/prompts"
)

// promptBinding names one prompt template and the placeholder values its
// call site supplies. The table mirrors every prompts.Format call in the
// stage packages; a template placeholder with no entry here is a bug that
// should surface at startup, not mid-run.
type promptBinding struct {
	file     string
	key      string
	supplied []string
}

var promptBindings = []promptBinding{
	{"characters.json", "extract-from-text", []string{"Name", "Role", "Description"}},
	{"characters.json", "extract-from-images", []string{"Name", "Role", "Extra"}},
	{"research.json", "summarize-trends", []string{"Topic", "Corpus"}},
	{"planning.json", "create-book-plan", []string{
		"StoryIdea", "Title", "Pages", "AgeGroup", "Language", "Themes", "Characters", "Trends",
	}},
	{"style.json", "analyze-style", []string{"Example"}},
	{"writing.json", "write-page", []string{
		"PageNumber", "TotalPages", "Language", "AgeGroup", "StoryArc",
		"SceneDescription", "Characters", "PreviousPage", "StyleGuide",
	}},
	{"illustration.json", "page-image", []string{
		"ArtStyle", "SceneDescription", "MoodTone", "VisualElements", "Characters",
	}},
	{"illustration.json", "cover-image", []string{"ArtStyle", "CoverConcept", "Title", "Characters"}},
	{"translation.json", "translate-text", []string{"TargetLanguage", "Text"}},
}

// checkPromptBindings validates every template against its call-site
// bindings so a prompt edit that introduces an unbound placeholder fails
// orchestrator construction.
func checkPromptBindings() error {
	for _, b := range promptBindings {
		if err := prompts.CheckBindings(b.file, b.key, b.supplied); err != nil {
			return fmt.Errorf("prompt binding check failed: %w", err)
		}
	}
	return nil
}
