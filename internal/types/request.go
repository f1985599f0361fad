package types

import (
	"github.com/go-playground/validator/v10"
)

// AgeGroups lists the supported target age bands.
var AgeGroups = []string{"0-2", "3-6", "4-7", "6-8", "9-12"}

// FeatureFlags enables the optional pipeline stages for a request.
type FeatureFlags struct {
	TrendResearch  bool   `json:"trend_research,omitempty"`
	TrendTopic     string `json:"trend_topic,omitempty"`
	StyleImitation bool   `json:"style_imitation,omitempty"`
	StyleExample   string `json:"style_example,omitempty"`
	Translation    bool   `json:"translation,omitempty"`
	TargetLanguage string `json:"target_language,omitempty"`
}

// GenerateRequest is the external contract for submitting a book generation run.
type GenerateRequest struct {
	StoryIdea  string          `json:"story_idea" validate:"required,min=1"`
	Title      string          `json:"title,omitempty"`
	AgeGroup   string          `json:"age_group" validate:"required,oneof=0-2 3-6 4-7 6-8 9-12"`
	Language   string          `json:"language" validate:"required,min=1"`
	Pages      int             `json:"pages" validate:"required,min=1"`
	ArtStyle   string          `json:"art_style,omitempty"`
	Characters []CharacterSpec `json:"characters" validate:"required,min=1,dive"`
	Themes     []string        `json:"themes,omitempty"`
	Features   FeatureFlags    `json:"features,omitempty"`
}

// Validate validates the GenerateRequest using the validator.
// The configured page-count ceiling is enforced separately by the orchestrator.
func (r *GenerateRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// StatusResponse is the polling contract for a run.
type StatusResponse struct {
	RunID        string `json:"run_id"`
	Status       string `json:"status"`
	Percent      int    `json:"percent"`
	CurrentStage string `json:"current_stage,omitempty"`
	Error        string `json:"error,omitempty"`
}
