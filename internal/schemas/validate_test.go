package schemas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validPlanJSON = `{
	"title": "The Brave Mouse",
	"themes": ["courage", "friendship"],
	"story_arc": "A mouse leaves home, faces the cat, and returns a hero.",
	"cover_concept": "The mouse silhouetted against a full moon.",
	"pages": [
		{
			"page_number": 1,
			"scene_description": "The mouse packs a tiny satchel.",
			"characters_present": ["Hero"],
			"mood_tone": "hopeful",
			"visual_elements": ["satchel", "burrow"]
		}
	]
}`

func TestValidateBookPlan_Valid(t *testing.T) {
	assert.NoError(t, ValidateBookPlan(validPlanJSON))
}

func TestValidateBookPlan_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		field   string
	}{
		{
			name:    "missing title",
			content: `{"story_arc": "arc", "cover_concept": "cover", "pages": [{"page_number": 1, "scene_description": "x"}]}`,
			field:   "(root)",
		},
		{
			name:    "empty pages",
			content: `{"title": "T", "story_arc": "arc", "cover_concept": "cover", "pages": []}`,
			field:   "pages",
		},
		{
			name:    "page missing scene description",
			content: `{"title": "T", "story_arc": "arc", "cover_concept": "cover", "pages": [{"page_number": 1}]}`,
			field:   "pages.0",
		},
		{
			name:    "page number below one",
			content: `{"title": "T", "story_arc": "arc", "cover_concept": "cover", "pages": [{"page_number": 0, "scene_description": "x"}]}`,
			field:   "pages.0.page_number",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBookPlan(tt.content)
			require.Error(t, err)

			var validationErr *ValidationError
			require.ErrorAs(t, err, &validationErr)
			require.NotEmpty(t, validationErr.Errors)
			assert.Contains(t, validationErr.Errors[0].Field, tt.field)
		})
	}
}

func TestValidateBookPlan_MalformedJSON(t *testing.T) {
	err := ValidateBookPlan(`{not json`)
	require.Error(t, err)

	var loadErr *SchemaLoadError
	assert.ErrorAs(t, err, &loadErr)
}
