package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_ValidPrompt(t *testing.T) {
	ClearCache()

	prompt, err := Get("planning.json", "create-book-plan")
	require.NoError(t, err)
	assert.NotEmpty(t, prompt)
	assert.Contains(t, prompt, "page by page")
}

func TestGet_InvalidFile(t *testing.T) {
	ClearCache()

	_, err := Get("nonexistent.json", "some-key")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read prompt file")
}

func TestGet_InvalidKey(t *testing.T) {
	ClearCache()

	_, err := Get("planning.json", "nonexistent-key")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestMustGet_Panics(t *testing.T) {
	ClearCache()

	assert.Panics(t, func() {
		MustGet("nonexistent.json", "some-key")
	})
}

func TestFormat(t *testing.T) {
	template := "Write a story about {{.Hero}} set in {{.Place}}."
	data := map[string]string{
		"Hero":  "a brave mouse",
		"Place": "the old mill",
	}

	result := Format(template, data)
	assert.Equal(t, "Write a story about a brave mouse set in the old mill.", result)
}

func TestFormat_EmptyData(t *testing.T) {
	template := "Hello {{.Name}}"
	result := Format(template, map[string]string{})
	assert.Equal(t, template, result) // Placeholder remains
}

func TestPlaceholders(t *testing.T) {
	tests := []struct {
		name     string
		template string
		expected []string
	}{
		{
			name:     "multiple placeholders sorted and deduplicated",
			template: "{{.Zeta}} and {{.Alpha}} and {{.Zeta}} again",
			expected: []string{"Alpha", "Zeta"},
		},
		{
			name:     "no placeholders",
			template: "plain text",
			expected: []string{},
		},
		{
			name:     "ignores malformed placeholders",
			template: "{{.1Bad}} {{Good}} {{ .Spaced }} {{.Ok}}",
			expected: []string{"Ok"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Placeholders(tt.template))
		})
	}
}

func TestCheckBindings(t *testing.T) {
	ClearCache()

	err := CheckBindings("translation.json", "translate-text", []string{"Text", "TargetLanguage"})
	assert.NoError(t, err)

	err = CheckBindings("translation.json", "translate-text", []string{"Text"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TargetLanguage")

	err = CheckBindings("translation.json", "no-such-key", []string{"Text"})
	assert.Error(t, err)
}

func TestList(t *testing.T) {
	ClearCache()

	keys, err := List("illustration.json")
	require.NoError(t, err)
	assert.Contains(t, keys, "page-image")
	assert.Contains(t, keys, "cover-image")
}
