package translation

import (
	"context"
	"errors"
	"testing"

	"github.com/jonathan/bookforge/internal/llm"
	"github.com/jonathan/bookforge/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var bookPages = []types.PageText{
	{PageNumber: 1, Markdown: "Pip built a little boat."},
	{PageNumber: 2, Markdown: "Pip sailed up, up, up."},
}

func TestTranslate(t *testing.T) {
	plan := &types.BookPlan{Title: "Moonsail"}
	client := &llm.FakeClient{
		GenerateContentFunc: func(_ context.Context, prompt string, tier llm.ModelTier) (string, error) {
			assert.Equal(t, llm.TierStandard, tier)
			assert.Contains(t, prompt, "German")
			assert.Contains(t, prompt, "# Moonsail")
			assert.Contains(t, prompt, "Pip built a little boat.")
			assert.Contains(t, prompt, "Pip sailed up, up, up.")
			return "# Mondsegel\n\n## Page 1\n\nPip baute ein kleines Boot.\n", nil
		},
	}

	translated, err := Translate(context.Background(), client, plan, bookPages, "German")
	require.NoError(t, err)
	assert.Contains(t, translated, "Mondsegel")
}

func TestTranslate_NoLanguage(t *testing.T) {
	client := &llm.FakeClient{}
	_, err := Translate(context.Background(), client, &types.BookPlan{}, bookPages, " ")
	require.Error(t, err)

	var trErr *TranslationError
	assert.ErrorAs(t, err, &trErr)
}

func TestTranslate_NoPages(t *testing.T) {
	client := &llm.FakeClient{}
	_, err := Translate(context.Background(), client, &types.BookPlan{}, nil, "French")
	assert.Error(t, err)
}

func TestTranslate_APIError(t *testing.T) {
	client := &llm.FakeClient{
		GenerateContentFunc: func(_ context.Context, _ string, _ llm.ModelTier) (string, error) {
			return "", errors.New("unavailable")
		},
	}
	_, err := Translate(context.Background(), client, &types.BookPlan{Title: "X"}, bookPages, "French")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "French")
}

func TestJoinPages(t *testing.T) {
	doc := JoinPages(&types.BookPlan{Title: "Moonsail"}, bookPages)
	assert.Contains(t, doc, "# Moonsail")
	assert.Contains(t, doc, "## Page 1")
	assert.Contains(t, doc, "## Page 2")
}
