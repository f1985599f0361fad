package characters

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/jonathan/bookforge/internal/llm"
	"github.com/jonathan/bookforge/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const heroRecord = `{
	"name": "Hero",
	"appearance": "a small grey mouse with a red scarf",
	"personality": "brave and curious",
	"visual_cues": ["red scarf", "notched left ear"]
}`

func TestExtract_FromText(t *testing.T) {
	client := &llm.FakeClient{
		GenerateJSONFunc: func(_ context.Context, prompt string, tier llm.ModelTier) (string, error) {
			assert.Equal(t, llm.TierLite, tier)
			assert.Contains(t, prompt, "Hero")
			assert.Contains(t, prompt, "a small grey mouse")
			return heroRecord, nil
		},
	}

	spec := types.CharacterSpec{
		Name:        "Hero",
		Role:        types.RoleMain,
		Source:      types.SourceText,
		Description: "a small grey mouse",
	}

	character, err := Extract(context.Background(), client, spec)
	require.NoError(t, err)
	assert.Equal(t, "Hero", character.Name)
	assert.Equal(t, types.RoleMain, character.Role)
	assert.Equal(t, types.SourceText, character.Source)
	assert.Equal(t, "a small grey mouse with a red scarf", character.Appearance)
	assert.Equal(t, []string{"red scarf", "notched left ear"}, character.VisualCues)
}

func TestExtract_FromImages(t *testing.T) {
	dir := t.TempDir()
	imgPath := filepath.Join(dir, "hero.png")
	require.NoError(t, os.WriteFile(imgPath, []byte{0x89, 0x50, 0x4e, 0x47}, 0o644))

	client := &llm.FakeClient{
		DescribeImagesFunc: func(_ context.Context, prompt string, images []llm.ImageInput) (string, error) {
			require.Len(t, images, 1)
			assert.Equal(t, "png", images[0].Format)
			assert.Contains(t, prompt, "Hero")
			return "```json\n" + heroRecord + "\n```", nil
		},
	}

	spec := types.CharacterSpec{
		Name:       "Hero",
		Role:       types.RoleMain,
		Source:     types.SourceImages,
		ImagePaths: []string{imgPath},
	}

	character, err := Extract(context.Background(), client, spec)
	require.NoError(t, err)
	assert.Equal(t, types.SourceImages, character.Source)
	assert.NotEmpty(t, character.Appearance)
}

func TestExtract_ImageSourceWithoutPaths(t *testing.T) {
	client := &llm.FakeClient{}
	spec := types.CharacterSpec{
		Name:   "Hero",
		Role:   types.RoleMain,
		Source: types.SourceImages,
	}

	_, err := Extract(context.Background(), client, spec)
	require.Error(t, err)

	var apiErr *APICallError
	assert.ErrorAs(t, err, &apiErr)
}

func TestExtract_APIError(t *testing.T) {
	client := &llm.FakeClient{
		GenerateJSONFunc: func(_ context.Context, _ string, _ llm.ModelTier) (string, error) {
			return "", errors.New("quota exceeded")
		},
	}

	spec := types.CharacterSpec{Name: "Hero", Role: types.RoleMain, Source: types.SourceText}

	_, err := Extract(context.Background(), client, spec)
	require.Error(t, err)

	var apiErr *APICallError
	require.ErrorAs(t, err, &apiErr)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestExtract_BadJSON(t *testing.T) {
	client := &llm.FakeClient{
		GenerateJSONFunc: func(_ context.Context, _ string, _ llm.ModelTier) (string, error) {
			return "this is not json", nil
		},
	}

	spec := types.CharacterSpec{Name: "Hero", Role: types.RoleMain, Source: types.SourceText}

	_, err := Extract(context.Background(), client, spec)
	require.Error(t, err)

	var parseErr *ParseError
	assert.ErrorAs(t, err, &parseErr)
}

func TestExtract_EmptyAppearanceRejected(t *testing.T) {
	client := &llm.FakeClient{
		GenerateJSONFunc: func(_ context.Context, _ string, _ llm.ModelTier) (string, error) {
			return `{"name": "Hero", "appearance": "  "}`, nil
		},
	}

	spec := types.CharacterSpec{Name: "Hero", Role: types.RoleMain, Source: types.SourceText}

	_, err := Extract(context.Background(), client, spec)
	assert.Error(t, err)
}

func TestExtractAll_StopsOnFirstFailure(t *testing.T) {
	calls := 0
	client := &llm.FakeClient{
		GenerateJSONFunc: func(_ context.Context, _ string, _ llm.ModelTier) (string, error) {
			calls++
			if calls == 2 {
				return "", errors.New("transient failure")
			}
			return heroRecord, nil
		},
	}

	specs := []types.CharacterSpec{
		{Name: "Hero", Role: types.RoleMain, Source: types.SourceText},
		{Name: "Luna", Role: types.RoleSecondary, Source: types.SourceText},
		{Name: "Crow", Role: types.RoleBackground, Source: types.SourceText},
	}

	_, err := ExtractAll(context.Background(), client, specs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Luna")
	assert.Equal(t, 2, calls)
}

func TestImageFormat(t *testing.T) {
	assert.Equal(t, "jpeg", imageFormat("a/b/c.JPG"))
	assert.Equal(t, "webp", imageFormat("x.webp"))
	assert.Equal(t, "png", imageFormat("noext"))
}
