package illustration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/jonathan/bookforge/internal/llm"
	"github.com/jonathan/bookforge/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func imagePlan(pages int) *types.BookPlan {
	plan := &types.BookPlan{
		Title:        "Moonsail",
		CoverConcept: "A tiny sailboat rising toward the moon.",
	}
	for i := 1; i <= pages; i++ {
		plan.Pages = append(plan.Pages, types.PageOutline{
			PageNumber:       i,
			SceneDescription: fmt.Sprintf("Scene %d.", i),
			MoodTone:         "hopeful",
			VisualElements:   []string{"sailboat"},
		})
	}
	return plan
}

var imageCast = []types.Character{
	{Name: "Pip", Role: types.RoleMain, Appearance: "a grey mouse", VisualCues: []string{"red scarf"}},
}

func collectingPersist(paths *sync.Map) PersistFunc {
	return func(pageNumber int, data []byte, mimeType string) (string, error) {
		path := fmt.Sprintf("pages/images/%d.png", pageNumber)
		paths.Store(pageNumber, data)
		return path, nil
	}
}

func TestGenerateAll(t *testing.T) {
	client := &llm.FakeClient{
		GenerateImageFunc: func(_ context.Context, prompt string) ([]byte, string, error) {
			return []byte("img:" + prompt[:10]), "image/png", nil
		},
	}

	var stored sync.Map
	results, err := GenerateAll(context.Background(), client, imagePlan(3), imageCast, collectingPersist(&stored), nil)
	require.NoError(t, err)
	require.Len(t, results, 4)

	// Cover first, then pages in order.
	assert.Equal(t, types.CoverPage, results[0].PageNumber)
	for i := 1; i <= 3; i++ {
		assert.Equal(t, i, results[i].PageNumber)
		assert.Equal(t, fmt.Sprintf("pages/images/%d.png", i), results[i].Path)
		assert.Empty(t, results[i].ErrorMessage)
	}

	for n := 0; n <= 3; n++ {
		_, ok := stored.Load(n)
		assert.True(t, ok, "page %d not persisted", n)
	}
}

func TestGenerateAll_PartialFailureKeepsSuccesses(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	client := &llm.FakeClient{
		GenerateImageFunc: func(_ context.Context, prompt string) ([]byte, string, error) {
			mu.Lock()
			calls++
			mu.Unlock()
			if strings.Contains(prompt, "Scene 3.") {
				return nil, "", errors.New("safety block")
			}
			return []byte("ok"), "image/png", nil
		},
	}

	var stored sync.Map
	results, err := GenerateAll(context.Background(), client, imagePlan(4), imageCast, collectingPersist(&stored), &Options{Workers: 2})
	require.Error(t, err)

	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, []int{3}, genErr.FailedPages)
	assert.Contains(t, err.Error(), "page 3")

	// Every other unit ran and was persisted despite the failure.
	assert.Equal(t, 5, calls)
	require.Len(t, results, 5)
	for _, n := range []int{0, 1, 2, 4} {
		_, ok := stored.Load(n)
		assert.True(t, ok, "page %d should be persisted", n)
	}
	_, ok := stored.Load(3)
	assert.False(t, ok)
	assert.NotEmpty(t, results[3+1-1].ErrorMessage)
}

func TestGenerateAll_PersistFailure(t *testing.T) {
	client := &llm.FakeClient{
		GenerateImageFunc: func(_ context.Context, _ string) ([]byte, string, error) {
			return []byte("ok"), "image/png", nil
		},
	}

	persist := func(pageNumber int, _ []byte, _ string) (string, error) {
		if pageNumber == types.CoverPage {
			return "", errors.New("disk full")
		}
		return fmt.Sprintf("pages/images/%d.png", pageNumber), nil
	}

	_, err := GenerateAll(context.Background(), client, imagePlan(1), imageCast, persist, nil)
	require.Error(t, err)

	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, []int{0}, genErr.FailedPages)
	assert.Contains(t, err.Error(), "cover")
}

func TestCoverPrompt_UsesMainCharacters(t *testing.T) {
	cast := []types.Character{
		{Name: "Pip", Role: types.RoleMain, Appearance: "a grey mouse", VisualCues: []string{"red scarf"}},
		{Name: "Crowd", Role: types.RoleBackground, Appearance: "village mice"},
	}
	prompt := CoverPrompt(imagePlan(1), cast, DefaultArtStyle)
	assert.Contains(t, prompt, "Moonsail")
	assert.Contains(t, prompt, "Pip: a grey mouse")
	assert.Contains(t, prompt, "always show: red scarf")
	assert.NotContains(t, prompt, "village mice")
}

func TestPagePrompt(t *testing.T) {
	plan := imagePlan(2)
	prompt := PagePrompt(plan, &plan.Pages[0], imageCast, "flat pastel")
	assert.Contains(t, prompt, "flat pastel")
	assert.Contains(t, prompt, "Scene 1.")
	assert.Contains(t, prompt, "hopeful")
	assert.Contains(t, prompt, "sailboat")
}

func TestRenderLog(t *testing.T) {
	log := RenderLog([]types.GeneratedImage{
		{PageNumber: 0, Path: "pages/images/cover.png"},
		{PageNumber: 1, ErrorMessage: "image error on page 1: image call failed: boom"},
	})
	assert.Contains(t, log, "cover: pages/images/cover.png")
	assert.Contains(t, log, "page 1: FAILED:")
}
