// Package illustration generates the cover and per-page images for a planned
// book. Pages are independent, so generation fans out over a bounded worker
// pool; each finished image is persisted immediately so a partial failure
// never discards completed work.
package illustration

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/jonathan/bookforge/internal/llm"
	"github.com/jonathan/bookforge/internal/prompts"
	"github.com/jonathan/bookforge/internal/types"
)

// DefaultWorkers bounds concurrent image model calls.
const DefaultWorkers = 3

// DefaultArtStyle is used when the request does not name one.
const DefaultArtStyle = "soft watercolor, warm colors, gentle lighting"

// PersistFunc stores a finished image and returns the path it was written to.
type PersistFunc func(pageNumber int, data []byte, mimeType string) (string, error)

// Options configures the image generation fan-out.
type Options struct {
	Workers  int
	ArtStyle string
}

func (o *Options) withDefaults() Options {
	opts := Options{Workers: DefaultWorkers, ArtStyle: DefaultArtStyle}
	if o == nil {
		return opts
	}
	if o.Workers > 0 {
		opts.Workers = o.Workers
	}
	if strings.TrimSpace(o.ArtStyle) != "" {
		opts.ArtStyle = o.ArtStyle
	}
	return opts
}

// GenerateAll produces the cover image (page 0) and one image per planned
// page. Failures of individual pages do not stop the others; every success
// is persisted through persist before GenerateAll returns. The returned
// slice always covers every unit, failed ones carry an ErrorMessage. If any
// unit failed, the error is a *GenerationError naming the failed pages.
func GenerateAll(ctx context.Context, client llm.Client, plan *types.BookPlan, characters []types.Character, persist PersistFunc, opts *Options) ([]types.GeneratedImage, error) {
	o := opts.withDefaults()

	units := make([]int, 0, plan.PageCount()+1)
	units = append(units, types.CoverPage)
	for _, page := range plan.Pages {
		units = append(units, page.PageNumber)
	}

	var mu sync.Mutex
	results := make([]types.GeneratedImage, 0, len(units))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.Workers)
	for _, pageNumber := range units {
		g.Go(func() error {
			result := generateOne(gctx, client, plan, characters, pageNumber, persist, o)
			mu.Lock()
			results = append(results, result)
			mu.Unlock()
			// Unit failures are collected, not propagated, so one bad page
			// does not cancel the rest of the pool.
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].PageNumber < results[j].PageNumber })

	var failed []int
	for _, r := range results {
		if r.ErrorMessage != "" {
			failed = append(failed, r.PageNumber)
		}
	}
	if len(failed) > 0 {
		return results, &GenerationError{FailedPages: failed}
	}
	return results, nil
}

func generateOne(ctx context.Context, client llm.Client, plan *types.BookPlan, characters []types.Character, pageNumber int, persist PersistFunc, opts Options) types.GeneratedImage {
	result := types.GeneratedImage{PageNumber: pageNumber}

	var prompt string
	if pageNumber == types.CoverPage {
		prompt = CoverPrompt(plan, characters, opts.ArtStyle)
	} else {
		outline := plan.Page(pageNumber)
		if outline == nil {
			result.ErrorMessage = fmt.Sprintf("no outline for page %d", pageNumber)
			return result
		}
		prompt = PagePrompt(plan, outline, characters, opts.ArtStyle)
	}
	result.PromptUsed = prompt

	if err := ctx.Err(); err != nil {
		result.ErrorMessage = err.Error()
		return result
	}

	data, mimeType, err := client.GenerateImage(ctx, prompt)
	if err != nil {
		result.ErrorMessage = (&ImageError{PageNumber: pageNumber, Message: "image call failed", Cause: err}).Error()
		return result
	}

	path, err := persist(pageNumber, data, mimeType)
	if err != nil {
		result.ErrorMessage = (&ImageError{PageNumber: pageNumber, Message: "failed to store image", Cause: err}).Error()
		return result
	}
	result.Path = path
	return result
}

// PagePrompt builds the image prompt for a story page.
func PagePrompt(plan *types.BookPlan, outline *types.PageOutline, characters []types.Character, artStyle string) string {
	template := prompts.MustGet("illustration.json", "page-image")
	return prompts.Format(template, map[string]string{
		"ArtStyle":         artStyle,
		"SceneDescription": outline.SceneDescription,
		"MoodTone":         outline.MoodTone,
		"VisualElements":   strings.Join(outline.VisualElements, ", "),
		"Characters":       visualCharacterBlock(presentCharacters(outline, characters)),
	})
}

// CoverPrompt builds the image prompt for the cover.
func CoverPrompt(plan *types.BookPlan, characters []types.Character, artStyle string) string {
	var mains []types.Character
	for _, c := range characters {
		if c.Role == types.RoleMain {
			mains = append(mains, c)
		}
	}
	if len(mains) == 0 {
		mains = characters
	}
	template := prompts.MustGet("illustration.json", "cover-image")
	return prompts.Format(template, map[string]string{
		"ArtStyle":     artStyle,
		"CoverConcept": plan.CoverConcept,
		"Title":        plan.Title,
		"Characters":   visualCharacterBlock(mains),
	})
}

// RenderLog formats the generation results for the run's image log.
func RenderLog(results []types.GeneratedImage) string {
	var b strings.Builder
	for _, r := range results {
		if r.ErrorMessage != "" {
			fmt.Fprintf(&b, "%s: FAILED: %s\n", pageLabel(r.PageNumber), r.ErrorMessage)
			continue
		}
		fmt.Fprintf(&b, "%s: %s\n", pageLabel(r.PageNumber), r.Path)
	}
	return b.String()
}

// visualCharacterBlock renders characters with the cues the image model
// needs to keep them consistent across pages.
func visualCharacterBlock(characters []types.Character) string {
	var b strings.Builder
	for _, c := range characters {
		fmt.Fprintf(&b, "- %s: %s", c.Name, c.Appearance)
		if len(c.VisualCues) > 0 {
			fmt.Fprintf(&b, " (always show: %s)", strings.Join(c.VisualCues, ", "))
		}
		b.WriteString("\n")
	}
	return b.String()
}

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
