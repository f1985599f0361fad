// Package characters extracts structured character records from user-supplied
// text descriptions or reference images, for consistent use across all pages.
package characters

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jonathan/bookforge/internal/llm"
	"github.com/jonathan/bookforge/internal/prompts"
	"github.com/jonathan/bookforge/internal/types"
)

// extractedRecord mirrors the JSON shape the extraction prompts request.
type extractedRecord struct {
	Name        string   `json:"name"`
	Appearance  string   `json:"appearance"`
	Personality string   `json:"personality"`
	VisualCues  []string `json:"visual_cues"`
}

// Extract produces a structured character record from one character spec.
func Extract(ctx context.Context, client llm.Client, spec types.CharacterSpec) (*types.Character, error) {
	var (
		responseText string
		err          error
	)

	switch spec.Source {
	case types.SourceImages:
		responseText, err = extractFromImages(ctx, client, spec)
	default:
		responseText, err = extractFromText(ctx, client, spec)
	}
	if err != nil {
		return nil, err
	}

	var record extractedRecord
	if err := json.Unmarshal([]byte(llm.CleanJSONBlock(responseText)), &record); err != nil {
		return nil, &ParseError{
			Message: fmt.Sprintf("failed to parse character record for %q", spec.Name),
			Cause:   err,
		}
	}

	character := &types.Character{
		Name:        spec.Name,
		Role:        types.NormalizeRole(spec.Role),
		Source:      spec.Source,
		Appearance:  strings.TrimSpace(record.Appearance),
		Personality: strings.TrimSpace(record.Personality),
		VisualCues:  record.VisualCues,
	}
	if character.Appearance == "" {
		return nil, &ParseError{
			Message: fmt.Sprintf("character record for %q has no appearance", spec.Name),
		}
	}
	return character, nil
}

// ExtractAll processes every character spec in order.
func ExtractAll(ctx context.Context, client llm.Client, specs []types.CharacterSpec) ([]types.Character, error) {
	result := make([]types.Character, 0, len(specs))
	for _, spec := range specs {
		character, err := Extract(ctx, client, spec)
		if err != nil {
			return nil, fmt.Errorf("character %q: %w", spec.Name, err)
		}
		result = append(result, *character)
	}
	return result, nil
}

func extractFromText(ctx context.Context, client llm.Client, spec types.CharacterSpec) (string, error) {
	template := prompts.MustGet("characters.json", "extract-from-text")
	prompt := prompts.Format(template, map[string]string{
		"Name":        spec.Name,
		"Role":        string(spec.Role),
		"Description": spec.Description,
	})

	responseText, err := client.GenerateJSON(ctx, prompt, llm.TierLite)
	if err != nil {
		return "", &APICallError{
			Message: fmt.Sprintf("character extraction for %q", spec.Name),
			Cause:   err,
		}
	}
	return responseText, nil
}

func extractFromImages(ctx context.Context, client llm.Client, spec types.CharacterSpec) (string, error) {
	if len(spec.ImagePaths) == 0 {
		return "", &APICallError{
			Message: fmt.Sprintf("character %q declares image source but no image paths", spec.Name),
		}
	}

	images := make([]llm.ImageInput, 0, len(spec.ImagePaths))
	for _, path := range spec.ImagePaths {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", &APICallError{
				Message: fmt.Sprintf("failed to read character image %s", path),
				Cause:   err,
			}
		}
		images = append(images, llm.ImageInput{
			Format: imageFormat(path),
			Data:   data,
		})
	}

	template := prompts.MustGet("characters.json", "extract-from-images")
	prompt := prompts.Format(template, map[string]string{
		"Name":  spec.Name,
		"Role":  string(spec.Role),
		"Extra": spec.Description,
	})

	responseText, err := client.DescribeImages(ctx, prompt, images)
	if err != nil {
		return "", &APICallError{
			Message: fmt.Sprintf("character image description for %q", spec.Name),
			Cause:   err,
		}
	}
	return responseText, nil
}

// imageFormat derives the provider image format from a file extension.
func imageFormat(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return "jpeg"
	case ".webp":
		return "webp"
	case ".gif":
		return "gif"
	default:
		return "png"
	}
}
