// Package types provides type definitions for structured data used throughout the bookforge system.
package types

import "strings"

// CharacterRole classifies how prominent a character is in the story.
type CharacterRole string

// Character role constants
const (
	RoleMain       CharacterRole = "main"
	RoleSecondary  CharacterRole = "secondary"
	RoleBackground CharacterRole = "background"
)

// DescriptionSource records how a character description was produced.
type DescriptionSource string

// Description source constants
const (
	SourceText   DescriptionSource = "text"
	SourceImages DescriptionSource = "images"
)

// CharacterSpec is the caller-supplied definition of a character before extraction.
type CharacterSpec struct {
	Name        string            `json:"name" validate:"required,min=1"`
	Role        CharacterRole     `json:"role" validate:"required,oneof=main secondary background"`
	Source      DescriptionSource `json:"source" validate:"required,oneof=text images"`
	Description string            `json:"description,omitempty"`
	ImagePaths  []string          `json:"image_paths,omitempty"`
}

// Character is the structured character record produced by the extraction stage.
// It is threaded unchanged through planning, text and image generation.
type Character struct {
	Name        string            `json:"name"`
	Role        CharacterRole     `json:"role"`
	Source      DescriptionSource `json:"source"`
	Appearance  string            `json:"appearance"`
	Personality string            `json:"personality"`
	VisualCues  []string          `json:"visual_cues,omitempty"`
}

// Slug returns a filesystem-safe identifier for the character.
func (c *Character) Slug() string {
	s := strings.ToLower(strings.TrimSpace(c.Name))
	s = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, s)
	return strings.Trim(s, "_")
}

// NormalizeRole coerces an unknown role value to the main role.
func NormalizeRole(role CharacterRole) CharacterRole {
	switch role {
	case RoleMain, RoleSecondary, RoleBackground:
		return role
	default:
		return RoleMain
	}
}
