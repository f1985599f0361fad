package main

import (
	"testing"

	"github.com/jonathan/bookforge/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCharacterSpec(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    types.CharacterSpec
		wantErr string
	}{
		{
			name:  "full spec",
			input: "Luna:secondary:a silver wolf pup with blue eyes",
			want: types.CharacterSpec{
				Name:        "Luna",
				Role:        types.RoleSecondary,
				Source:      types.SourceText,
				Description: "a silver wolf pup with blue eyes",
			},
		},
		{
			name:  "empty role defaults to main",
			input: "Pip::a round orange fox cub",
			want: types.CharacterSpec{
				Name:        "Pip",
				Role:        types.RoleMain,
				Source:      types.SourceText,
				Description: "a round orange fox cub",
			},
		},
		{
			name:  "unknown role coerced to main",
			input: "Pip:villain:a grumpy badger",
			want: types.CharacterSpec{
				Name:        "Pip",
				Role:        types.RoleMain,
				Source:      types.SourceText,
				Description: "a grumpy badger",
			},
		},
		{
			name:  "description may contain colons",
			input: "Pip:main:a fox cub: small, orange, loud",
			want: types.CharacterSpec{
				Name:        "Pip",
				Role:        types.RoleMain,
				Source:      types.SourceText,
				Description: "a fox cub: small, orange, loud",
			},
		},
		{
			name:    "missing role slot",
			input:   "Pip:a fox cub",
			wantErr: "expected",
		},
		{
			name:    "missing name",
			input:   ":main:a fox cub",
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			input:   "Pip:main:",
			wantErr: "description is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseCharacterSpec(tt.input)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
