package db

import (
	"time"

	"github.com/google/uuid"
)

// Run is a registry record of one book generation attempt
type Run struct {
	ID           uuid.UUID  `json:"id"`
	Title        string     `json:"title"`
	AgeGroup     string     `json:"age_group"`
	Language     string     `json:"language"`
	Pages        int        `json:"pages"`
	Status       string     `json:"status"`
	Percent      int        `json:"percent"`
	CurrentStage string     `json:"current_stage,omitempty"`
	Error        string     `json:"error,omitempty"`
	DocumentPath string     `json:"document_path,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}
