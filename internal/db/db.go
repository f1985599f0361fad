// Package db provides an optional PostgreSQL registry of generation runs.
// The filesystem artifact store is authoritative; the registry exists so
// the serve surface can list and filter runs across output directories.
package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB wraps a PostgreSQL connection pool
type DB struct {
	pool *pgxpool.Pool
}

// Connect establishes a connection pool to the database
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Close closes the connection pool
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// EnsureSchema creates the book_runs table if it does not exist.
func (db *DB) EnsureSchema(ctx context.Context) error {
	_, err := db.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS book_runs (
			id            UUID PRIMARY KEY,
			title         TEXT NOT NULL DEFAULT '',
			age_group     TEXT NOT NULL DEFAULT '',
			language      TEXT NOT NULL DEFAULT '',
			pages         INT  NOT NULL DEFAULT 0,
			status        TEXT NOT NULL DEFAULT 'pending',
			percent       INT  NOT NULL DEFAULT 0,
			current_stage TEXT NOT NULL DEFAULT '',
			error         TEXT NOT NULL DEFAULT '',
			document_path TEXT NOT NULL DEFAULT '',
			created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			completed_at  TIMESTAMPTZ
		)`)
	if err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

// CreateRun records a newly accepted generation run
func (db *DB) CreateRun(ctx context.Context, runID uuid.UUID, title, ageGroup, language string, pages int) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO book_runs (id, title, age_group, language, pages, status)
		 VALUES ($1, $2, $3, $4, $5, 'pending')`,
		runID, title, ageGroup, language, pages,
	)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

// UpdateProgress mirrors a status transition onto the registry
func (db *DB) UpdateProgress(ctx context.Context, runID uuid.UUID, status string, percent int, currentStage string) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE book_runs SET status = $1, percent = $2, current_stage = $3 WHERE id = $4`,
		status, percent, currentStage, runID,
	)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	return nil
}

// CompleteRun marks a run terminal with its outcome
func (db *DB) CompleteRun(ctx context.Context, runID uuid.UUID, status string, percent int, errMsg, documentPath string) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE book_runs
		 SET status = $1, percent = $2, error = $3, document_path = $4, completed_at = NOW()
		 WHERE id = $5`,
		status, percent, errMsg, documentPath, runID,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	return nil
}

// GetRun retrieves a run by ID, nil if not found
func (db *DB) GetRun(ctx context.Context, runID uuid.UUID) (*Run, error) {
	var run Run
	err := db.pool.QueryRow(ctx,
		`SELECT id, title, age_group, language, pages, status, percent, current_stage,
		        error, document_path, created_at, completed_at
		 FROM book_runs WHERE id = $1`,
		runID,
	).Scan(&run.ID, &run.Title, &run.AgeGroup, &run.Language, &run.Pages, &run.Status,
		&run.Percent, &run.CurrentStage, &run.Error, &run.DocumentPath, &run.CreatedAt, &run.CompletedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return &run, nil
}

// RunFilters holds optional filters for listing runs
type RunFilters struct {
	Status string
	Limit  int
}

// ListRuns retrieves recent runs with optional filters
func (db *DB) ListRuns(ctx context.Context, filters RunFilters) ([]Run, error) {
	if filters.Limit == 0 {
		filters.Limit = 50
	}

	query := `SELECT id, title, age_group, language, pages, status, percent, current_stage,
	                 error, document_path, created_at, completed_at
	          FROM book_runs WHERE 1=1`
	args := []any{}
	argNum := 1

	if filters.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argNum)
		args = append(args, filters.Status)
		argNum++
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", argNum)
	args = append(args, filters.Limit)

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		if err := rows.Scan(&run.ID, &run.Title, &run.AgeGroup, &run.Language, &run.Pages,
			&run.Status, &run.Percent, &run.CurrentStage, &run.Error, &run.DocumentPath,
			&run.CreatedAt, &run.CompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, nil
}

// DeleteRun removes a run record
func (db *DB) DeleteRun(ctx context.Context, runID uuid.UUID) error {
	result, err := db.pool.Exec(ctx, `DELETE FROM book_runs WHERE id = $1`, runID)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("run not found: %s", runID)
	}
	return nil
}
