package pipeline

import (
	"context"
	"log"

	"github.com/jonathan/bookforge/internal/store"
)

// StageResult is the transient outcome of one stage execution.
type StageResult struct {
	Stage        string
	OK           bool
	ArtifactKeys []store.Key
	Err          error
}

// StageFunc is one stage's transformation. It reads prior artifacts from
// the execution state, calls the external services, persists its outputs
// and returns the keys it produced. A fan-out stage persists every
// successful unit before returning its collected error.
type StageFunc func(ctx context.Context) ([]store.Key, error)

// StageRunner executes a single stage and converts any error into a
// StageResult. It performs no retries; retry policy belongs to whoever
// re-submits a run.
type StageRunner struct {
	logger *log.Logger
}

// NewStageRunner creates a runner logging through the given logger.
func NewStageRunner(logger *log.Logger) *StageRunner {
	if logger == nil {
		logger = log.Default()
	}
	return &StageRunner{logger: logger}
}

// Run executes fn for the named stage.
func (sr *StageRunner) Run(ctx context.Context, stage string, fn StageFunc) StageResult {
	keys, err := fn(ctx)
	if err != nil {
		sr.logger.Printf("stage %s: %v", stage, err)
		return StageResult{Stage: stage, ArtifactKeys: keys, Err: err}
	}
	return StageResult{Stage: stage, OK: true, ArtifactKeys: keys}
}
