package pipeline

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/bookforge/internal/types"
)

// Status is the lifecycle state of a Run.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// IsTerminal reports whether the status is final.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// RunRecord is the serializable state of a Run, persisted as run.json in
// the run directory after every transition.
type RunRecord struct {
	ID           uuid.UUID              `json:"id"`
	CreatedAt    time.Time              `json:"created_at"`
	CompletedAt  *time.Time             `json:"completed_at,omitempty"`
	Request      *types.GenerateRequest `json:"request"`
	Stages       []string               `json:"stages"`
	StageIndex   int                    `json:"stage_index"`
	Status       Status                 `json:"status"`
	Percent      int                    `json:"percent"`
	Error        string                 `json:"error,omitempty"`
	DocumentPath string                 `json:"document_path,omitempty"`
}

// CurrentStage returns the stage the run is positioned at, or "" past the end.
func (r *RunRecord) CurrentStage() string {
	if r.StageIndex >= 0 && r.StageIndex < len(r.Stages) {
		return r.Stages[r.StageIndex]
	}
	return ""
}

// StatusResponse converts the record to the polling contract.
func (r *RunRecord) StatusResponse() types.StatusResponse {
	resp := types.StatusResponse{
		RunID:   r.ID.String(),
		Status:  string(r.Status),
		Percent: r.Percent,
		Error:   r.Error,
	}
	if r.Status == StatusRunning {
		resp.CurrentStage = r.CurrentStage()
	}
	return resp
}

// Run is the live, mutex-guarded state of one generation attempt. The
// orchestrator goroutine mutates it; status polls read snapshots.
type Run struct {
	mu        sync.RWMutex
	record    RunRecord
	cancelled atomic.Bool
	progress  ProgressCallback
}

// NewRun creates a pending Run for a validated request.
func NewRun(req *types.GenerateRequest, stages []string) *Run {
	return &Run{
		record: RunRecord{
			ID:        uuid.New(),
			CreatedAt: time.Now().UTC(),
			Request:   req,
			Stages:    stages,
			Status:    StatusPending,
		},
	}
}

// ID returns the run identifier.
func (r *Run) ID() uuid.UUID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.record.ID
}

// Snapshot returns a copy of the current record.
func (r *Run) Snapshot() RunRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	record := r.record
	record.Stages = append([]string(nil), r.record.Stages...)
	return record
}

// SetProgressCallback attaches a per-run progress observer, used by the
// streaming surface. It takes effect for events emitted after the call and
// supplements the orchestrator-wide callback.
func (r *Run) SetProgressCallback(cb ProgressCallback) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress = cb
}

func (r *Run) progressCallback() ProgressCallback {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.progress
}

// Cancel marks the run for cancellation. The orchestrator observes the
// flag at the next stage boundary; a terminal run ignores it.
func (r *Run) Cancel() {
	r.cancelled.Store(true)
}

// Cancelled reports whether cancellation was requested.
func (r *Run) Cancelled() bool {
	return r.cancelled.Load()
}

func (r *Run) setRunning() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record.Status = StatusRunning
}

// advance moves past a successfully completed stage. Percent is derived
// from the stage index and never decreases.
func (r *Run) advance() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record.StageIndex++
	if percent := r.record.StageIndex * 100 / len(r.record.Stages); percent > r.record.Percent {
		r.record.Percent = percent
	}
}

func (r *Run) fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	r.record.Status = StatusFailed
	r.record.Error = err.Error()
	r.record.CompletedAt = &now
}

func (r *Run) complete() {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	r.record.Status = StatusCompleted
	r.record.Percent = 100
	r.record.CompletedAt = &now
}

func (r *Run) setDocumentPath(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record.DocumentPath = path
}
