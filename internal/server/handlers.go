package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/jonathan/bookforge/internal/db"
	"github.com/jonathan/bookforge/internal/pipeline"
	"github.com/jonathan/bookforge/internal/store"
	"github.com/jonathan/bookforge/internal/types"
)

// SubmitResponse represents the response for /generate
type SubmitResponse struct {
	RunID  string `json:"run_id"`
	Status string `json:"status"`
}

// ResultResponse represents the response for /result
type ResultResponse struct {
	RunID        string `json:"run_id"`
	Status       string `json:"status"`
	DocumentPath string `json:"document_path"`
}

// ArtifactListResponse represents the response for /runs/{id}/artifacts
type ArtifactListResponse struct {
	RunID     string   `json:"run_id"`
	Artifacts []string `json:"artifacts"`
}

// handleGenerate submits a run and executes it in the background. The
// client polls /status/{id} for progress.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeRequest(w, r)
	if !ok {
		return
	}

	run, err := s.orch.Submit(r.Context(), req)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	s.logger.Printf("Starting book generation run %s", run.ID())
	go func() {
		if err := s.orch.Execute(context.Background(), run); err != nil {
			s.logger.Printf("Run %s failed: %v", run.ID(), err)
		}
	}()

	s.jsonResponse(w, http.StatusAccepted, SubmitResponse{
		RunID:  run.ID().String(),
		Status: string(pipeline.StatusPending),
	})
}

// handleGenerateStream submits a run and executes it synchronously,
// streaming stage progress via SSE.
func (s *Server) handleGenerateStream(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeRequest(w, r)
	if !ok {
		return
	}

	run, err := s.orch.Submit(r.Context(), req)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	run.SetProgressCallback(func(event pipeline.ProgressEvent) {
		if err := sse.WriteEvent("stage", event); err != nil {
			s.logger.Printf("Error writing SSE event: %v", err)
		}
	})

	s.logger.Printf("Starting streaming run %s", run.ID())
	if err := s.orch.Execute(r.Context(), run); err != nil {
		s.logger.Printf("Streaming run %s failed: %v", run.ID(), err)
		sse.WriteError(err.Error())
		return
	}
	sse.WriteComplete(run.ID().String(), string(pipeline.StatusCompleted))
}

// handleStatus returns the polling view of a run.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	runID, ok := s.parseRunID(w, r)
	if !ok {
		return
	}

	status, err := s.orch.Status(runID)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, status)
}

// handleResult returns the document path of a completed run.
func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	runID, ok := s.parseRunID(w, r)
	if !ok {
		return
	}

	docPath, err := s.orch.Result(runID)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, ResultResponse{
		RunID:        runID.String(),
		Status:       string(pipeline.StatusCompleted),
		DocumentPath: docPath,
	})
}

// handleDownload serves the assembled book document.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	runID, ok := s.parseRunID(w, r)
	if !ok {
		return
	}

	if _, err := s.orch.Result(runID); err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	art, err := s.orch.Store().Get(runID, store.DocumentKey())
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	w.Header().Set("Content-Type", art.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "book.html"))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(art.Data); err != nil {
		s.logger.Printf("Error writing document response: %v", err)
	}
}

// handleListRuns lists run history. When a database registry is
// configured it is authoritative and supports ?status= and ?limit=
// filters; otherwise the listing falls back to the artifact store.
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.registry != nil {
		filters := db.RunFilters{Status: r.URL.Query().Get("status")}
		if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
			limit, err := strconv.Atoi(limitStr)
			if err != nil || limit < 1 {
				s.errorResponse(w, http.StatusBadRequest, "Invalid limit parameter")
				return
			}
			filters.Limit = limit
		}

		runs, err := s.registry.ListRuns(r.Context(), filters)
		if err != nil {
			s.errorResponse(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.jsonResponse(w, http.StatusOK, map[string]any{"runs": runs})
		return
	}

	ids, err := s.orch.Store().ListRunIDs()
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	statuses := make([]types.StatusResponse, 0, len(ids))
	for _, id := range ids {
		status, err := s.orch.Status(id)
		if err != nil {
			continue // run directory without a readable record
		}
		statuses = append(statuses, status)
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"runs": statuses})
}

// handleCancel requests cancellation of a live run.
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	runID, ok := s.parseRunID(w, r)
	if !ok {
		return
	}

	if err := s.orch.Cancel(runID); err != nil {
		var notFound *pipeline.RunNotFoundError
		if errors.As(err, &notFound) {
			s.errorResponse(w, http.StatusNotFound, err.Error())
			return
		}
		s.errorResponse(w, http.StatusConflict, err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, SubmitResponse{
		RunID:  runID.String(),
		Status: "cancelling",
	})
}

// handleRunArtifacts lists the artifact keys of a run.
func (s *Server) handleRunArtifacts(w http.ResponseWriter, r *http.Request) {
	runID, ok := s.parseRunID(w, r)
	if !ok {
		return
	}

	// Reject unknown runs rather than returning an empty listing.
	if _, err := s.orch.Status(runID); err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	keys, err := s.orch.Store().List(runID)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	artifacts := make([]string, 0, len(keys))
	for _, key := range keys {
		artifacts = append(artifacts, string(key))
	}
	s.jsonResponse(w, http.StatusOK, ArtifactListResponse{
		RunID:     runID.String(),
		Artifacts: artifacts,
	})
}

// handleRunArtifact serves one artifact by its run-relative key.
func (s *Server) handleRunArtifact(w http.ResponseWriter, r *http.Request) {
	runID, ok := s.parseRunID(w, r)
	if !ok {
		return
	}
	key := r.PathValue("key")
	if key == "" {
		s.errorResponse(w, http.StatusBadRequest, "Artifact key is required")
		return
	}

	art, err := s.orch.Store().Get(runID, store.Key(key))
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	w.Header().Set("Content-Type", art.ContentType)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(art.Data); err != nil {
		s.logger.Printf("Error writing artifact response: %v", err)
	}
}

// decodeRequest parses and reports errors for a generation request body.
func (s *Server) decodeRequest(w http.ResponseWriter, r *http.Request) (*types.GenerateRequest, bool) {
	var req types.GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return nil, false
	}
	return &req, true
}

// parseRunID extracts and validates the {id} path value.
func (s *Server) parseRunID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	idStr := r.PathValue("id")
	if idStr == "" {
		s.errorResponse(w, http.StatusBadRequest, "Run ID is required")
		return uuid.Nil, false
	}
	runID, err := uuid.Parse(idStr)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid run ID format")
		return uuid.Nil, false
	}
	return runID, true
}
