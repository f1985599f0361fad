package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/bookforge/internal/config"
	"github.com/jonathan/bookforge/internal/db"
	"github.com/jonathan/bookforge/internal/llm"
	"github.com/jonathan/bookforge/internal/pipeline"
	"github.com/jonathan/bookforge/internal/store"
	"github.com/jonathan/bookforge/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeBookClient(pages int) *llm.FakeClient {
	return &llm.FakeClient{
		GenerateJSONFunc: func(_ context.Context, _ string, tier llm.ModelTier) (string, error) {
			switch tier {
			case llm.TierLite:
				return `{"name": "Pip", "appearance": "a round orange fox cub", "personality": "curious"}`, nil
			case llm.TierAdvanced:
				outlines := make([]map[string]any, 0, pages)
				for i := 1; i <= pages; i++ {
					outlines = append(outlines, map[string]any{
						"page_number":       i,
						"scene_description": fmt.Sprintf("Scene %d.", i),
					})
				}
				raw, _ := json.Marshal(map[string]any{
					"title":         "Pip Explores",
					"story_arc":     "Pip leaves the den, explores and returns home.",
					"cover_concept": "Pip peeking out of the den.",
					"pages":         outlines,
				})
				return string(raw), nil
			default:
				return `{"markdown": "Pip sniffed the morning air."}`, nil
			}
		},
		GenerateImageFunc: func(_ context.Context, _ string) ([]byte, string, error) {
			return []byte("png-bytes"), "image/png", nil
		},
	}
}

func newTestServer(t *testing.T) (*Server, *store.Store) {
	t.Helper()
	st, err := store.New(t.TempDir())
	require.NoError(t, err)

	cfg := config.Defaults()
	cfg.OutputDir = st.Root()

	orch, err := pipeline.NewOrchestrator(pipeline.Options{
		Config: &cfg,
		Store:  st,
		Client: fakeBookClient(2),
		Logger: log.New(io.Discard, "", 0),
	})
	require.NoError(t, err)

	srv, err := New(Config{Port: 0, Logger: log.New(io.Discard, "", 0)}, orch)
	require.NoError(t, err)
	return srv, st
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func submitRequest() *types.GenerateRequest {
	return &types.GenerateRequest{
		StoryIdea: "a curious fox cub",
		AgeGroup:  "3-6",
		Language:  "English",
		Pages:     2,
		Characters: []types.CharacterSpec{
			{Name: "Pip", Role: types.RoleMain, Source: types.SourceText, Description: "a fox cub"},
		},
	}
}

func waitForStatus(t *testing.T, srv *Server, runID, want string) types.StatusResponse {
	t.Helper()
	var status types.StatusResponse
	require.Eventually(t, func() bool {
		rec := doJSON(t, srv, http.MethodGet, "/status/"+runID, nil)
		if rec.Code != http.StatusOK {
			return false
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
			return false
		}
		return status.Status == want
	}, 5*time.Second, 10*time.Millisecond, "run never reached status %s", want)
	return status
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doJSON(t, srv, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status": "ok"}`, rec.Body.String())
}

func TestGenerate_FullLifecycle(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/generate", submitRequest())
	require.Equal(t, http.StatusAccepted, rec.Code)

	var submitted SubmitResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &submitted))
	require.NotEmpty(t, submitted.RunID)
	assert.Equal(t, "pending", submitted.Status)

	status := waitForStatus(t, srv, submitted.RunID, "completed")
	assert.Equal(t, 100, status.Percent)

	// Result reports the document path.
	rec = doJSON(t, srv, http.MethodGet, "/result/"+submitted.RunID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var result ResultResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.NotEmpty(t, result.DocumentPath)

	// Download serves the assembled book.
	rec = doJSON(t, srv, http.MethodGet, "/download/"+submitted.RunID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "book.html")
	assert.Contains(t, rec.Body.String(), "Pip Explores")

	// Artifact listing covers every stage.
	rec = doJSON(t, srv, http.MethodGet, "/runs/"+submitted.RunID+"/artifacts", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listing ArtifactListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listing))
	assert.Contains(t, listing.Artifacts, "plan/book_plan.json")
	assert.Contains(t, listing.Artifacts, "book/book.html")

	// A single artifact is served with its content type.
	rec = doJSON(t, srv, http.MethodGet, "/runs/"+submitted.RunID+"/artifacts/plan/book_plan.json", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "Pip Explores")

	// The run shows up in the listing.
	rec = doJSON(t, srv, http.MethodGet, "/runs", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), submitted.RunID)
}

func TestGenerateStream(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/generate/stream", submitRequest())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	body := rec.Body.String()
	assert.Contains(t, body, "event: stage")
	assert.Contains(t, body, `"stage":"planning"`)
	assert.Contains(t, body, "event: complete")
}

func TestGenerate_InvalidBody(t *testing.T) {
	srv, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/generate", bytes.NewReader([]byte("not json")))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGenerate_ValidationFailure(t *testing.T) {
	srv, _ := newTestServer(t)
	req := submitRequest()
	req.StoryIdea = ""
	rec := doJSON(t, srv, http.MethodPost, "/generate", req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatus_UnknownAndMalformedIDs(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/status/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/status/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestResult_UnknownRun(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doJSON(t, srv, http.MethodGet, "/result/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCancel_UnknownRun(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doJSON(t, srv, http.MethodPost, "/runs/"+uuid.NewString()+"/cancel", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestArtifacts_UnknownRun(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doJSON(t, srv, http.MethodGet, "/runs/"+uuid.NewString()+"/artifacts", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

type stubRegistry struct {
	runs    []db.Run
	lastErr error
	filters db.RunFilters
}

func (r *stubRegistry) ListRuns(_ context.Context, filters db.RunFilters) ([]db.Run, error) {
	r.filters = filters
	if r.lastErr != nil {
		return nil, r.lastErr
	}
	out := make([]db.Run, 0, len(r.runs))
	for _, run := range r.runs {
		if filters.Status == "" || run.Status == filters.Status {
			out = append(out, run)
		}
	}
	return out, nil
}

func TestListRuns_RegistryBacked(t *testing.T) {
	srv, _ := newTestServer(t)
	reg := &stubRegistry{runs: []db.Run{
		{ID: uuid.New(), Title: "Pip Explores", Status: "completed", Percent: 100},
		{ID: uuid.New(), Title: "Pip at Sea", Status: "failed", Percent: 37},
	}}
	srv.registry = reg

	rec := doJSON(t, srv, http.MethodGet, "/runs", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Pip Explores")
	assert.Contains(t, rec.Body.String(), "Pip at Sea")

	// Status and limit query parameters reach the registry.
	rec = doJSON(t, srv, http.MethodGet, "/runs?status=completed&limit=5", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, db.RunFilters{Status: "completed", Limit: 5}, reg.filters)
	assert.Contains(t, rec.Body.String(), "Pip Explores")
	assert.NotContains(t, rec.Body.String(), "Pip at Sea")

	rec = doJSON(t, srv, http.MethodGet, "/runs?limit=zero", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListRuns_StoreFallbackWithoutRegistry(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/generate", submitRequest())
	require.Equal(t, http.StatusAccepted, rec.Code)
	var submitted SubmitResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &submitted))
	waitForStatus(t, srv, submitted.RunID, "completed")

	rec = doJSON(t, srv, http.MethodGet, "/runs", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), submitted.RunID)
}
