package server

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// SSEWriter streams run progress to a client as Server-Sent Events. Every
// frame carries an event name and a JSON payload, flushed immediately so
// stage transitions reach the client as they happen.
type SSEWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewSSEWriter prepares w for event streaming. It fails when the response
// writer cannot flush, since buffered progress defeats the point.
func NewSSEWriter(w http.ResponseWriter) (*SSEWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support streaming")
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("Access-Control-Allow-Origin", "*")

	return &SSEWriter{w: w, flusher: flusher}, nil
}

// WriteEvent marshals data and flushes a single named frame.
func (s *SSEWriter) WriteEvent(event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, payload); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// WriteError reports a terminal failure to the client.
func (s *SSEWriter) WriteError(message string) {
	s.WriteEvent("error", map[string]string{"error": message}) //nolint:errcheck
}

// WriteComplete closes the stream with the final run state.
func (s *SSEWriter) WriteComplete(runID, status string) {
	s.WriteEvent("complete", map[string]string{ //nolint:errcheck
		"run_id": runID,
		"status": status,
	})
}
