package stream

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/corvid-labs/agentgw/internal/domain"
)

// SSEWriter writes parts to an HTTP response as server-sent events, flushing
// after every part so clients see deltas as they happen.
type SSEWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewSSEWriter prepares the response for event streaming and writes headers.
func NewSSEWriter(w http.ResponseWriter) *SSEWriter {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	return &SSEWriter{w: w, flusher: flusher}
}

// WritePart emits one part event.
func (s *SSEWriter) WritePart(p domain.Part) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal part: %w", err)
	}
	if _, err := fmt.Fprintf(s.w, "event: part\ndata: %s\n\n", data); err != nil {
		return err
	}
	if s.flusher != nil {
		s.flusher.Flush()
	}
	return nil
}

// Sink adapts the writer to the stream sink signature.
func (s *SSEWriter) Sink() Sink {
	return s.WritePart
}
