package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// SSE writes Server-Sent Events to a response, flushing after each event.
type SSE struct {
	w http.ResponseWriter
	f http.Flusher
}

// StartSSE writes the event-stream headers and a 200 status.
func StartSSE(w http.ResponseWriter) *SSE {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	f, _ := w.(http.Flusher)
	s := &SSE{w: w, f: f}
	s.flush()
	return s
}

// Send writes data as a JSON event. An empty event name omits the event line.
func (s *SSE) Send(event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}

	if event != "" {
		if _, err := fmt.Fprintf(s.w, "event: %s\n", event); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", payload); err != nil {
		return err
	}
	s.flush()
	return nil
}

// Done writes the terminating [DONE] marker.
func (s *SSE) Done() {
	fmt.Fprint(s.w, "data: [DONE]\n\n")
	s.flush()
}

func (s *SSE) flush() {
	if s.f != nil {
		s.f.Flush()
	}
}
