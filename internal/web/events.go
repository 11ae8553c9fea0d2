package web

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/JonMunkholm/querydesk/internal/logging"
)

// handleEvents streams the workspace snapshot as SSE "state" events: once on
// connect, then after every change. Bursts of changes collapse into one event.
// The stream ends when the client goes away or the workspace closes.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, r, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	updates := s.ws.Subscribe()
	defer s.ws.Unsubscribe(updates)

	log := logging.FromContext(r.Context())
	var seq int

	send := func() bool {
		seq++
		data, err := json.Marshal(s.ws.Snapshot())
		if err != nil {
			log.Warn("encode state event", "error", err)
			return true
		}
		if _, err := fmt.Fprintf(w, "id: %d\nevent: state\ndata: %s\n\n", seq, data); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	if !send() {
		return
	}

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case _, open := <-updates:
			if !open {
				fmt.Fprint(w, "event: closed\ndata: {}\n\n")
				flusher.Flush()
				return
			}
			if !send() {
				log.Debug("event stream client gone")
				return
			}
		}
	}
}
