package handler

import (
	"fmt"
	"net/http"
	"time"
)

// keepAliveInterval bounds how long an idle event stream goes without a
// comment line, so proxies do not cut the connection.
const keepAliveInterval = 30 * time.Second

// streamEvents exposes the loading-state bus as a server-sent event stream.
// Clients subscribe once and react to every navigation start, including
// ones other clients caused.
func (s *Server) streamEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "internal", "streaming unsupported")
		return
	}

	events, cancel := s.events.Subscribe()
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-keepAlive.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case ev, open := <-events:
			if !open {
				return
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: {}\n\n", ev.Kind); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
