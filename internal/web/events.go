package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/hpungsan/pocket/internal/errors"
	"github.com/hpungsan/pocket/internal/library"
)

// keepAliveInterval spaces comment lines that keep idle streams open.
const keepAliveInterval = 15 * time.Second

// HandleEvents handles GET /events: a Server-Sent Events stream with one
// "library" event per watcher update. The stream opens with a "hello"
// event carrying the current version.
func (h *Handlers) HandleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		h.renderer.renderError(w, r, errors.NewInternal(fmt.Errorf("streaming unsupported")))
		return
	}

	updates := make(chan library.Update, 8)
	cancel := h.watcher.OnChange(func(u library.Update) {
		select {
		case updates <- u:
		default:
			// Slow client; it will catch up on the next update
		}
	})
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	writeEvent(w, "hello", library.Update{Version: h.watcher.Version()})
	flusher.Flush()

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case u := <-updates:
			writeEvent(w, "library", u)
			flusher.Flush()
		case <-ticker.C:
			_, _ = fmt.Fprint(w, ": keep-alive\n\n")
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, name string, u library.Update) {
	data, err := json.Marshal(u)
	if err != nil {
		return
	}
	_, _ = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data)
}
