// ABOUTME: Server-Sent Events endpoint streaming reminder state changes
// ABOUTME: Sends a reconnect-delay hint on open; no history replay

package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/chime-sh/chime/internal/metrics"
)

// handleEvents handles GET /api/events. It opens a long-lived SSE stream
// carrying the reminder event catalogue. The first frame is a retry hint so
// disconnected clients reconnect after a bounded delay; clients needing full
// state fetch /api/state on (re)connect — events are not replayed.
func (g *Gateway) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		g.logger.Error("streaming not supported")
		g.sendJSONError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	// Subscription is torn down automatically when the client disconnects.
	events, subID := g.bus.Subscribe(r.Context())
	metrics.EventSubscribers.Inc()
	defer metrics.EventSubscribers.Dec()

	g.logger.Debug("event stream opened", "sub_id", subID)

	// Reconnect-delay hint, then an open marker.
	fmt.Fprintf(w, "retry: %d\n\n", g.config.Events.RetryHint.Milliseconds())
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	heartbeat := time.NewTicker(g.config.Events.HeartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			g.logger.Debug("event stream closed", "sub_id", subID)
			return

		case <-heartbeat.C:
			// SSE comment keeps intermediaries from timing out the stream.
			fmt.Fprint(w, ": heartbeat\n\n")
			flusher.Flush()

		case ev, ok := <-events:
			if !ok {
				return
			}

			data, err := json.Marshal(ev.Payload)
			if err != nil {
				g.logger.Error("failed to marshal event payload", "event", ev.Name, "error", err)
				continue
			}

			fmt.Fprintf(w, "event: %s\n", ev.Name)
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}
