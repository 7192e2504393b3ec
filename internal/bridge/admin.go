package bridge

import (
	"encoding/json"
	"fmt"
	"net/http"

	"tailscale.com/tsweb"

	"github.com/banshee-data/nao-lola/internal/lola"
)

// tailDepth bounds the frame summaries buffered for one tail client.
const tailDepth = 16

// AttachAdminRoutes attaches bridge debugging endpoints to the given HTTP mux
// served at /debug/.
func (b *Bridge) AttachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)

	debug.HandleFunc("lola-frame", "last transmitted command frame", func(w http.ResponseWriter, r *http.Request) {
		sum, frame, ok := b.LastFrame()
		if !ok {
			http.Error(w, "No frame transmitted yet", http.StatusNotFound)
			return
		}
		writeJSON(w, struct {
			Summary FrameSummary      `json:"summary"`
			Frame   lola.CommandFrame `json:"frame"`
		}{sum, frame})
	})

	debug.HandleFunc("lola-stats", "control loop counters", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, b.Stats())
	})

	// Server-Sent Events stream of frame summaries.
	debug.HandleSilentFunc("lola-tail", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no") // Disable buffering for nginx

		sub := b.bus.Subscribe(FramesTopic, tailDepth)
		defer sub.Unsubscribe()

		w.Write([]byte(": ping\n\n"))
		flusher.Flush()

		for {
			select {
			case msg, ok := <-sub.Channel():
				if !ok {
					return
				}
				data, err := json.Marshal(msg.Payload)
				if err != nil {
					continue
				}
				if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
					return
				}
				flusher.Flush()
			case <-r.Context().Done():
				return
			}
		}
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		http.Error(w, fmt.Sprintf("Failed to encode response: %v", err), http.StatusInternalServerError)
	}
}
