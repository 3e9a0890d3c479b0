package main

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/yangzai4413/AutoSkyProject/nav"
)

// newHTTPServer creates an HTTP server exposing the run status.
func newHTTPServer(tracker *nav.StatusTracker, runner *nav.Runner, config *nav.Config) http.Handler {
	mux := http.NewServeMux()

	// Health check endpoint
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		status := struct {
			Status    string    `json:"status"`
			Timestamp time.Time `json:"timestamp"`
			RunID     string    `json:"runId"`
			Ticks     uint64    `json:"ticks"`
		}{
			Status:    "ok",
			Timestamp: time.Now(),
			RunID:     runner.RunID(),
			Ticks:     tracker.Ticks(),
		}
		if err := json.NewEncoder(w).Encode(status); err != nil {
			log.Printf("Error encoding health status: %v", err)
		}
	})

	// Latest navigation status endpoint
	mux.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
		latest, ok := tracker.Latest()
		if !ok {
			http.Error(w, "No status yet", http.StatusServiceUnavailable)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-cache")
		response := struct {
			nav.StatusUpdate
			Ticks  uint64  `json:"ticks"`
			Uptime float64 `json:"uptimeSeconds"`
			Mode   string  `json:"mode"`
		}{
			StatusUpdate: latest,
			Ticks:        tracker.Ticks(),
			Uptime:       tracker.Uptime().Seconds(),
			Mode:         config.Mode,
		}
		if err := json.NewEncoder(w).Encode(response); err != nil {
			log.Printf("Error encoding status: %v", err)
		}
	})

	return mux
}
