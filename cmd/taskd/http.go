package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/darxtarr/txxt/internal/metrics"
)

// serveMetrics exposes liveness (/healthz), readiness (/readyz), and
// metrics over a thin net/http mux — not a routing framework, matching
// §4.5's "HTTP surface lives outside the core" contract. Runs until the
// process exits; a listener failure is logged and does not take down the
// session-serving half of the daemon.
func serveMetrics(addr string, m *metrics.Metrics) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if !m.Ready() {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("not ready"))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ready"))
	})
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(m.Snapshot())
	})

	fmt.Printf("taskd: metrics listening on %s\n", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		fmt.Fprintf(os.Stderr, "taskd: metrics listener stopped: %v\n", err)
	}
}
