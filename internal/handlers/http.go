package handlers

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// StateInterface defines what the handlers need from the probe state
type StateInterface interface {
	Dump() string
	Healthy() bool
}

// HealthHandler returns an HTTP handler that serves the probe state as JSON
func HealthHandler(state StateInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "%s\n", state.Dump())
	}
}

// StatusHandler returns a simple UP/DOWN status endpoint.
// 200 while the last iteration succeeded, 503 otherwise.
func StatusHandler(state StateInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		if !state.Healthy() {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprintf(w, "DOWN\n")
			return
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "UP\n")
	}
}

// MetricsHandler serves the Prometheus registry in the text exposition format
func MetricsHandler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// NewMux wires the three endpoints under /health, /status and /metrics
func NewMux(state StateInterface, registry *prometheus.Registry) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", HealthHandler(state))
	mux.HandleFunc("/status", StatusHandler(state))
	mux.Handle("/metrics", MetricsHandler(registry))
	return mux
}
