package handlers

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/thisdougb/dbprobe/internal/core"
)

func TestHealthHandler(t *testing.T) {

	state := core.NewState("probe-under-test", 5)
	state.RecordExecution(12 * time.Millisecond)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	HealthHandler(state)(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type %s", ct)
	}
	if !strings.Contains(rec.Body.String(), "\"Identity\": \"probe-under-test\"") {
		t.Errorf("identity missing from %s", rec.Body.String())
	}
}

func TestStatusHandler(t *testing.T) {

	var TestCases = []struct {
		description string
		prepare     func(*core.State)
		code        int
		body        string
	}{
		{
			description: "not connected",
			prepare:     func(s *core.State) {},
			code:        http.StatusServiceUnavailable,
			body:        "DOWN\n",
		},
		{
			description: "connected, no iterations yet",
			prepare:     func(s *core.State) { s.SetConnected(true) },
			code:        http.StatusOK,
			body:        "UP\n",
		},
		{
			description: "last iteration failed",
			prepare: func(s *core.State) {
				s.SetConnected(true)
				s.RecordExecution(time.Millisecond)
				s.RecordFailure(errors.New("boom"))
			},
			code: http.StatusServiceUnavailable,
			body: "DOWN\n",
		},
		{
			description: "last iteration succeeded",
			prepare: func(s *core.State) {
				s.RecordFailure(errors.New("boom"))
				s.RecordExecution(time.Millisecond)
			},
			code: http.StatusOK,
			body: "UP\n",
		},
	}

	for _, tc := range TestCases {
		state := core.NewState("t", 1)
		tc.prepare(state)

		rec := httptest.NewRecorder()
		StatusHandler(state)(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

		if rec.Code != tc.code || rec.Body.String() != tc.body {
			t.Errorf("%s: got %d %q", tc.description, rec.Code, rec.Body.String())
		}
	}
}

func TestMuxServesMetrics(t *testing.T) {

	state := core.NewState("metrics-test", 5)
	state.RecordExecution(7 * time.Millisecond)
	state.RecordDiagnostics()

	srv := httptest.NewServer(NewMux(state, state.Collectors().Registry))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	for _, want := range []string{
		`dbprobe_executions_total{identity="metrics-test",result="success"} 1`,
		`dbprobe_diagnostic_runs_total{identity="metrics-test"} 1`,
		`dbprobe_last_duration_milliseconds{identity="metrics-test"} 7`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
