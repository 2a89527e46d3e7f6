package core

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/thisdougb/dbprobe/internal/metrics"
)

// Counter names in the Dump() output.
const (
	CounterExecutions        = "executions"
	CounterFailures          = "failures"
	CounterThresholdExceeded = "threshold_exceeded"
	CounterDiagnostics       = "diagnostic_runs"
	CounterInterruptions     = "interruptions"
)

// State is the live view of a probe run. The loop writes it, HTTP handlers
// read it, so every access goes through the mutex.
type State struct {
	Identity        string
	Started         int64
	RollingDataSize int
	Counters        map[string]int
	LastDurationMs  int64
	LastSucceeded   bool
	LastError       string
	RollingMeanMs   float64
	Connected       bool

	rolling    *metrics.RollingMetric
	collectors *metrics.Collectors
	mu         sync.RWMutex
}

// NewState creates a state for the given identity. Sizes below 1 use the
// default rolling window of 10 samples.
func NewState(identity string, rollingDataSize int) *State {
	defaultIdentity := "identity unset"
	defaultRollingDataSize := 10

	if len(identity) == 0 {
		identity = defaultIdentity
	}
	if rollingDataSize < 1 {
		rollingDataSize = defaultRollingDataSize
	}

	return &State{
		Identity:        identity,
		Started:         time.Now().Unix(),
		RollingDataSize: rollingDataSize,
		Counters:        make(map[string]int),
		rolling:         metrics.NewRollingMetric(rollingDataSize),
		collectors:      metrics.NewCollectors(identity),
	}
}

// RecordExecution counts a successful execution and adds its duration to
// the rolling window.
func (s *State) RecordExecution(d time.Duration) {
	ms := d.Milliseconds()

	s.mu.Lock() // enter CRITICAL SECTION
	s.Counters[CounterExecutions]++
	s.LastDurationMs = ms
	s.LastSucceeded = true
	s.LastError = ""
	s.RollingMeanMs = s.rolling.Add(float64(ms))
	s.mu.Unlock() // end CRITICAL SECTION

	s.collectors.Executions.WithLabelValues("success").Inc()
	s.collectors.LastDuration.Set(float64(ms))
}

// RecordFailure counts a failed execution or an interrupted sleep.
func (s *State) RecordFailure(err error) {
	s.mu.Lock()
	s.Counters[CounterFailures]++
	s.LastSucceeded = false
	if err != nil {
		s.LastError = err.Error()
	}
	s.mu.Unlock()

	s.collectors.Executions.WithLabelValues("failure").Inc()
}

func (s *State) RecordThresholdExceeded() {
	s.mu.Lock()
	s.Counters[CounterThresholdExceeded]++
	s.mu.Unlock()
}

func (s *State) RecordDiagnostics() {
	s.mu.Lock()
	s.Counters[CounterDiagnostics]++
	s.mu.Unlock()

	s.collectors.Diagnostics.Inc()
}

// RecordInterrupted counts a run cut short during its sleep. No execution
// took place, so the execution outcome is left alone.
func (s *State) RecordInterrupted(err error) {
	s.mu.Lock()
	s.Counters[CounterInterruptions]++
	s.mu.Unlock()

	s.collectors.Interruptions.Inc()
}

func (s *State) SetConnected(connected bool) {
	s.mu.Lock()
	s.Connected = connected
	s.mu.Unlock()

	if connected {
		s.collectors.Connected.Set(1)
	} else {
		s.collectors.Connected.Set(0)
	}
}

// Counter returns the current value of a named counter.
func (s *State) Counter(name string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Counters[name]
}

// Healthy is true when the last iteration succeeded, or when nothing has
// run yet and a connection is open.
func (s *State) Healthy() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.Counters[CounterExecutions]+s.Counters[CounterFailures] == 0 {
		return s.Connected
	}
	return s.LastSucceeded
}

func (s *State) Collectors() *metrics.Collectors {
	return s.collectors
}

// Dump returns the state as indented JSON.
func (s *State) Dump() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := json.MarshalIndent(s, "", "    ")
	if err != nil {
		return fmt.Sprintf(`{"error": %q}`, err.Error())
	}
	return string(data)
}
