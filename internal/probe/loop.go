package probe

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/thisdougb/dbprobe/internal/config"
	"github.com/thisdougb/dbprobe/internal/connection"
	"github.com/thisdougb/dbprobe/internal/diagnostics"
)

var ErrNoConnection = errors.New("no database connection available")

// Diagnoser runs the diagnostic battery against the probe's session.
type Diagnoser interface {
	Run(ctx context.Context, session diagnostics.Session) error
}

// Recorder receives the outcome of every iteration.
type Recorder interface {
	RecordExecution(d time.Duration)
	RecordFailure(err error)
	RecordThresholdExceeded()
	RecordDiagnostics()
	RecordInterrupted(err error)
	SetConnected(connected bool)
}

// IterationResult is the outcome of a single timed execution.
type IterationResult struct {
	Index     int
	Duration  time.Duration
	Succeeded bool
	Diagnosed bool
}

// Summary describes a finished run. AverageMs is only meaningful when
// HasAverage is set, which requires at least one attempted iteration.
// AverageMs divides the total by Attempted, not by the configured count.
type Summary struct {
	Attempted      int
	Succeeded      int
	Failed         int
	DiagnosticRuns int
	TotalMs        int64
	AverageMs      float64
	HasAverage     bool
	Interrupted    bool
}

// Loop executes the probe query, times it, and runs diagnostics when an
// execution is slower than the threshold. Iterations run strictly one
// after another on a single connection.
type Loop struct {
	cfg       config.ProbeConfig
	manager   *connection.Manager
	diagnoser Diagnoser
	recorder  Recorder
	observer  func(IterationResult)
	now       func() time.Time
}

type Option func(*Loop)

func WithRecorder(r Recorder) Option {
	return func(l *Loop) { l.recorder = r }
}

// WithObserver is called after each iteration, before the sleep.
func WithObserver(fn func(IterationResult)) Option {
	return func(l *Loop) { l.observer = fn }
}

// WithClock replaces time.Now for measuring executions.
func WithClock(now func() time.Time) Option {
	return func(l *Loop) { l.now = now }
}

func NewLoop(cfg config.ProbeConfig, manager *connection.Manager, diagnoser Diagnoser, opts ...Option) *Loop {
	l := &Loop{
		cfg:       cfg,
		manager:   manager,
		diagnoser: diagnoser,
		recorder:  nopRecorder{},
		observer:  func(IterationResult) {},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Run acquires the connection, performs the configured iterations and
// reports the average. It returns an error only when no connection can be
// acquired at startup; everything after that is logged and recovered.
func (l *Loop) Run(ctx context.Context) (Summary, error) {
	var summary Summary

	handle, err := l.manager.Get(ctx)
	if err != nil {
		return summary, fmt.Errorf("%w: %v", ErrNoConnection, err)
	}
	l.recorder.SetConnected(true)
	config.LogInfo(ctx, "----Connected to database and query execution started----")

	for index := 0; l.cfg.Iterations.Allows(index); index++ {
		iterCtx := config.AppendToContextCorrelationId(ctx, fmt.Sprintf("i%d", index))

		var result IterationResult
		result, handle = l.iterate(iterCtx, index, handle)

		summary.Attempted++
		if result.Succeeded {
			summary.Succeeded++
			summary.TotalMs += result.Duration.Milliseconds()
		} else {
			summary.Failed++
		}
		if result.Diagnosed {
			summary.DiagnosticRuns++
		}
		l.observer(result)

		if !l.sleep(iterCtx, handle, result.Succeeded) {
			summary.Interrupted = true
			break
		}
	}

	l.finish(ctx, &summary)
	return summary, nil
}

func (l *Loop) iterate(ctx context.Context, index int, handle *connection.Handle) (IterationResult, *connection.Handle) {
	result := IterationResult{Index: index}

	if l.cfg.Reconnect && handle.IsClosed() {
		h, err := l.manager.Get(ctx)
		if err != nil {
			l.recorder.RecordFailure(err)
			return result, handle
		}
		config.LogInfo(ctx, "Reconnected to database.")
		l.recorder.SetConnected(true)
		handle = h
	}

	start := l.now()
	ran, err := l.execute(ctx, handle)
	if err != nil {
		l.fail(ctx, handle, "Unable to execute query.", err)
		return result, handle
	}
	if ran {
		config.LogInfo(ctx, "Query executed")
	}
	result.Duration = l.now().Sub(start)
	result.Succeeded = true

	ms := result.Duration.Milliseconds()
	config.LogInfo(ctx, fmt.Sprintf("Time taken to execute query : %dms.", ms))
	l.recorder.RecordExecution(result.Duration)

	if ms > l.cfg.DiagnosticThreshold.Milliseconds() {
		config.LogWarn(ctx, "Diagnostic threshold exceeded. Running the self diagnostics.")
		l.recorder.RecordThresholdExceeded()
		if err := l.diagnoser.Run(ctx, handle); err != nil {
			config.LogDebug(ctx, fmt.Sprintf("diagnostics finished with errors: %v", err))
		}
		l.recorder.RecordDiagnostics()
		result.Diagnosed = true
	}

	return result, handle
}

// execute runs the probe query and drains any result set. It reports
// whether the statement produced a result set.
func (l *Loop) execute(ctx context.Context, handle *connection.Handle) (bool, error) {
	if l.cfg.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.cfg.QueryTimeout)
		defer cancel()
	}

	rows, err := handle.QueryContext(ctx, l.cfg.Query)
	if err != nil {
		return false, err
	}

	columns, err := rows.Columns()
	if err != nil {
		rows.Close()
		return false, err
	}
	for rows.Next() {
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return false, err
	}
	if err := rows.Close(); err != nil {
		return false, err
	}
	return len(columns) > 0, nil
}

// fail logs the error and closes the connection. Without RUN.RECONNECT the
// connection stays closed, so later iterations fail fast.
func (l *Loop) fail(ctx context.Context, handle *connection.Handle, msg string, err error) {
	config.LogError(ctx, fmt.Sprintf("%s %v", msg, err))
	l.recorder.RecordFailure(err)
	l.closeHandle(ctx, handle)
}

func (l *Loop) closeHandle(ctx context.Context, handle *connection.Handle) {
	if closeErr := handle.Close(); closeErr != nil {
		config.LogError(ctx, fmt.Sprintf("SQL Error occurred. %v", closeErr))
	}
	l.recorder.SetConnected(false)
}

// sleep waits for the configured interval. Cancellation ends the run: it is
// logged and the connection closed, unless the iteration already failed and
// did both.
func (l *Loop) sleep(ctx context.Context, handle *connection.Handle, succeeded bool) bool {
	if ctx.Err() == nil && l.cfg.SleepInterval > 0 {
		timer := time.NewTimer(l.cfg.SleepInterval)
		defer timer.Stop()

		select {
		case <-timer.C:
			return true
		case <-ctx.Done():
		}
	}

	err := ctx.Err()
	if err == nil {
		return true
	}
	if !succeeded && handle.IsClosed() {
		return false
	}

	config.LogError(ctx, fmt.Sprintf("Error while sleeping the thread. %v", err))
	l.recorder.RecordInterrupted(err)
	l.closeHandle(ctx, handle)
	return false
}

func (l *Loop) finish(ctx context.Context, summary *Summary) {
	if summary.Attempted == 0 {
		config.LogInfo(ctx, "No iterations were run, average time not reported.")
	} else {
		summary.AverageMs = float64(summary.TotalMs) / float64(summary.Attempted)
		summary.HasAverage = true
		config.LogInfo(ctx, fmt.Sprintf("Average time taken to execute query : %.2fms.", summary.AverageMs))
	}

	if err := l.manager.Close(); err != nil {
		config.LogError(ctx, fmt.Sprintf("Error occurred while closing the connection. %v", err))
	}
	l.recorder.SetConnected(false)
}

type nopRecorder struct{}

func (nopRecorder) RecordExecution(time.Duration) {}
func (nopRecorder) RecordFailure(error)           {}
func (nopRecorder) RecordThresholdExceeded()      {}
func (nopRecorder) RecordDiagnostics()            {}
func (nopRecorder) RecordInterrupted(error)       {}
func (nopRecorder) SetConnected(bool)             {}
