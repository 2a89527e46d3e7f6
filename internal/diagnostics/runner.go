package diagnostics

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/thisdougb/dbprobe/internal/config"
)

var ErrNoProvider = errors.New("no diagnostic provider for engine")

// Session is the part of a connection handle the runner needs.
type Session interface {
	Engine() string
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Runner executes the battery registered for a session's engine.
type Runner struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRunner registers the given providers, or the built-in ones when none are given.
func NewRunner(providers ...Provider) *Runner {
	if len(providers) == 0 {
		providers = Builtin()
	}
	r := &Runner{providers: make(map[string]Provider)}
	for _, p := range providers {
		r.Register(p)
	}
	return r
}

// Register adds or replaces the provider for p.Engine().
func (r *Runner) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Engine()] = p
}

func (r *Runner) ProviderFor(engine string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[engine]
	return p, ok
}

// Run executes every query of the battery in order and logs each report.
// A failing query is logged and skipped; the failures are returned together.
func (r *Runner) Run(ctx context.Context, session Session) error {
	p, ok := r.ProviderFor(session.Engine())
	if !ok {
		err := fmt.Errorf("%w: %s", ErrNoProvider, session.Engine())
		config.LogWarn(ctx, err.Error())
		return err
	}

	var result *multierror.Error
	for _, q := range p.Queries() {
		if err := runQuery(ctx, session, q); err != nil {
			config.LogError(ctx, fmt.Sprintf("Error while executing diagnostic query. %s: %v", q.SQL, err))
			result = multierror.Append(result, fmt.Errorf("%s: %w", q.SQL, err))
		}
	}
	return result.ErrorOrNil()
}

func runQuery(ctx context.Context, session Session, q Query) error {
	rows, err := session.QueryContext(ctx, q.SQL)
	if err != nil {
		return err
	}
	defer rows.Close()

	report, err := RenderResultSet(q.Label, rows)
	if err != nil {
		return err
	}
	config.LogInfo(ctx, report)
	return nil
}

// RenderResultSet formats every row as tab-prefixed column values, one row
// per line, under the label. Zero rows give a labeled, empty body.
func RenderResultSet(label string, rows *sql.Rows) (string, error) {
	columns, err := rows.Columns()
	if err != nil {
		return "", fmt.Errorf("read columns: %w", err)
	}

	values := make([]any, len(columns))
	dest := make([]any, len(columns))
	for i := range values {
		dest[i] = &values[i]
	}

	var body strings.Builder
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return "", fmt.Errorf("scan row: %w", err)
		}
		for _, v := range values {
			body.WriteString("\t")
			body.WriteString(stringify(v))
		}
		body.WriteString("\n")
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("error iterating rows: %w", err)
	}

	return label + " : \n" + body.String(), nil
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case []byte:
		return string(t)
	case time.Time:
		return t.Format("2006-01-02 15:04:05.000")
	default:
		return fmt.Sprint(t)
	}
}
