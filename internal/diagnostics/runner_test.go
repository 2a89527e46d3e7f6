package diagnostics

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hashicorp/go-multierror"

	"github.com/thisdougb/dbprobe/internal/config"
	"github.com/thisdougb/dbprobe/internal/connection"
)

func setupSQLiteHandle(t *testing.T) (context.Context, *connection.Handle) {
	t.Helper()

	ctx := config.EnableLogCollection(config.SetContextCorrelationId(context.Background(), "diag"))
	r := connection.NewRegistry()
	if err := r.LoadDriver(ctx, "", "sqlite3"); err != nil {
		t.Fatalf("load driver: %v", err)
	}
	m := connection.NewManager(r, ":memory:", "", "")
	h, err := m.Get(ctx)
	if err != nil {
		t.Fatalf("get connection: %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return ctx, h
}

func TestRenderResultSet(t *testing.T) {

	ctx, h := setupSQLiteHandle(t)

	rows, err := h.QueryContext(ctx, "SELECT 1, 'a', NULL UNION ALL SELECT 2, 'b', 3.5")
	if err != nil {
		t.Fatal(err)
	}
	defer rows.Close()

	report, err := RenderResultSet("Output for test.", rows)
	if err != nil {
		t.Fatal(err)
	}

	expected := "Output for test. : \n\t1\ta\tnull\n\t2\tb\t3.5\n"
	if report != expected {
		t.Errorf("got %q, expected %q", report, expected)
	}
}

func TestRenderResultSetZeroRows(t *testing.T) {

	ctx, h := setupSQLiteHandle(t)

	rows, err := h.QueryContext(ctx, "SELECT name FROM sqlite_master WHERE 1 = 0")
	if err != nil {
		t.Fatal(err)
	}
	defer rows.Close()

	report, err := RenderResultSet("Output for empty.", rows)
	if err != nil {
		t.Fatalf("zero rows should not be an error: %v", err)
	}
	if report != "Output for empty. : \n" {
		t.Errorf("got %q", report)
	}
}

func TestRunBuiltinSQLiteBattery(t *testing.T) {

	ctx, h := setupSQLiteHandle(t)

	if err := NewRunner().Run(ctx, h); err != nil {
		t.Fatalf("builtin sqlite battery failed: %v", err)
	}

	var reports int
	for _, l := range config.CollectedLogs(ctx) {
		if strings.HasPrefix(l.Message, "Output for ") {
			reports++
		}
	}
	if reports != len(SQLite.Queries()) {
		t.Errorf("expected %d reports, got %d", len(SQLite.Queries()), reports)
	}
}

func TestRunIsolatesFailingQuery(t *testing.T) {

	ctx, h := setupSQLiteHandle(t)

	provider := NewProvider(connection.EngineSQLite,
		Query{Label: "first", SQL: "SELECT 1"},
		Query{Label: "broken", SQL: "SELECT * FROM no_such_table"},
		Query{Label: "third", SQL: "SELECT 3"},
		Query{Label: "fourth", SQL: "SELECT 4"},
	)

	err := NewRunner(provider).Run(ctx, h)
	if err == nil {
		t.Fatal("expected the broken query to be reported")
	}

	var merr *multierror.Error
	if !errors.As(err, &merr) || len(merr.Errors) != 1 {
		t.Fatalf("expected exactly one aggregated error, got %v", err)
	}

	var labels []string
	var errorsLogged int
	for _, l := range config.CollectedLogs(ctx) {
		if l.Severity == "ERROR" {
			errorsLogged++
			continue
		}
		if i := strings.Index(l.Message, " : \n"); i > 0 {
			labels = append(labels, l.Message[:i])
		}
	}

	if strings.Join(labels, ",") != "first,third,fourth" {
		t.Errorf("remaining queries did not all run, got %v", labels)
	}
	if errorsLogged != 1 {
		t.Errorf("expected one logged error, got %d", errorsLogged)
	}
}

func TestRunWithoutProvider(t *testing.T) {

	ctx, h := setupSQLiteHandle(t)

	err := NewRunner(MySQL).Run(ctx, h)
	if !errors.Is(err, ErrNoProvider) {
		t.Errorf("expected ErrNoProvider, got %v", err)
	}
}

func TestMySQLReferenceBattery(t *testing.T) {

	queries := MySQL.Queries()
	expected := []string{
		"SHOW ENGINE INNODB STATUS",
		"SHOW FULL PROCESSLIST",
		"SHOW OPEN TABLES WHERE In_use > 0",
		"SELECT * FROM mysql.slow_log",
	}

	if len(queries) != len(expected) {
		t.Fatalf("expected %d queries, got %d", len(expected), len(queries))
	}
	for i, q := range queries {
		if q.SQL != expected[i] {
			t.Errorf("query %d: %q, expected %q", i, q.SQL, expected[i])
		}
	}
}
