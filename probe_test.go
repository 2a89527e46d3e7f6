package dbprobe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/thisdougb/dbprobe/internal/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.properties")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestProbeRunAgainstSQLiteFile(t *testing.T) {

	dbPath := filepath.Join(t.TempDir(), "probe.db")
	path := writeConfig(t, strings.Join([]string{
		"CONNECTION.URL=jdbc:sqlite:" + dbPath,
		"CONNECTION.USERNAME=",
		"CONNECTION.PASSWORD=",
		"CONNECTION.DRIVERCLASS=org.sqlite.JDBC",
		"SQL.ITERATIONS=3",
		"DIAGNOSTIC.THRESHOLD=10000",
		"RUN.THREADSLEEPTIME=0",
	}, "\n"))

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Query != "SELECT 1" {
		t.Errorf("expected default query, got %q", cfg.Query)
	}

	ctx := config.SetContextCorrelationId(context.Background(), "probe-test")
	p := NewProbe(ctx, cfg, "sqlite-probe", 5)

	summary, err := p.Run(ctx)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.Attempted != 3 || summary.Succeeded != 3 || !summary.HasAverage {
		t.Errorf("unexpected summary %+v", summary)
	}

	if !strings.Contains(p.Dump(), "\"executions\": 3") {
		t.Errorf("state dump missing executions: %s", p.Dump())
	}

	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status endpoint returned %d after a successful run", rec.Code)
	}
}

func TestProbeUnknownDriverFailsToConnect(t *testing.T) {

	path := writeConfig(t, strings.Join([]string{
		"CONNECTION.URL=jdbc:oracle:thin:@db:1521:orcl",
		"CONNECTION.USERNAME=probe",
		"CONNECTION.PASSWORD=secret",
		"CONNECTION.DRIVERCLASS=oracle.jdbc.OracleDriver",
		"DIAGNOSTIC.THRESHOLD=100",
	}, "\n"))

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	ctx := config.SetContextCorrelationId(context.Background(), "probe-test")
	if _, err := NewProbe(ctx, cfg, "", 0).Run(ctx); err == nil {
		t.Error("expected run to fail without a loadable driver")
	}
}

func TestProbeSetDiagnostics(t *testing.T) {

	cfg, err := config.LoadProbeConfigString(strings.Join([]string{
		"CONNECTION.URL=:memory:",
		"CONNECTION.USERNAME=",
		"CONNECTION.PASSWORD=",
		"CONNECTION.DRIVERCLASS=sqlite3",
		"SQL.ITERATIONS=1",
		"DIAGNOSTIC.THRESHOLD=0",
		"RUN.THREADSLEEPTIME=0",
		// slow enough to take at least a millisecond
		"SQL.QUERYTOEXECUTE=WITH RECURSIVE c(x) AS (SELECT 1 UNION ALL SELECT x + 1 FROM c WHERE x < 200000) SELECT count(*) FROM c",
	}, "\n"))
	if err != nil {
		t.Fatal(err)
	}

	ctx := config.EnableLogCollection(config.SetContextCorrelationId(context.Background(), "probe-test"))
	p := NewProbe(ctx, cfg, "diag", 1)
	p.SetDiagnostics("sqlite3", DiagnosticQuery{Label: "custom battery", SQL: "SELECT 42"})

	summary, err := p.Run(ctx)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.DiagnosticRuns != 1 {
		t.Fatalf("expected one diagnostic run, got %+v", summary)
	}

	found := false
	for _, l := range config.CollectedLogs(ctx) {
		if l.Message == "custom battery : \n\t42\n" {
			found = true
		}
	}
	if !found {
		t.Error("custom diagnostic battery output not logged")
	}
}
