package diagnostics

import "github.com/thisdougb/dbprobe/internal/connection"

// Query is one read-only introspection statement and the label its output
// is logged under.
type Query struct {
	Label string
	SQL   string
}

// Provider supplies the diagnostic battery for one engine family.
type Provider interface {
	Engine() string
	Queries() []Query
}

type staticProvider struct {
	engine  string
	queries []Query
}

// NewProvider builds a provider with a fixed battery, run in the given order.
func NewProvider(engine string, queries ...Query) Provider {
	return &staticProvider{engine: engine, queries: queries}
}

func (p *staticProvider) Engine() string { return p.engine }

func (p *staticProvider) Queries() []Query {
	out := make([]Query, len(p.queries))
	copy(out, p.queries)
	return out
}

func outputFor(sql string) Query {
	return Query{Label: "Output for " + sql + ".", SQL: sql}
}

// MySQL is the reference battery: InnoDB status, process list, tables in
// use and the slow query log.
var MySQL = NewProvider(connection.EngineMySQL,
	outputFor("SHOW ENGINE INNODB STATUS"),
	outputFor("SHOW FULL PROCESSLIST"),
	outputFor("SHOW OPEN TABLES WHERE In_use > 0"),
	outputFor("SELECT * FROM mysql.slow_log"),
)

// Postgres mirrors the MySQL battery with the pg_stat and pg_locks views.
var Postgres = NewProvider(connection.EnginePostgres,
	outputFor("SELECT * FROM pg_stat_database WHERE datname = current_database()"),
	outputFor("SELECT pid, usename, application_name, client_addr, state, wait_event_type, wait_event, query_start, query FROM pg_stat_activity"),
	outputFor("SELECT DISTINCT l.relation::regclass, l.mode, l.granted, l.pid FROM pg_locks l WHERE l.relation IS NOT NULL"),
	outputFor("SELECT pid, now() - query_start AS duration, state, query FROM pg_stat_activity WHERE state <> 'idle' ORDER BY duration DESC"),
)

// SQLite has no server side process list; the battery reports what the
// file and library expose.
var SQLite = NewProvider(connection.EngineSQLite,
	outputFor("PRAGMA journal_mode"),
	outputFor("PRAGMA database_list"),
	outputFor("SELECT type, name FROM sqlite_master WHERE type IN ('table', 'view') ORDER BY name"),
	outputFor("PRAGMA compile_options"),
)

// Builtin returns the providers for every engine with a linked driver.
func Builtin() []Provider {
	return []Provider{MySQL, Postgres, SQLite}
}
