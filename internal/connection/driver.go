package connection

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/thisdougb/dbprobe/internal/config"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v4/stdlib"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Engine families. Diagnostic providers are keyed by these.
const (
	EngineMySQL    = "mysql"
	EnginePostgres = "postgres"
	EngineSQLite   = "sqlite3"
)

var (
	ErrUnknownDriver = errors.New("unknown driver")
	ErrNoDriver      = errors.New("no driver loaded")
)

// Driver describes how to open a database/sql session for one engine.
type Driver struct {
	Name    string   // identifier used in CONNECTION.DRIVERCLASS
	Aliases []string // JDBC class names accepted for the same driver
	Engine  string   // engine family
	SQLName string   // name registered with database/sql
	DSN     func(url, username, password string) (string, error)
}

// Registry maps driver identifiers to drivers and remembers which one is loaded.
type Registry struct {
	mu      sync.RWMutex
	drivers map[string]Driver
	loaded  *Driver
}

// NewRegistry returns a registry holding the statically linked drivers.
func NewRegistry() *Registry {
	r := &Registry{drivers: make(map[string]Driver)}
	for _, d := range builtinDrivers() {
		r.Register(d)
	}
	return r
}

func builtinDrivers() []Driver {
	return []Driver{
		{
			Name:    "mysql",
			Aliases: []string{"com.mysql.jdbc.Driver", "com.mysql.cj.jdbc.Driver", "org.mariadb.jdbc.Driver"},
			Engine:  EngineMySQL,
			SQLName: "mysql",
			DSN:     mysqlDSN,
		},
		{
			Name:    "postgres",
			Aliases: []string{"org.postgresql.Driver", "postgresql"},
			Engine:  EnginePostgres,
			SQLName: "postgres",
			DSN:     postgresDSN,
		},
		{
			Name:    "pgx",
			Engine:  EnginePostgres,
			SQLName: "pgx",
			DSN:     postgresDSN,
		},
		{
			Name:    "sqlite3",
			Aliases: []string{"org.sqlite.JDBC", "sqlite"},
			Engine:  EngineSQLite,
			SQLName: "sqlite3",
			DSN:     sqliteDSN,
		},
	}
}

// Register adds a driver under its name and aliases. Lookups are case-insensitive.
func (r *Registry) Register(d Driver) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.drivers[strings.ToLower(d.Name)] = d
	for _, alias := range d.Aliases {
		r.drivers[strings.ToLower(alias)] = d
	}
}

// Lookup resolves an identifier without loading it.
func (r *Registry) Lookup(identifier string) (Driver, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.drivers[strings.ToLower(strings.TrimSpace(identifier))]
	return d, ok
}

// LoadDriver selects the driver used by later connection attempts. An
// unresolvable identifier is logged and leaves the registry unchanged.
// The location is a hint only, all drivers are linked into the binary.
func (r *Registry) LoadDriver(ctx context.Context, location, identifier string) error {
	d, ok := r.Lookup(identifier)
	if !ok {
		err := fmt.Errorf("%w: %s", ErrUnknownDriver, identifier)
		config.LogError(ctx, fmt.Sprintf("Unable to load driver : %s: %v", identifier, err))
		return err
	}

	if location != "" {
		config.LogDebug(ctx, fmt.Sprintf("driver location %s ignored, %s is built in", location, d.Name))
	}

	r.mu.Lock()
	r.loaded = &d
	r.mu.Unlock()

	config.LogInfo(ctx, fmt.Sprintf("Loaded driver %s (engine %s)", d.Name, d.Engine))
	return nil
}

// Loaded returns the driver chosen by LoadDriver.
func (r *Registry) Loaded() (Driver, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.loaded == nil {
		return Driver{}, ErrNoDriver
	}
	return *r.loaded, nil
}
