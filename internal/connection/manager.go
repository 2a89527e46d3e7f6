package connection

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/avast/retry-go"
	"github.com/hashicorp/go-multierror"

	"github.com/thisdougb/dbprobe/internal/config"
)

var (
	ErrClosed     = errors.New("connection is closed")
	errInvalidDSN = errors.New("invalid connection url")
)

// Handle is a single live database session. Once closed it stays closed,
// further use fails with ErrClosed until the Manager hands out a new one.
type Handle struct {
	db     *sql.DB
	conn   *sql.Conn
	engine string

	mu     sync.Mutex
	closed bool
}

// Engine is the engine family of the driver that opened this session.
func (h *Handle) Engine() string {
	return h.engine
}

// QueryContext runs a statement on the session.
func (h *Handle) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	if h.IsClosed() {
		return nil, ErrClosed
	}
	return h.conn.QueryContext(ctx, query, args...)
}

// ExecContext runs a statement that returns no rows on the session.
func (h *Handle) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if h.IsClosed() {
		return nil, ErrClosed
	}
	return h.conn.ExecContext(ctx, query, args...)
}

func (h *Handle) IsClosed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

// Close releases the session and its pool. Only the first call does any work.
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true

	var result *multierror.Error
	if err := h.conn.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
		result = multierror.Append(result, fmt.Errorf("close session: %w", err))
	}
	if err := h.db.Close(); err != nil {
		result = multierror.Append(result, fmt.Errorf("close pool: %w", err))
	}
	return result.ErrorOrNil()
}

// Manager owns at most one Handle and creates it on first use.
type Manager struct {
	registry *Registry
	url      string
	username string
	password string

	attempts   uint
	retryDelay time.Duration

	mu     sync.Mutex
	handle *Handle
}

type Option func(*Manager)

// WithAttempts sets how many times Get tries to open a session. Values below 1 mean 1.
func WithAttempts(n int) Option {
	return func(m *Manager) {
		if n < 1 {
			n = 1
		}
		m.attempts = uint(n)
	}
}

// WithRetryDelay sets the fixed pause between connection attempts.
func WithRetryDelay(d time.Duration) Option {
	return func(m *Manager) {
		m.retryDelay = d
	}
}

func NewManager(registry *Registry, url, username, password string, opts ...Option) *Manager {
	m := &Manager{
		registry:   registry,
		url:        url,
		username:   username,
		password:   password,
		attempts:   1,
		retryDelay: time.Second,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Current returns the handle held by the manager, open or not, without
// creating one.
func (m *Manager) Current() *Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.handle
}

// Get returns the open handle, or opens a new one. On failure it logs and
// returns a nil handle with the error, the caller cannot proceed with this
// attempt.
func (m *Manager) Get(ctx context.Context) (*Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.handle != nil && !m.handle.IsClosed() {
		return m.handle, nil
	}

	var handle *Handle
	err := retry.Do(
		func() error {
			h, err := m.open(ctx)
			if err != nil {
				return err
			}
			handle = h
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(m.attempts),
		retry.Delay(m.retryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return !errors.Is(err, ErrNoDriver) && !errors.Is(err, errInvalidDSN)
		}),
		retry.OnRetry(func(n uint, err error) {
			config.LogWarn(ctx, fmt.Sprintf("connection attempt %d failed: %v", n+1, err))
		}),
	)
	if err != nil {
		config.LogError(ctx, fmt.Sprintf("Unable to connect to database. %v", err))
		return nil, err
	}

	m.handle = handle
	return handle, nil
}

func (m *Manager) open(ctx context.Context) (*Handle, error) {
	d, err := m.registry.Loaded()
	if err != nil {
		return nil, err
	}

	dsn, err := d.DSN(m.url, m.username, m.password)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidDSN, err)
	}

	db, err := sql.Open(d.SQLName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// one session, so diagnostics see the same connection as the probe query
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	conn, err := db.Conn(ctx)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to acquire session: %w", err)
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Handle{db: db, conn: conn, engine: d.Engine}, nil
}

// Close closes the current handle if it is still open.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.handle == nil {
		return nil
	}
	return m.handle.Close()
}
