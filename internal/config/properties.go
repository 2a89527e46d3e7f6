package config

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/magiconair/properties"
)

// Property keys read from the probe configuration file.
const (
	KeyURL            = "CONNECTION.URL"
	KeyUsername       = "CONNECTION.USERNAME"
	KeyPassword       = "CONNECTION.PASSWORD"
	KeyDriverClass    = "CONNECTION.DRIVERCLASS"
	KeyDriverLocation = "CONNECTION.JDBCDRIVER"
	KeyAttempts       = "CONNECTION.ATTEMPTS"
	KeyRetryDelay     = "CONNECTION.RETRYDELAY"
	KeyQuery          = "SQL.QUERYTOEXECUTE"
	KeyIterations     = "SQL.ITERATIONS"
	KeyQueryTimeout   = "SQL.QUERYTIMEOUT"
	KeyThreshold      = "DIAGNOSTIC.THRESHOLD"
	KeySleepTime      = "RUN.THREADSLEEPTIME"
	KeyReconnect      = "RUN.RECONNECT"
)

// Built-in defaults used when the matching key is absent.
const (
	DefaultQuery           = "SELECT 1"
	DefaultIterationCount  = 100
	DefaultSleepIntervalMs = 1000
	DefaultAttempts        = 1
	DefaultRetryDelayMs    = 1000
)

// UnboundedIterations is the SQL.ITERATIONS value meaning "run until stopped".
const UnboundedIterations = -1

var ErrMissingKey = errors.New("missing required property")

// Iterations is either a bounded, non-negative count or unbounded.
type Iterations struct {
	count     int
	unbounded bool
}

// Bounded returns a run of exactly n iterations. Negative n is clamped to zero.
func Bounded(n int) Iterations {
	if n < 0 {
		n = 0
	}
	return Iterations{count: n}
}

// Unbounded returns a run that only ends on external cancellation.
func Unbounded() Iterations {
	return Iterations{unbounded: true}
}

func (i Iterations) IsUnbounded() bool { return i.unbounded }

// Count is the bounded iteration count, and 0 for an unbounded run.
func (i Iterations) Count() int { return i.count }

// Allows reports whether iteration index (zero based) should run.
func (i Iterations) Allows(index int) bool {
	return i.unbounded || index < i.count
}

func (i Iterations) String() string {
	if i.unbounded {
		return "unbounded"
	}
	return strconv.Itoa(i.count)
}

// ProbeConfig is the immutable probe configuration loaded at startup.
type ProbeConfig struct {
	ConnectionURL       string
	Username            string
	Password            string
	DriverIdentifier    string
	DriverLocation      string
	Query               string
	DiagnosticThreshold time.Duration
	Iterations          Iterations
	SleepInterval       time.Duration
	QueryTimeout        time.Duration // zero means no per-execution timeout
	Reconnect           bool
	ConnectAttempts     int
	RetryDelay          time.Duration
}

// loader keeps ${...} in values literal, the way java.util.Properties does.
var loader = &properties.Loader{Encoding: properties.UTF8, DisableExpansion: true}

// LoadProbeConfig reads a Java-style properties file.
func LoadProbeConfig(path string) (ProbeConfig, error) {
	p, err := loader.LoadFile(path)
	if err != nil {
		return ProbeConfig{}, fmt.Errorf("read config %s: %w", path, err)
	}
	return ParseProbeConfig(p)
}

// LoadProbeConfigString parses properties held in memory.
func LoadProbeConfigString(content string) (ProbeConfig, error) {
	p, err := loader.LoadBytes([]byte(content))
	if err != nil {
		return ProbeConfig{}, fmt.Errorf("parse config: %w", err)
	}
	return ParseProbeConfig(p)
}

// ParseProbeConfig validates the loaded properties and applies defaults.
func ParseProbeConfig(p *properties.Properties) (ProbeConfig, error) {
	cfg := ProbeConfig{
		Query:           DefaultQuery,
		Iterations:      Bounded(DefaultIterationCount),
		SleepInterval:   DefaultSleepIntervalMs * time.Millisecond,
		ConnectAttempts: DefaultAttempts,
		RetryDelay:      DefaultRetryDelayMs * time.Millisecond,
	}

	var err error
	if cfg.ConnectionURL, err = required(p, KeyURL); err != nil {
		return ProbeConfig{}, err
	}
	if cfg.Username, err = required(p, KeyUsername); err != nil {
		return ProbeConfig{}, err
	}
	if cfg.Password, err = required(p, KeyPassword); err != nil {
		return ProbeConfig{}, err
	}
	if cfg.DriverIdentifier, err = required(p, KeyDriverClass); err != nil {
		return ProbeConfig{}, err
	}
	if cfg.DriverIdentifier == "" {
		return ProbeConfig{}, fmt.Errorf("%s must not be empty", KeyDriverClass)
	}
	cfg.DriverLocation = p.GetString(KeyDriverLocation, "")

	if q, ok := p.Get(KeyQuery); ok {
		cfg.Query = q
	}

	thresholdStr, err := required(p, KeyThreshold)
	if err != nil {
		return ProbeConfig{}, err
	}
	threshold, err := nonNegativeInt(KeyThreshold, thresholdStr)
	if err != nil {
		return ProbeConfig{}, err
	}
	cfg.DiagnosticThreshold = time.Duration(threshold) * time.Millisecond

	if v, ok := p.Get(KeyIterations); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return ProbeConfig{}, fmt.Errorf("%s: %w", KeyIterations, err)
		}
		switch {
		case n == UnboundedIterations:
			cfg.Iterations = Unbounded()
		case n < 0:
			return ProbeConfig{}, fmt.Errorf("%s must be >= 0 or %d, got %d", KeyIterations, UnboundedIterations, n)
		default:
			cfg.Iterations = Bounded(n)
		}
	}

	if v, ok := p.Get(KeySleepTime); ok {
		ms, err := nonNegativeInt(KeySleepTime, v)
		if err != nil {
			return ProbeConfig{}, err
		}
		cfg.SleepInterval = time.Duration(ms) * time.Millisecond
	}

	if v, ok := p.Get(KeyQueryTimeout); ok {
		ms, err := nonNegativeInt(KeyQueryTimeout, v)
		if err != nil {
			return ProbeConfig{}, err
		}
		cfg.QueryTimeout = time.Duration(ms) * time.Millisecond
	}

	if v, ok := p.Get(KeyReconnect); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return ProbeConfig{}, fmt.Errorf("%s: %w", KeyReconnect, err)
		}
		cfg.Reconnect = b
	}

	if v, ok := p.Get(KeyAttempts); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return ProbeConfig{}, fmt.Errorf("%s: %w", KeyAttempts, err)
		}
		if n < 1 {
			return ProbeConfig{}, fmt.Errorf("%s must be >= 1, got %d", KeyAttempts, n)
		}
		cfg.ConnectAttempts = n
	}

	if v, ok := p.Get(KeyRetryDelay); ok {
		ms, err := nonNegativeInt(KeyRetryDelay, v)
		if err != nil {
			return ProbeConfig{}, err
		}
		cfg.RetryDelay = time.Duration(ms) * time.Millisecond
	}

	return cfg, nil
}

func required(p *properties.Properties, key string) (string, error) {
	v, ok := p.Get(key)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrMissingKey, key)
	}
	return v, nil
}

func nonNegativeInt(key, value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("%s must be >= 0, got %d", key, n)
	}
	return n, nil
}
