package connection

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
)

// stripJDBC removes a leading "jdbc:" so JDBC style URLs from existing
// probe configs keep working.
func stripJDBC(raw string) string {
	if strings.HasPrefix(strings.ToLower(raw), "jdbc:") {
		return raw[len("jdbc:"):]
	}
	return raw
}

// mysqlDSN accepts mysql://host:port/db?params URLs or a native
// go-sql-driver DSN, and sets credentials from the config.
func mysqlDSN(raw, username, password string) (string, error) {
	raw = stripJDBC(raw)

	var cfg *mysql.Config
	if strings.HasPrefix(strings.ToLower(raw), "mysql://") || strings.HasPrefix(strings.ToLower(raw), "mariadb://") {
		u, err := url.Parse(raw)
		if err != nil {
			return "", fmt.Errorf("parse mysql url: %w", err)
		}
		cfg = mysql.NewConfig()
		cfg.Net = "tcp"
		cfg.Addr = u.Host
		cfg.DBName = strings.TrimPrefix(u.Path, "/")
		// JDBC only parameters (useSSL, serverTimezone...) mean nothing to the Go driver
		if v := u.Query().Get("timeout"); v != "" {
			timeout, err := time.ParseDuration(v)
			if err != nil {
				return "", fmt.Errorf("parse mysql timeout: %w", err)
			}
			cfg.Timeout = timeout
		}
	} else {
		parsed, err := mysql.ParseDSN(raw)
		if err != nil {
			return "", fmt.Errorf("parse mysql dsn: %w", err)
		}
		cfg = parsed
	}

	if username != "" {
		cfg.User = username
	}
	if password != "" {
		cfg.Passwd = password
	}
	return cfg.FormatDSN(), nil
}

// postgresDSN accepts postgres:// or postgresql:// URLs and injects credentials.
// Anything else is passed through as a key=value connection string.
func postgresDSN(raw, username, password string) (string, error) {
	raw = stripJDBC(raw)

	lower := strings.ToLower(raw)
	if !strings.HasPrefix(lower, "postgres://") && !strings.HasPrefix(lower, "postgresql://") {
		parts := []string{raw}
		if username != "" {
			parts = append(parts, "user="+quoteConnValue(username))
		}
		if password != "" {
			parts = append(parts, "password="+quoteConnValue(password))
		}
		return strings.TrimSpace(strings.Join(parts, " ")), nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse postgres url: %w", err)
	}
	u.Scheme = "postgres"
	if username != "" {
		if password != "" {
			u.User = url.UserPassword(username, password)
		} else {
			u.User = url.User(username)
		}
	}
	return u.String(), nil
}

func quoteConnValue(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

// sqliteDSN takes "sqlite:path", "sqlite3:path" or a plain path. Credentials are ignored.
func sqliteDSN(raw, _, _ string) (string, error) {
	raw = stripJDBC(raw)
	for _, prefix := range []string{"sqlite3:", "sqlite:"} {
		if strings.HasPrefix(strings.ToLower(raw), prefix) {
			raw = raw[len(prefix):]
			break
		}
	}
	if raw == "" {
		return "", fmt.Errorf("empty sqlite path")
	}
	return raw, nil
}
