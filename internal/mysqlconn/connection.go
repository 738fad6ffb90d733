// Package mysqlconn builds DSNs and opens sessions against the source
// or target MySQL-compatible server: DSN construction and TLS mode
// handling for administrative connections, plus retry-with-backoff and
// worker-session pragmas (compression, streaming result sets) for
// dump/restore workers.
package mysqlconn

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"database/sql"
	"fmt"
	"os"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
)

// ConnectionConfig holds MySQL connection parameters.
type ConnectionConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	Socket   string
	TLSMode  string // "", "disabled", "preferred", "required", "skip-verify", "custom"
	TLSCA    string // path to CA certificate file (required when TLSMode == "custom")
}

// ResolvePassword returns cfg.Password, falling back to MYSQL_PWD when
// empty. There are no interactive prompts: the password must come
// from a flag, a config file, or the environment.
func (c ConnectionConfig) ResolvePassword() string {
	if c.Password != "" {
		return c.Password
	}
	return os.Getenv("MYSQL_PWD")
}

const (
	connectMaxAttempts = 5
	connectBackoff     = 60 * time.Second
)

// Connect establishes a MySQL connection, validating it with a ping.
// Intended for short-lived administrative queries (metadata probing,
// enumerate tables); per-table workers use ConnectWorker instead.
func Connect(cfg ConnectionConfig) (*sql.DB, error) {
	dsn, err := buildDSN(cfg, false)
	if err != nil {
		return nil, err
	}
	return open(dsn)
}

// ConnectWorker establishes a MySQL connection tuned for a dump/restore
// worker: client-side UTF-8, wire compression enabled, and (for dump)
// streaming result sets instead of full client-side buffering.
func ConnectWorker(cfg ConnectionConfig) (*sql.DB, error) {
	dsn, err := buildDSN(cfg, true)
	if err != nil {
		return nil, err
	}
	return open(dsn)
}

// ConnectWithRetry opens a worker session, retrying up to 5 times with a
// 60-second backoff between attempts after the first failure.
func ConnectWithRetry(cfg ConnectionConfig) (*sql.DB, error) {
	var lastErr error
	for attempt := 1; attempt <= connectMaxAttempts; attempt++ {
		db, err := ConnectWorker(cfg)
		if err == nil {
			return db, nil
		}
		lastErr = err
		if attempt < connectMaxAttempts {
			time.Sleep(connectBackoff)
		}
	}
	return nil, fmt.Errorf("connecting after %d attempts: %w", connectMaxAttempts, lastErr)
}

func open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open connection: %w", err)
	}
	if err := db.PingContext(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping: %w", err)
	}
	// Conservative pool: at most two open connections, one kept idle. A
	// worker issues its statements one after another, so they reuse the
	// idle session.
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(1)
	return db, nil
}

// registerCustomTLS reads a CA certificate PEM file and registers it as a named TLS config.
func registerCustomTLS(caPath string) error {
	pem, err := os.ReadFile(caPath)
	if err != nil {
		return fmt.Errorf("reading CA certificate %q: %w", caPath, err)
	}

	rootCAs := x509.NewCertPool()
	if !rootCAs.AppendCertsFromPEM(pem) {
		return fmt.Errorf("no valid certificates found in %q", caPath)
	}

	return mysqldriver.RegisterTLSConfig("dbaccel-custom", &tls.Config{
		RootCAs: rootCAs,
	})
}

func buildDSN(cfg ConnectionConfig, worker bool) (string, error) {
	switch cfg.TLSMode {
	case "", "disabled", "preferred", "required", "skip-verify":
		// valid
	case "custom":
		if cfg.TLSCA == "" {
			return "", fmt.Errorf("--tls-ca is required when --tls=custom")
		}
		if err := registerCustomTLS(cfg.TLSCA); err != nil {
			return "", fmt.Errorf("TLS setup failed: %w", err)
		}
	default:
		return "", fmt.Errorf("invalid TLS mode %q: valid values are disabled, preferred, required, skip-verify, custom", cfg.TLSMode)
	}

	var addr string
	if cfg.Socket != "" {
		addr = fmt.Sprintf("unix(%s)", cfg.Socket)
	} else {
		addr = fmt.Sprintf("tcp(%s:%d)", cfg.Host, cfg.Port)
	}

	db := cfg.Database
	if db == "" {
		db = "information_schema"
	}

	dsn := fmt.Sprintf("%s:%s@%s/%s?parseTime=true&interpolateParams=true&charset=utf8mb4",
		cfg.User, cfg.ResolvePassword(), addr, db)

	if worker {
		// compress=true: wire compression for bulk transfer.
		// allowAllFiles=true: the restorer streams shards through LOAD DATA
		// LOCAL INFILE reading from a FIFO; the driver refuses any
		// local-infile path unless this is set.
		dsn += "&compress=true&allowAllFiles=true"
	}

	switch cfg.TLSMode {
	case "preferred":
		dsn += "&tls=preferred"
	case "required":
		dsn += "&tls=true"
	case "skip-verify":
		dsn += "&tls=skip-verify"
	case "custom":
		dsn += "&tls=dbaccel-custom"
	}

	return dsn, nil
}
