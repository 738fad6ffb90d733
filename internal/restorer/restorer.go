// Package restorer loads a single table from its ordered shards (CSV
// or fallback) through a named-pipe decompression child feeding either
// LOAD DATA LOCAL INFILE or a vendor mysql client invocation.
package restorer

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"syscall"

	"dbaccel/internal/codec"
	"dbaccel/internal/dberrors"
	"dbaccel/internal/layout"
	"dbaccel/internal/mysqlconn"
	"dbaccel/internal/mysqlprobe"
)

// Config describes one table's restore parameters.
type Config struct {
	Conn     mysqlconn.ConnectionConfig
	Database string // target database name
	Table    string
	WorkDir  string // layout.WorkingDir(root, database) under the extracted archive
}

type infoRecord struct {
	RecordCount int64 `json:"record_count"`
}

// RestoreTable loads cfg.Table from its shards in ascending order,
// using connect to open the session that executes the LOAD DATA
// statements.
func RestoreTable(connect func() (*sql.DB, error), cfg Config) error {
	csvShards, err := sortedShards(cfg.WorkDir, cfg.Table)
	if err != nil {
		return &dberrors.RestoreLoadError{Table: cfg.Table, Err: err}
	}
	fallbackPath := layout.FallbackPath(cfg.WorkDir, cfg.Table)
	hasFallback := fileExists(fallbackPath)

	if len(csvShards) > 0 && hasFallback {
		return &dberrors.RestoreLoadError{Table: cfg.Table, Err: fmt.Errorf("both CSV shards and a fallback dump are present")}
	}

	db, err := connect()
	if err != nil {
		return &dberrors.RestoreLoadError{Table: cfg.Table, Err: err}
	}
	defer db.Close()

	if hasFallback {
		if err := loadFallbackShard(cfg, fallbackPath); err != nil {
			return &dberrors.RestoreLoadError{Table: cfg.Table, Err: err}
		}
		// The vendor client does not report a reusable row count, so a
		// fallback-loaded table's .info (if any) is not verified; DESIGN.md
		// records this tradeoff.
		return nil
	}

	if _, err := db.Exec("SET foreign_key_checks=0, unique_checks=0"); err != nil {
		return &dberrors.RestoreLoadError{Table: cfg.Table, Err: fmt.Errorf("disabling integrity checks: %w", err)}
	}

	cols, err := mysqlprobe.GetColumnTypes(db, cfg.Database, cfg.Table)
	if err != nil {
		return &dberrors.RestoreLoadError{Table: cfg.Table, Err: err}
	}
	imports := mysqlprobe.DeriveImportExpressions(cols)

	var recordsLoaded int64
	for _, shard := range csvShards {
		n, err := loadCSVShard(db, cfg, shard, imports)
		if err != nil {
			return &dberrors.RestoreLoadError{Table: cfg.Table, Err: err}
		}
		recordsLoaded += n
	}

	return verifyRecordCount(cfg.WorkDir, cfg.Table, recordsLoaded)
}

// loadCSVShard streams one shard through a FIFO into a LOAD DATA LOCAL
// INFILE statement and returns the number of rows the server reports
// loaded.
func loadCSVShard(db *sql.DB, cfg Config, shardPath string, imports mysqlprobe.ImportExpressions) (int64, error) {
	fifoPath := layout.FifoPath(cfg.WorkDir, cfg.Table)
	if err := makeFifo(fifoPath); err != nil {
		return 0, err
	}
	defer os.Remove(fifoPath)

	feedErr := make(chan error, 1)
	go func() { feedErr <- feedFifo(shardPath, fifoPath) }()

	query := buildLoadStatement(fifoPath, cfg.Table, imports)
	result, execErr := db.Exec(query)

	if err := <-feedErr; err != nil {
		return 0, fmt.Errorf("decompressing %s: %w", shardPath, err)
	}
	if execErr != nil {
		return 0, fmt.Errorf("loading %s: %w", shardPath, execErr)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reading rows affected for %s: %w", shardPath, err)
	}
	return n, nil
}

// loadFallbackShard decompresses the vendor-format dump through a FIFO
// into a "mysql" client invocation targeting cfg.Database.
func loadFallbackShard(cfg Config, fallbackPath string) error {
	fifoPath := layout.FifoPath(cfg.WorkDir, cfg.Table)
	if err := makeFifo(fifoPath); err != nil {
		return err
	}
	defer os.Remove(fifoPath)

	feedErr := make(chan error, 1)
	go func() { feedErr <- feedFifo(fallbackPath, fifoPath) }()

	fifoReader, err := os.OpenFile(fifoPath, os.O_RDONLY, 0)
	if err != nil {
		<-feedErr
		return fmt.Errorf("opening fifo for read: %w", err)
	}
	defer fifoReader.Close()

	args := mysqlClientArgs(cfg.Conn, cfg.Database)
	cmd := exec.Command("mysql", args...)
	cmd.Env = append(os.Environ(), "MYSQL_PWD="+cfg.Conn.ResolvePassword())
	cmd.Stdin = fifoReader

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	if err := <-feedErr; err != nil {
		return fmt.Errorf("decompressing %s: %w", fallbackPath, err)
	}
	if runErr != nil {
		return fmt.Errorf("mysql client failed: %w: %s", runErr, stderr.String())
	}
	return nil
}

func mysqlClientArgs(conn mysqlconn.ConnectionConfig, database string) []string {
	args := []string{
		"--host=" + conn.Host,
		"--port=" + strconv.Itoa(conn.Port),
		"--user=" + conn.User,
	}
	if conn.Socket != "" {
		args = append(args, "--socket="+conn.Socket)
	}
	return append(args, database)
}

// makeFifo removes any stale FIFO at path and creates a fresh one with
// mode 0600.
func makeFifo(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing stale fifo %s: %w", path, err)
	}
	if err := syscall.Mkfifo(path, 0600); err != nil {
		return fmt.Errorf("creating fifo %s: %w", path, err)
	}
	return nil
}

// feedFifo decompresses src into the FIFO at fifoPath. Opening the FIFO
// for writing blocks until the reading side (the LOAD DATA statement or
// the mysql client) opens its end.
func feedFifo(srcPath, fifoPath string) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("opening %s: %w", srcPath, err)
	}
	defer src.Close()

	dst, err := os.OpenFile(fifoPath, os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("opening fifo %s for write: %w", fifoPath, err)
	}
	defer dst.Close()

	return codec.DecompressTo(src, dst)
}

// buildLoadStatement renders the LOAD DATA LOCAL INFILE statement for
// one shard.
func buildLoadStatement(fifoPath, table string, imports mysqlprobe.ImportExpressions) string {
	cols := strings.Join(imports.Placeholders, ", ")
	stmt := fmt.Sprintf(
		"LOAD DATA LOCAL INFILE '%s' INTO TABLE %s CHARACTER SET utf8 COLUMNS TERMINATED BY ',' OPTIONALLY ENCLOSED BY '\"' IGNORE 1 ROWS (%s)",
		fifoPath, mysqlprobe.EscapeIdentifier(table), cols)
	if len(imports.SetClauses) > 0 {
		stmt += " SET " + strings.Join(imports.SetClauses, ", ")
	}
	return stmt
}

// sortedShards returns table's CSV shards in ascending ordinal order.
func sortedShards(workDir, table string) ([]string, error) {
	matches, err := filepath.Glob(layout.ShardGlob(workDir, table))
	if err != nil {
		return nil, fmt.Errorf("globbing shards for %s: %w", table, err)
	}
	sort.Strings(matches)
	return matches, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// verifyRecordCount compares recordsLoaded against the table's .info
// sidecar, if one was written during dump.
func verifyRecordCount(workDir, table string, recordsLoaded int64) error {
	infoPath := layout.InfoPath(workDir, table)
	data, err := os.ReadFile(infoPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return &dberrors.RestoreLoadError{Table: table, Err: fmt.Errorf("reading info file: %w", err)}
	}
	var rec infoRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return &dberrors.RestoreLoadError{Table: table, Err: fmt.Errorf("parsing info file: %w", err)}
	}
	if rec.RecordCount != recordsLoaded {
		return &dberrors.RowCountMismatch{Table: table, Expected: rec.RecordCount, Actual: recordsLoaded}
	}
	return nil
}
