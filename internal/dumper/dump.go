package dumper

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"dbaccel/internal/codec"
	"dbaccel/internal/dberrors"
	"dbaccel/internal/layout"
	"dbaccel/internal/mysqlprobe"
)

const maxAttempts = 5

// pageSize and shardRowLimit are vars, not consts, so tests can shrink
// them instead of writing a million rows through sqlmock.
var (
	pageSize      int64 = 10000
	shardRowLimit int64 = 1000000
)

// Config describes a single table's dump parameters.
type Config struct {
	Database   string
	Table      string
	WorkDir    string // layout.WorkingDir(root, database)
	Sample     int    // LIMIT applied to the export SELECT; 0 means no limit
	CheckCount bool
}

// infoRecord is the small serialized record written to a table's .info
// sidecar.
type infoRecord struct {
	RecordCount int64 `json:"record_count"`
}

// DumpTable exports cfg.Table into one or more CSV shards, retrying up
// to 5 times on failure (deleting partial shards between attempts), and
// delegating BLOB/TEXT-heavy tables to fallback instead of streaming
// them. connect opens a session distinct from every other worker.
func DumpTable(connect func() (*sql.DB, error), cfg Config, fallback func(database, table string) error) error {
	db, err := connect()
	if err != nil {
		return &dberrors.TransientDumpError{Table: cfg.Table, Err: err}
	}
	defer db.Close()

	cols, err := mysqlprobe.GetColumnTypes(db, cfg.Database, cfg.Table)
	if err != nil {
		return &dberrors.TransientDumpError{Table: cfg.Table, Err: err}
	}
	exprs := mysqlprobe.DeriveExportExpressions(cols)

	var expected int64 = -1
	if cfg.CheckCount {
		expected, err = mysqlprobe.GetRowCount(db, cfg.Database, cfg.Table)
		if err != nil {
			return &dberrors.TransientDumpError{Table: cfg.Table, Err: err}
		}
		if err := writeInfo(layout.InfoPath(cfg.WorkDir, cfg.Table), expected); err != nil {
			return &dberrors.TransientDumpError{Table: cfg.Table, Err: err}
		}
	}

	if exprs.PagingRequired {
		db.Close()
		return fallback(cfg.Database, cfg.Table)
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		written, err := dumpAttempt(db, cfg, exprs)
		if err == nil {
			if cfg.CheckCount && written != expected {
				lastErr = &dberrors.RowCountMismatch{Table: cfg.Table, Expected: expected, Actual: written}
				cleanupShards(cfg.WorkDir, cfg.Table)
				log.Printf("[dumper] table %s attempt %d/%d: row count mismatch: wrote %s, expected %s",
					cfg.Table, attempt, maxAttempts, FormatGroupedInt(written), FormatGroupedInt(expected))
				continue
			}
			log.Printf("[dumper] table %s: wrote %s rows", cfg.Table, FormatGroupedInt(written))
			return nil
		}
		lastErr = err
		cleanupShards(cfg.WorkDir, cfg.Table)
		log.Printf("[dumper] table %s attempt %d/%d failed: %v", cfg.Table, attempt, maxAttempts, err)
	}
	return &dberrors.TransientDumpError{Table: cfg.Table, Err: lastErr}
}

// dumpAttempt runs one streaming export pass, returning the number of
// rows written.
func dumpAttempt(db *sql.DB, cfg Config, exprs mysqlprobe.ExportExpressions) (int64, error) {
	query := buildSelect(cfg.Table, exprs.Expressions, cfg.Sample)
	rows, err := db.Query(query)
	if err != nil {
		return 0, fmt.Errorf("querying %s: %w", cfg.Table, err)
	}
	defer rows.Close()

	dest := make([]sql.RawBytes, len(exprs.Columns))
	args := make([]interface{}, len(exprs.Columns))
	for i := range dest {
		args[i] = &dest[i]
	}
	values := make([]string, len(exprs.Columns))
	isNull := make([]bool, len(exprs.Columns))

	var shard *codec.Writer
	var shardFile *os.File
	var pageNo int
	var total int64

	closeShard := func() error {
		if shard == nil {
			return nil
		}
		werr := shard.Close()
		ferr := shardFile.Close()
		shard, shardFile = nil, nil
		if werr != nil {
			return werr
		}
		return ferr
	}

	for rows.Next() {
		if shard == nil {
			// pageNo increments one shard at a time (1, 2, 3...) rather
			// than tracking the absolute row-page counter, so a table's
			// shard filenames are always a contiguous run starting at 1
			// regardless of shardRowLimit or how many rows preceded them.
			pageNo++
			path := layout.ShardPath(cfg.WorkDir, cfg.Table, pageNo)
			f, err := os.Create(path)
			if err != nil {
				return total, fmt.Errorf("creating shard %s: %w", path, err)
			}
			w, err := codec.NewWriter(f)
			if err != nil {
				f.Close()
				return total, fmt.Errorf("opening gzip writer for %s: %w", path, err)
			}
			if _, err := w.Write([]byte(EncodeHeader(exprs.Columns))); err != nil {
				w.Close()
				f.Close()
				return total, fmt.Errorf("writing header for %s: %w", path, err)
			}
			shard, shardFile = w, f
		}

		if err := rows.Scan(args...); err != nil {
			closeShard()
			return total, fmt.Errorf("scanning row %d of %s: %w", total+1, cfg.Table, err)
		}
		for i, raw := range dest {
			isNull[i] = raw == nil
			if !isNull[i] {
				values[i] = string(raw)
			} else {
				values[i] = ""
			}
		}
		if _, err := shard.Write([]byte(EncodeRow(values, isNull))); err != nil {
			closeShard()
			return total, fmt.Errorf("writing row %d of %s: %w", total+1, cfg.Table, err)
		}

		total++
		if total%pageSize == 0 {
			log.Printf("[dumper] table %s: %s rows exported", cfg.Table, FormatGroupedInt(total))
		}
		if total%shardRowLimit == 0 {
			if err := closeShard(); err != nil {
				return total, fmt.Errorf("closing shard for %s: %w", cfg.Table, err)
			}
		}
	}
	if err := rows.Err(); err != nil {
		closeShard()
		return total, fmt.Errorf("iterating rows of %s: %w", cfg.Table, err)
	}
	if err := closeShard(); err != nil {
		return total, fmt.Errorf("closing final shard for %s: %w", cfg.Table, err)
	}
	return total, nil
}

func buildSelect(table string, expressions []string, sample int) string {
	q := fmt.Sprintf("SELECT %s FROM %s", strings.Join(expressions, ", "), mysqlprobe.EscapeIdentifier(table))
	if sample > 0 {
		q += fmt.Sprintf(" LIMIT %d", sample)
	}
	return q
}

// cleanupShards removes every shard written so far for table, called
// after a failed attempt so the retry starts from a clean slate.
func cleanupShards(workDir, table string) {
	matches, err := filepath.Glob(layout.ShardGlob(workDir, table))
	if err != nil {
		return
	}
	for _, m := range matches {
		os.Remove(m)
	}
}

// writeInfo serializes { record_count: n } to path.
func writeInfo(path string, recordCount int64) error {
	data, err := json.Marshal(infoRecord{RecordCount: recordCount})
	if err != nil {
		return fmt.Errorf("marshaling info record: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing info file %s: %w", path, err)
	}
	return nil
}
