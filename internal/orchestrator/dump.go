package orchestrator

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"dbaccel/internal/codec"
	"dbaccel/internal/dberrors"
	"dbaccel/internal/ddl"
	"dbaccel/internal/dumper"
	"dbaccel/internal/fallback"
	"dbaccel/internal/layout"
	"dbaccel/internal/mysqlprobe"
	"dbaccel/internal/pool"
	"dbaccel/internal/report"
)

// Dump runs the dump state machine: prepare the working directory,
// dump and rewrite the schema, enumerate tables, dump table data,
// drain the worker pool, then archive the working directory.
func (o *Orchestrator) Dump() (report.Summary, error) {
	start := time.Now()
	database := o.Cfg.Conn.Database
	summary := report.Summary{Action: "dump", Database: database}

	workDir := layout.WorkingDir(o.Cfg.Directory, database)
	if err := o.prepare(workDir); err != nil {
		summary.Err = err
		return summary, err
	}

	if err := o.dumpSchema(workDir, database); err != nil {
		summary.Err = err
		return summary, err
	}

	tables, err := o.enumerateTables(database)
	if err != nil {
		summary.Err = err
		return summary, err
	}
	o.Logger.Printf("[orchestrator] dumping %d table(s) from %s", len(tables), database)

	if o.Cfg.DryRun {
		o.printDryRunPlan(database, tables)
		summary.TablesProcessed = len(tables)
		summary.Duration = time.Since(start)
		return summary, nil
	}

	if err := o.dumpData(workDir, database, tables); err != nil {
		summary.Err = err
		return summary, err
	}

	shardCount, fallbackCount, totalRows := summarizeWorkDir(workDir, tables)
	summary.TablesProcessed = len(tables)
	summary.FallbackTables = fallbackCount
	summary.ShardCount = shardCount
	summary.TotalRows = totalRows

	if err := o.archive(workDir, database); err != nil {
		summary.Err = err
		return summary, err
	}

	summary.Duration = time.Since(start)
	return summary, nil
}

// prepare creates the per-database working directory.
func (o *Orchestrator) prepare(workDir string) error {
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return &dberrors.SchemaError{Stage: "prepare", Err: fmt.Errorf("creating working directory %s: %w", workDir, err)}
	}
	return nil
}

// dumpSchema shells to the vendor mysqldump for DDL only, then rewrites
// it into the tokenised form.
func (o *Orchestrator) dumpSchema(workDir, database string) error {
	raw, err := o.mysqldumpSchema(database)
	if err != nil {
		return &dberrors.SchemaError{Stage: "dump-schema", Err: err}
	}

	tokenised := ddl.RewriteSchema(raw, database)
	if err := ddl.ValidateStatements(tokenised); err != nil {
		o.Logger.Printf("[orchestrator] schema sanity-parse warning: %v", err)
	}

	if err := os.WriteFile(filepath.Join(workDir, layout.SchemaOrig), []byte(raw), 0644); err != nil {
		return &dberrors.SchemaError{Stage: "dump-schema", Err: fmt.Errorf("writing %s: %w", layout.SchemaOrig, err)}
	}
	if err := os.WriteFile(filepath.Join(workDir, layout.SchemaTokenised), []byte(tokenised), 0644); err != nil {
		return &dberrors.SchemaError{Stage: "dump-schema", Err: fmt.Errorf("writing %s: %w", layout.SchemaTokenised, err)}
	}
	return nil
}

// mysqldumpSchema runs "mysqldump --no-data --routines
// --single-transaction=TRUE -B <database>" and returns its stdout.
func (o *Orchestrator) mysqldumpSchema(database string) (string, error) {
	conn := o.Cfg.Conn
	args := []string{
		"--no-data",
		"--routines",
		"--single-transaction=TRUE",
		"-B",
		"--host=" + conn.Host,
		"--port=" + strconv.Itoa(conn.Port),
		"--user=" + conn.User,
	}
	if conn.Socket != "" {
		args = append(args, "--socket="+conn.Socket)
	}
	args = append(args, database)

	cmd := exec.Command("mysqldump", args...)
	cmd.Env = append(os.Environ(), "MYSQL_PWD="+conn.ResolvePassword())

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("mysqldump failed: %w: %s", err, stderr.String())
	}
	return stdout.String(), nil
}

// enumerateTables lists base tables, applying --tables-string when set.
func (o *Orchestrator) enumerateTables(database string) ([]string, error) {
	db, err := o.adminConnect()
	if err != nil {
		return nil, &dberrors.ConnectError{Host: o.Cfg.Conn.Host, Err: err}
	}
	defer db.Close()

	tables, err := mysqlprobe.ListBaseTables(db, database, o.Cfg.TableFilter())
	if err != nil {
		return nil, &dberrors.SchemaError{Stage: "enumerate-tables", Err: err}
	}
	return tables, nil
}

// printDryRunPlan reports the planned per-table routing (streaming vs.
// fallback) and estimated row counts without touching any data.
func (o *Orchestrator) printDryRunPlan(database string, tables []string) {
	db, err := o.adminConnect()
	if err != nil {
		o.Logger.Printf("[orchestrator] dry-run: could not connect for row estimates: %v", err)
		return
	}
	defer db.Close()

	for _, t := range tables {
		route := "stream"
		if o.Cfg.IsFallbackTable(t) {
			route = "fallback (forced)"
		} else if cols, err := mysqlprobe.GetColumnTypes(db, database, t); err == nil {
			if mysqlprobe.DeriveExportExpressions(cols).PagingRequired {
				route = "fallback (BLOB/TEXT column)"
			}
		}
		rows, err := mysqlprobe.GetRowCount(db, database, t)
		if err != nil {
			o.Logger.Printf("[orchestrator] dry-run: %s -> %s (row count unavailable: %v)", t, route, err)
			continue
		}
		estShards := (rows / 1000000) + 1
		if rows == 0 {
			estShards = 0
		}
		o.Logger.Printf("[orchestrator] dry-run: %s -> %s, ~%s rows, ~%d shard(s)",
			t, route, dumper.FormatGroupedInt(rows), estShards)
	}
}

// dumpData hands every table to the worker pool, routing BLOB/TEXT-heavy
// and explicitly forced tables to the fallback exporter.
func (o *Orchestrator) dumpData(workDir, database string, tables []string) error {
	p := pool.New(o.Cfg.Jobs)

	tasks := make([]pool.Task, 0, len(tables))
	for _, table := range tables {
		table := table
		tasks = append(tasks, pool.Task{
			Table: table,
			Run: func() error {
				if o.Cfg.IsFallbackTable(table) {
					return fallback.ExportTable(fallback.Config{
						Conn: o.Cfg.Conn, Database: database, Table: table, WorkDir: workDir,
					})
				}
				dumpCfg := dumper.Config{
					Database: database, Table: table, WorkDir: workDir,
					Sample: o.Cfg.Sample, CheckCount: o.Cfg.CheckCount,
				}
				return dumper.DumpTable(o.workerConnect, dumpCfg, func(db, tbl string) error {
					return fallback.ExportTable(fallback.Config{
						Conn: o.Cfg.Conn, Database: db, Table: tbl, WorkDir: workDir,
					})
				})
			},
		})
	}

	// Run is itself the drain barrier: it returns only once every
	// dispatched table has finished.
	return p.Run(tasks)
}

// archive tars the working directory, renames the tar to the final
// ".accel.dump" archive, and removes the working directory.
func (o *Orchestrator) archive(workDir, database string) error {
	tarPath := layout.ArchiveTarPath(o.Cfg.Directory, database)
	if err := codec.Tar(tarPath, workDir); err != nil {
		return &dberrors.SchemaError{Stage: "archive", Err: err}
	}

	archivePath := layout.ArchivePath(o.Cfg.Directory, database)
	if err := os.Rename(tarPath, archivePath); err != nil {
		return &dberrors.SchemaError{Stage: "archive", Err: fmt.Errorf("renaming %s to %s: %w", tarPath, archivePath, err)}
	}

	if err := os.RemoveAll(workDir); err != nil {
		o.Logger.Printf("[orchestrator] warning: could not remove working directory %s: %v", workDir, err)
	}
	return nil
}

// summarizeWorkDir counts shards, fallback tables, and total rows
// written, read back from the .info sidecars where present (best-effort,
// purely for the post-run report).
func summarizeWorkDir(workDir string, tables []string) (shardCount, fallbackCount int, totalRows int64) {
	for _, t := range tables {
		shards, _ := filepath.Glob(layout.ShardGlob(workDir, t))
		shardCount += len(shards)

		if _, err := os.Stat(layout.FallbackPath(workDir, t)); err == nil {
			fallbackCount++
		}

		if data, err := os.ReadFile(layout.InfoPath(workDir, t)); err == nil {
			var rec struct {
				RecordCount int64 `json:"record_count"`
			}
			if json.Unmarshal(data, &rec) == nil {
				totalRows += rec.RecordCount
			}
		}
	}
	return
}
