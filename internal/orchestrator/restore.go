package orchestrator

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"dbaccel/internal/codec"
	"dbaccel/internal/dberrors"
	"dbaccel/internal/ddl"
	"dbaccel/internal/layout"
	"dbaccel/internal/mysqlconn"
	"dbaccel/internal/pool"
	"dbaccel/internal/report"
	"dbaccel/internal/restorer"
)

// Restore runs the restore state machine: unpack the archive,
// detokenise the schema, apply the schema (with --accel-keys: split it
// and apply only stage-1 DDL), run the post-schema hook, load table
// data, then, with --accel-keys, apply stage-2 and stage-3 DDL once
// loading is complete.
func (o *Orchestrator) Restore() (report.Summary, error) {
	start := time.Now()
	targetDatabase := o.Cfg.Conn.Database
	summary := report.Summary{Action: "restore", Database: targetDatabase}

	sourceDir, err := o.unpack()
	if err != nil {
		summary.Err = err
		return summary, err
	}
	defer os.RemoveAll(sourceDir)

	detokenised, err := o.detokenise(sourceDir, targetDatabase)
	if err != nil {
		summary.Err = err
		return summary, err
	}

	split, err := o.applySchema(sourceDir, targetDatabase, detokenised)
	if err != nil {
		summary.Err = err
		return summary, err
	}

	if err := o.runPostSchemaHook(); err != nil {
		summary.Err = err
		return summary, err
	}

	tables, err := layout.DiscoverTables(sourceDir)
	if err != nil {
		summary.Err = &dberrors.RestoreLoadError{Err: err}
		return summary, summary.Err
	}
	o.Logger.Printf("[orchestrator] loading %d table(s) into %s", len(tables), targetDatabase)

	if err := o.loadData(sourceDir, targetDatabase, tables); err != nil {
		summary.Err = err
		return summary, err
	}
	summary.TablesProcessed = len(tables)

	if o.Cfg.AccelKeys && split != nil {
		if err := o.applyKeyStage(targetDatabase, split.Stage2, "stage-2"); err != nil {
			summary.Err = err
			return summary, err
		}
		if err := o.applyKeyStage(targetDatabase, split.Stage3, "stage-3"); err != nil {
			summary.Err = err
			return summary, err
		}
	}

	summary.Duration = time.Since(start)
	return summary, nil
}

// unpack extracts the archive and returns the extracted database
// directory, derived from the archive's filename stem.
func (o *Orchestrator) unpack() (string, error) {
	if err := codec.Untar(o.Cfg.File, o.Cfg.Directory); err != nil {
		return "", &dberrors.SchemaError{Stage: "unpack", Err: err}
	}

	base := filepath.Base(o.Cfg.File)
	stem := strings.TrimSuffix(base, layout.ArchiveSuffix)
	sourceDir := layout.WorkingDir(o.Cfg.Directory, stem)

	if _, err := os.Stat(sourceDir); err != nil {
		return "", &dberrors.SchemaError{Stage: "unpack", Err: fmt.Errorf("expected directory %s not found after extracting %s: %w", sourceDir, o.Cfg.File, err)}
	}
	return sourceDir, nil
}

// detokenise reads the tokenised schema and substitutes the target
// database name for every "#DATABASE#" occurrence.
func (o *Orchestrator) detokenise(sourceDir, targetDatabase string) (string, error) {
	path := filepath.Join(sourceDir, layout.SchemaTokenised)
	data, err := os.ReadFile(path)
	if err != nil {
		return "", &dberrors.SchemaError{Stage: "detokenise", Err: fmt.Errorf("reading %s: %w", path, err)}
	}
	return ddl.DetokeniseSchema(string(data), targetDatabase), nil
}

// applySchema runs SplitStages when --accel-keys is set, applying only
// the keyless stage-1 DDL before data load; otherwise it applies the
// full detokenised schema (with keys and foreign keys inline) in one
// pass, the slower but simpler restore path that --accel-keys defaults
// to off. Returns the split result so the caller can apply
// stage-2/stage-3 after data load, or nil when the 3-stage split was
// not used.
func (o *Orchestrator) applySchema(sourceDir, targetDatabase, detokenised string) (*ddl.SplitResult, error) {
	if !o.Cfg.AccelKeys {
		if !o.Cfg.SkipCreateDB {
			if err := o.execStatements(targetDatabase, "apply-schema", detokenised); err != nil {
				return nil, err
			}
		}
		return nil, nil
	}

	split, err := ddl.SplitStages(detokenised)
	if err != nil {
		return nil, &dberrors.SchemaError{Stage: "split-stages", Err: err}
	}
	if err := ddl.ValidateStatements(split.Stage1); err != nil {
		return nil, &dberrors.SchemaError{Stage: "split-stages", Err: err}
	}
	for _, stage := range []map[string]string{split.Stage2, split.Stage3} {
		for table, stmt := range stage {
			if err := ddl.ValidateStatements(stmt); err != nil {
				return nil, &dberrors.SchemaError{Stage: "split-stages", Table: table, Err: err}
			}
		}
	}

	if err := writeStageArtifacts(sourceDir, split); err != nil {
		return nil, &dberrors.SchemaError{Stage: "split-stages", Err: err}
	}

	if !o.Cfg.SkipCreateDB {
		if err := o.execStatements(targetDatabase, "apply-stage-1", split.Stage1); err != nil {
			return nil, err
		}
	}
	return split, nil
}

// writeStageArtifacts persists the derived stage-1/stage-2/stage-3 DDL
// into sourceDir, following the layout package's naming for them.
func writeStageArtifacts(sourceDir string, split *ddl.SplitResult) error {
	if err := os.WriteFile(filepath.Join(sourceDir, layout.Stage1File), []byte(split.Stage1), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", layout.Stage1File, err)
	}
	if len(split.Stage2) > 0 {
		if err := os.MkdirAll(filepath.Join(sourceDir, layout.Stage2Dir), 0755); err != nil {
			return fmt.Errorf("creating %s: %w", layout.Stage2Dir, err)
		}
	}
	for table, text := range split.Stage2 {
		if err := os.WriteFile(layout.Stage2Path(sourceDir, table), []byte(text), 0644); err != nil {
			return fmt.Errorf("writing stage-2 DDL for %s: %w", table, err)
		}
	}
	if len(split.Stage3) > 0 {
		if err := os.MkdirAll(filepath.Join(sourceDir, layout.Stage3Dir), 0755); err != nil {
			return fmt.Errorf("creating %s: %w", layout.Stage3Dir, err)
		}
	}
	for table, text := range split.Stage3 {
		if err := os.WriteFile(layout.Stage3Path(sourceDir, table), []byte(text), 0644); err != nil {
			return fmt.Errorf("writing stage-3 DDL for %s: %w", table, err)
		}
	}
	return nil
}

// execStatements splits ddlText into individual statements and executes
// each against targetDatabase in order.
func (o *Orchestrator) execStatements(targetDatabase, stage, ddlText string) error {
	statements, err := ddl.SplitExecutableStatements(ddlText)
	if err != nil {
		return &dberrors.SchemaError{Stage: stage, Err: err}
	}
	if len(statements) == 0 {
		return nil
	}

	conn := o.Cfg.Conn
	conn.Database = targetDatabase
	db, err := mysqlconn.Connect(conn)
	if err != nil {
		return &dberrors.ConnectError{Host: conn.Host, Err: err}
	}
	defer db.Close()

	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return &dberrors.SchemaError{Stage: stage, Err: fmt.Errorf("executing %q: %w", truncateForLog(stmt, 120), err)}
		}
	}
	return nil
}

// runPostSchemaHook runs the configured post-schema shell command, if
// any, capturing and logging its output.
func (o *Orchestrator) runPostSchemaHook() error {
	if o.Cfg.PostSchemaCommand == "" {
		return nil
	}
	cmd := exec.Command("sh", "-c", o.Cfg.PostSchemaCommand)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()
	o.Logger.Printf("[orchestrator] post-schema command output:\n%s", out.String())
	if err != nil {
		return &dberrors.SchemaError{Stage: "post-schema-hook", Err: err}
	}
	return nil
}

// loadData hands every discovered table to the worker pool and blocks
// until every table has finished loading.
func (o *Orchestrator) loadData(sourceDir, targetDatabase string, tables []string) error {
	p := pool.New(o.Cfg.Jobs)

	tasks := make([]pool.Task, 0, len(tables))
	for _, table := range tables {
		table := table
		tasks = append(tasks, pool.Task{
			Table: table,
			Run: func() error {
				cfg := restorer.Config{
					Conn: o.Cfg.Conn, Database: targetDatabase, Table: table, WorkDir: sourceDir,
				}
				return restorer.RestoreTable(o.workerConnect, cfg)
			},
		})
	}
	return p.Run(tasks)
}

// applyKeyStage applies per-table ALTER DDL (stage-2 keys or stage-3
// foreign keys) in parallel, one table at a time, then drains before
// returning.
func (o *Orchestrator) applyKeyStage(targetDatabase string, stage map[string]string, label string) error {
	if len(stage) == 0 {
		return nil
	}
	p := pool.New(o.Cfg.Jobs)

	tasks := make([]pool.Task, 0, len(stage))
	for table, stmt := range stage {
		table, stmt := table, stmt
		tasks = append(tasks, pool.Task{
			Table: table,
			Run: func() error {
				return o.execStatements(targetDatabase, label, stmt)
			},
		})
	}
	return p.Run(tasks)
}

func truncateForLog(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
