// Package orchestrator implements the dump and restore state machines
// that compose the metadata probe, table dumper, fallback exporter,
// table restorer, DDL rewriter and worker pool into the two top-level
// actions the CLI exposes: connect, collect metadata, run the
// multi-stage dump or restore flow, and return a summary. The CLI builds
// the config from viper beforehand and renders the summary afterwards.
package orchestrator

import (
	"database/sql"
	"log"

	"dbaccel/internal/config"
	"dbaccel/internal/mysqlconn"
)

// Orchestrator runs one dump or restore action for cfg, logging through
// logger. The log stream is the only thing shared across workers;
// configuration and the log sink are passed in explicitly rather than
// held as process globals.
type Orchestrator struct {
	Cfg    config.Config
	Logger *log.Logger
}

// New returns an Orchestrator for cfg. A nil logger falls back to the
// standard logger.
func New(cfg config.Config, logger *log.Logger) *Orchestrator {
	if logger == nil {
		logger = log.Default()
	}
	return &Orchestrator{Cfg: cfg, Logger: logger}
}

// adminConnect opens a short-lived administrative session (schema dump,
// table enumeration) distinct from the per-table worker sessions.
func (o *Orchestrator) adminConnect() (*sql.DB, error) {
	return mysqlconn.Connect(o.Cfg.Conn)
}

// workerConnect opens a fresh worker session with retry: up to 5
// attempts, 60-second backoff between them.
func (o *Orchestrator) workerConnect() (*sql.DB, error) {
	return mysqlconn.ConnectWithRetry(o.Cfg.Conn)
}
