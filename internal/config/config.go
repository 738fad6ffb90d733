// Package config holds the explicit configuration record threaded
// through the orchestrator and every worker. It is built once in
// cmd/root.go from viper and passed down explicitly rather than kept
// as process-global state.
package config

import "dbaccel/internal/mysqlconn"

// Action selects the top-level operation.
type Action string

const (
	ActionDump    Action = "dump"
	ActionRestore Action = "restore"
)

// Config is the complete set of parameters for one dbaccel invocation.
type Config struct {
	Conn mysqlconn.ConnectionConfig

	Action Action

	Jobs      int
	Directory string

	// Dump-specific
	Sample         int
	CheckCount     bool
	FallbackTables []string
	TablesString   []string
	DryRun         bool

	// Restore-specific
	File              string
	AccelKeys         bool
	SkipCreateDB      bool
	PostSchemaCommand string

	Verbose bool
}

// IsFallbackTable reports whether table was named in --fallback-tables.
func (c *Config) IsFallbackTable(table string) bool {
	for _, t := range c.FallbackTables {
		if t == table {
			return true
		}
	}
	return false
}

// TableFilter returns the --tables-string set, or nil if all tables are included.
func (c *Config) TableFilter() map[string]bool {
	if len(c.TablesString) == 0 {
		return nil
	}
	set := make(map[string]bool, len(c.TablesString))
	for _, t := range c.TablesString {
		set[t] = true
	}
	return set
}

// Validate checks required fields and returns a *dberrors.ConfigError-shaped
// message; callers wrap it as needed.
func (c *Config) Validate() error {
	return validate(c)
}
