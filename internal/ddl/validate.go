package ddl

import (
	"fmt"
	"strings"

	"vitess.io/vitess/go/vt/sqlparser"
)

// ValidateStatements sanity-parses every semicolon-terminated statement
// in ddlText with vitess's SQL parser. This does not drive the split
// (the split above is its own line-oriented text state machine); it is
// a cheap pre-flight so a malformed rewrite fails before the restorer
// ever opens a connection.
func ValidateStatements(ddlText string) error {
	statements, err := sqlparser.SplitStatementToPieces(ddlText)
	if err != nil {
		return fmt.Errorf("ddl: splitting statements: %w", err)
	}
	for _, stmt := range statements {
		trimmed := strings.TrimSpace(stmt)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		if _, err := sqlparser.Parse(trimmed); err != nil {
			return fmt.Errorf("ddl: parsing statement %q: %w", truncate(trimmed, 80), err)
		}
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// SplitExecutableStatements splits ddlText into individually-executable
// statements, dropping blank lines and comment-only pieces. The
// orchestrator uses this to apply stage-1/stage-2/stage-3 DDL (and the
// full detokenised schema, when --accel-keys is not set) one statement
// at a time against the target server.
func SplitExecutableStatements(ddlText string) ([]string, error) {
	pieces, err := sqlparser.SplitStatementToPieces(ddlText)
	if err != nil {
		return nil, fmt.Errorf("ddl: splitting statements: %w", err)
	}
	var out []string
	for _, p := range pieces {
		trimmed := strings.TrimSpace(p)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		out = append(out, trimmed)
	}
	return out, nil
}
