// Package mysqlprobe queries information_schema for table enumeration,
// column types, primary/unique keys, row counts, and derives the
// export/import expressions the dumper and restorer need for BLOB
// handling.
package mysqlprobe

import (
	"database/sql"
	"fmt"
	"strings"
)

// ColumnType describes one column's information_schema shape.
type ColumnType struct {
	Name     string
	DataType string // information_schema.COLUMNS.DATA_TYPE, e.g. "int", "blob", "text"
}

// IsBlob reports whether the column's DATA_TYPE is one of MySQL's BLOB family.
func (c ColumnType) IsBlob() bool {
	switch strings.ToLower(c.DataType) {
	case "tinyblob", "blob", "mediumblob", "longblob":
		return true
	}
	return false
}

// IsText reports whether the column's DATA_TYPE is one of MySQL's TEXT family.
func (c ColumnType) IsText() bool {
	switch strings.ToLower(c.DataType) {
	case "tinytext", "text", "mediumtext", "longtext":
		return true
	}
	return false
}

// escapeIdentifier wraps a MySQL identifier in backticks, escaping any
// backticks within it, preventing injection via database/table names.
func escapeIdentifier(identifier string) string {
	escaped := strings.ReplaceAll(identifier, "`", "``")
	return "`" + escaped + "`"
}

// EscapeIdentifier is the exported form of escapeIdentifier, reused by
// the dumper and the restorer when they build the SELECT and LOAD DATA
// statements that reference a table name.
func EscapeIdentifier(identifier string) string {
	return escapeIdentifier(identifier)
}

// ListBaseTables returns base tables in database in name order, optionally
// restricted to the names present in filter (nil means no restriction).
func ListBaseTables(db *sql.DB, database string, filter map[string]bool) ([]string, error) {
	rows, err := db.Query(`
		SELECT TABLE_NAME
		FROM information_schema.TABLES
		WHERE TABLE_SCHEMA = ? AND TABLE_TYPE = 'BASE TABLE'
		ORDER BY TABLE_NAME
	`, database)
	if err != nil {
		return nil, fmt.Errorf("listing base tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning table name: %w", err)
		}
		if filter == nil || filter[name] {
			tables = append(tables, name)
		}
	}
	return tables, rows.Err()
}

// GetRowCount returns the exact row count for table via SELECT COUNT(*).
func GetRowCount(db *sql.DB, database, table string) (int64, error) {
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s.%s", escapeIdentifier(database), escapeIdentifier(table))
	var count int64
	if err := db.QueryRow(query).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting rows in %s: %w", table, err)
	}
	return count, nil
}

// GetColumnTypes returns table's columns ordered by ORDINAL_POSITION.
func GetColumnTypes(db *sql.DB, database, table string) ([]ColumnType, error) {
	rows, err := db.Query(`
		SELECT COLUMN_NAME, DATA_TYPE
		FROM information_schema.COLUMNS
		WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ?
		ORDER BY ORDINAL_POSITION
	`, database, table)
	if err != nil {
		return nil, fmt.Errorf("querying columns for %s: %w", table, err)
	}
	defer rows.Close()

	var cols []ColumnType
	for rows.Next() {
		var c ColumnType
		if err := rows.Scan(&c.Name, &c.DataType); err != nil {
			return nil, fmt.Errorf("scanning column for %s: %w", table, err)
		}
		cols = append(cols, c)
	}
	return cols, rows.Err()
}

// GetPrimaryOrUniqueKeys returns the ordered column list of table's PRIMARY
// KEY, or the first UNIQUE index if there is no primary key. Returns an
// empty slice if neither exists.
func GetPrimaryOrUniqueKeys(db *sql.DB, database, table string) ([]string, error) {
	rows, err := db.Query(`
		SELECT INDEX_NAME, COLUMN_NAME
		FROM information_schema.STATISTICS
		WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ? AND NON_UNIQUE = 0
		ORDER BY INDEX_NAME, SEQ_IN_INDEX
	`, database, table)
	if err != nil {
		return nil, fmt.Errorf("querying keys for %s: %w", table, err)
	}
	defer rows.Close()

	byIndex := map[string][]string{}
	var order []string
	for rows.Next() {
		var idxName, col string
		if err := rows.Scan(&idxName, &col); err != nil {
			return nil, fmt.Errorf("scanning key column for %s: %w", table, err)
		}
		if _, seen := byIndex[idxName]; !seen {
			order = append(order, idxName)
		}
		byIndex[idxName] = append(byIndex[idxName], col)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if cols, ok := byIndex["PRIMARY"]; ok {
		return cols, nil
	}
	for _, name := range order {
		return byIndex[name], nil // first UNIQUE index encountered
	}
	return nil, nil
}

// ExportExpressions are the SELECT-list expressions for a streaming dump,
// and whether the table must be routed to the fallback exporter.
type ExportExpressions struct {
	Expressions    []string // e.g. "`id`", "HEX(`payload`)"
	Columns        []string // column names in the same order
	PagingRequired bool     // true iff any column is BLOB or TEXT
}

// DeriveExportExpressions builds the SELECT-list for a streaming export of
// cols: ordinary columns pass through, BLOB columns are wrapped in HEX().
// PagingRequired is true iff any column is BLOB-or-TEXT.
func DeriveExportExpressions(cols []ColumnType) ExportExpressions {
	out := ExportExpressions{}
	for _, c := range cols {
		out.Columns = append(out.Columns, c.Name)
		if c.IsBlob() {
			out.Expressions = append(out.Expressions, fmt.Sprintf("HEX(%s)", escapeIdentifier(c.Name)))
		} else {
			out.Expressions = append(out.Expressions, escapeIdentifier(c.Name))
		}
		if c.IsBlob() || c.IsText() {
			out.PagingRequired = true
		}
	}
	return out
}

// ImportExpressions are the LOAD DATA column-placeholder list and SET clause
// needed to re-import HEX()-encoded BLOB columns via UNHEX().
type ImportExpressions struct {
	Placeholders []string // e.g. "`id`", "@payload"
	SetClauses   []string // e.g. "`payload`=UNHEX(@payload)"
}

// DeriveImportExpressions builds the LOAD DATA column list and SET clause:
// BLOB columns bind to a user variable and are unhexed in the SET clause.
func DeriveImportExpressions(cols []ColumnType) ImportExpressions {
	out := ImportExpressions{}
	for _, c := range cols {
		if c.IsBlob() {
			varName := "@" + c.Name
			out.Placeholders = append(out.Placeholders, varName)
			out.SetClauses = append(out.SetClauses, fmt.Sprintf("%s=UNHEX(%s)", escapeIdentifier(c.Name), varName))
		} else {
			out.Placeholders = append(out.Placeholders, escapeIdentifier(c.Name))
		}
	}
	return out
}
