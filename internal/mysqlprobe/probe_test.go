package mysqlprobe

import (
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestColumnTypeClassification(t *testing.T) {
	cases := []struct {
		dataType string
		isBlob   bool
		isText   bool
	}{
		{"int", false, false},
		{"varchar", false, false},
		{"blob", true, false},
		{"longblob", true, false},
		{"tinyblob", true, false},
		{"text", false, true},
		{"mediumtext", false, true},
		{"decimal", false, false},
	}
	for _, c := range cases {
		col := ColumnType{Name: "x", DataType: c.dataType}
		if col.IsBlob() != c.isBlob {
			t.Errorf("%s: IsBlob() = %v, want %v", c.dataType, col.IsBlob(), c.isBlob)
		}
		if col.IsText() != c.isText {
			t.Errorf("%s: IsText() = %v, want %v", c.dataType, col.IsText(), c.isText)
		}
	}
}

func TestDeriveExportExpressionsScalarOnly(t *testing.T) {
	cols := []ColumnType{{Name: "id", DataType: "int"}, {Name: "name", DataType: "varchar"}}
	out := DeriveExportExpressions(cols)
	if out.PagingRequired {
		t.Error("expected PagingRequired=false for scalar-only table")
	}
	want := []string{"`id`", "`name`"}
	for i, exp := range out.Expressions {
		if exp != want[i] {
			t.Errorf("expression[%d] = %q, want %q", i, exp, want[i])
		}
	}
}

func TestDeriveExportExpressionsBlobHex(t *testing.T) {
	cols := []ColumnType{{Name: "id", DataType: "int"}, {Name: "payload", DataType: "longblob"}}
	out := DeriveExportExpressions(cols)
	if !out.PagingRequired {
		t.Error("expected PagingRequired=true when a BLOB column is present")
	}
	if out.Expressions[1] != "HEX(`payload`)" {
		t.Errorf("expected HEX() wrapping, got %q", out.Expressions[1])
	}
}

func TestDeriveExportExpressionsTextTriggersPaging(t *testing.T) {
	cols := []ColumnType{{Name: "id", DataType: "int"}, {Name: "notes", DataType: "text"}}
	out := DeriveExportExpressions(cols)
	if !out.PagingRequired {
		t.Error("expected PagingRequired=true when a TEXT column is present")
	}
	if out.Expressions[1] != "`notes`" {
		t.Errorf("TEXT columns are not HEX-wrapped, got %q", out.Expressions[1])
	}
}

func TestDeriveImportExpressions(t *testing.T) {
	cols := []ColumnType{{Name: "id", DataType: "int"}, {Name: "payload", DataType: "blob"}}
	out := DeriveImportExpressions(cols)
	if out.Placeholders[0] != "`id`" || out.Placeholders[1] != "@payload" {
		t.Errorf("unexpected placeholders: %v", out.Placeholders)
	}
	if len(out.SetClauses) != 1 || out.SetClauses[0] != "`payload`=UNHEX(@payload)" {
		t.Errorf("unexpected SET clauses: %v", out.SetClauses)
	}
}

func TestEscapeIdentifierEscapesBackticks(t *testing.T) {
	got := escapeIdentifier("weird`name")
	want := "`weird``name`"
	if got != want {
		t.Errorf("escapeIdentifier() = %q, want %q", got, want)
	}
}

func TestListBaseTablesAppliesFilter(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	rows := sqlmock.NewRows([]string{"TABLE_NAME"}).
		AddRow("orders").
		AddRow("users").
		AddRow("audit_log")
	mock.ExpectQuery(regexp.QuoteMeta("information_schema.TABLES")).WithArgs("shop").WillReturnRows(rows)

	got, err := ListBaseTables(db, "shop", map[string]bool{"users": true, "orders": true})
	if err != nil {
		t.Fatalf("ListBaseTables: %v", err)
	}
	if len(got) != 2 || got[0] != "orders" || got[1] != "users" {
		t.Errorf("unexpected filtered tables: %v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestGetPrimaryOrUniqueKeysPrefersPrimary(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	rows := sqlmock.NewRows([]string{"INDEX_NAME", "COLUMN_NAME"}).
		AddRow("uniq_email", "email").
		AddRow("PRIMARY", "id")
	mock.ExpectQuery(regexp.QuoteMeta("information_schema.STATISTICS")).WithArgs("shop", "users").WillReturnRows(rows)

	got, err := GetPrimaryOrUniqueKeys(db, "shop", "users")
	if err != nil {
		t.Fatalf("GetPrimaryOrUniqueKeys: %v", err)
	}
	if len(got) != 1 || got[0] != "id" {
		t.Errorf("expected PRIMARY key [id], got %v", got)
	}
}

func TestGetPrimaryOrUniqueKeysFallsBackToUnique(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	rows := sqlmock.NewRows([]string{"INDEX_NAME", "COLUMN_NAME"}).
		AddRow("uniq_email", "email")
	mock.ExpectQuery(regexp.QuoteMeta("information_schema.STATISTICS")).WithArgs("shop", "files").WillReturnRows(rows)

	got, err := GetPrimaryOrUniqueKeys(db, "shop", "files")
	if err != nil {
		t.Fatalf("GetPrimaryOrUniqueKeys: %v", err)
	}
	if len(got) != 1 || got[0] != "email" {
		t.Errorf("expected fallback to unique index [email], got %v", got)
	}
}

func TestGetPrimaryOrUniqueKeysEmptyWhenNeither(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	rows := sqlmock.NewRows([]string{"INDEX_NAME", "COLUMN_NAME"})
	mock.ExpectQuery(regexp.QuoteMeta("information_schema.STATISTICS")).WithArgs("shop", "files").WillReturnRows(rows)

	got, err := GetPrimaryOrUniqueKeys(db, "shop", "files")
	if err != nil {
		t.Fatalf("GetPrimaryOrUniqueKeys: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty key list, got %v", got)
	}
}

func TestGetRowCount(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM `shop`.`users`")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(3)))

	got, err := GetRowCount(db, "shop", "users")
	if err != nil {
		t.Fatalf("GetRowCount: %v", err)
	}
	if got != 3 {
		t.Errorf("GetRowCount() = %d, want 3", got)
	}
}
