package report

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestRenderSuccessContainsDatabaseAndCounts(t *testing.T) {
	var buf bytes.Buffer
	Render(&buf, Summary{
		Action:          "dump",
		Database:        "shop",
		TablesProcessed: 2,
		ShardCount:      3,
		TotalRows:       1234567,
		Duration:        90 * time.Second,
	})

	out := buf.String()
	for _, want := range []string{"shop", "1,234,567", "1m30s"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderFailureIncludesError(t *testing.T) {
	var buf bytes.Buffer
	Render(&buf, Summary{
		Action:   "restore",
		Database: "shop_test",
		Err:      errors.New("table orders: row count mismatch"),
	})

	out := buf.String()
	if !strings.Contains(out, "row count mismatch") {
		t.Errorf("output missing error text:\n%s", out)
	}
}
