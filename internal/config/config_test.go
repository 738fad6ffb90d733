package config

import (
	"testing"

	"dbaccel/internal/mysqlconn"
)

func validConfig() *Config {
	return &Config{
		Conn:   mysqlconn.ConnectionConfig{User: "root", Database: "shop"},
		Action: ActionDump,
		Jobs:   4,
	}
}

func TestValidateRequiresUsername(t *testing.T) {
	c := validConfig()
	c.Conn.User = ""
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for missing username")
	}
}

func TestValidateRequiresDatabase(t *testing.T) {
	c := validConfig()
	c.Conn.Database = ""
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for missing database")
	}
}

func TestValidateRestoreRequiresFile(t *testing.T) {
	c := validConfig()
	c.Action = ActionRestore
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for missing --file on restore")
	}
	c.File = "shop.accel.dump"
	if err := c.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateUnknownAction(t *testing.T) {
	c := validConfig()
	c.Action = "bogus"
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for unknown action")
	}
}

func TestValidateRequiresPositiveJobs(t *testing.T) {
	c := validConfig()
	c.Jobs = 0
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for non-positive jobs")
	}
}

func TestIsFallbackTable(t *testing.T) {
	c := validConfig()
	c.FallbackTables = []string{"files", "attachments"}
	if !c.IsFallbackTable("files") {
		t.Error("expected files to be a fallback table")
	}
	if c.IsFallbackTable("users") {
		t.Error("did not expect users to be a fallback table")
	}
}

func TestTableFilter(t *testing.T) {
	c := validConfig()
	if c.TableFilter() != nil {
		t.Error("expected nil filter when TablesString is empty")
	}
	c.TablesString = []string{"users", "orders"}
	filter := c.TableFilter()
	if !filter["users"] || !filter["orders"] || filter["other"] {
		t.Errorf("unexpected filter contents: %v", filter)
	}
}
