package ddl

import "testing"

// shopDump is a shop/users/orders schema with one foreign key. The two
// tests below run the dump-side rewrite and the restore-side
// detokenise/split over it, covering the definer strip, tokenisation,
// and the 3-stage split together.
const shopDump = `-- MySQL dump
--
-- Host: localhost    Database: shop
--

/*!50017 DEFINER=` + "`root`" + `@` + "`%`" + ` SQL SECURITY DEFINER */;
ALTER DATABASE ` + "`shop`" + ` CHARACTER SET utf8mb4;
USE ` + "`shop`" + `;

-- Table structure for table ` + "`users`" + `
--

DROP TABLE IF EXISTS ` + "`users`" + `;
CREATE TABLE ` + "`users`" + ` (
  ` + "`id`" + ` int NOT NULL AUTO_INCREMENT,
  ` + "`name`" + ` varchar(128) NOT NULL,
  ` + "`email`" + ` varchar(255) NOT NULL,
  PRIMARY KEY (` + "`id`" + `)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;

-- Table structure for table ` + "`orders`" + `
--

DROP TABLE IF EXISTS ` + "`orders`" + `;
CREATE TABLE ` + "`orders`" + ` (
  ` + "`id`" + ` int NOT NULL AUTO_INCREMENT,
  ` + "`user_id`" + ` int NOT NULL,
  ` + "`total`" + ` decimal(10,2) NOT NULL,
  PRIMARY KEY (` + "`id`" + `),
  CONSTRAINT ` + "`fk_orders_user`" + ` FOREIGN KEY (` + "`user_id`" + `) REFERENCES ` + "`users`" + ` (` + "`id`" + `)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;
`

func TestShopDumpRewriteStripsDefinerAndAlterDatabase(t *testing.T) {
	tokenised := RewriteSchema(shopDump, "shop")

	for _, unwanted := range []string{"DEFINER=", "ALTER DATABASE"} {
		if containsSubstring(tokenised, unwanted) {
			t.Errorf("rewritten schema should not contain %q:\n%s", unwanted, tokenised)
		}
	}
	if !containsSubstring(tokenised, "`#DATABASE#`") {
		t.Errorf("rewritten schema should reference the database token:\n%s", tokenised)
	}
}

func TestShopRestoreSplitAndDetokeniseIntoStagingDatabase(t *testing.T) {
	tokenised := RewriteSchema(shopDump, "shop")
	detokenised := DetokeniseSchema(tokenised, "shop_test")

	split, err := SplitStages(detokenised)
	if err != nil {
		t.Fatalf("SplitStages: %v", err)
	}

	if containsSubstring(split.Stage1, "PRIMARY KEY") {
		t.Errorf("stage1 should be keyless, got:\n%s", split.Stage1)
	}
	if containsSubstring(split.Stage1, "CONSTRAINT") {
		t.Errorf("stage1 should carry no foreign keys, got:\n%s", split.Stage1)
	}

	if _, ok := split.Stage2["users"]; !ok {
		t.Errorf("expected stage2 ALTER for users, got keys: %v", keysOf(split.Stage2))
	}
	if _, ok := split.Stage2["orders"]; !ok {
		t.Errorf("expected stage2 ALTER for orders, got keys: %v", keysOf(split.Stage2))
	}
	if _, ok := split.Stage3["orders"]; !ok {
		t.Errorf("expected stage3 foreign-key ALTER for orders, got keys: %v", keysOf(split.Stage3))
	}
	if _, ok := split.Stage3["users"]; ok {
		t.Errorf("users has no foreign keys, should not appear in stage3")
	}

	if !containsSubstring(split.Stage3["orders"], "REFERENCES `users`") {
		t.Errorf("stage3 ALTER should keep the foreign key reference, got:\n%s", split.Stage3["orders"])
	}
}

func keysOf(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func containsSubstring(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
