package ddl

import (
	"strings"
	"testing"
)

const sampleSchema = `-- MySQL dump
--
-- Database: shop
--

-- Table structure for table ` + "`orders`" + `
--

DROP TABLE IF EXISTS ` + "`orders`" + `;
CREATE TABLE ` + "`orders`" + ` (
  ` + "`id`" + ` int NOT NULL AUTO_INCREMENT,
  ` + "`user_id`" + ` int NOT NULL,
  ` + "`total`" + ` decimal(10,2) NOT NULL,
  PRIMARY KEY (` + "`id`" + `),
  KEY ` + "`idx_user`" + ` (` + "`user_id`" + `),
  CONSTRAINT ` + "`fk_orders_user`" + ` FOREIGN KEY (` + "`user_id`" + `) REFERENCES ` + "`users`" + ` (` + "`id`" + `)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;

-- Table structure for table ` + "`tags`" + `
--

DROP TABLE IF EXISTS ` + "`tags`" + `;
CREATE TABLE ` + "`tags`" + ` (
  ` + "`name`" + ` varchar(64) NOT NULL,
  UNIQUE KEY ` + "`uniq_name`" + ` (` + "`name`" + `)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;
`

func TestSplitStagesSeparatesColumnsFromKeys(t *testing.T) {
	result, err := SplitStages(sampleSchema)
	if err != nil {
		t.Fatalf("SplitStages: %v", err)
	}

	if strings.Contains(result.Stage1, "PRIMARY KEY") {
		t.Errorf("stage1 should not contain PRIMARY KEY, got:\n%s", result.Stage1)
	}
	if strings.Contains(result.Stage1, "CONSTRAINT") {
		t.Errorf("stage1 should not contain CONSTRAINT, got:\n%s", result.Stage1)
	}
	if !strings.Contains(result.Stage1, "`id` int NOT NULL") {
		t.Errorf("stage1 should retain the id column without AUTO_INCREMENT inline artifacts, got:\n%s", result.Stage1)
	}
	if strings.Contains(result.Stage1, "AUTO_INCREMENT") {
		t.Errorf("stage1 column definition should have AUTO_INCREMENT removed, got:\n%s", result.Stage1)
	}
}

func TestSplitStagesOrdersStage2HasAutoIncrementAndKey(t *testing.T) {
	result, err := SplitStages(sampleSchema)
	if err != nil {
		t.Fatalf("SplitStages: %v", err)
	}

	stage2, ok := result.Stage2["orders"]
	if !ok {
		t.Fatalf("expected stage2 entry for orders, got: %v", result.Stage2)
	}
	if !strings.Contains(stage2, "MODIFY `id` int NOT NULL AUTO_INCREMENT PRIMARY KEY") {
		t.Errorf("stage2 missing AUTO_INCREMENT PRIMARY KEY fragment, got:\n%s", stage2)
	}
	if !strings.Contains(stage2, "ADD KEY `idx_user` (`user_id`)") {
		t.Errorf("stage2 missing secondary key fragment, got:\n%s", stage2)
	}
	if strings.Contains(stage2, "ADD PRIMARY KEY") {
		t.Errorf("stage2 should not separately ADD PRIMARY KEY when AUTO_INCREMENT already covers it, got:\n%s", stage2)
	}
}

func TestSplitStagesOrdersStage3HasForeignKey(t *testing.T) {
	result, err := SplitStages(sampleSchema)
	if err != nil {
		t.Fatalf("SplitStages: %v", err)
	}

	stage3, ok := result.Stage3["orders"]
	if !ok {
		t.Fatalf("expected stage3 entry for orders, got: %v", result.Stage3)
	}
	if !strings.Contains(stage3, "ADD CONSTRAINT `fk_orders_user` FOREIGN KEY (`user_id`) REFERENCES `users` (`id`)") {
		t.Errorf("stage3 missing foreign key fragment, got:\n%s", stage3)
	}
}

func TestSplitStagesTagsUniqueKeyGoesToStage2(t *testing.T) {
	result, err := SplitStages(sampleSchema)
	if err != nil {
		t.Fatalf("SplitStages: %v", err)
	}

	if _, hasFK := result.Stage3["tags"]; hasFK {
		t.Errorf("tags should have no stage3 entry, got: %v", result.Stage3["tags"])
	}
	stage2, ok := result.Stage2["tags"]
	if !ok {
		t.Fatalf("expected stage2 entry for tags (unique key), got: %v", result.Stage2)
	}
	if !strings.Contains(stage2, "ADD UNIQUE KEY `uniq_name` (`name`)") {
		t.Errorf("stage2 missing unique key fragment, got:\n%s", stage2)
	}
}

func TestSplitStagesMismatchedTableNameErrors(t *testing.T) {
	bad := "-- Table structure for table `orders`\n--\nCREATE TABLE `other` (\n  `id` int\n) ENGINE=InnoDB;\n"
	if _, err := SplitStages(bad); err == nil {
		t.Errorf("expected error for mismatched table name, got nil")
	}
}

