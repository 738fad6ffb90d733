// Package layout names every path the dump/restore engine reads or
// writes inside a working directory: sharded data files, info
// sidecars, schema stages, and the final archive.
package layout

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
)

// ArchiveSuffix is appended to the database name to name the final archive.
const ArchiveSuffix = ".accel.dump"

// SchemaOrig is the raw DDL as emitted by the vendor dumper.
const SchemaOrig = "schema.ddl.orig"

// SchemaTokenised is the DEFINER-stripped, database-name-tokenised DDL.
const SchemaTokenised = "schema.ddl.tokenised"

// Stage1File holds CREATE TABLE (columns only), views, functions, procedures.
const Stage1File = "accel_schema_stage_1.ddl"

// Stage2Dir holds per-table key/primary-key/auto-increment ALTERs.
const Stage2Dir = "stage_2"

// Stage3Dir holds per-table foreign-key ALTERs.
const Stage3Dir = "stage_3"

// WorkingDir returns the per-database working directory beneath root.
func WorkingDir(root, database string) string {
	return filepath.Join(root, database)
}

// ArchivePath returns the final archive path for a database dumped into root.
func ArchivePath(root, database string) string {
	return filepath.Join(root, database+ArchiveSuffix)
}

// ArchiveTarPath is the intermediate tar file before it is renamed to ArchivePath.
func ArchiveTarPath(root, database string) string {
	return filepath.Join(root, database+".tar")
}

// Stage2Path returns the per-table stage-2 (keys) DDL path.
func Stage2Path(dir, table string) string {
	return filepath.Join(dir, Stage2Dir, table+".ddl")
}

// Stage3Path returns the per-table stage-3 (foreign keys) DDL path.
func Stage3Path(dir, table string) string {
	return filepath.Join(dir, Stage3Dir, table+".ddl")
}

// ShardPath returns the path of data shard pageNo (1-based) for table.
// pageNo is formatted as a zero-padded six-digit ordinal, e.g. "000001".
func ShardPath(dir, table string, pageNo int) string {
	return filepath.Join(dir, fmt.Sprintf("%s.%06d.csv.gz", table, pageNo))
}

// ShardGlob returns a glob pattern matching all shards of table.
func ShardGlob(dir, table string) string {
	return filepath.Join(dir, fmt.Sprintf("%s.*.csv.gz", table))
}

// FallbackPath returns the vendor-format dump path for a fallback table.
func FallbackPath(dir, table string) string {
	return filepath.Join(dir, table+".sql.gz")
}

// InfoPath returns the row-count sidecar path for table.
func InfoPath(dir, table string) string {
	return filepath.Join(dir, table+".info")
}

// FifoPath returns the named-pipe path used to stream a shard during restore.
func FifoPath(dir, table string) string {
	return filepath.Join(dir, table+".fifo")
}

var (
	reShardEntry    = regexp.MustCompile(`^(.+)\.\d{6}\.csv\.gz$`)
	reFallbackEntry = regexp.MustCompile(`^(.+)\.sql\.gz$`)
)

// DiscoverTables inspects dir and returns, in name order, every table
// that has at least one CSV shard or a fallback dump present. The
// restorer uses this to build its work list straight from the
// extracted archive, without needing a separate manifest of what was
// dumped.
func DiscoverTables(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}

	seen := make(map[string]bool)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if m := reShardEntry.FindStringSubmatch(name); m != nil {
			seen[m[1]] = true
			continue
		}
		if m := reFallbackEntry.FindStringSubmatch(name); m != nil {
			seen[m[1]] = true
		}
	}

	tables := make([]string, 0, len(seen))
	for t := range seen {
		tables = append(tables, t)
	}
	sort.Strings(tables)
	return tables, nil
}
