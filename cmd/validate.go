package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// sensitivePathPrefixes flags archive paths that point somewhere an
// operator almost certainly didn't mean to restore from.
var sensitivePathPrefixes = []string{"/etc/", "/sys/", "/proc/", "/dev/"}

// validateArchivePath checks that path names a regular, readable file
// before the orchestrator shells out to tar against it. There is no
// size cap: dump archives are routinely gigabytes.
func validateArchivePath(path string) error {
	if path == "" {
		return fmt.Errorf("--file is required for --action restore")
	}

	cleaned := filepath.Clean(path)
	abs, err := filepath.Abs(cleaned)
	if err != nil {
		return fmt.Errorf("resolving --file %q: %w", path, err)
	}

	for _, prefix := range sensitivePathPrefixes {
		if strings.HasPrefix(abs, prefix) {
			return fmt.Errorf("--file %q points into %s, refusing to restore from a system path", path, prefix)
		}
	}

	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("--file %q: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("--file %q is not a regular file", path)
	}
	return nil
}
