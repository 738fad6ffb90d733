package codec

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// Tar creates a tar archive at tarPath containing dir (and everything
// beneath it), run from dir's parent so the archive's entries are
// rooted at dir's base name, giving the archive a single top-level
// "<database>/" directory.
func Tar(tarPath, dir string) error {
	parent := filepath.Dir(dir)
	base := filepath.Base(dir)

	cmd := exec.Command("tar", "-cf", tarPath, base)
	cmd.Dir = parent
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("tar failed: %w: %s", err, out)
	}
	return nil
}

// Untar extracts tarPath into destDir.
func Untar(tarPath, destDir string) error {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return fmt.Errorf("creating extraction dir: %w", err)
	}
	cmd := exec.Command("tar", "-xf", tarPath, "-C", destDir)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("untar failed: %w: %s", err, out)
	}
	return nil
}
