package validation

import (
	"fmt"
	"os"
	"path/filepath"
)

// DiskSpace describes the filesystem holding a path.
type DiskSpace struct {
	Path  string
	Total int64
	Free  int64
}

// GetDiskSpace reports the filesystem containing path. Missing paths are
// resolved to their nearest existing parent.
func GetDiskSpace(path string) (DiskSpace, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return DiskSpace{}, fmt.Errorf("validation: resolve %s: %w", path, err)
	}
	for {
		info, err := os.Stat(abs)
		if err == nil {
			if !info.IsDir() {
				abs = filepath.Dir(abs)
			}
			break
		}
		parent := filepath.Dir(abs)
		if !os.IsNotExist(err) || parent == abs {
			return DiskSpace{}, fmt.Errorf("validation: stat %s: %w", path, err)
		}
		abs = parent
	}

	total, free, err := getDiskSpace(abs)
	if err != nil {
		return DiskSpace{}, fmt.Errorf("validation: disk space for %s: %w", abs, err)
	}
	return DiskSpace{Path: abs, Total: total, Free: free}, nil
}

// formatBytes renders n with binary units.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
