package sink

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// OutputPath returns <dir>/<prefix>_YYYYMMDD.parquet for the run date.
func OutputPath(dir, prefix string, now time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("%s_%s.parquet", prefix, now.Format("20060102")))
}

// PruneStale deletes earlier <prefix>_*.parquet files in dir, keeping keep.
// It returns the removed paths.
func PruneStale(dir, prefix, keep string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, prefix+"_*.parquet"))
	if err != nil {
		return nil, err
	}

	keepAbs, err := filepath.Abs(keep)
	if err != nil {
		return nil, err
	}

	var removed []string
	for _, m := range matches {
		abs, err := filepath.Abs(m)
		if err != nil {
			return removed, err
		}
		if abs == keepAbs {
			continue
		}
		if err := os.Remove(m); err != nil {
			return removed, fmt.Errorf("remove %s: %w", m, err)
		}
		removed = append(removed, m)
	}
	return removed, nil
}
