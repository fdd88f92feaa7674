package cache

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ClearDir removes the directory and all contents, then recreates it so the
// location stays a valid empty cache.
func ClearDir(dir string) error {
	if strings.TrimSpace(dir) == "" {
		return errors.New("empty dir")
	}
	if err := os.RemoveAll(dir); err != nil {
		return err
	}
	return os.MkdirAll(dir, 0o755)
}

// PurgeByAge removes cached pages older than maxAge, judged by the SavedAt
// stamp in each meta file. Both the meta and its body are deleted. Unreadable
// or malformed entries are skipped rather than failing the sweep.
func PurgeByAge(dir string, maxAge time.Duration) (int, error) {
	if maxAge <= 0 {
		return 0, nil
	}
	now := time.Now().UTC()
	removed := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".meta.json") {
			return nil
		}
		b, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		var e HTTPEntry
		if err := json.Unmarshal(b, &e); err != nil {
			return nil
		}
		if now.Sub(e.SavedAt) <= maxAge {
			return nil
		}
		removed++
		_ = os.Remove(path)
		_ = os.Remove(strings.TrimSuffix(path, ".meta.json") + ".body")
		return nil
	})
	return removed, err
}
