package system

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FindLatest returns the most recently modified file in dir whose extension
// is one of exts (lower case, with the dot).
func FindLatest(dir string, exts ...string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to read directory: %w", err)
	}

	type candidate struct {
		path  string
		mtime int64
	}
	var files []candidate
	for _, entry := range entries {
		if entry.IsDir() || !hasExt(entry.Name(), exts) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, candidate{filepath.Join(dir, entry.Name()), info.ModTime().UnixNano()})
	}

	if len(files) == 0 {
		return "", fmt.Errorf("no matching files found in %s", dir)
	}

	// newest first
	sort.Slice(files, func(i, j int) bool {
		return files[i].mtime > files[j].mtime
	})
	return files[0].path, nil
}

func hasExt(name string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}
