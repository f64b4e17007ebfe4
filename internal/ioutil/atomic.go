// Package ioutil writes small artifacts (run manifests, PCA models)
// atomically via temp file + rename, so readers never observe a partial
// file.
package ioutil

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// WriteJSONAtomic marshals v with indentation and writes it to path
// atomically.
func WriteJSONAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("ioutil: marshal: %w", err)
	}
	return WriteFileAtomic(path, data)
}

// WriteFileAtomic writes data to path via a temp file and rename, creating
// parent directories as needed.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ioutil: mkdir: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("ioutil: write temp: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("ioutil: rename: %w", err)
	}
	return nil
}
