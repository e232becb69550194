package convert

import (
	"os"
	"path/filepath"
	"strings"
)

// OutputPath returns explicit when set, otherwise input with its extension
// replaced by ext.
func OutputPath(input, explicit, ext string) string {
	if explicit != "" {
		return explicit
	}
	if ext == "" {
		ext = ".ics"
	}
	return strings.TrimSuffix(input, filepath.Ext(input)) + ext
}

// WriteFile writes data to path in one step: temp file in the same
// directory, sync, then rename over the target.
func WriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".csv2ics-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// No-op once the rename succeeded.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}
