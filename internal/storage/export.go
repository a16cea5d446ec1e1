package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

const exportsDirName = "exports"

// Exports writes session transcripts as markdown files under the data
// directory.
type Exports struct {
	dir string
}

// NewExports creates the exports directory under dataPath if needed.
func NewExports(dataPath string) (*Exports, error) {
	dir := filepath.Join(dataPath, exportsDirName)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create exports directory: %w", err)
	}
	return &Exports{dir: dir}, nil
}

// Write saves a transcript and returns the path it was written to. The write
// is atomic: content lands in a temp file that is renamed into place.
func (e *Exports) Write(writeFn func(io.Writer) error) (string, error) {
	name := fmt.Sprintf(
		"seochat-%s-%s.md",
		time.Now().Format("20060102-150405"),
		NewExportID()[:SHA1Short],
	)
	path := filepath.Join(e.dir, name)

	tmp, err := os.CreateTemp(e.dir, ".tmp-*")
	if err != nil {
		return "", fmt.Errorf("export: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if err := writeFn(tmp); err != nil {
		return "", fmt.Errorf("export: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return "", fmt.Errorf("export: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("export: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return "", fmt.Errorf("export: %w", err)
	}
	_ = syncDir(e.dir)
	return path, nil
}
