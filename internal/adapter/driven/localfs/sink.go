// Package localfs implements the ExportSink port on the local filesystem.
package localfs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"

	"github.com/ericfisherdev/stadatax/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.ExportSink = (*Sink)(nil)

// Sink writes exports as local files.
type Sink struct{}

// New creates a local filesystem sink.
func New() *Sink { return &Sink{} }

// Exists reports whether a file or directory is present at dest.
func (s *Sink) Exists(_ context.Context, dest string) (bool, error) {
	_, err := os.Stat(dest)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("stat %s: %w", dest, err)
}

// Write replaces dest with data through a temporary file and rename. Parent
// directories are created as needed. The absolute path is returned.
func (s *Sink) Write(_ context.Context, dest string, data []byte, _ string) (string, error) {
	abs, err := filepath.Abs(dest)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", dest, err)
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", fmt.Errorf("create directory for %s: %w", abs, err)
	}
	if err := atomic.WriteFile(abs, bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("write %s: %w", abs, err)
	}
	return abs, nil
}
