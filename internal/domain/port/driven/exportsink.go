package driven

import "context"

// ExportSink defines the driven port for writing exported files.
type ExportSink interface {
	// Exists reports whether something is already stored at dest.
	Exists(ctx context.Context, dest string) (bool, error)
	// Write stores data at dest, replacing what is there, and returns the final
	// location. Readers never observe a partially written destination.
	Write(ctx context.Context, dest string, data []byte, contentType string) (string, error)
}
