package application

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ericfisherdev/stadatax/internal/domain/model"
	"github.com/ericfisherdev/stadatax/internal/domain/port/driven"
)

// objectScheme prefixes destinations served by the object storage sink.
const objectScheme = "s3://"

// Exporter serializes tables and hands them to the matching sink.
type Exporter struct {
	local   driven.ExportSink
	objects driven.ExportSink // nil when object storage is not configured.
}

// NewExporter creates an Exporter writing local paths to local. objects, which
// may be nil, receives s3:// destinations.
func NewExporter(local, objects driven.ExportSink) *Exporter {
	return &Exporter{local: local, objects: objects}
}

// Export normalizes t and writes it to dest. When overwrite is false and dest
// already exists it fails with DestinationExists and dest is left untouched.
// It returns the final location.
func (e *Exporter) Export(ctx context.Context, t model.Table, dest string, format model.ExportFormat, overwrite bool) (string, error) {
	sink, err := e.sinkFor(dest)
	if err != nil {
		return "", err
	}

	data, contentType, err := Encode(Normalize(t), format)
	if err != nil {
		return "", err
	}

	exists, err := sink.Exists(ctx, dest)
	if err != nil {
		return "", fmt.Errorf("check destination: %w", err)
	}
	if exists {
		if !overwrite {
			return "", model.DestinationExists(dest)
		}
		slog.Warn("overwriting existing export", "destination", dest)
	}

	loc, err := sink.Write(ctx, dest, data, contentType)
	if err != nil {
		return "", fmt.Errorf("write export: %w", err)
	}

	slog.Info("table exported", "destination", loc, "format", format,
		"rows", len(t.Rows), "bytes", len(data))
	return loc, nil
}

// ExportConfirmed writes t to dest, replacing anything already there. It is
// for callers that have already asked the user to confirm the overwrite.
func (e *Exporter) ExportConfirmed(ctx context.Context, t model.Table, dest string, format model.ExportFormat) (string, error) {
	return e.Export(ctx, t, dest, format, true)
}

func (e *Exporter) sinkFor(dest string) (driven.ExportSink, error) {
	if strings.TrimSpace(dest) == "" {
		return nil, model.NewError(model.KindUnsupportedFormat, "export destination is empty", nil)
	}
	if strings.HasPrefix(dest, objectScheme) {
		if e.objects == nil {
			return nil, model.NewError(model.KindUnsupportedFormat,
				"object storage destinations are not enabled (set STADATAX_S3_ENABLED)", nil)
		}
		return e.objects, nil
	}
	return e.local, nil
}

// DownloadService saves static tables into the user's download directory.
type DownloadService struct {
	stats       *StatisticsService
	exporter    *Exporter
	settings    driven.SettingsStore
	fallbackDir string
}

// NewDownloadService creates a DownloadService. fallbackDir is used when no
// download_path setting names an existing directory; empty means the working
// directory.
func NewDownloadService(stats *StatisticsService, exporter *Exporter, settings driven.SettingsStore, fallbackDir string) *DownloadService {
	return &DownloadService{stats: stats, exporter: exporter, settings: settings, fallbackDir: fallbackDir}
}

// DownloadStaticTable fetches a static table and writes it as filename inside
// the download directory. The format extension is appended when missing.
func (d *DownloadService) DownloadStaticTable(
	ctx context.Context,
	domainID, tableID, filename string,
	format model.ExportFormat,
	overwrite bool,
) (string, error) {
	if _, ok := contentTypes[format]; !ok {
		return "", model.NewError(model.KindUnsupportedFormat, fmt.Sprintf("unsupported export format %q", format), nil)
	}

	st, err := d.stats.ViewStaticTable(ctx, domainID, tableID)
	if err != nil {
		return "", err
	}

	if filename == "" {
		filename = fmt.Sprintf("%s_%s", domainID, tableID)
	}
	if filepath.Ext(filename) != format.Extension() {
		filename += format.Extension()
	}

	dir, err := d.DownloadDir(ctx)
	if err != nil {
		return "", err
	}
	return d.exporter.Export(ctx, st.Table, filepath.Join(dir, filepath.Base(filename)), format, overwrite)
}

// DownloadDir resolves the directory downloads are written to: the stored
// download_path if it is an existing directory, else the fallback directory,
// else the working directory.
func (d *DownloadService) DownloadDir(ctx context.Context) (string, error) {
	if d.settings != nil {
		stored, err := d.settings.Get(ctx, model.SettingDownloadPath)
		if err != nil {
			slog.Warn("reading download path setting failed", "error", err)
		} else if stored != "" {
			if info, err := os.Stat(stored); err == nil && info.IsDir() {
				return stored, nil
			}
			slog.Warn("configured download path is not a directory, ignoring", "path", stored)
		}
	}
	if d.fallbackDir != "" {
		return d.fallbackDir, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("resolve working directory: %w", err)
	}
	return cwd, nil
}
