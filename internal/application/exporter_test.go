package application_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ericfisherdev/stadatax/internal/adapter/driven/localfs"
	"github.com/ericfisherdev/stadatax/internal/application"
	"github.com/ericfisherdev/stadatax/internal/domain/model"
)

func sampleTable() model.Table {
	t := model.NewTable("Wilayah", "Jumlah", "Catatan")
	t.Rows = [][]any{
		{"Bogor", 5427.0, nil},
		{"Kota | Bandung", 2.5, "a,b"},
	}
	return t
}

func TestEncode_CSV(t *testing.T) {
	data, contentType, err := application.Encode(sampleTable(), model.FormatCSV)

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(contentType, "text/csv"))
	assert.True(t, bytes.HasPrefix(data, []byte("\xef\xbb\xbf")), "starts with UTF-8 BOM")
	assert.Equal(t, "Wilayah,Jumlah,Catatan\nBogor,5427,\nKota | Bandung,2.5,\"a,b\"\n", string(data[3:]))
}

func TestEncode_JSONKeepsColumnOrder(t *testing.T) {
	data, _, err := application.Encode(sampleTable(), model.FormatJSON)

	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"Wilayah": "Bogor", "Jumlah": 5427, "Catatan": null},
		{"Wilayah": "Kota | Bandung", "Jumlah": 2.5, "Catatan": "a,b"}
	]`, string(data))

	s := string(data)
	assert.Less(t, strings.Index(s, `"Wilayah"`), strings.Index(s, `"Jumlah"`))
	assert.Less(t, strings.Index(s, `"Jumlah"`), strings.Index(s, `"Catatan"`))
	assert.Contains(t, s, "\n        \"Wilayah\"", "indented by four spaces per level")
}

func TestEncode_XLSX(t *testing.T) {
	data, _, err := application.Encode(sampleTable(), model.FormatXLSX)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Sheet1")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Wilayah", "Jumlah", "Catatan"}, rows[0])
	assert.Equal(t, "Bogor", rows[1][0])
	assert.Equal(t, "5427", rows[1][1])
}

func TestEncode_MarkdownAndHTML(t *testing.T) {
	md, _, err := application.Encode(sampleTable(), model.FormatMarkdown)
	require.NoError(t, err)
	assert.Contains(t, string(md), "| Wilayah | Jumlah | Catatan |\n| --- | --- | --- |\n")
	assert.Contains(t, string(md), `Kota \| Bandung`)

	html, contentType, err := application.Encode(sampleTable(), model.FormatHTML)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(contentType, "text/html"))
	assert.Contains(t, string(html), "<table>")
	assert.Contains(t, string(html), "<th>Wilayah</th>")
	assert.Contains(t, string(html), "<td>Kota | Bandung</td>")
}

func TestEncode_UnsupportedFormat(t *testing.T) {
	_, _, err := application.Encode(sampleTable(), model.ExportFormat("parquet"))

	assert.ErrorIs(t, err, model.ErrUnsupportedFormat)
}

func TestExport_RefusesExistingDestination(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "out.csv")
	original := []byte("keep me")
	require.NoError(t, os.WriteFile(dest, original, 0o644))

	exporter := application.NewExporter(localfs.New(), nil)
	_, err := exporter.Export(context.Background(), sampleTable(), dest, model.FormatCSV, false)

	assert.ErrorIs(t, err, model.ErrDestinationExists)
	got, readErr := os.ReadFile(dest)
	require.NoError(t, readErr)
	assert.Equal(t, original, got)
}

func TestExport_OverwriteAndConfirmed(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "out.json")
	require.NoError(t, os.WriteFile(dest, []byte("old"), 0o644))
	exporter := application.NewExporter(localfs.New(), nil)

	loc, err := exporter.Export(context.Background(), sampleTable(), dest, model.FormatJSON, true)
	require.NoError(t, err)
	assert.Equal(t, dest, loc)

	loc, err = exporter.ExportConfirmed(context.Background(), sampleTable(), dest, model.FormatMarkdown)
	require.NoError(t, err)
	got, err := os.ReadFile(loc)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(got), "| Wilayah"))
}

func TestExport_UnsupportedFormatWritesNothing(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "out.parquet")
	exporter := application.NewExporter(localfs.New(), nil)

	_, err := exporter.Export(context.Background(), sampleTable(), dest, model.ExportFormat("parquet"), false)

	assert.ErrorIs(t, err, model.ErrUnsupportedFormat)
	assert.NoFileExists(t, dest)
}

func TestExport_RoutesObjectDestinations(t *testing.T) {
	objects := newMemorySink()
	exporter := application.NewExporter(localfs.New(), objects)

	loc, err := exporter.Export(context.Background(), sampleTable(), "s3://exports/t.csv", model.FormatCSV, false)
	require.NoError(t, err)
	assert.Equal(t, "s3://exports/t.csv", loc)
	assert.Contains(t, objects.types["s3://exports/t.csv"], "text/csv")

	_, err = exporter.Export(context.Background(), sampleTable(), "s3://exports/t.csv", model.FormatCSV, false)
	assert.ErrorIs(t, err, model.ErrDestinationExists)

	noObjects := application.NewExporter(localfs.New(), nil)
	_, err = noObjects.Export(context.Background(), sampleTable(), "s3://exports/t.csv", model.FormatCSV, false)
	assert.ErrorIs(t, err, model.ErrUnsupportedFormat)
}

func newDownloadFixture(t *testing.T, settings *mockSettingsStore, fallback string) (*application.DownloadService, *memorySink) {
	t.Helper()
	provider := &mockProvider{viewStaticTable: func(_ context.Context, _, tableID string) (*model.StaticTable, error) {
		return &model.StaticTable{ID: tableID, Table: sampleTable()}, nil
	}}
	svc := newTestService(provider, &mockDomainCache{})
	sink := newMemorySink()
	return application.NewDownloadService(svc, application.NewExporter(sink, nil), settings, fallback), sink
}

func TestDownloadStaticTable_UsesConfiguredDirectory(t *testing.T) {
	dir := t.TempDir()
	settings := &mockSettingsStore{values: map[string]string{model.SettingDownloadPath: dir}}
	downloads, sink := newDownloadFixture(t, settings, "/unused")

	loc, err := downloads.DownloadStaticTable(context.Background(), "3200", "42", "penduduk", model.FormatCSV, false)

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "penduduk.csv"), loc)
	assert.Contains(t, sink.files, loc)
}

func TestDownloadStaticTable_FallsBackWhenSettingIsNotADirectory(t *testing.T) {
	fallback := t.TempDir()
	settings := &mockSettingsStore{values: map[string]string{model.SettingDownloadPath: filepath.Join(fallback, "missing")}}
	downloads, _ := newDownloadFixture(t, settings, fallback)

	loc, err := downloads.DownloadStaticTable(context.Background(), "3200", "42", "", model.FormatJSON, false)

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(fallback, "3200_42.json"), loc)
}

func TestDownloadStaticTable_WorkingDirectoryLast(t *testing.T) {
	downloads, _ := newDownloadFixture(t, &mockSettingsStore{}, "")

	dir, err := downloads.DownloadDir(context.Background())

	require.NoError(t, err)
	cwd, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, cwd, dir)
}

func TestDownloadStaticTable_UnsupportedFormat(t *testing.T) {
	downloads, sink := newDownloadFixture(t, &mockSettingsStore{}, t.TempDir())

	_, err := downloads.DownloadStaticTable(context.Background(), "3200", "42", "x", model.ExportFormat("pdf"), false)

	assert.ErrorIs(t, err, model.ErrUnsupportedFormat)
	assert.Empty(t, sink.files)
}
