package backup

import (
	"archive/zip"
	"compress/flate"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/graycup/leads-admin/internal/core"
)

// SelectionAll exports every registered table.
const SelectionAll = "all"

// RecordSource fetches the full contents of a table for export.
type RecordSource interface {
	List(ctx context.Context, table string, f core.Filter) ([]core.Record, error)
}

// Progress is a point-in-time export status update.
type Progress struct {
	Current int
	Total   int
	Table   string
	Status  string
}

// ProgressFunc receives export progress updates. May be nil.
type ProgressFunc func(Progress)

// Exporter assembles the backup ZIP archive: per-table folders with
// every export format, a root import.json manifest, and an importable/
// tree holding the lossless re-import formats.
type Exporter struct {
	source RecordSource
	fmt    *Formatter

	// FilePrefix names the archive: "{prefix}-2024-01-01.zip".
	FilePrefix string

	now func() time.Time
}

// NewExporter creates an Exporter backed by the given record source.
func NewExporter(source RecordSource, formatter *Formatter, filePrefix string) *Exporter {
	return &Exporter{
		source:     source,
		fmt:        formatter,
		FilePrefix: filePrefix,
		now:        time.Now,
	}
}

// Filename returns the date-stamped archive name.
func (e *Exporter) Filename() string {
	return fmt.Sprintf("%s-%s.zip", e.FilePrefix, e.now().Format("2006-01-02"))
}

// WriteArchive streams the backup archive for the given table selection
// ("all" or a single table key) to w. A failure in one table logs a
// warning and skips that table; the archive still completes with the
// rest. Empty tables produce no entries.
func (e *Exporter) WriteArchive(ctx context.Context, selection string, w io.Writer, progress ProgressFunc) error {
	tables, err := e.selectTables(selection)
	if err != nil {
		return err
	}

	zw := zip.NewWriter(w)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, 6)
	})

	report := func(i int, table, status string) {
		if progress != nil {
			progress(Progress{Current: i, Total: len(tables), Table: table, Status: status})
		}
	}

	manifest := map[string][]core.Record{}
	for i, t := range tables {
		report(i, t.Key, "Fetching "+t.Label)

		if err := ctx.Err(); err != nil {
			return err
		}

		if err := e.writeTable(ctx, zw, t, manifest, func(status string) {
			report(i, t.Key, status)
		}); err != nil {
			slog.Warn("table export failed, skipping",
				"table", t.Key,
				"error", err)
		}
	}

	report(len(tables), "", "Writing import.json")
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if err := writeEntry(zw, "import.json", data); err != nil {
		return err
	}

	report(len(tables), "", "Compressing: 100%")
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalize archive: %w", err)
	}
	return nil
}

// writeTable fetches one table and writes its format entries. Empty
// tables are skipped entirely.
func (e *Exporter) writeTable(ctx context.Context, zw *zip.Writer, t core.Table, manifest map[string][]core.Record, report func(string)) error {
	recs, err := e.source.List(ctx, t.Key, core.Filter{})
	if err != nil {
		return fmt.Errorf("fetch %s: %w", t.Key, err)
	}
	if len(recs) == 0 {
		return nil
	}

	manifest[t.Key] = recs

	report(fmt.Sprintf("Exporting %s (%d records)", t.Label, len(recs)))

	jsonData, err := e.fmt.JSON(recs)
	if err != nil {
		return err
	}
	if err := writeEntry(zw, t.Key+"/"+t.Key+".json", jsonData); err != nil {
		return err
	}
	if err := writeEntry(zw, "importable/json/"+t.Key+".json", jsonData); err != nil {
		return err
	}

	csvData := e.fmt.CSV(t, recs)
	if err := writeEntry(zw, t.Key+"/"+t.Key+".csv", []byte(csvData)); err != nil {
		return err
	}
	rawData := e.fmt.RawCSV(t, recs)
	if err := writeEntry(zw, "importable/csv/"+t.Key+".csv", []byte(rawData)); err != nil {
		return err
	}

	xlsxData, err := e.fmt.Excel(t, recs, t.Label)
	if err != nil {
		return fmt.Errorf("excel %s: %w", t.Key, err)
	}
	if err := writeEntry(zw, t.Key+"/"+t.Key+".xlsx", xlsxData); err != nil {
		return err
	}

	pdfData, err := e.fmt.PDF(t, recs, t.Label)
	if err != nil {
		return fmt.Errorf("pdf %s: %w", t.Key, err)
	}
	if pdfData != nil {
		if err := writeEntry(zw, t.Key+"/"+t.Key+".pdf", pdfData); err != nil {
			return err
		}
	}

	txtData := e.fmt.Text(t, recs, t.Label)
	if err := writeEntry(zw, t.Key+"/"+t.Key+".txt", []byte(txtData)); err != nil {
		return err
	}

	return nil
}

// selectTables resolves an export selection to concrete tables.
func (e *Exporter) selectTables(selection string) ([]core.Table, error) {
	if selection == "" || selection == SelectionAll {
		return core.Tables, nil
	}
	t, ok := core.Lookup(selection)
	if !ok {
		return nil, fmt.Errorf("unknown table %q", selection)
	}
	return []core.Table{t}, nil
}

func writeEntry(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("create archive entry %s: %w", name, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write archive entry %s: %w", name, err)
	}
	return nil
}
