package backup

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/graycup/leads-admin/internal/core"
)

// errTableSource wraps a fakeStore and fails List for one table.
type errTableSource struct {
	*fakeStore
	failTable string
}

func (s *errTableSource) List(ctx context.Context, table string, f core.Filter) ([]core.Record, error) {
	if table == s.failTable {
		return nil, fmt.Errorf("connection reset")
	}
	return s.fakeStore.List(ctx, table, f)
}

func testExporter(source RecordSource) *Exporter {
	e := NewExporter(source, testFormatter(), "backup")
	e.now = func() time.Time {
		return time.Date(2024, 3, 15, 14, 30, 0, 0, time.UTC)
	}
	return e
}

func archiveEntries(t *testing.T, data []byte) map[string][]byte {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	entries := map[string][]byte{}
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open entry %s: %v", f.Name, err)
		}
		var buf bytes.Buffer
		if _, err := buf.ReadFrom(rc); err != nil {
			t.Fatalf("read entry %s: %v", f.Name, err)
		}
		rc.Close()
		entries[f.Name] = buf.Bytes()
	}
	return entries
}

func TestExporterFilename(t *testing.T) {
	e := testExporter(newFakeStore())
	if got := e.Filename(); got != "backup-2024-03-15.zip" {
		t.Errorf("Filename() = %q, want backup-2024-03-15.zip", got)
	}
}

func TestWriteArchiveLayout(t *testing.T) {
	store := newFakeStore()
	store.records["contact_submissions"] = []core.Record{
		{"id": "1", "name": "Ada", "email": "ada@x.co", "resolved": false, "vaulted": false},
	}
	store.records["call_requests"] = []core.Record{
		{"id": "2", "name": "Bob", "phone": "1", "resolved": true, "vaulted": false},
	}
	e := testExporter(store)

	var buf bytes.Buffer
	if err := e.WriteArchive(context.Background(), SelectionAll, &buf, nil); err != nil {
		t.Fatalf("WriteArchive: %v", err)
	}

	entries := archiveEntries(t, buf.Bytes())

	for _, table := range []string{"contact_submissions", "call_requests"} {
		for _, ext := range []string{"json", "csv", "xlsx", "pdf", "txt"} {
			name := table + "/" + table + "." + ext
			if _, ok := entries[name]; !ok {
				t.Errorf("missing entry %s", name)
			}
		}
		if _, ok := entries["importable/json/"+table+".json"]; !ok {
			t.Errorf("missing importable JSON for %s", table)
		}
		if _, ok := entries["importable/csv/"+table+".csv"]; !ok {
			t.Errorf("missing importable CSV for %s", table)
		}
	}

	// Empty tables are skipped entirely.
	for name := range entries {
		if strings.Contains(name, "quote_requests") {
			t.Errorf("empty table should produce no entries, found %s", name)
		}
	}

	manifestData, ok := entries["import.json"]
	if !ok {
		t.Fatal("missing import.json manifest")
	}
	var manifest map[string][]core.Record
	if err := json.Unmarshal(manifestData, &manifest); err != nil {
		t.Fatalf("manifest is not valid JSON: %v", err)
	}
	if len(manifest) != 2 {
		t.Errorf("manifest has %d tables, want 2", len(manifest))
	}
	if len(manifest["contact_submissions"]) != 1 {
		t.Errorf("manifest contact_submissions = %v", manifest["contact_submissions"])
	}
}

func TestWriteArchiveSingleTable(t *testing.T) {
	store := newFakeStore()
	store.records["contact_submissions"] = []core.Record{{"id": "1", "name": "Ada"}}
	store.records["call_requests"] = []core.Record{{"id": "2", "name": "Bob"}}
	e := testExporter(store)

	var buf bytes.Buffer
	if err := e.WriteArchive(context.Background(), "contact_submissions", &buf, nil); err != nil {
		t.Fatalf("WriteArchive: %v", err)
	}

	entries := archiveEntries(t, buf.Bytes())
	for name := range entries {
		if strings.Contains(name, "call_requests") {
			t.Errorf("unselected table exported: %s", name)
		}
	}
	if _, ok := entries["contact_submissions/contact_submissions.json"]; !ok {
		t.Error("selected table missing")
	}
}

func TestWriteArchiveUnknownSelection(t *testing.T) {
	e := testExporter(newFakeStore())
	var buf bytes.Buffer
	if err := e.WriteArchive(context.Background(), "users", &buf, nil); err == nil {
		t.Error("expected error for unknown table selection")
	}
}

func TestWriteArchiveTableFailureIsIsolated(t *testing.T) {
	store := newFakeStore()
	store.records["contact_submissions"] = []core.Record{{"id": "1", "name": "Ada"}}
	store.records["call_requests"] = []core.Record{{"id": "2", "name": "Bob"}}
	source := &errTableSource{fakeStore: store, failTable: "contact_submissions"}
	e := testExporter(source)

	var buf bytes.Buffer
	if err := e.WriteArchive(context.Background(), SelectionAll, &buf, nil); err != nil {
		t.Fatalf("WriteArchive should not fail for one bad table: %v", err)
	}

	entries := archiveEntries(t, buf.Bytes())
	if _, ok := entries["call_requests/call_requests.json"]; !ok {
		t.Error("healthy table should still export")
	}
	for name := range entries {
		if strings.HasPrefix(name, "contact_submissions/") {
			t.Errorf("failed table should be skipped, found %s", name)
		}
	}
}

func TestWriteArchivePDFCutoff(t *testing.T) {
	store := newFakeStore()
	var recs []core.Record
	for i := 0; i < 5; i++ {
		recs = append(recs, core.Record{"id": fmt.Sprint(i), "name": "x"})
	}
	store.records["call_requests"] = recs

	f := testFormatter()
	f.PDFMaxRecords = 3
	e := NewExporter(store, f, "backup")

	var buf bytes.Buffer
	if err := e.WriteArchive(context.Background(), "call_requests", &buf, nil); err != nil {
		t.Fatalf("WriteArchive: %v", err)
	}

	entries := archiveEntries(t, buf.Bytes())
	if _, ok := entries["call_requests/call_requests.pdf"]; ok {
		t.Error("PDF should be skipped above the record cutoff")
	}
	if _, ok := entries["call_requests/call_requests.txt"]; !ok {
		t.Error("other formats should still be written")
	}
}

func TestWriteArchiveProgressReported(t *testing.T) {
	store := newFakeStore()
	store.records["contact_submissions"] = []core.Record{{"id": "1", "name": "Ada"}}
	e := testExporter(store)

	var statuses []string
	var buf bytes.Buffer
	err := e.WriteArchive(context.Background(), SelectionAll, &buf, func(p Progress) {
		statuses = append(statuses, p.Status)
	})
	if err != nil {
		t.Fatalf("WriteArchive: %v", err)
	}
	if len(statuses) == 0 {
		t.Fatal("expected progress updates")
	}
	if statuses[len(statuses)-1] != "Compressing: 100%" {
		t.Errorf("last status = %q", statuses[len(statuses)-1])
	}
}
