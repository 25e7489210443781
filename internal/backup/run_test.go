package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/graycup/leads-admin/internal/core"
)

func testRunner(store *fakeStore) *Runner {
	r := NewRunner(NewImporter(store))
	r.BatchDelay = 0
	return r
}

func TestImportFilesByFilename(t *testing.T) {
	store := newFakeStore()
	r := testRunner(store)

	data, _ := json.Marshal([]core.Record{
		{"name": "Ada", "phone": "1"},
		{"name": "Bob", "phone": "2"},
	})
	files := []File{{Name: "2024-CALL_REQUESTS-export.JSON", Data: data}}

	results := r.ImportFiles(context.Background(), files, false, nil)
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Source != "call_requests" {
		t.Errorf("source = %q, want call_requests", results[0].Source)
	}
	if results[0].Success != 2 {
		t.Errorf("Success = %d, want 2", results[0].Success)
	}
	if len(store.records["call_requests"]) != 2 {
		t.Errorf("stored %d records", len(store.records["call_requests"]))
	}
}

func TestImportFilesCSV(t *testing.T) {
	store := newFakeStore()
	r := testRunner(store)

	csv := "Name,Email,Company,Company Size,Message,Status,Vaulted\n" +
		`"Ada","ada@x.co","Acme","11-50","Hi","Pending","No"`
	files := []File{{Name: "contact_submissions.csv", Data: []byte(csv)}}

	results := r.ImportFiles(context.Background(), files, false, nil)
	if len(results) != 1 || results[0].Success != 1 {
		t.Fatalf("results = %+v", results)
	}
	stored := store.records["contact_submissions"][0]
	if stored["company_size"] != "11-50" {
		t.Errorf("company_size = %v", stored["company_size"])
	}
}

func TestImportFilesManifest(t *testing.T) {
	store := newFakeStore()
	r := testRunner(store)

	manifest := map[string][]core.Record{
		"contact_submissions": {{"name": "Ada", "email": "a@x.co"}},
		"call_requests":       {{"name": "Bob", "phone": "1"}},
	}
	data, _ := json.Marshal(manifest)
	files := []File{{Name: "import.json", Data: data}}

	results := r.ImportFiles(context.Background(), files, false, nil)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}

	sources := map[string]bool{}
	for _, res := range results {
		sources[res.Source] = true
		if res.Success != 1 {
			t.Errorf("%s: Success = %d, want 1", res.Source, res.Success)
		}
	}
	if !sources["contact_submissions (from import.json)"] || !sources["call_requests (from import.json)"] {
		t.Errorf("unexpected sources: %v", sources)
	}
}

func TestImportFilesManifestWithEmptyTablesSkipsSilently(t *testing.T) {
	store := newFakeStore()
	r := testRunner(store)

	manifest := map[string]any{
		"feedback_submissions": []any{},
		"call_requests":        nil,
	}
	data, _ := json.Marshal(manifest)

	results := r.ImportFiles(context.Background(), []File{{Name: "import.json", Data: data}}, false, nil)
	if len(results) != 0 {
		t.Errorf("empty manifest tables should yield no results, got %+v", results)
	}
	if len(store.records) != 0 {
		t.Errorf("nothing should be stored, got %v", store.records)
	}
}

func TestImportFilesUndetectableTable(t *testing.T) {
	r := testRunner(newFakeStore())

	data, _ := json.Marshal([]core.Record{{"name": "x"}})
	results := r.ImportFiles(context.Background(), []File{{Name: "mystery.json", Data: data}}, false, nil)
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Failed != 1 || len(results[0].Errors) == 0 {
		t.Errorf("expected failure for undetectable table: %+v", results[0])
	}
}

func TestImportFilesUnsupportedExtension(t *testing.T) {
	r := testRunner(newFakeStore())

	results := r.ImportFiles(context.Background(), []File{{Name: "notes.txt", Data: []byte("x")}}, false, nil)
	if len(results) != 1 || results[0].Failed != 1 {
		t.Fatalf("results = %+v", results)
	}
	if !strings.Contains(results[0].Errors[0], "failed to parse file") {
		t.Errorf("error = %q", results[0].Errors[0])
	}
}

func TestImportFilesParseFailureDoesNotAbortRun(t *testing.T) {
	store := newFakeStore()
	r := testRunner(store)

	good, _ := json.Marshal([]core.Record{{"name": "Ada", "phone": "1"}})
	files := []File{
		{Name: "call_requests.json", Data: []byte("{broken")},
		{Name: "call_requests_2.json", Data: good},
	}

	results := r.ImportFiles(context.Background(), files, false, nil)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Failed != 1 {
		t.Errorf("first file should fail: %+v", results[0])
	}
	if results[1].Success != 1 {
		t.Errorf("second file should import: %+v", results[1])
	}
}

func TestImportBatchesRequestChunking(t *testing.T) {
	store := newFakeStore()
	im := NewImporter(store)
	im.InsertBatchSize = 1000 // one bulk call per request batch
	r := NewRunner(im)
	r.RequestBatchSize = 100
	r.BatchDelay = 0

	var recs []core.Record
	for i := 0; i < 250; i++ {
		recs = append(recs, core.Record{"name": fmt.Sprintf("n%d", i), "phone": "1"})
	}

	result := r.importBatches(context.Background(), "call_requests", recs, false)
	if result.Success != 250 {
		t.Errorf("Success = %d, want 250", result.Success)
	}
	if store.bulkCalls != 3 {
		t.Errorf("bulkCalls = %d, want 3 (100+100+50)", store.bulkCalls)
	}
}

func TestImportFilesHonorsContext(t *testing.T) {
	store := newFakeStore()
	r := testRunner(store)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	data, _ := json.Marshal([]core.Record{{"name": "Ada", "phone": "1"}})
	results := r.ImportFiles(ctx, []File{{Name: "call_requests.json", Data: data}}, false, nil)
	if len(results) != 0 {
		t.Errorf("cancelled run should process no files, got %+v", results)
	}
}
