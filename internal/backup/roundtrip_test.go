package backup

import (
	"context"
	"testing"
	"time"

	"github.com/graycup/leads-admin/internal/core"
)

// TestJSONExportImportRoundTrip exports a table to its canonical JSON
// form and imports it into a fresh store, verifying business fields
// survive while id/created_at are regenerated server-side.
func TestJSONExportImportRoundTrip(t *testing.T) {
	source := newFakeStore()
	source.records["contact_submissions"] = []core.Record{
		{
			"id":           "orig-1",
			"created_at":   time.Date(2024, 1, 5, 9, 5, 0, 0, time.UTC),
			"name":         "Ada",
			"email":        "ada@x.co",
			"company":      "Acme",
			"company_size": "11-50",
			"message":      `She said "go", then left`,
			"resolved":     true,
			"vaulted":      false,
		},
	}

	f := testFormatter()
	data, err := f.JSON(source.records["contact_submissions"])
	if err != nil {
		t.Fatalf("JSON: %v", err)
	}

	dest := newFakeStore()
	r := testRunner(dest)
	results := r.ImportFiles(context.Background(),
		[]File{{Name: "contact_submissions.json", Data: data}}, false, nil)
	if len(results) != 1 || results[0].Success != 1 {
		t.Fatalf("results = %+v", results)
	}

	stored := dest.records["contact_submissions"][0]
	if _, ok := stored["id"]; ok {
		t.Error("id should not survive the round trip")
	}
	if _, ok := stored["created_at"]; ok {
		t.Error("created_at should not survive the round trip")
	}
	for col, want := range map[string]any{
		"name":         "Ada",
		"email":        "ada@x.co",
		"company":      "Acme",
		"company_size": "11-50",
		"message":      `She said "go", then left`,
		"resolved":     true,
		"vaulted":      false,
	} {
		if stored[col] != want {
			t.Errorf("%s = %v, want %v", col, stored[col], want)
		}
	}
}

// TestReimportWithSkipDuplicatesIsIdempotent imports the same export
// twice with duplicate-skipping on; the second run must skip every
// record with a non-empty email.
func TestReimportWithSkipDuplicatesIsIdempotent(t *testing.T) {
	f := testFormatter()
	recs := []core.Record{
		{"name": "Ada", "email": "ada@x.co"},
		{"name": "Bob", "email": "bob@x.co"},
	}
	data, err := f.JSON(recs)
	if err != nil {
		t.Fatalf("JSON: %v", err)
	}

	dest := newFakeStore()
	r := testRunner(dest)
	files := []File{{Name: "contact_submissions.json", Data: data}}

	first := r.ImportFiles(context.Background(), files, true, nil)
	if first[0].Success != 2 || first[0].Skipped != 0 {
		t.Fatalf("first run = %+v", first[0])
	}

	second := r.ImportFiles(context.Background(), files, true, nil)
	if second[0].Success != 0 || second[0].Skipped != 2 {
		t.Errorf("second run = %+v, want all skipped", second[0])
	}
	if len(dest.records["contact_submissions"]) != 2 {
		t.Errorf("store has %d records, want 2", len(dest.records["contact_submissions"]))
	}
}
