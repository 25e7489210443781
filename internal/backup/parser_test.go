package backup

import (
	"reflect"
	"testing"
	"time"

	"github.com/graycup/leads-admin/internal/core"
)

func TestSplitCSVLine(t *testing.T) {
	tests := []struct {
		line string
		want []string
	}{
		{`"a","b","c"`, []string{"a", "b", "c"}},
		{`a,b,c`, []string{"a", "b", "c"}},
		{`"a, with comma","b"`, []string{"a, with comma", "b"}},
		{`"He said ""hi"", ok","x"`, []string{`He said "hi", ok`, "x"}},
		{`"",""`, []string{"", ""}},
		{`"a",,"c"`, []string{"a", "", "c"}},
	}
	for _, tt := range tests {
		if got := splitCSVLine(tt.line); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("splitCSVLine(%q) = %v, want %v", tt.line, got, tt.want)
		}
	}
}

func TestHeaderToColumn(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"Company Size", "company_size"},
		{"Payment Status", "payment_status"},
		{"Name", "name"},
		{"Feedback Type", "feedback_type"},
		{"email", "email"},
	}
	for _, tt := range tests {
		if got := headerToColumn(tt.header); got != tt.want {
			t.Errorf("headerToColumn(%q) = %q, want %q", tt.header, got, tt.want)
		}
	}
}

func TestParseCSVReconstructsColumns(t *testing.T) {
	tbl, _ := core.Lookup("contact_submissions")

	csv := "ID,Date,Name,Email,Company,Company Size,Message,Status,Vaulted\n" +
		`"abc","Jan 5, 2024 9:05 AM","Ada","ada@x.co","Acme","11-50","Hello","Resolved","No"` + "\n" +
		`"def","Jan 6, 2024 1:00 PM","Bob","bob@x.co","","","","Pending","Yes"`

	recs := ParseCSV(csv, tbl)
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}

	first := recs[0]
	if first["company_size"] != "11-50" {
		t.Errorf(`company_size = %v, want "11-50"`, first["company_size"])
	}
	if first["resolved"] != true {
		t.Errorf("resolved = %v, want true", first["resolved"])
	}
	if first["vaulted"] != false {
		t.Errorf("vaulted = %v, want false", first["vaulted"])
	}
	if _, ok := first["created_at"]; ok {
		t.Error("Date column should be dropped")
	}

	second := recs[1]
	if second["resolved"] != false || second["vaulted"] != true {
		t.Errorf("flags = %v/%v, want false/true", second["resolved"], second["vaulted"])
	}
}

func TestParseCSVQuotedFieldRoundTrip(t *testing.T) {
	f := testFormatter()
	tbl, _ := core.Lookup("contact_submissions")

	original := `He said "hi", ok`
	recs := []core.Record{{"name": original, "email": "a@b.co"}}

	parsed := ParseCSV(f.CSV(tbl, recs), tbl)
	if len(parsed) != 1 {
		t.Fatalf("expected 1 record, got %d", len(parsed))
	}
	if parsed[0]["name"] != original {
		t.Errorf("name = %q, want %q", parsed[0]["name"], original)
	}
}

func TestParseCSVTooShort(t *testing.T) {
	tbl, _ := core.Lookup("contact_submissions")
	if recs := ParseCSV("Name,Email", tbl); recs != nil {
		t.Errorf("header-only input should yield no records, got %v", recs)
	}
	if recs := ParseCSV("", tbl); recs != nil {
		t.Errorf("empty input should yield no records, got %v", recs)
	}
}

func TestDecodeJSONArray(t *testing.T) {
	parsed, err := DecodeFile("contact_submissions.json", []byte(`[{"name":"Ada"},{"name":"Bob"}]`), nil)
	if err != nil {
		t.Fatalf("DecodeFile: %v", err)
	}
	if parsed.Manifest != nil {
		t.Error("array payload should not be a manifest")
	}
	if len(parsed.Records) != 2 {
		t.Errorf("expected 2 records, got %d", len(parsed.Records))
	}
}

func TestDecodeJSONManifest(t *testing.T) {
	payload := `{
		"contact_submissions": [{"name":"Ada"}],
		"call_requests": [{"name":"Bob"}],
		"exported_at": "2024-01-05",
		"unknown_table": [{"name":"x"}]
	}`
	parsed, err := DecodeFile("import.json", []byte(payload), nil)
	if err != nil {
		t.Fatalf("DecodeFile: %v", err)
	}
	if parsed.Manifest == nil {
		t.Fatal("expected manifest")
	}
	if len(parsed.Manifest) != 2 {
		t.Errorf("expected 2 recognized tables, got %d", len(parsed.Manifest))
	}
	if _, ok := parsed.Manifest["unknown_table"]; ok {
		t.Error("unknown keys should be ignored")
	}
}

func TestDecodeJSONManifestAllTablesEmpty(t *testing.T) {
	payload := `{"feedback_submissions": [], "call_requests": null}`
	parsed, err := DecodeFile("import.json", []byte(payload), nil)
	if err != nil {
		t.Fatalf("DecodeFile: %v", err)
	}
	if parsed.Manifest == nil {
		t.Fatal("object with table keys should be a manifest even when every table is empty")
	}
	if len(parsed.Manifest) != 0 {
		t.Errorf("expected empty manifest, got %v", parsed.Manifest)
	}
	if parsed.Records != nil {
		t.Errorf("empty manifest should not decode as a single record, got %v", parsed.Records)
	}
}

func TestDecodeJSONSingleObject(t *testing.T) {
	parsed, err := DecodeFile("contact_submissions.json", []byte(`{"name":"Ada","email":"a@b.co"}`), nil)
	if err != nil {
		t.Fatalf("DecodeFile: %v", err)
	}
	if parsed.Manifest != nil {
		t.Error("object without table keys should not be a manifest")
	}
	if len(parsed.Records) != 1 || parsed.Records[0]["name"] != "Ada" {
		t.Errorf("expected single wrapped record, got %v", parsed.Records)
	}
}

func TestDecodeFileUnsupportedExtension(t *testing.T) {
	if _, err := DecodeFile("notes.txt", []byte("x"), nil); err == nil {
		t.Error("expected error for unsupported extension")
	}
}

func TestDecodeFileInvalidJSON(t *testing.T) {
	if _, err := DecodeFile("import.json", []byte("{oops"), nil); err == nil {
		t.Error("expected error for malformed JSON")
	}
}

func TestRawCSVRoundTrip(t *testing.T) {
	f := testFormatter()
	tbl, _ := core.Lookup("contact_submissions")

	recs := []core.Record{{
		"id":         "abc",
		"created_at": time.Date(2024, 1, 5, 9, 5, 0, 0, time.UTC),
		"name":       "Ada",
		"email":      "ada@x.co",
		"resolved":   true,
		"vaulted":    false,
	}}

	parsed := ParseCSV(f.RawCSV(tbl, recs), tbl)
	if len(parsed) != 1 {
		t.Fatalf("expected 1 record, got %d", len(parsed))
	}
	rec := parsed[0]
	if rec["name"] != "Ada" || rec["email"] != "ada@x.co" {
		t.Errorf("business fields did not survive: %v", rec)
	}
	if rec["resolved"] != true || rec["vaulted"] != false {
		t.Errorf("flags did not survive: %v", rec)
	}
}
