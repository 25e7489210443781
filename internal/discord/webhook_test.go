package discord

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/graycup/leads-admin/internal/core"
)

func fieldByName(msg Message, name string) (Field, bool) {
	for _, f := range msg.Embeds[0].Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

func TestFormatSubmissionContact(t *testing.T) {
	rec := core.Record{
		"name":         "Ada",
		"email":        "ada@x.co",
		"company":      "Acme",
		"company_size": "11-50",
		"message":      "Hello there",
		"created_at":   time.Date(2024, 1, 5, 9, 5, 0, 0, time.UTC),
	}

	msg := FormatSubmission("contact_submissions", rec)
	if len(msg.Embeds) != 1 {
		t.Fatalf("expected 1 embed, got %d", len(msg.Embeds))
	}

	embed := msg.Embeds[0]
	if embed.Title != "New Contact Submissions" {
		t.Errorf("title = %q", embed.Title)
	}
	if embed.Color != 0x5865F2 {
		t.Errorf("color = %#x", embed.Color)
	}
	if embed.Footer.Text != "GrayCup Admin" {
		t.Errorf("footer = %q", embed.Footer.Text)
	}

	for _, want := range []struct{ name, value string }{
		{"Name", "Ada"},
		{"Email", "ada@x.co"},
		{"Company", "Acme"},
		{"Company Size", "11-50"},
		{"Message", "Hello there"},
		{"Submitted", "Jan 5, 2024 9:05 AM"},
	} {
		f, ok := fieldByName(msg, want.name)
		if !ok {
			t.Errorf("missing field %q", want.name)
			continue
		}
		if f.Value != want.value {
			t.Errorf("%s = %q, want %q", want.name, f.Value, want.value)
		}
	}
}

func TestFormatSubmissionOmitsEmptyFields(t *testing.T) {
	msg := FormatSubmission("call_requests", core.Record{"name": "Bob"})
	if _, ok := fieldByName(msg, "Phone"); ok {
		t.Error("empty phone should be omitted")
	}
	if _, ok := fieldByName(msg, "Agenda"); ok {
		t.Error("empty agenda should be omitted")
	}
}

func TestFormatSubmissionCompanyNameFallback(t *testing.T) {
	msg := FormatSubmission("call_requests", core.Record{"name": "Bob", "company_name": "Acme"})
	f, ok := fieldByName(msg, "Company")
	if !ok || f.Value != "Acme" {
		t.Errorf("Company = %+v, want Acme via company_name", f)
	}
}

func TestFormatSubmissionJoinsProducts(t *testing.T) {
	msg := FormatSubmission("sample_requests", core.Record{
		"company_name":      "Acme",
		"selected_products": []string{"tea", "coffee"},
	})
	f, ok := fieldByName(msg, "Products")
	if !ok || f.Value != "tea, coffee" {
		t.Errorf("Products = %+v", f)
	}
}

func TestFormatSubmissionTruncatesLongValues(t *testing.T) {
	msg := FormatSubmission("contact_submissions", core.Record{
		"message": strings.Repeat("x", 3000),
	})
	f, ok := fieldByName(msg, "Message")
	if !ok {
		t.Fatal("missing Message field")
	}
	if len(f.Value) != 1024 {
		t.Errorf("value length = %d, want 1024", len(f.Value))
	}
}

func TestSend(t *testing.T) {
	var received Message
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("Content-Type = %q", r.Header.Get("Content-Type"))
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewClient()
	msg := FormatSubmission("call_requests", core.Record{"name": "Bob"})
	if err := c.Send(context.Background(), srv.URL, msg); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(received.Embeds) != 1 {
		t.Errorf("server received %d embeds", len(received.Embeds))
	}
}

func TestSendErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"Invalid Webhook Token"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient()
	err := c.Send(context.Background(), srv.URL, Message{})
	if err == nil {
		t.Fatal("expected error for non-2xx response")
	}
	if !strings.Contains(err.Error(), "401") {
		t.Errorf("error should include status: %v", err)
	}
}
