// Package discord formats submissions into Discord embed payloads and
// delivers them to configured webhook URLs.
package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/graycup/leads-admin/internal/core"
)

// embedColor is Discord blurple.
const embedColor = 0x5865F2

// fieldValueLimit is Discord's embed field value limit.
const fieldValueLimit = 1024

// footerText appears on every forwarded embed.
const footerText = "GrayCup Admin"

// Field is one embed field.
type Field struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

// Embed is a Discord rich embed.
type Embed struct {
	Title  string  `json:"title"`
	Color  int     `json:"color"`
	Fields []Field `json:"fields"`
	Footer struct {
		Text string `json:"text"`
	} `json:"footer"`
	Timestamp string `json:"timestamp"`
}

// Message is a webhook execution payload.
type Message struct {
	Embeds []Embed `json:"embeds"`
}

// FormatSubmission builds the embed payload for one submission: common
// contact fields first, then table-specific fields, then the submission
// timestamp. Empty fields are omitted.
func FormatSubmission(table string, rec core.Record) Message {
	label := table
	if t, ok := core.Lookup(table); ok {
		label = t.Label
	}

	var fields []Field
	add := func(name string, value any, inline bool) {
		s := stringValue(value)
		if s == "" {
			return
		}
		if len(s) > fieldValueLimit {
			s = s[:fieldValueLimit]
		}
		fields = append(fields, Field{Name: name, Value: s, Inline: inline})
	}

	add("Name", firstOf(rec, "name", "contact_name"), true)
	add("Email", rec["email"], true)
	add("Phone", rec["phone"], true)
	add("Company", firstOf(rec, "company", "company_name"), true)

	switch table {
	case "contact_submissions":
		add("Company Size", rec["company_size"], true)
		add("Message", rec["message"], false)
	case "quote_requests":
		add("Product", rec["product_id"], true)
		add("Grade", rec["grade"], true)
		add("Quantity", rec["quantity"], true)
		add("Details", rec["details"], false)
	case "sample_requests":
		add("Products", rec["selected_products"], false)
		add("Payment Status", rec["payment_status"], true)
	case "feedback_submissions":
		add("Type", rec["feedback_type"], true)
		add("Rating", rec["rating"], true)
		add("Feedback", rec["feedback"], false)
	case "product_requests":
		add("Category", rec["category"], true)
		add("Product", rec["product_name"], true)
		add("Quantity", rec["quantity"], true)
		add("Details", rec["details"], false)
	case "call_requests":
		add("Agenda", rec["agenda"], false)
	}

	add("Submitted", formatSubmitted(rec[core.ColCreatedAt]), true)

	embed := Embed{
		Title:     "New " + label,
		Color:     embedColor,
		Fields:    fields,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	embed.Footer.Text = footerText

	return Message{Embeds: []Embed{embed}}
}

func firstOf(rec core.Record, keys ...string) any {
	for _, key := range keys {
		if v, ok := rec[key]; ok && stringValue(v) != "" {
			return v
		}
	}
	return nil
}

func stringValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []string:
		return strings.Join(val, ", ")
	case []any:
		parts := make([]string, len(val))
		for i, item := range val {
			parts[i] = fmt.Sprint(item)
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(val)
	}
}

func formatSubmitted(v any) string {
	switch val := v.(type) {
	case time.Time:
		return val.Format("Jan 2, 2006 3:04 PM")
	case string:
		if ts, err := time.Parse(time.RFC3339, val); err == nil {
			return ts.Format("Jan 2, 2006 3:04 PM")
		}
		return val
	default:
		return ""
	}
}

// Client posts messages to Discord webhook URLs.
type Client struct {
	http *http.Client
}

// NewClient creates a Client with a bounded request timeout.
func NewClient() *Client {
	return &Client{http: &http.Client{Timeout: 10 * time.Second}}
}

// Send executes a webhook with the given message. Non-2xx responses
// return an error including the Discord error body.
func (c *Client) Send(ctx context.Context, url string, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("execute webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("discord returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	return nil
}
