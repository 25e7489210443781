package web

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/graycup/leads-admin/internal/core"
	"github.com/graycup/leads-admin/internal/discord"
	"github.com/graycup/leads-admin/internal/logging"
)

// handleListWebhooks returns the configured Discord webhooks.
func (s *Server) handleListWebhooks(w http.ResponseWriter, r *http.Request) {
	hooks, err := s.webhooks.ListWebhooks(r.Context())
	if err != nil {
		logging.FromContext(r.Context()).Error("list webhooks failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load webhooks")
		return
	}
	if hooks == nil {
		hooks = []core.Webhook{}
	}
	writeJSON(w, map[string]any{"webhooks": hooks})
}

type createWebhookRequest struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// handleCreateWebhook registers a new Discord webhook target.
func (s *Server) handleCreateWebhook(w http.ResponseWriter, r *http.Request) {
	var req createWebhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.URL = strings.TrimSpace(req.URL)

	if req.Name == "" || req.URL == "" {
		writeError(w, http.StatusBadRequest, "name and url are required")
		return
	}
	if !strings.HasPrefix(req.URL, "https://discord.com/api/webhooks/") &&
		!strings.HasPrefix(req.URL, "https://discordapp.com/api/webhooks/") {
		writeError(w, http.StatusBadRequest, "url must be a Discord webhook URL")
		return
	}

	hook, err := s.webhooks.CreateWebhook(r.Context(), req.Name, req.URL)
	if err != nil {
		logging.FromContext(r.Context()).Error("create webhook failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create webhook")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, hook)
}

// handleDeleteWebhook removes a webhook target.
func (s *Server) handleDeleteWebhook(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.webhooks.DeleteWebhook(r.Context(), id); err != nil {
		if strings.Contains(err.Error(), "not found") {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		logging.FromContext(r.Context()).Error("delete webhook failed", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete webhook")
		return
	}
	writeJSON(w, map[string]any{"success": true})
}

type forwardRequest struct {
	WebhookID  string      `json:"webhookId"`
	Table      string      `json:"table"`
	Submission core.Record `json:"submission"`
}

// handleForward sends one submission to a configured Discord webhook.
func (s *Server) handleForward(w http.ResponseWriter, r *http.Request) {
	var req forwardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.WebhookID == "" || req.Table == "" || len(req.Submission) == 0 {
		writeError(w, http.StatusBadRequest, "webhookId, table and submission are required")
		return
	}
	if !core.ValidTable(req.Table) {
		writeError(w, http.StatusBadRequest, "unknown table: "+req.Table)
		return
	}

	hook, err := s.webhooks.GetWebhook(r.Context(), req.WebhookID)
	if err != nil {
		writeError(w, http.StatusNotFound, "webhook not found")
		return
	}

	msg := discord.FormatSubmission(req.Table, req.Submission)
	if err := s.discord.Send(r.Context(), hook.URL, msg); err != nil {
		logging.FromContext(r.Context()).Error("discord forward failed",
			"webhook", hook.Name,
			"table", req.Table,
			"error", err,
		)
		writeError(w, http.StatusBadGateway, "failed to send to Discord")
		return
	}

	writeJSON(w, map[string]any{"success": true})
}
