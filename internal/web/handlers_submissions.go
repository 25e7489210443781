package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/graycup/leads-admin/internal/core"
	"github.com/graycup/leads-admin/internal/logging"
)

// handleListSubmissions returns all records for a table, newest first,
// optionally filtered by ?resolved= and ?vaulted=. Results are cached
// until a mutation or a realtime notification invalidates the table.
func (s *Server) handleListSubmissions(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")
	if !core.ValidTable(table) {
		writeError(w, http.StatusBadRequest, "unknown table: "+table)
		return
	}

	filter, err := parseFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	key := listCacheKey(table, filter)
	if s.cache != nil {
		if cached, ok := s.cache.Get(key); ok {
			writeJSON(w, map[string]any{"data": cached, "cached": true})
			return
		}
	}

	records, err := s.store.List(r.Context(), table, filter)
	if err != nil {
		logging.FromContext(r.Context()).Error("list submissions failed", "table", table, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load submissions")
		return
	}
	if records == nil {
		records = []core.Record{}
	}

	if s.cache != nil {
		s.cache.Set(key, records)
	}
	writeJSON(w, map[string]any{"data": records})
}

type updateRequest struct {
	Resolved *bool `json:"resolved"`
	Vaulted  *bool `json:"vaulted"`
}

// handleUpdateSubmission updates the resolved/vaulted flags on one record.
func (s *Server) handleUpdateSubmission(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")
	id := chi.URLParam(r, "id")
	if !core.ValidTable(table) {
		writeError(w, http.StatusBadRequest, "unknown table: "+table)
		return
	}

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Resolved == nil && req.Vaulted == nil {
		writeError(w, http.StatusBadRequest, "nothing to update: provide resolved and/or vaulted")
		return
	}

	if err := s.store.UpdateFlags(r.Context(), table, id, req.Resolved, req.Vaulted); err != nil {
		if strings.Contains(err.Error(), "not found") {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		logging.FromContext(r.Context()).Error("update failed", "table", table, "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update record")
		return
	}

	if s.cache != nil {
		s.cache.InvalidateTable(table)
	}
	writeJSON(w, map[string]any{"success": true})
}

// handleDeleteSubmission removes one record.
func (s *Server) handleDeleteSubmission(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")
	id := chi.URLParam(r, "id")
	if !core.ValidTable(table) {
		writeError(w, http.StatusBadRequest, "unknown table: "+table)
		return
	}

	if err := s.store.Delete(r.Context(), table, id); err != nil {
		if strings.Contains(err.Error(), "not found") {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		logging.FromContext(r.Context()).Error("delete failed", "table", table, "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete record")
		return
	}

	if s.cache != nil {
		s.cache.InvalidateTable(table)
	}
	writeJSON(w, map[string]any{"success": true})
}

// handleDashboardCounts returns per-table record counts for the main
// dashboard (non-vaulted records). Tables are counted concurrently; a
// failing table degrades to zero rather than failing the response.
func (s *Server) handleDashboardCounts(w http.ResponseWriter, r *http.Request) {
	s.serveCounts(w, r, "counts:dashboard", core.Filter{Vaulted: core.BoolPtr(false)})
}

// handleVaultCounts returns per-table counts of vaulted records.
func (s *Server) handleVaultCounts(w http.ResponseWriter, r *http.Request) {
	s.serveCounts(w, r, "counts:vault", core.Filter{Vaulted: core.BoolPtr(true)})
}

func (s *Server) serveCounts(w http.ResponseWriter, r *http.Request, key string, filter core.Filter) {
	if s.cache != nil {
		if cached, ok := s.cache.Get(key); ok {
			writeJSON(w, map[string]any{"counts": cached, "cached": true})
			return
		}
	}

	counts := make([]core.TableCount, len(core.Tables))
	var wg sync.WaitGroup
	for i, t := range core.Tables {
		wg.Add(1)
		go func(i int, t core.Table) {
			defer wg.Done()
			n, err := s.store.Count(r.Context(), t.Key, filter)
			if err != nil {
				logging.FromContext(r.Context()).Warn("count failed", "table", t.Key, "error", err)
				n = 0
			}
			counts[i] = core.TableCount{Table: t.Key, Label: t.Label, Count: n}
		}(i, t)
	}
	wg.Wait()

	if s.cache != nil {
		s.cache.Set(key, counts)
	}
	writeJSON(w, map[string]any{"counts": counts})
}

// parseFilter reads the optional resolved/vaulted query parameters.
func parseFilter(r *http.Request) (core.Filter, error) {
	var f core.Filter
	for _, name := range []string{"resolved", "vaulted"} {
		raw := r.URL.Query().Get(name)
		if raw == "" {
			continue
		}
		val, err := strconv.ParseBool(raw)
		if err != nil {
			return f, fmt.Errorf("invalid %s value %q", name, raw)
		}
		if name == "resolved" {
			f.Resolved = &val
		} else {
			f.Vaulted = &val
		}
	}
	return f, nil
}

// listCacheKey builds the cache key for a filtered table read.
func listCacheKey(table string, f core.Filter) string {
	return fmt.Sprintf("submissions:%s?resolved=%s&vaulted=%s",
		table, formatBoolPtr(f.Resolved), formatBoolPtr(f.Vaulted))
}

func formatBoolPtr(b *bool) string {
	if b == nil {
		return ""
	}
	return strconv.FormatBool(*b)
}
