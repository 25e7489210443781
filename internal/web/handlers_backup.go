package web

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/graycup/leads-admin/internal/backup"
	"github.com/graycup/leads-admin/internal/core"
	"github.com/graycup/leads-admin/internal/logging"
)

// maxImportBody bounds import payloads (64 MiB).
const maxImportBody = 64 << 20

// handleExport streams the backup ZIP archive. ?table= selects a single
// table; default is everything.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	selection := r.URL.Query().Get("table")
	if selection == "" {
		selection = backup.SelectionAll
	}
	if selection != backup.SelectionAll && !core.ValidTable(selection) {
		writeError(w, http.StatusBadRequest, "unknown table: "+selection)
		return
	}

	logger := logging.FromContext(r.Context())
	logger.Info("backup export started", "selection", selection)

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", s.exporter.Filename()))

	err := s.exporter.WriteArchive(r.Context(), selection, w, func(p backup.Progress) {
		logger.Debug("export progress", "table", p.Table, "status", p.Status)
	})
	if err != nil {
		// Headers are already sent; all we can do is log and drop the
		// connection so the client sees a truncated download.
		logger.Error("backup export failed", "selection", selection, "error", err)
		return
	}
	logger.Info("backup export complete", "selection", selection)
}

type importRequest struct {
	Table          string        `json:"table"`
	Data           []core.Record `json:"data"`
	SkipDuplicates bool          `json:"skipDuplicates"`
}

// handleImport inserts a batch of records into one table.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportBody)

	var req importRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Table == "" || len(req.Data) == 0 {
		writeError(w, http.StatusBadRequest, "table and data are required")
		return
	}

	result, err := s.runner.Importer().Import(r.Context(), req.Table, req.Data, req.SkipDuplicates)
	if err != nil {
		if strings.Contains(err.Error(), "invalid table") {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		logging.FromContext(r.Context()).Error("import failed", "table", req.Table, "error", err)
		writeError(w, http.StatusInternalServerError, "import failed")
		return
	}

	if s.cache != nil {
		s.cache.InvalidateTable(req.Table)
	}
	writeJSON(w, result)
}

// handleImportFiles restores uploaded backup files (multipart field
// "files"). Accepts exported CSV/JSON files and import.json manifests.
func (s *Server) handleImportFiles(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportBody)

	if err := r.ParseMultipartForm(maxImportBody); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart request")
		return
	}

	fileHeaders := r.MultipartForm.File["files"]
	if len(fileHeaders) == 0 {
		writeError(w, http.StatusBadRequest, "no files uploaded")
		return
	}
	skipDuplicates := r.FormValue("skipDuplicates") != "false"

	var files []backup.File
	for _, fh := range fileHeaders {
		f, err := fh.Open()
		if err != nil {
			writeError(w, http.StatusBadRequest, "failed to read "+fh.Filename)
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			writeError(w, http.StatusBadRequest, "failed to read "+fh.Filename)
			return
		}
		files = append(files, backup.File{Name: fh.Filename, Data: data})
	}

	logger := logging.FromContext(r.Context())
	results := s.runner.ImportFiles(r.Context(), files, skipDuplicates, func(status string) {
		logger.Debug("import progress", "status", status)
	})

	if s.cache != nil {
		s.cache.InvalidateMatching(func(string) bool { return true })
	}
	writeJSON(w, map[string]any{"results": results})
}
