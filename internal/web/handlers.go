package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/querydesk/internal/logging"
	"github.com/JonMunkholm/querydesk/internal/remote"
	"github.com/JonMunkholm/querydesk/internal/workspace"
)

const (
	// maxQueryBody bounds the JSON body of POST /api/query.
	maxQueryBody = 1 << 20

	// multipartMemory is held in memory while parsing an upload; the rest
	// spills to temporary files.
	multipartMemory = 32 << 20
)

// handleState returns the current workspace snapshot.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ws.Snapshot())
}

// handleRefreshTables reloads the table list.
func (s *Server) handleRefreshTables(w http.ResponseWriter, r *http.Request) {
	if err := s.ws.RefreshTables(r.Context()); err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.ws.Snapshot())
}

// handleSelectTable selects a table and loads its schema.
func (s *Server) handleSelectTable(w http.ResponseWriter, r *http.Request) {
	tableID := chi.URLParam(r, "tableID")
	if tableID == "" {
		writeError(w, r, http.StatusBadRequest, "missing table id")
		return
	}

	if err := s.ws.SelectTable(r.Context(), tableID); err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.ws.Snapshot())
}

// handleClearSelection empties the selection.
func (s *Server) handleClearSelection(w http.ResponseWriter, r *http.Request) {
	s.ws.ClearSelection()
	writeJSON(w, http.StatusOK, s.ws.Snapshot())
}

type queryRequest struct {
	Query string `json:"query"`
}

// handleQuery runs a natural-language query and returns its result.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxQueryBody)).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid query body")
		return
	}

	res, err := s.ws.SubmitQuery(r.Context(), req.Query)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleExportCSV downloads the current result as CSV.
func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	out, err := s.ws.ExportCurrentResultAsCSV()
	if err != nil {
		respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="query-result.csv"`)
	if _, err := io.WriteString(w, out); err != nil {
		logging.FromContext(r.Context()).Warn("export write failed", "error", err)
	}
}

// handleClearHistory empties the query history.
func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	if err := s.ws.ClearHistory(r.Context()); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleUpload streams the multipart field "file" to the query service.
// The request returns once the upload has finished and the table list has
// been refreshed; progress is observable through /api/events meanwhile.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload+multipartMemory)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			respondError(w, r, workspace.ErrFileTooLarge)
			return
		}
		writeError(w, r, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "no file provided")
		return
	}
	defer file.Close()

	res, err := s.ws.StartUpload(r.Context(), remote.File{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Reader:      file,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleDeleteTable deletes a table. The caller confirms with ?confirm=true;
// without it the request is refused and nothing is sent to the service.
func (s *Server) handleDeleteTable(w http.ResponseWriter, r *http.Request) {
	tableID := chi.URLParam(r, "tableID")
	if err := s.ws.DeleteTable(r.Context(), tableID, confirmParam(r)); err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.ws.Snapshot())
}

// confirmParam answers the delete prompt from the confirm query parameter.
func confirmParam(r *http.Request) workspace.Confirmer {
	return workspace.ConfirmFunc(func(context.Context, string) (bool, error) {
		ok, err := strconv.ParseBool(strings.TrimSpace(r.URL.Query().Get("confirm")))
		return err == nil && ok, nil
	})
}

// handleDismissNotification removes a notification before it expires.
func (s *Server) handleDismissNotification(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.ws.DismissNotification(id) {
		writeError(w, r, http.StatusNotFound, "notification not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
