package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/prospectline/crm/internal/contact"
	"github.com/prospectline/crm/internal/core"
	"github.com/prospectline/crm/internal/logging"
	"github.com/prospectline/crm/internal/parse"
	"github.com/prospectline/crm/internal/store"
)

// templateHeaders is the downloadable template, matching the export format
// our operators most often receive.
var templateHeaders = []string{
	"Email", "Nombre", "Apellidos", "Cargo", "Nombre de la empresa", "País/región",
}

// respondError maps pipeline sentinels to HTTP statuses and logs the
// technical error with the request ID.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, core.ErrBatchNotFound), errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, core.ErrInvalidTransition), errors.Is(err, core.ErrBatchProcessing):
		status = http.StatusConflict
	case errors.Is(err, core.ErrMappingIncomplete), errors.Is(err, core.ErrMissingEvent),
		errors.Is(err, parse.ErrEmptyFile), errors.Is(err, parse.ErrNoRows):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrTooManyImports):
		status = http.StatusTooManyRequests
	case errors.Is(err, store.ErrUnavailable):
		status = http.StatusServiceUnavailable
	}

	logging.FromContext(r.Context()).Error("request failed",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err,
	)
	writeError(w, status, err.Error())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := s.service.ListEvents(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

func (s *Server) handleDownloadTemplate(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="contacts-template.csv"`)
	w.Write([]byte(strings.Join(templateHeaders, ",") + "\n"))
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := s.service.History(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": entries})
}

// operator identifies who is running the import. We trust the gateway to set
// the header; empty falls back to a fixed label rather than rejecting.
func operator(r *http.Request) string {
	if op := r.Header.Get("X-Operator"); op != "" {
		return op
	}
	return "unknown"
}

func (s *Server) handleCreateBatch(w http.ResponseWriter, r *http.Request) {
	batch := s.service.CreateBatch(operator(r))
	writeJSON(w, http.StatusCreated, batch.Snapshot())
}

func (s *Server) batch(w http.ResponseWriter, r *http.Request) (*core.ImportBatch, bool) {
	batch, err := s.service.GetBatch(chi.URLParam(r, "batchID"))
	if err != nil {
		s.respondError(w, r, err)
		return nil, false
	}
	return batch, true
}

func (s *Server) handleGetBatch(w http.ResponseWriter, r *http.Request) {
	batch, ok := s.batch(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, batch.Snapshot())
}

func (s *Server) handleAbandonBatch(w http.ResponseWriter, r *http.Request) {
	if err := s.service.AbandonBatch(chi.URLParam(r, "batchID")); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSelectEvent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		EventID       string `json:"eventId"`
		Participation string `json:"participation"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	kind := contact.ParticipationKind(req.Participation)
	err := s.service.SelectBatchEvent(r.Context(), chi.URLParam(r, "batchID"), req.EventID, kind)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	batch, ok := s.batch(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, batch.Snapshot())
}

// handleUploadFile accepts the export file either as a multipart "file" part
// or as the raw request body.
func (s *Server) handleUploadFile(w http.ResponseWriter, r *http.Request) {
	batch, ok := s.batch(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Import.MaxFileSize)

	name := "upload.csv"
	var data []byte
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, header, err := r.FormFile("file")
		if err != nil {
			writeError(w, http.StatusBadRequest, "missing file field")
			return
		}
		defer file.Close()
		name = header.Filename
		data, err = io.ReadAll(file)
		if err != nil {
			writeError(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
	} else {
		var err error
		data, err = io.ReadAll(r.Body)
		if err != nil {
			writeError(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
	}

	if err := batch.AttachFile(name, data); err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, batch.Snapshot())
}

func (s *Server) handleGetMapping(w http.ResponseWriter, r *http.Request) {
	batch, ok := s.batch(w, r)
	if !ok {
		return
	}
	snap := batch.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"mapping": snap.Mapping,
		"headers": snap.Headers,
	})
}

func (s *Server) handleSetMapping(w http.ResponseWriter, r *http.Request) {
	batch, ok := s.batch(w, r)
	if !ok {
		return
	}

	var req struct {
		Field  string `json:"field"`
		Header string `json:"header"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := batch.SetMapping(core.Field(req.Field), req.Header); err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, batch.Snapshot())
}

func (s *Server) handleConfirmMapping(w http.ResponseWriter, r *http.Request) {
	batch, ok := s.batch(w, r)
	if !ok {
		return
	}
	if err := batch.ConfirmMapping(); err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, batch.Snapshot())
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	batch, ok := s.batch(w, r)
	if !ok {
		return
	}
	preview, err := batch.BuildPreview()
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, preview)
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	if err := s.service.StartProcessing(chi.URLParam(r, "batchID")); err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "processing"})
}

// handleResult blocks until the batch reaches its terminal outcome, bounded
// by the request timeout middleware.
func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	outcome, err := s.service.WaitOutcome(r.Context(), chi.URLParam(r, "batchID"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

func (s *Server) handleResetBatch(w http.ResponseWriter, r *http.Request) {
	batch, ok := s.batch(w, r)
	if !ok {
		return
	}
	if err := batch.Reset(); err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, batch.Snapshot())
}
