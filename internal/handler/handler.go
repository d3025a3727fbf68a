package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"tesim/internal/codec"
	"tesim/internal/repository"
	"tesim/internal/service"
)

// RunHandler handles run API requests
type RunHandler struct {
	svc *service.RunService
}

// NewRunHandler creates a new run handler
func NewRunHandler(svc *service.RunService) *RunHandler {
	return &RunHandler{svc: svc}
}

// maxImportSize bounds the body of an import request
const maxImportSize = 256 << 20

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// Register adds the run routes to mux
func (h *RunHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/runs", h.ListRuns)
	mux.HandleFunc("POST /api/runs/import", h.ImportRun)
	mux.HandleFunc("GET /api/runs/{id}", h.GetRun)
	mux.HandleFunc("DELETE /api/runs/{id}", h.DeleteRun)
	mux.HandleFunc("GET /api/runs/{id}/summary", h.GetSummary)
	mux.HandleFunc("GET /api/runs/{id}/ticks", h.ExportTicks)
}

// ListRuns returns all runs, oldest first
func (h *RunHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.svc.ListRuns(r.Context())
	if err != nil {
		log.Printf("Failed to list runs: %v", err)
		h.writeError(w, "Failed to list runs", err.Error(), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, runs, http.StatusOK)
}

// ImportRun stores a run log posted as json or yaml; format defaults to json
func (h *RunHandler) ImportRun(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}

	run, err := h.svc.Import(r.Context(), format, http.MaxBytesReader(w, r.Body, maxImportSize))
	if err != nil {
		if errors.Is(err, service.ErrInvalidRunLog) {
			h.writeError(w, "Invalid run log", err.Error(), http.StatusBadRequest)
			return
		}
		log.Printf("Failed to import run: %v", err)
		h.writeError(w, "Failed to import run", err.Error(), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, run, http.StatusCreated)
}

// GetRun returns a single run
func (h *RunHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.svc.GetRun(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeLookupError(w, "Failed to get run", err)
		return
	}

	h.writeJSON(w, run, http.StatusOK)
}

// DeleteRun removes a run and its ticks
func (h *RunHandler) DeleteRun(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteRun(r.Context(), r.PathValue("id")); err != nil {
		h.writeLookupError(w, "Failed to delete run", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetSummary returns loss fractions and tracking error statistics of a run
func (h *RunHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.svc.Summarize(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeLookupError(w, "Failed to summarize run", err)
		return
	}

	h.writeJSON(w, summary, http.StatusOK)
}

// ExportTicks writes the saved ticks of a run; format defaults to tsv
func (h *RunHandler) ExportTicks(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "tsv"
	}

	exporter, err := codec.Lookup(format)
	if err != nil {
		h.writeError(w, "Unsupported format", err.Error(), http.StatusBadRequest)
		return
	}

	var buf bytes.Buffer
	if err := h.svc.Export(r.Context(), r.PathValue("id"), format, &buf); err != nil {
		h.writeLookupError(w, "Failed to export run", err)
		return
	}

	w.Header().Set("Content-Type", exporter.ContentType())
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		log.Printf("Failed to write export: %v", err)
	}
}

func (h *RunHandler) writeLookupError(w http.ResponseWriter, message string, err error) {
	if errors.Is(err, repository.ErrNotFound) {
		h.writeError(w, "Not found", err.Error(), http.StatusNotFound)
		return
	}
	log.Printf("%s: %v", message, err)
	h.writeError(w, message, err.Error(), http.StatusInternalServerError)
}

func (h *RunHandler) writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Failed to encode JSON: %v", err)
	}
}

func (h *RunHandler) writeError(w http.ResponseWriter, error, details string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(ErrorResponse{
		Error:   error,
		Details: details,
	}); err != nil {
		log.Printf("Failed to encode error response: %v", err)
	}
}
