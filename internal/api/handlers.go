package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/starford/enigma/internal/apperr"
	"github.com/starford/enigma/internal/docservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc *docservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *docservice.Service) *Handler {
	return &Handler{svc: svc}
}

// writeError maps service errors to HTTP statuses.
func writeError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, apperr.ErrInvalidArgument):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.Is(err, apperr.ErrIntegrity):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody(err.Error()))
	default:
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

// intParam parses an optional integer query parameter.
func intParam(r *http.Request, name string, def int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ListDocuments handles GET /api/documents.
//
//	@Summary		List indexed documents
//	@Tags			documents
//	@Produce		json
//	@Success		200	{object}	DocumentListResponse
//	@Security		BearerAuth
//	@Router			/documents [get]
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListDocuments(r.Context())
	if err != nil {
		writeError(w, "list documents", err)
		return
	}
	writeJSON(w, http.StatusOK, DocumentListResponse{Documents: items, Total: len(items)})
}

// Entries handles GET /api/documents/entries.
//
//	@Summary		Traverse the entries of one cell
//	@Tags			documents
//	@Produce		json
//	@Param			path	query		string	true	"Document path"
//	@Param			staff	query		int		true	"Staff id"
//	@Param			measure	query		int		true	"Measure id"
//	@Param			layer	query		int		false	"Layer index 0-3, all layers when omitted"
//	@Param			part	query		int		false	"Linked part id, 0 for the score"
//	@Param			source	query		string	false	"live (default) or index"	Enums(live, index)
//	@Success		200		{object}	Cell
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/entries [get]
func (h *Handler) Entries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	path := q.Get("path")
	if path == "" || q.Get("staff") == "" || q.Get("measure") == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path, staff and measure are required"))
		return
	}
	staff, ok1 := intParam(r, "staff", 0)
	measure, ok2 := intParam(r, "measure", 0)
	layer, ok3 := intParam(r, "layer", -1)
	part, ok4 := intParam(r, "part", 0)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		writeJSON(w, http.StatusBadRequest, errorBody("staff, measure, layer and part must be integers"))
		return
	}
	if q.Has("layer") && layer < 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("layer must not be negative"))
		return
	}

	req := docservice.CellRequest{Path: path, Part: part, Staff: staff, Measure: measure, Layer: layer}
	var (
		cell *docservice.Cell
		err  error
	)
	switch q.Get("source") {
	case "", "live":
		cell, err = h.svc.Cell(r.Context(), req)
	case "index":
		cell, err = h.svc.IndexedCell(r.Context(), req)
	default:
		writeJSON(w, http.StatusBadRequest, errorBody("source must be live or index"))
		return
	}
	if err != nil {
		writeError(w, "entries", err)
		return
	}
	writeJSON(w, http.StatusOK, cell)
}

// Issues handles GET /api/documents/issues.
//
//	@Summary		List consistency violations found while indexing a document
//	@Tags			documents
//	@Produce		json
//	@Param			path	query		string	true	"Document path"
//	@Success		200		{object}	IssuesResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/issues [get]
func (h *Handler) Issues(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	issues, err := h.svc.Issues(r.Context(), path)
	if err != nil {
		writeError(w, "issues", err)
		return
	}
	writeJSON(w, http.StatusOK, IssuesResponse{Path: path, Issues: issues})
}

// Reindex handles POST /api/documents/reindex.
//
//	@Summary		Re-analyze one document and store its traversal
//	@Tags			documents
//	@Produce		json
//	@Param			path	query		string	true	"Document path"
//	@Success		200		{object}	DocumentItem
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/reindex [post]
func (h *Handler) Reindex(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	item, err := h.svc.IndexFile(r.Context(), path)
	if err != nil {
		writeError(w, "reindex", err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}
