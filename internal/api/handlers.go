package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/ansuz/internal/docservice"
)

const previewSuffix = "/preview"

// Handler holds API route handlers.
type Handler struct {
	svc *docservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *docservice.Service) *Handler {
	return &Handler{svc: svc}
}

// docPath extracts the document path from the URL (everything after /api/documents/).
// Supports encoded slashes from clients (e.g. guide%2Fsetup.md).
func docPath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// NormalizeTree handles POST /api/normalize.
//
//	@Summary		Normalize every document under a directory
//	@Tags			normalize
//	@Accept			json
//	@Produce		json
//	@Param			body	body		NormalizeRequest	false	"Directory and dry-run flag"
//	@Success		200		{object}	NormalizeResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Router			/normalize [post]
func (h *Handler) NormalizeTree(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read body"))
		return
	}
	var req NormalizeRequest
	if len(strings.TrimSpace(string(body))) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
			return
		}
	}
	res, err := h.svc.NormalizeTree(r.Context(), req.Dir, req.DryRun)
	if err != nil {
		writeServiceError(w, "normalize tree", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// NormalizeDocument handles POST /api/documents/*.
//
//	@Summary		Normalize a single document
//	@Tags			documents
//	@Produce		json
//	@Param			path	path		string	true	"Document path"
//	@Success		200		{object}	OutcomeResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Router			/documents/{path} [post]
func (h *Handler) NormalizeDocument(w http.ResponseWriter, r *http.Request) {
	path := docPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	o, err := h.svc.NormalizeDocument(r.Context(), path)
	if err != nil {
		writeServiceError(w, "normalize document", err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// PreviewDocument handles GET /api/documents/*/preview.
//
//	@Summary		Show a document as it would look after normalization
//	@Tags			documents
//	@Produce		json
//	@Param			path	path		string	true	"Document path"
//	@Success		200		{object}	PreviewResponse
//	@Failure		404		{object}	errResponse
//	@Router			/documents/{path}/preview [get]
func (h *Handler) PreviewDocument(w http.ResponseWriter, r *http.Request) {
	path := docPath(r)
	if !strings.HasSuffix(path, previewSuffix) {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	path = strings.TrimSuffix(path, previewSuffix)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	p, err := h.svc.PreviewDocument(r.Context(), path)
	if err != nil {
		writeServiceError(w, "preview document", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Check handles GET /api/check.
//
//	@Summary		Run the structural-compliance check
//	@Tags			check
//	@Produce		json
//	@Success		200	{object}	CheckResponse
//	@Router			/check [get]
func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	rep, err := h.svc.Check(r.Context())
	if err != nil {
		writeServiceError(w, "check", err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// Classify handles GET /api/classify.
//
//	@Summary		Classify a document path
//	@Tags			check
//	@Produce		json
//	@Param			path	query		string	true	"Document path"
//	@Success		200		{object}	ClassifyResponse
//	@Failure		400		{object}	errResponse
//	@Router			/classify [get]
func (h *Handler) Classify(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'path' is required"))
		return
	}
	writeJSON(w, http.StatusOK, ClassifyResponse{Path: path, Type: h.svc.Classify(path)})
}

// ListRuns handles GET /api/runs.
//
//	@Summary		List recorded runs, newest first
//	@Tags			history
//	@Produce		json
//	@Param			limit	query		int		false	"Max runs"
//	@Success		200		{object}	RunListResponse
//	@Failure		404		{object}	errResponse
//	@Router			/runs [get]
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	runs, err := h.svc.ListRuns(r.Context(), limit)
	if err != nil {
		writeServiceError(w, "list runs", err)
		return
	}
	writeJSON(w, http.StatusOK, RunListResponse{Runs: runs})
}

// GetRun handles GET /api/runs/{id}.
//
//	@Summary		Get a recorded run with its document outcomes
//	@Tags			history
//	@Produce		json
//	@Param			id	path		int	true	"Run id"
//	@Success		200	{object}	RunDetailResponse
//	@Failure		400	{object}	errResponse
//	@Failure		404	{object}	errResponse
//	@Router			/runs/{id} [get]
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid run id"))
		return
	}
	detail, err := h.svc.GetRun(r.Context(), id)
	if err != nil {
		writeServiceError(w, "get run", err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}
