package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/metaphorhacker/metaphornik/internal/models"
	"github.com/metaphorhacker/metaphornik/internal/services/explorer"
)

// ExplorerHandler serves the exploration session endpoints: batch
// consequence fetching, custom perspectives, cancellation, comparison,
// and per-perspective artifacts.
type ExplorerHandler struct {
	explorerService *explorer.Service
	logger          arbor.ILogger
}

// NewExplorerHandler creates an explorer handler.
func NewExplorerHandler(explorerService *explorer.Service, logger arbor.ILogger) *ExplorerHandler {
	return &ExplorerHandler{
		explorerService: explorerService,
		logger:          logger,
	}
}

// ExploreHandler handles POST /api/explore
func (h *ExplorerHandler) ExploreHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req struct {
		Metaphor string `json:"metaphor"`
		Indices  []int  `json:"indices"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}
	if req.Metaphor == "" || len(req.Indices) == 0 {
		WriteError(w, http.StatusBadRequest, "metaphor and indices are required")
		return
	}

	result, err := h.explorerService.Explore(r.Context(), req.Metaphor, req.Indices)
	if err != nil {
		WriteStorageError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, result)
}

// ExploreCustomHandler handles POST /api/explore/custom
func (h *ExplorerHandler) ExploreCustomHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req struct {
		Metaphor string            `json:"metaphor"`
		Set      models.MappingSet `json:"set"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}
	if req.Metaphor == "" {
		WriteError(w, http.StatusBadRequest, "metaphor is required")
		return
	}
	if len(req.Set.Mappings) == 0 {
		WriteError(w, http.StatusBadRequest, "custom perspective needs at least one mapping")
		return
	}

	result, err := h.explorerService.ExploreCustom(r.Context(), req.Metaphor, req.Set)
	if err != nil {
		if errors.Is(err, explorer.ErrCanceled) {
			WriteJSON(w, http.StatusOK, map[string]any{"canceled": true})
			return
		}
		WriteStorageError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, result)
}

// CancelHandler handles POST /api/explore/cancel
func (h *ExplorerHandler) CancelHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	h.explorerService.CancelActive(r.Context())
	WriteSuccess(w, "exploration canceled")
}

// CompareHandler handles POST /api/compare. Without "force", a stored
// comparison for the same index set is returned without a gateway call.
func (h *ExplorerHandler) CompareHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req struct {
		Metaphor string `json:"metaphor"`
		Indices  []int  `json:"indices"`
		Force    bool   `json:"force,omitempty"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}
	if req.Metaphor == "" || len(req.Indices) < 2 {
		WriteError(w, http.StatusBadRequest, "metaphor and at least 2 indices are required")
		return
	}

	if !req.Force {
		cached, err := h.explorerService.CachedComparison(req.Metaphor, req.Indices)
		if err != nil {
			WriteStorageError(w, err)
			return
		}
		if cached != nil {
			WriteJSON(w, http.StatusOK, map[string]any{
				"comparison": cached,
				"cached":     true,
			})
			return
		}
	}

	summary, err := h.explorerService.Compare(r.Context(), req.Metaphor, req.Indices)
	if err != nil {
		if errors.Is(err, explorer.ErrCanceled) {
			WriteJSON(w, http.StatusOK, map[string]any{"canceled": true})
			return
		}
		WriteStorageError(w, err)
		return
	}

	cached, err := h.explorerService.CachedComparison(req.Metaphor, req.Indices)
	if err != nil {
		WriteStorageError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"comparison": cached,
		"summary":    summary,
	})
}

// CompareNotesHandler handles PUT /api/compare/notes
func (h *ExplorerHandler) CompareNotesHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "PUT") {
		return
	}

	var req struct {
		Metaphor string `json:"metaphor"`
		Indices  []int  `json:"indices"`
		Notes    string `json:"notes"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}
	if req.Metaphor == "" || len(req.Indices) < 2 {
		WriteError(w, http.StatusBadRequest, "metaphor and at least 2 indices are required")
		return
	}

	if err := h.explorerService.UpdateComparisonNotes(req.Metaphor, req.Indices, req.Notes); err != nil {
		WriteStorageError(w, err)
		return
	}
	WriteSuccess(w, "notes saved")
}

// PerspectiveRoutesHandler dispatches /api/perspectives/{i}/... paths:
//
//	POST /api/perspectives/{i}/documents          generate a document
//	GET  /api/perspectives/{i}/documents/{j}/pdf  download one as PDF
//	POST /api/perspectives/{i}/image              generate or edit the image
func (h *ExplorerHandler) PerspectiveRoutesHandler(renderer *DocumentRenderer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/api/perspectives/")
		parts := strings.Split(rest, "/")
		if len(parts) < 2 {
			WriteError(w, http.StatusNotFound, "not found")
			return
		}

		index, err := strconv.Atoi(parts[0])
		if err != nil {
			WriteError(w, http.StatusBadRequest, "invalid perspective index")
			return
		}

		switch {
		case len(parts) == 2 && parts[1] == "documents" && r.Method == "POST":
			h.generateDocument(w, r, index)
		case len(parts) == 2 && parts[1] == "image" && r.Method == "POST":
			h.generateImage(w, r, index)
		case len(parts) == 4 && parts[1] == "documents" && parts[3] == "pdf" && r.Method == "GET":
			docIndex, err := strconv.Atoi(parts[2])
			if err != nil {
				WriteError(w, http.StatusBadRequest, "invalid document index")
				return
			}
			renderer.ServeDocumentPDF(w, r, index, docIndex)
		default:
			WriteError(w, http.StatusNotFound, "not found")
		}
	}
}

func (h *ExplorerHandler) generateDocument(w http.ResponseWriter, r *http.Request, index int) {
	var req struct {
		Metaphor     string `json:"metaphor"`
		DocumentType string `json:"documentType"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}
	if req.Metaphor == "" || req.DocumentType == "" {
		WriteError(w, http.StatusBadRequest, "metaphor and documentType are required")
		return
	}

	doc, err := h.explorerService.GenerateDocument(r.Context(), req.Metaphor, index, req.DocumentType)
	if err != nil {
		if errors.Is(err, explorer.ErrCanceled) {
			WriteJSON(w, http.StatusOK, map[string]any{"canceled": true})
			return
		}
		WriteStorageError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, doc)
}

func (h *ExplorerHandler) generateImage(w http.ResponseWriter, r *http.Request, index int) {
	var req struct {
		Metaphor string `json:"metaphor"`
		Prompt   string `json:"prompt"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}
	if req.Metaphor == "" || req.Prompt == "" {
		WriteError(w, http.StatusBadRequest, "metaphor and prompt are required")
		return
	}

	image, err := h.explorerService.GenerateImage(r.Context(), req.Metaphor, index, req.Prompt)
	if err != nil {
		if errors.Is(err, explorer.ErrCanceled) {
			WriteJSON(w, http.StatusOK, map[string]any{"canceled": true})
			return
		}
		WriteStorageError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, image)
}
