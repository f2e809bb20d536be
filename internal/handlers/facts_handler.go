package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/metaphorhacker/metaphornik/internal/models"
	"github.com/metaphorhacker/metaphornik/internal/services/facts"
)

// FactsHandler serves fact-level edits: adding, generating, reordering,
// and custom-mode mapping creation.
type FactsHandler struct {
	factsService *facts.Service
	logger       arbor.ILogger
}

// NewFactsHandler creates a facts handler.
func NewFactsHandler(factsService *facts.Service, logger arbor.ILogger) *FactsHandler {
	return &FactsHandler{
		factsService: factsService,
		logger:       logger,
	}
}

func parseSide(raw string) (models.Side, bool) {
	switch raw {
	case "source":
		return models.SideSource, true
	case "target":
		return models.SideTarget, true
	}
	return "", false
}

// AddFactHandler handles POST /api/facts
func (h *FactsHandler) AddFactHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req struct {
		Metaphor string `json:"metaphor"`
		Side     string `json:"side"`
		Text     string `json:"text"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}
	side, ok := parseSide(req.Side)
	if !ok || req.Metaphor == "" || req.Text == "" {
		WriteError(w, http.StatusBadRequest, "metaphor, side (source|target) and text are required")
		return
	}

	analysis, err := h.factsService.AddFact(req.Metaphor, side, req.Text)
	if err != nil {
		WriteStorageError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, analysis)
}

// GenerateFactsHandler handles POST /api/facts/generate
func (h *FactsHandler) GenerateFactsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req struct {
		Metaphor string `json:"metaphor"`
		Side     string `json:"side"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}
	side, ok := parseSide(req.Side)
	if !ok || req.Metaphor == "" {
		WriteError(w, http.StatusBadRequest, "metaphor and side (source|target) are required")
		return
	}

	analysis, err := h.factsService.GenerateFacts(r.Context(), req.Metaphor, side)
	if err != nil {
		WriteStorageError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, analysis)
}

// ReorderFactHandler handles POST /api/facts/reorder
func (h *FactsHandler) ReorderFactHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req struct {
		Metaphor  string `json:"metaphor"`
		Side      string `json:"side"`
		FromIndex int    `json:"fromIndex"`
		ToIndex   int    `json:"toIndex"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}
	side, ok := parseSide(req.Side)
	if !ok || req.Metaphor == "" {
		WriteError(w, http.StatusBadRequest, "metaphor and side (source|target) are required")
		return
	}

	analysis, err := h.factsService.ReorderFact(req.Metaphor, side, req.FromIndex, req.ToIndex)
	if err != nil {
		WriteStorageError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, analysis)
}

// MapFactsHandler handles POST and DELETE /api/facts/map, the custom-mode
// operations that link a source fact to a target fact or undo a link.
func (h *FactsHandler) MapFactsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "POST":
		h.addMapping(w, r)
	case "DELETE":
		h.removeMapping(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *FactsHandler) addMapping(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Metaphor string         `json:"metaphor"`
		SetIndex int            `json:"setIndex"`
		Mapping  models.Mapping `json:"mapping"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}
	if req.Metaphor == "" {
		WriteError(w, http.StatusBadRequest, "metaphor is required")
		return
	}

	analysis, err := h.factsService.AddCustomMapping(req.Metaphor, req.SetIndex, req.Mapping)
	if err != nil {
		WriteStorageError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, analysis)
}

func (h *FactsHandler) removeMapping(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Metaphor     string `json:"metaphor"`
		SetIndex     int    `json:"setIndex"`
		MappingIndex int    `json:"mappingIndex"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}
	if req.Metaphor == "" {
		WriteError(w, http.StatusBadRequest, "metaphor is required")
		return
	}

	analysis, err := h.factsService.RemoveMapping(req.Metaphor, req.SetIndex, req.MappingIndex)
	if err != nil {
		WriteStorageError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, analysis)
}
