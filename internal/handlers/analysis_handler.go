package handlers

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/metaphorhacker/metaphornik/internal/interfaces"
	"github.com/metaphorhacker/metaphornik/internal/models"
	"github.com/metaphorhacker/metaphornik/internal/services/explorer"
)

// AnalysisHandler serves metaphor decomposition, the saved-analysis
// library, and the brainstorming endpoints that run before an analysis
// exists.
type AnalysisHandler struct {
	explorerService *explorer.Service
	aiService       interfaces.AIService
	storage         interfaces.AnalysisStorage
	eventService    interfaces.EventService
	logger          arbor.ILogger
}

// NewAnalysisHandler creates an analysis handler.
func NewAnalysisHandler(
	explorerService *explorer.Service,
	aiService interfaces.AIService,
	storage interfaces.AnalysisStorage,
	eventService interfaces.EventService,
	logger arbor.ILogger,
) *AnalysisHandler {
	return &AnalysisHandler{
		explorerService: explorerService,
		aiService:       aiService,
		storage:         storage,
		eventService:    eventService,
		logger:          logger,
	}
}

// AnalyzeHandler handles POST /api/analyze
func (h *AnalysisHandler) AnalyzeHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req struct {
		Metaphor string `json:"metaphor"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}
	req.Metaphor = strings.TrimSpace(req.Metaphor)
	if req.Metaphor == "" {
		WriteError(w, http.StatusBadRequest, "metaphor is required")
		return
	}

	stored, err := h.explorerService.Analyze(r.Context(), req.Metaphor)
	if err != nil {
		h.logger.Error().Err(err).Str("metaphor", req.Metaphor).Msg("Analysis failed")
		WriteError(w, http.StatusBadGateway, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, stored)
}

// ListAnalysesHandler handles GET /api/analyses
func (h *AnalysisHandler) ListAnalysesHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	analyses, err := h.storage.ListAnalyses()
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(analyses),
		"analyses": analyses,
	})
}

// AnalysisByMetaphorHandler handles GET and DELETE /api/analyses/{metaphor}.
// The metaphor is a URL-escaped path segment ("AI%20is%20an%20intern").
func (h *AnalysisHandler) AnalysisByMetaphorHandler(w http.ResponseWriter, r *http.Request) {
	escaped := strings.TrimPrefix(r.URL.Path, "/api/analyses/")
	metaphor, err := url.PathUnescape(escaped)
	if err != nil || metaphor == "" {
		WriteError(w, http.StatusBadRequest, "invalid metaphor in path")
		return
	}

	switch r.Method {
	case "GET":
		stored, err := h.storage.GetAnalysis(metaphor)
		if err != nil {
			WriteStorageError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, stored)

	case "DELETE":
		if err := h.storage.DeleteAnalysis(metaphor); err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error())
			return
		}
		h.eventService.Publish(r.Context(), interfaces.Event{
			Type:    interfaces.EventAnalysisDeleted,
			Payload: map[string]any{"metaphor": metaphor},
		})
		WriteSuccess(w, "analysis deleted")

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// GenerateMetaphorsHandler handles POST /api/metaphors/generate
func (h *AnalysisHandler) GenerateMetaphorsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req struct {
		Topic string `json:"topic"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Topic) == "" {
		WriteError(w, http.StatusBadRequest, "topic is required")
		return
	}

	metaphors, err := h.aiService.GenerateMetaphors(r.Context(), req.Topic)
	if err != nil {
		WriteError(w, http.StatusBadGateway, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{"metaphors": metaphors})
}

// IdentifyMetaphorsHandler handles POST /api/metaphors/identify
func (h *AnalysisHandler) IdentifyMetaphorsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req struct {
		Statement string `json:"statement"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Statement) == "" {
		WriteError(w, http.StatusBadRequest, "statement is required")
		return
	}

	metaphors, err := h.aiService.IdentifyMetaphors(r.Context(), req.Statement)
	if err != nil {
		WriteError(w, http.StatusBadGateway, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{"metaphors": metaphors})
}

// ReframeHandler handles POST /api/metaphors/reframe
func (h *AnalysisHandler) ReframeHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req struct {
		Statement string                      `json:"statement"`
		Metaphors []models.IdentifiedMetaphor `json:"metaphors"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Statement) == "" {
		WriteError(w, http.StatusBadRequest, "statement is required")
		return
	}

	frames, err := h.aiService.SuggestAlternativeFrames(r.Context(), req.Statement, req.Metaphors)
	if err != nil {
		WriteError(w, http.StatusBadGateway, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{"frames": frames})
}
