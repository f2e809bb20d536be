package handlers

import (
	"net/http"

	"github.com/metaphorhacker/metaphornik/internal/common"
	"github.com/metaphorhacker/metaphornik/internal/interfaces"
	"github.com/ternarybob/arbor"
)

// StatusHandler reports application status and version information.
type StatusHandler struct {
	storage   interfaces.AnalysisStorage
	config    *common.Config
	startedAt int64
	logger    arbor.ILogger
}

// NewStatusHandler creates a new StatusHandler
func NewStatusHandler(storage interfaces.AnalysisStorage, config *common.Config, startedAt int64, logger arbor.ILogger) *StatusHandler {
	return &StatusHandler{
		storage:   storage,
		config:    config,
		startedAt: startedAt,
		logger:    logger,
	}
}

// GetStatusHandler handles GET /api/status
func (h *StatusHandler) GetStatusHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	analysisCount := 0
	perspectiveCount := 0
	database := "ok"
	if records, err := h.storage.ListAnalyses(); err != nil {
		database = "error"
		h.logger.Warn().Err(err).Msg("Status check failed to read storage")
	} else {
		analysisCount = len(records)
		for _, record := range records {
			perspectiveCount += len(record.ExploredPerspectives)
		}
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"service":           "metaphornik",
		"status":            "running",
		"environment":       h.config.Environment,
		"database":          database,
		"analysesCount":     analysisCount,
		"perspectivesCount": perspectiveCount,
		"startedAt":         h.startedAt,
	})
}

// VersionHandler handles GET /api/version
func (h *StatusHandler) VersionHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"version":    common.GetVersion(),
		"build":      common.Build,
		"git_commit": common.GitCommit,
	})
}

// HealthHandler handles GET /api/health
func (h *StatusHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}
