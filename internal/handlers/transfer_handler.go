package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/metaphorhacker/metaphornik/internal/services/transfer"
)

// TransferHandler serves whole-store export and import.
type TransferHandler struct {
	transferService *transfer.Service
	logger          arbor.ILogger
}

// NewTransferHandler creates a transfer handler.
func NewTransferHandler(transferService *transfer.Service, logger arbor.ILogger) *TransferHandler {
	return &TransferHandler{
		transferService: transferService,
		logger:          logger,
	}
}

// ExportHandler handles GET /api/export. Responds with the metaphor-keyed
// JSON map as an attachment.
func (h *TransferHandler) ExportHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	entries, err := h.transferService.Export()
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Disposition", `attachment; filename="metaphornik-export.json"`)
	WriteJSON(w, http.StatusOK, entries)
}

// ImportHandler handles POST /api/import. The body is the exported JSON
// map; validation failures reject the whole payload with 400.
func (h *TransferHandler) ImportHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	count, err := h.transferService.Import(data)
	if err != nil {
		if errors.Is(err, transfer.ErrInvalidImport) {
			WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "success",
		"imported": count,
	})
}
