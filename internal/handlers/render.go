package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/metaphorhacker/metaphornik/internal/interfaces"
	"github.com/metaphorhacker/metaphornik/internal/services/render"
	"github.com/ternarybob/arbor"
)

// DocumentRenderer serves stored markdown documents as PDF downloads.
type DocumentRenderer struct {
	storage interfaces.AnalysisStorage
	render  *render.Service
	logger  arbor.ILogger
}

// NewDocumentRenderer creates a new document renderer
func NewDocumentRenderer(storage interfaces.AnalysisStorage, renderService *render.Service, logger arbor.ILogger) *DocumentRenderer {
	return &DocumentRenderer{
		storage: storage,
		render:  renderService,
		logger:  logger,
	}
}

// ServeDocumentPDF handles GET /api/perspectives/{i}/documents/{j}/pdf?metaphor=...
func (d *DocumentRenderer) ServeDocumentPDF(w http.ResponseWriter, r *http.Request, perspectiveIndex, docIndex int) {
	metaphor := r.URL.Query().Get("metaphor")
	if metaphor == "" {
		WriteError(w, http.StatusBadRequest, "metaphor query parameter is required")
		return
	}

	stored, err := d.storage.GetAnalysis(metaphor)
	if err != nil {
		WriteStorageError(w, err)
		return
	}

	perspective := stored.Perspective(perspectiveIndex)
	if perspective == nil {
		WriteError(w, http.StatusNotFound, "perspective not found")
		return
	}
	if docIndex < 0 || docIndex >= len(perspective.GeneratedDocuments) {
		WriteError(w, http.StatusNotFound, "document not found")
		return
	}
	doc := perspective.GeneratedDocuments[docIndex]

	title := fmt.Sprintf("%s / %s", metaphor, doc.Type)
	pdfData, err := d.render.DocumentPDF(doc.Content, title)
	if err != nil {
		d.logger.Error().Err(err).Str("metaphor", metaphor).Msg("Failed to render document PDF")
		WriteError(w, http.StatusInternalServerError, "failed to render PDF")
		return
	}

	filename := fmt.Sprintf("%s-%s.pdf", sanitizeFilename(metaphor), sanitizeFilename(doc.Type))
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(pdfData); err != nil {
		d.logger.Warn().Err(err).Msg("Failed to write PDF response")
	}
}

// sanitizeFilename keeps download filenames to letters, digits and dashes.
func sanitizeFilename(s string) string {
	var b strings.Builder
	for _, c := range strings.ToLower(s) {
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			b.WriteRune(c)
		case c == ' ' || c == '-' || c == '_':
			b.WriteRune('-')
		}
	}
	return strings.Trim(b.String(), "-")
}
