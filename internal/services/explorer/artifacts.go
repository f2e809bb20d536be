package explorer

import (
	"context"
	"fmt"

	"github.com/metaphorhacker/metaphornik/internal/interfaces"
	"github.com/metaphorhacker/metaphornik/internal/models"
)

// GenerateDocument writes a document of the given type from inside one
// perspective's point of view and appends it to that perspective's
// artifact list. The perspective must have been explored first, the
// consequence text is part of the generation context.
func (s *Service) GenerateDocument(ctx context.Context, metaphor string, perspectiveIndex int, documentType string) (*models.GeneratedDocument, error) {
	stored, err := s.storage.GetAnalysis(metaphor)
	if err != nil {
		return nil, err
	}
	if perspectiveIndex < 0 || perspectiveIndex >= len(stored.Analysis.MappingSets) {
		return nil, fmt.Errorf("mapping set index %d out of range", perspectiveIndex)
	}

	p := stored.Perspective(perspectiveIndex)
	if p == nil || p.LatestConsequence() == "" {
		return nil, fmt.Errorf("cannot generate document: perspective %d has not been explored", perspectiveIndex)
	}

	token := s.newSession()
	set := stored.Analysis.MappingSets[perspectiveIndex]

	content, err := s.aiService.GenerateDocument(ctx, metaphor, set, p.LatestConsequence(), documentType)
	if err != nil {
		s.publishError(ctx, metaphor, err)
		return nil, fmt.Errorf("failed to generate document of type %q: %w", documentType, err)
	}
	if token.Canceled() {
		return nil, ErrCanceled
	}

	doc := models.GeneratedDocument{
		Type:      documentType,
		Content:   content,
		Timestamp: models.NowMillis(),
	}
	if err := s.storage.RecordDocument(metaphor, perspectiveIndex, doc); err != nil {
		return nil, err
	}

	s.publish(ctx, interfaces.EventDocumentReady, map[string]any{
		"metaphor": metaphor,
		"index":    perspectiveIndex,
		"type":     documentType,
	})

	return &doc, nil
}

// GenerateImage generates or edits the illustrative image for one
// perspective. When the perspective already has an image, it is sent as
// the edit base and the new revision joins its prompt history.
func (s *Service) GenerateImage(ctx context.Context, metaphor string, perspectiveIndex int, prompt string) (*models.GeneratedImage, error) {
	stored, err := s.storage.GetAnalysis(metaphor)
	if err != nil {
		return nil, err
	}

	p := stored.Perspective(perspectiveIndex)
	if p == nil {
		return nil, fmt.Errorf("cannot generate image: perspective %d has not been explored", perspectiveIndex)
	}

	token := s.newSession()

	var base *interfaces.ImageData
	if p.GeneratedImage != nil {
		base = &interfaces.ImageData{
			Base64Data: p.GeneratedImage.Base64Data,
			MimeType:   p.GeneratedImage.MimeType,
		}
	}

	generated, err := s.aiService.GenerateOrEditImage(ctx, prompt, base)
	if err != nil {
		s.publishError(ctx, metaphor, err)
		return nil, fmt.Errorf("failed to generate image: %w", err)
	}
	if token.Canceled() {
		return nil, ErrCanceled
	}

	// Only the new revision goes in; the store carries prior history
	// forward when it replaces the image.
	image := models.GeneratedImage{
		Base64Data: generated.Base64Data,
		MimeType:   generated.MimeType,
		History: []models.ImageRevision{
			{Prompt: prompt, Timestamp: models.NowMillis()},
		},
	}
	if err := s.storage.RecordImage(metaphor, perspectiveIndex, image); err != nil {
		return nil, err
	}

	s.publish(ctx, interfaces.EventImageReady, map[string]any{
		"metaphor": metaphor,
		"index":    perspectiveIndex,
	})

	// Return the stored view, with full history.
	updated, err := s.storage.GetAnalysis(metaphor)
	if err != nil {
		return nil, err
	}
	up := updated.Perspective(perspectiveIndex)
	if up == nil || up.GeneratedImage == nil {
		return &image, nil
	}
	return up.GeneratedImage, nil
}
