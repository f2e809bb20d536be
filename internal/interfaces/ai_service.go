package interfaces

import (
	"context"

	"github.com/metaphorhacker/metaphornik/internal/models"
)

// ImageData is raw generated image content plus its MIME type.
type ImageData struct {
	Base64Data string
	MimeType   string
}

// ComparisonInput bundles everything known about one perspective when
// asking for a cross-perspective synthesis.
type ComparisonInput struct {
	Set          models.MappingSet
	Consequences string
	Documents    []models.GeneratedDocument
	Image        *models.GeneratedImage
}

// AIService is the boundary to the hosted generative model. Structured
// operations are schema-constrained and reject malformed payloads whole;
// narrative operations return markdown text. Every failure surfaces as a
// single descriptive error.
type AIService interface {
	// AnalyzeMetaphor decomposes an "A is B" statement into source/target
	// domains and 3-4 candidate mapping sets. Fact IDs are assigned
	// client-side after the structured response is validated.
	AnalyzeMetaphor(ctx context.Context, metaphor string) (*models.MetaphorAnalysis, error)

	// ExploreConsequences returns a markdown analysis of the implications
	// of adopting one perspective.
	ExploreConsequences(ctx context.Context, metaphor string, set models.MappingSet, source, target models.Domain) (string, error)

	// GenerateMoreFacts returns 3-4 new fact texts for a domain, distinct
	// from the existing ones.
	GenerateMoreFacts(ctx context.Context, domainName string, existing []string) ([]string, error)

	// SummarizeCustomPerspective names and describes a user-built set of
	// mappings.
	SummarizeCustomPerspective(ctx context.Context, source, target models.Domain, mappings []models.Mapping) (*models.PerspectiveSummary, error)

	// ComparePerspectives synthesizes a markdown comparison across two or
	// more explored perspectives.
	ComparePerspectives(ctx context.Context, metaphor string, perspectives []ComparisonInput) (string, error)

	// GenerateDocument writes a document of the given type from inside a
	// perspective's point of view.
	GenerateDocument(ctx context.Context, metaphor string, set models.MappingSet, consequences, documentType string) (string, error)

	// GenerateOrEditImage generates an image for a prompt, optionally using
	// the previous image as the edit base.
	GenerateOrEditImage(ctx context.Context, prompt string, base *ImageData) (*ImageData, error)

	// GenerateMetaphors proposes 5-7 "X is Y" metaphors for a topic.
	GenerateMetaphors(ctx context.Context, topic string) ([]string, error)

	// IdentifyMetaphors finds conceptual metaphors in a free-text statement.
	IdentifyMetaphors(ctx context.Context, statement string) ([]models.IdentifiedMetaphor, error)

	// SuggestAlternativeFrames proposes reframings of a statement given the
	// metaphors it currently relies on.
	SuggestAlternativeFrames(ctx context.Context, statement string, metaphors []models.IdentifiedMetaphor) ([]models.AlternativeFrame, error)

	// Close releases provider clients.
	Close() error
}
