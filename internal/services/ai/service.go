package ai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/metaphorhacker/metaphornik/internal/common"
	"github.com/metaphorhacker/metaphornik/internal/interfaces"
	"github.com/metaphorhacker/metaphornik/internal/models"
)

// Service implements the generative model boundary. Structured operations
// are schema-constrained Gemini calls whose JSON is parsed and validated
// before anything reaches the store; narrative operations return markdown
// and route to the configured default provider. All outbound calls share
// one rate limiter.
type Service struct {
	config   *common.Config
	provider *providerFactory
	limiter  *rate.Limiter
	logger   arbor.ILogger
}

// NewService creates an AI service from configuration. Provider clients
// are created lazily on first use.
func NewService(config *common.Config, kvStorage interfaces.KeyValueStorage, logger arbor.ILogger) (*Service, error) {
	interval, err := time.ParseDuration(config.Gemini.RateLimit)
	if err != nil {
		return nil, fmt.Errorf("invalid gemini.rate_limit %q: %w", config.Gemini.RateLimit, err)
	}

	return &Service{
		config:   config,
		provider: newProviderFactory(&config.Gemini, &config.Claude, &config.LLM, kvStorage, logger),
		limiter:  rate.NewLimiter(rate.Every(interval), 1),
		logger:   logger,
	}, nil
}

var _ interfaces.AIService = (*Service)(nil)

// analysisWire mirrors the structured analysis response, in which domain
// facts are plain strings rather than identified facts.
type analysisWire struct {
	SourceDomain struct {
		Name  string   `json:"name"`
		Facts []string `json:"facts"`
	} `json:"sourceDomain"`
	TargetDomain struct {
		Name  string   `json:"name"`
		Facts []string `json:"facts"`
	} `json:"targetDomain"`
	MappingSets []models.MappingSet `json:"mappingSets"`
}

// AnalyzeMetaphor decomposes a metaphor into domains and candidate
// perspectives. Fact IDs are assigned here, positionally at birth, and
// stay with their facts through any later reordering.
func (s *Service) AnalyzeMetaphor(ctx context.Context, metaphor string) (*models.MetaphorAnalysis, error) {
	prompt := fmt.Sprintf(`You are an expert in conceptual metaphor analysis. A user has provided the metaphor: "%s".
Your task is to analyze this metaphor. Please return a JSON object that strictly follows the provided schema.
Identify the source and target domains. For each domain, list 5-7 distinct, concise facts or attributes.
Then, create 3-4 different 'mappingSets'. Each set should represent a unique, partial perspective on the metaphor by linking facts from the source domain to the target domain.
For each mappingSet, also provide a relevant 'icon' name from the Google Material Symbols library that visually represents the core concept of the perspective.
The mappings should use the array indices of the facts you've identified. Ensure indices are valid.`, metaphor)

	text, err := s.generateStructured(ctx, s.config.Gemini.Model, prompt, analysisSchema)
	if err != nil {
		return nil, fmt.Errorf("metaphor analysis failed: %w", err)
	}

	var wire analysisWire
	if err := json.Unmarshal([]byte(text), &wire); err != nil {
		return nil, fmt.Errorf("metaphor analysis returned malformed JSON: %w", err)
	}

	analysis := &models.MetaphorAnalysis{
		SourceDomain: models.Domain{Name: wire.SourceDomain.Name, Facts: identifyFacts(models.SideSource, wire.SourceDomain.Facts)},
		TargetDomain: models.Domain{Name: wire.TargetDomain.Name, Facts: identifyFacts(models.SideTarget, wire.TargetDomain.Facts)},
		MappingSets:  wire.MappingSets,
	}

	if err := validateAnalysis(analysis); err != nil {
		return nil, fmt.Errorf("metaphor analysis rejected: %w", err)
	}

	s.logger.Info().
		Str("metaphor", metaphor).
		Int("mapping_sets", len(analysis.MappingSets)).
		Msg("Metaphor analyzed")

	return analysis, nil
}

// identifyFacts converts fact texts to identified facts using positional
// birth IDs.
func identifyFacts(side models.Side, texts []string) []models.Fact {
	facts := make([]models.Fact, 0, len(texts))
	for i, text := range texts {
		facts = append(facts, models.Fact{
			ID:   fmt.Sprintf("%s-%d", side, i),
			Text: text,
		})
	}
	return facts
}

// validateAnalysis rejects a decomposition whose domains are empty or
// whose mappings point outside their fact arrays. The payload is rejected
// whole rather than partially repaired.
func validateAnalysis(a *models.MetaphorAnalysis) error {
	if len(a.SourceDomain.Facts) == 0 || len(a.TargetDomain.Facts) == 0 {
		return fmt.Errorf("domain with no facts")
	}
	if len(a.MappingSets) == 0 {
		return fmt.Errorf("no mapping sets")
	}
	for _, set := range a.MappingSets {
		for _, m := range set.Mappings {
			if m.SourceFactIndex < 0 || m.SourceFactIndex >= len(a.SourceDomain.Facts) {
				return fmt.Errorf("mapping set %q references source fact index %d out of range", set.Name, m.SourceFactIndex)
			}
			if m.TargetFactIndex < 0 || m.TargetFactIndex >= len(a.TargetDomain.Facts) {
				return fmt.Errorf("mapping set %q references target fact index %d out of range", set.Name, m.TargetFactIndex)
			}
		}
	}
	return nil
}

// ExploreConsequences returns a markdown analysis of one perspective.
// A perspective with no resolvable mappings short-circuits to a static
// placeholder without an API call.
func (s *Service) ExploreConsequences(ctx context.Context, metaphor string, set models.MappingSet, source, target models.Domain) (string, error) {
	mappingDetails := describeMappings(set.Mappings, source, target, true)
	if mappingDetails == "" {
		return "## No Mappings Provided\nPlease create at least one mapping between the source and target domains to explore the consequences.", nil
	}

	prompt := fmt.Sprintf(`Continuing the analysis of the metaphor "%s", we are focusing on a specific perspective: "%s - %s".
This mapping connects the following concepts:
%s

Based ONLY on this specific set of connections, explore the consequences.
Provide a concise, insightful analysis in Markdown format. Use up to three levels of headings for structure (e.g., ## Section, ### Subsection).

Your analysis should cover:
1.  **New Insights:** What new understanding does this perspective offer about %s?
2.  **Limitations:** What are the potential misunderstandings this specific mapping could create?
3.  **Highlights and Hides:** Present this section as a Markdown table with two columns: "What it Highlights" and "What it Hides". Each row in the table should contain a specific point.

Example table format:
| What it Highlights | What it Hides |
| --- | --- |
| Point A about %s is emphasized. | Point B about %s is obscured. |
| More details on highlight... | More details on what is hidden... |`,
		metaphor, set.Name, set.Description, mappingDetails, target.Name, target.Name, target.Name)

	text, err := s.generateNarrative(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("consequence exploration failed for %q: %w", set.Name, err)
	}
	return text, nil
}

// describeMappings renders mappings as prompt bullet lines. Mappings whose
// indices no longer resolve to facts are skipped. withDomains includes the
// domain names in each line.
func describeMappings(mappings []models.Mapping, source, target models.Domain, withDomains bool) string {
	var lines []string
	for _, m := range mappings {
		if m.SourceFactIndex < 0 || m.SourceFactIndex >= len(source.Facts) {
			continue
		}
		if m.TargetFactIndex < 0 || m.TargetFactIndex >= len(target.Facts) {
			continue
		}
		sourceFact := source.Facts[m.SourceFactIndex].Text
		targetFact := target.Facts[m.TargetFactIndex].Text
		if withDomains {
			lines = append(lines, fmt.Sprintf("- '%s' (from %s) is mapped to '%s' (from %s)", sourceFact, source.Name, targetFact, target.Name))
		} else {
			lines = append(lines, fmt.Sprintf("- '%s' is mapped to '%s'", sourceFact, targetFact))
		}
	}
	return strings.Join(lines, "\n")
}

// GenerateMoreFacts returns new fact texts for a domain, distinct from the
// existing ones.
func (s *Service) GenerateMoreFacts(ctx context.Context, domainName string, existing []string) ([]string, error) {
	existingJSON, err := json.Marshal(existing)
	if err != nil {
		return nil, fmt.Errorf("failed to encode existing facts: %w", err)
	}

	prompt := fmt.Sprintf(`You are an expert in conceptual analysis. For the domain "%s", you are given a list of existing attributes: %s.
Generate 3-4 new, distinct, and concise attributes or facts that are relevant to this domain but are not on the existing list.
Return your answer as a JSON array of strings. For example: ["new fact 1", "new fact 2"]`, domainName, existingJSON)

	text, err := s.generateStructured(ctx, s.config.Gemini.Model, prompt, stringArraySchema)
	if err != nil {
		return nil, fmt.Errorf("fact generation failed for %q: %w", domainName, err)
	}

	var facts []string
	if err := json.Unmarshal([]byte(text), &facts); err != nil {
		return nil, fmt.Errorf("fact generation returned malformed JSON: %w", err)
	}
	return facts, nil
}

// SummarizeCustomPerspective names and describes a user-built set of
// mappings. Uses the flash model, the response is a short pair.
func (s *Service) SummarizeCustomPerspective(ctx context.Context, source, target models.Domain, mappings []models.Mapping) (*models.PerspectiveSummary, error) {
	mappingDetails := describeMappings(mappings, source, target, false)

	prompt := fmt.Sprintf(`Based on the following mappings between the "%s" domain and the "%s" domain, generate a short, creative name and a one-sentence description for this perspective.
Mappings:
%s

Return the result as a JSON object with two keys: "name" and "description". For example: { "name": "Functional Analogy", "description": "This perspective focuses on the functional similarities between the two domains." }`,
		source.Name, target.Name, mappingDetails)

	text, err := s.generateStructured(ctx, s.config.Gemini.FlashModel, prompt, perspectiveSummarySchema)
	if err != nil {
		return nil, fmt.Errorf("perspective summary failed: %w", err)
	}

	var summary models.PerspectiveSummary
	if err := json.Unmarshal([]byte(text), &summary); err != nil {
		return nil, fmt.Errorf("perspective summary returned malformed JSON: %w", err)
	}
	if summary.Name == "" {
		return nil, fmt.Errorf("perspective summary returned empty name")
	}
	return &summary, nil
}

// ComparePerspectives synthesizes a markdown comparison across explored
// perspectives, folding in any generated artifacts.
func (s *Service) ComparePerspectives(ctx context.Context, metaphor string, perspectives []interfaces.ComparisonInput) (string, error) {
	sections := make([]string, 0, len(perspectives))
	for _, p := range perspectives {
		var documentsDetails string
		if len(p.Documents) > 0 {
			var docLines []string
			for _, doc := range p.Documents {
				docLines = append(docLines, fmt.Sprintf("* **%s:** A document was generated reflecting this view.", doc.Type))
			}
			documentsDetails = "**Generated Documents:**\n" + strings.Join(docLines, "\n")
		}

		var imageDetails string
		if p.Image != nil && len(p.Image.History) > 0 {
			finalPrompt := p.Image.History[len(p.Image.History)-1].Prompt
			imageDetails = fmt.Sprintf("**Illustrative Image:** An image was generated for this perspective. Final prompt: %q", finalPrompt)
		}

		sections = append(sections, fmt.Sprintf(`### Perspective: "%s"
**Description:** %s
**Consequences Summary:**
%s
%s
%s
---`, p.Set.Name, p.Set.Description, p.Consequences, documentsDetails, imageDetails))
	}

	prompt := fmt.Sprintf(`You are an expert in comparative conceptual analysis. For the metaphor "%s", you are given %d different perspectives, each with a summary of its consequences and details on any creative artifacts (documents, images) generated from it.

%s

Your task is to synthesize and compare these perspectives.
- What are the key differences in focus between them? Consider the abstract consequences, the nature of the documents, and the imagery described.
- What does each perspective uniquely highlight about the target domain, and what does it consequently hide?
- How do the generated artifacts reveal the underlying assumptions or tone of each perspective?
- What larger insights or tensions emerge when you consider these perspectives together?

Provide a concise, insightful analysis in Markdown format. Use headings and bullet points for clarity.`,
		metaphor, len(perspectives), strings.Join(sections, "\n\n"))

	text, err := s.generateNarrative(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("perspective comparison failed: %w", err)
	}
	return text, nil
}

// GenerateDocument writes a document of the given type from inside a
// perspective's point of view.
func (s *Service) GenerateDocument(ctx context.Context, metaphor string, set models.MappingSet, consequences, documentType string) (string, error) {
	prompt := fmt.Sprintf(`You are a creative expert tasked with generating a document.
Your work must be entirely shaped by a specific metaphorical perspective.

**Metaphor:** "%s"
**Perspective:** "%s" - %s
**Contextual Analysis of this Perspective:**
%s

---

Now, fully adopt this point of view. Generate a document of the following type: **%s**.

The document should not explain the metaphor. Instead, it should be a natural artifact of someone who *thinks* through this metaphorical lens. For example, if the metaphor is "argument is war" and the document is a "meeting invitation", it might use language like "strategy session" or "defend your position".

Generate the document now in Markdown format.`,
		metaphor, set.Name, set.Description, consequences, documentType)

	text, err := s.generateNarrative(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("document generation failed for type %q: %w", documentType, err)
	}
	return text, nil
}

// GenerateOrEditImage generates an image from a prompt. When a base image
// is supplied it is sent as inline data ahead of the prompt, turning the
// call into an edit of that image.
func (s *Service) GenerateOrEditImage(ctx context.Context, prompt string, base *interfaces.ImageData) (*interfaces.ImageData, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var parts []*genai.Part
	if base != nil {
		data, err := base64.StdEncoding.DecodeString(base.Base64Data)
		if err != nil {
			return nil, fmt.Errorf("base image is not valid base64: %w", err)
		}
		parts = append(parts, genai.NewPartFromBytes(data, base.MimeType))
	}
	parts = append(parts, genai.NewPartFromText(prompt))

	resp, err := s.provider.generateImageWithGemini(ctx, parts)
	if err != nil {
		return nil, fmt.Errorf("image generation failed: %w", err)
	}

	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("image generation returned no candidates")
	}

	for _, part := range resp.Candidates[0].Content.Parts {
		if part.InlineData != nil && len(part.InlineData.Data) > 0 {
			return &interfaces.ImageData{
				Base64Data: base64.StdEncoding.EncodeToString(part.InlineData.Data),
				MimeType:   part.InlineData.MIMEType,
			}, nil
		}
	}

	return nil, fmt.Errorf("image generation failed to return an image")
}

// GenerateMetaphors proposes "X is Y" metaphors for a topic.
func (s *Service) GenerateMetaphors(ctx context.Context, topic string) ([]string, error) {
	prompt := fmt.Sprintf(`You are an expert in creative thinking and conceptual metaphors. A user wants to understand the topic "%s" better.
Generate 5-7 distinct and insightful generative metaphors for this topic.
Each metaphor should be in the format "X is Y", where X is the topic or a variation of it.
Return your answer as a JSON array of strings. For example, if the topic is "learning", you might return: ["learning is a journey", "learning is building a house"].`, topic)

	text, err := s.generateStructured(ctx, s.config.Gemini.Model, prompt, stringArraySchema)
	if err != nil {
		return nil, fmt.Errorf("metaphor suggestion failed for topic %q: %w", topic, err)
	}

	var metaphors []string
	if err := json.Unmarshal([]byte(text), &metaphors); err != nil {
		return nil, fmt.Errorf("metaphor suggestion returned malformed JSON: %w", err)
	}
	return metaphors, nil
}

// IdentifyMetaphors finds conceptual metaphors in a free-text statement.
// An empty result is valid, not every statement is metaphorical.
func (s *Service) IdentifyMetaphors(ctx context.Context, statement string) ([]models.IdentifiedMetaphor, error) {
	prompt := fmt.Sprintf(`You are an expert in conceptual metaphor analysis. A user has provided the statement: "%s".
Your task is to identify all potential conceptual metaphors present in this statement. For each metaphor you find, express it in the canonical 'A IS B' format and provide a brief explanation.
Return a JSON array of objects, where each object represents a metaphor and strictly follows the provided schema. If no metaphors are found, return an empty array.`, statement)

	text, err := s.generateStructured(ctx, s.config.Gemini.Model, prompt, identifiedMetaphorsSchema)
	if err != nil {
		return nil, fmt.Errorf("metaphor identification failed: %w", err)
	}

	var metaphors []models.IdentifiedMetaphor
	if err := json.Unmarshal([]byte(text), &metaphors); err != nil {
		return nil, fmt.Errorf("metaphor identification returned malformed JSON: %w", err)
	}
	return metaphors, nil
}

// SuggestAlternativeFrames proposes reframings of a statement given the
// metaphors it currently relies on.
func (s *Service) SuggestAlternativeFrames(ctx context.Context, statement string, metaphors []models.IdentifiedMetaphor) ([]models.AlternativeFrame, error) {
	var metaphorLines []string
	for _, m := range metaphors {
		metaphorLines = append(metaphorLines, fmt.Sprintf("- %q: %s", m.Metaphor, m.Explanation))
	}

	prompt := fmt.Sprintf(`You are an expert in communication and conceptual reframing. A user wants to explore alternative ways to understand a concept.

Original Statement/Concept: "%s"

This concept currently relies on the following conceptual metaphors:
%s

Your task is to propose 3-4 alternative conceptual metaphors that reframe the original concept in a different light. The goal is to find frames that might be more constructive, nuanced, or have fewer conceptual mismatches.

For each proposal, provide the new metaphor and a brief reasoning for its usefulness. Use the user's example of reframing "Surveillance Capitalism" as "Evidence-Based Capitalism" (drawing on "Evidence-Based Medicine") as a guide for the kind of creative, analytical reframing required.

Return a JSON array of objects, where each object strictly follows the provided schema.`,
		statement, strings.Join(metaphorLines, "\n"))

	text, err := s.generateStructured(ctx, s.config.Gemini.Model, prompt, alternativeFramesSchema)
	if err != nil {
		return nil, fmt.Errorf("alternative frame suggestion failed: %w", err)
	}

	var frames []models.AlternativeFrame
	if err := json.Unmarshal([]byte(text), &frames); err != nil {
		return nil, fmt.Errorf("alternative frame suggestion returned malformed JSON: %w", err)
	}
	return frames, nil
}

// generateStructured makes a rate-limited, schema-constrained JSON call.
func (s *Service) generateStructured(ctx context.Context, model, prompt string, schema *genai.Schema) (string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return "", err
	}
	text, err := s.provider.generateWithGemini(ctx, model, prompt, schema)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// generateNarrative makes a rate-limited free-form markdown call, routed
// to the configured default provider.
func (s *Service) generateNarrative(ctx context.Context, prompt string) (string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return s.provider.generateNarrative(ctx, prompt)
}

// Close releases provider clients.
func (s *Service) Close() error {
	return s.provider.close()
}
