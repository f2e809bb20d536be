package ai

import "google.golang.org/genai"

// Response schemas for the structured operations. Gemini enforces JSON
// output matching the schema when one is attached to a request.

// analysisSchema shapes a full metaphor decomposition. Facts come back as
// plain strings; stable IDs are assigned after parsing.
var analysisSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"sourceDomain": {
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"name": {Type: genai.TypeString, Description: "The name of the source domain (e.g., 'Interns')."},
				"facts": {
					Type:        genai.TypeArray,
					Items:       &genai.Schema{Type: genai.TypeString},
					Description: "A list of 5-7 key attributes or concepts for the source domain.",
				},
			},
			Required: []string{"name", "facts"},
		},
		"targetDomain": {
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"name": {Type: genai.TypeString, Description: "The name of the target domain (e.g., 'AI')."},
				"facts": {
					Type:        genai.TypeArray,
					Items:       &genai.Schema{Type: genai.TypeString},
					Description: "A list of 5-7 key attributes or concepts for the target domain.",
				},
			},
			Required: []string{"name", "facts"},
		},
		"mappingSets": {
			Type:        genai.TypeArray,
			Description: "A list of 3-4 different, partial ways to map the source to the target. Each represents a unique perspective.",
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"name":        {Type: genai.TypeString, Description: "A short, descriptive name for this mapping set (e.g., 'Skills Mapping')."},
					"description": {Type: genai.TypeString, Description: "A one-sentence explanation of what this mapping focuses on."},
					"icon":        {Type: genai.TypeString, Description: "The name of a single Google Material Symbol that best represents this mapping's theme (e.g., 'build', 'groups', 'psychology')."},
					"mappings": {
						Type: genai.TypeArray,
						Items: &genai.Schema{
							Type: genai.TypeObject,
							Properties: map[string]*genai.Schema{
								"sourceFactIndex": {Type: genai.TypeInteger, Description: "The index of the fact in the sourceDomain.facts array."},
								"targetFactIndex": {Type: genai.TypeInteger, Description: "The index of the fact in the targetDomain.facts array."},
							},
							Required: []string{"sourceFactIndex", "targetFactIndex"},
						},
					},
				},
				Required: []string{"name", "description", "icon", "mappings"},
			},
		},
	},
	Required: []string{"sourceDomain", "targetDomain", "mappingSets"},
}

// stringArraySchema shapes fact generation and metaphor suggestions.
var stringArraySchema = &genai.Schema{
	Type:  genai.TypeArray,
	Items: &genai.Schema{Type: genai.TypeString},
}

// perspectiveSummarySchema shapes the name/description pair for a
// user-built perspective.
var perspectiveSummarySchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"name":        {Type: genai.TypeString},
		"description": {Type: genai.TypeString},
	},
	Required: []string{"name", "description"},
}

// identifiedMetaphorsSchema shapes metaphor identification results.
var identifiedMetaphorsSchema = &genai.Schema{
	Type: genai.TypeArray,
	Items: &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"metaphor":    {Type: genai.TypeString, Description: "The conceptual metaphor in the format 'CONCEPT A IS CONCEPT B'."},
			"explanation": {Type: genai.TypeString, Description: "A brief explanation of how the metaphor works in the context of the statement."},
		},
		Required: []string{"metaphor", "explanation"},
	},
}

// alternativeFramesSchema shapes reframing proposals.
var alternativeFramesSchema = &genai.Schema{
	Type: genai.TypeArray,
	Items: &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"proposedMetaphor": {Type: genai.TypeString, Description: "The new conceptual metaphor, ideally in 'A is B' or 'A as B' format."},
			"reasoning":        {Type: genai.TypeString, Description: "A brief explanation of why this new frame is useful, what it highlights, and how it differs from the original."},
		},
		Required: []string{"proposedMetaphor", "reasoning"},
	},
}
