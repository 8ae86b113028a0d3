package expand

import (
	"fmt"
	"strings"
)

// Prompts instruct the oracle to report evidence as paragraph index ranges
// into the numbered content it is shown, never as quoted text. Extraction
// then resolves those ranges against the real paragraph sequence, so the
// stored evidence is verbatim by construction.

const domainPromptTemplate = `You are a knowledge extraction system analyzing an academic document.

The document is given as numbered paragraphs:

%s

Identify the single overarching DOMAIN this document belongs to, and up to %d top-level CATEGORIES within it that the document substantively covers.

Return ONLY a JSON object of this exact shape:
{
  "domain": {
    "name": "...",
    "synthesis": "a thorough summary of the domain as treated by this document (at least 60 characters)",
    "confidence": 0.0,
    "language": "two-letter code of the document language",
    "key_claims": ["3 to 5 key claims the document makes, as full sentences"],
    "open_questions": ["2 to 3 open questions the document raises, as full sentences"]
  },
  "children": [
    {
      "name": "...",
      "synthesis": "a rich summary of this category (80 to 150 characters)",
      "confidence": 0.0,
      "positions": [[start, end]],
      "key_claims": ["3 to 5 key claims, as full sentences"],
      "open_questions": ["2 to 3 open questions, as full sentences"]
    }
  ]
}

Rules:
- "positions" are inclusive paragraph index ranges into the numbered paragraphs above. Report positions, never quote text.
- Use real, specific names. Never use placeholders like "Concept 1" or "Child".
- Do not output anything except the JSON object.`

const childPromptTemplate = `You are a knowledge extraction system refining one branch of a concept hierarchy.

Parent concept: %s
Parent synthesis: %s

The parent's supporting content is given as numbered paragraphs:

%s

Propose up to %d child concepts one level more specific than the parent, each grounded in the content above.

Return ONLY a JSON object of this exact shape:
{
  "children": [
    {
      "name": "...",
      "synthesis": "a summary of this concept (at least %d characters)",
      "confidence": 0.0,
      "positions": [[start, end]],
      "key_claims": ["3 to 5 key claims, as full sentences"],
      "open_questions": ["2 to 3 open questions, as full sentences"]
    }
  ]
}

Rules:
- "positions" are inclusive paragraph index ranges into the numbered paragraphs above (0-based, relative to the content shown). Report positions, never quote text.
- Only propose children the content actually supports. Returning fewer than %d children is fine.
- Use real, specific names. Never use placeholders like "Concept 1" or "Child".
- Do not output anything except the JSON object.`

// numberParagraphs renders paragraphs with their indices so the oracle can
// reference them by position.
func numberParagraphs(paragraphs []string) string {
	var b strings.Builder
	for i, p := range paragraphs {
		fmt.Fprintf(&b, "[%d] %s\n\n", i, p)
	}
	return b.String()
}

func domainPrompt(paragraphs []string, maxChildren int) string {
	return fmt.Sprintf(domainPromptTemplate, numberParagraphs(paragraphs), maxChildren)
}

func childPrompt(parentName, parentSynthesis string, window []string, maxChildren, minSynthesisLen int) string {
	return fmt.Sprintf(childPromptTemplate,
		parentName, parentSynthesis, numberParagraphs(window),
		maxChildren, minSynthesisLen, maxChildren)
}
