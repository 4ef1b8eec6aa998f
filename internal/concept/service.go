package concept

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Service is the concept-service contract consumed by the mutation router.
// Implementations must be safe for concurrent use.
type Service interface {
	// GenerateEdgeLabel produces a short relationship label between two
	// concepts, and whether the relationship reads as directed a->b.
	GenerateEdgeLabel(ctx context.Context, a, b Concept) (EdgeLabel, error)

	// SuggestMerge produces a merged title/description for two similar
	// concepts.
	SuggestMerge(ctx context.Context, a, b Concept) (MergeSuggestion, error)

	// ClassifySimilar classifies a new concept against existing ones,
	// returning ids of existing concepts that duplicate it, relate to it, or
	// subsume it.
	ClassifySimilar(ctx context.Context, fresh Concept, existing []Concept) (Similarity, error)

	// ExpandConcept suggests 2-4 neighbor concepts for a node.
	ExpandConcept(ctx context.Context, c Concept, existing []Concept) ([]Expansion, error)

	// ElaborateConcept produces a richer description for a node.
	ElaborateConcept(ctx context.Context, c Concept) (string, error)

	// DescribeConcept produces a one-sentence description of a bare title,
	// optionally situated in a breadcrumb of discussion context.
	DescribeConcept(ctx context.Context, title string, breadcrumb []string) (string, error)

	// ChatExtract answers a chat conversation and extracts graph concepts
	// from the answer.
	ChatExtract(ctx context.Context, messages []ChatMessage, existing []Concept) (ChatResult, error)
}

var _ Service = (*Client)(nil)

const edgeLabelSystem = `You generate concise relationship labels for knowledge graphs. Given two concepts, describe how the first relates to the second with a short phrase (2-5 words), e.g. "enables", "is a type of", "depends on", "contrasts with", "is composed of". Also judge whether the relationship is directional (reads first-to-second) or symmetric. Respond ONLY with valid JSON: {"label": "...", "directed": true}`

// GenerateEdgeLabel produces a relationship label between two concepts.
func (c *Client) GenerateEdgeLabel(ctx context.Context, a, b Concept) (EdgeLabel, error) {
	user := fmt.Sprintf("How does %q relate to %q?\n\nContext:\n- %s: %s\n- %s: %s",
		a.Title, b.Title, a.Title, a.Description, b.Title, b.Description)

	var out EdgeLabel
	if err := c.completeJSON(ctx, 100, edgeLabelSystem, user, &out); err != nil {
		return EdgeLabel{}, err
	}
	out.Label = strings.TrimSpace(out.Label)
	if out.Label == "" {
		return EdgeLabel{}, fmt.Errorf("%w: empty label", ErrInvalidResponse)
	}
	return out, nil
}

const suggestMergeSystem = `You help merge similar concepts in knowledge graphs. Given two similar concepts, produce a merged version. Respond ONLY with valid JSON: {"title": "...", "description": "..."}`

// SuggestMerge produces a merged title/description for two concepts.
func (c *Client) SuggestMerge(ctx context.Context, a, b Concept) (MergeSuggestion, error) {
	user := fmt.Sprintf("Merge these concepts:\n1. %q: %s\n2. %q: %s",
		a.Title, a.Description, b.Title, b.Description)

	var out MergeSuggestion
	if err := c.completeJSON(ctx, 200, suggestMergeSystem, user, &out); err != nil {
		return MergeSuggestion{}, err
	}
	if strings.TrimSpace(out.Title) == "" {
		return MergeSuggestion{}, fmt.Errorf("%w: empty merged title", ErrInvalidResponse)
	}
	return out, nil
}

const classifySimilarSystem = `You identify similar concepts in a knowledge graph. Given a new concept and a list of existing concepts, classify the existing concepts against the new one:
- "duplicates": existing concepts semantically very similar or overlapping with the new one
- "related": existing concepts meaningfully connected but distinct
- "broader": existing concepts that subsume the new one as a special case
Respond ONLY with valid JSON of existing concept IDs: {"duplicates": [], "related": [], "broader": []}`

// ClassifySimilar classifies a new concept against existing concepts. An
// empty existing list short-circuits without a service call.
func (c *Client) ClassifySimilar(ctx context.Context, fresh Concept, existing []Concept) (Similarity, error) {
	if len(existing) == 0 {
		return Similarity{}, nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "New concept: %q - %s\n\nExisting concepts:\n", fresh.Title, fresh.Description)
	for _, e := range existing {
		fmt.Fprintf(&sb, "- ID: %s, %q: %s\n", e.ID, e.Title, e.Description)
	}

	var out Similarity
	if err := c.completeJSON(ctx, 300, classifySimilarSystem, sb.String(), &out); err != nil {
		return Similarity{}, err
	}
	return out, nil
}

// ExpandConcept suggests neighbor concepts for a node.
func (c *Client) ExpandConcept(ctx context.Context, con Concept, existing []Concept) ([]Expansion, error) {
	titles := make([]string, len(existing))
	for i, e := range existing {
		titles[i] = e.Title
	}
	system := fmt.Sprintf(`You help expand knowledge graphs by suggesting related concepts. Given a concept, suggest 2-4 closely related concepts that would be valuable neighbors in a knowledge graph. Each suggestion should include a title, description, and relationship label.

Existing concepts to avoid duplicating: %s

Respond ONLY with valid JSON array, no markdown fences:
[{"title": "...", "description": "...", "relationLabel": "..."}]`, strings.Join(titles, ", "))

	user := fmt.Sprintf("Expand on: %q - %s", con.Title, con.Description)

	var out []Expansion
	if err := c.completeJSON(ctx, 500, system, user, &out); err != nil {
		return nil, err
	}
	return out, nil
}

const elaborateSystem = `You provide concise, enriched descriptions for knowledge graph nodes. Given a concept, provide a richer 2-3 sentence description. Respond with ONLY the description text, no formatting.`

// ElaborateConcept produces a richer description for a node.
func (c *Client) ElaborateConcept(ctx context.Context, con Concept) (string, error) {
	user := fmt.Sprintf("Elaborate on: %q - %s", con.Title, con.Description)
	text, err := c.complete(ctx, c.taskModel, 200, elaborateSystem, []ChatMessage{{Role: "user", Content: user}})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

const describeSystem = `You provide concise concept descriptions. Respond with ONLY a single sentence. No formatting.`

// DescribeConcept produces a one-sentence description of a bare title.
func (c *Client) DescribeConcept(ctx context.Context, title string, breadcrumb []string) (string, error) {
	lead := "Provide"
	if len(breadcrumb) > 0 {
		lead = fmt.Sprintf("Given the context of a discussion about %s, provide", strings.Join(breadcrumb, " > "))
	}
	user := fmt.Sprintf("%s a one-sentence description of the concept %q.", lead, title)
	text, err := c.complete(ctx, c.taskModel, 100, describeSystem, []ChatMessage{{Role: "user", Content: user}})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

const chatSystemTemplate = `You are a knowledgeable assistant helping a student explore and understand concepts.
Respond naturally and helpfully to the student's question.

After your response, you MUST include a JSON block with extracted concepts. This block must be wrapped in <concepts> tags.
Each concept should be a key idea, entity, or term from your response that could be a node in a knowledge graph.

Extract 8-12 concepts from your response. Include:
- Primary concepts: the main topics and components you explained
- Secondary concepts: related ideas, people, papers, or techniques mentioned but not fully explained

Format:
<concepts>
[
  {"title": "Short concept name", "type": "primary"},
  {"title": "Related idea or reference", "type": "secondary"}
]
</concepts>

Do NOT include descriptions - titles only. Be specific rather than generic.`

var conceptBlockRe = regexp.MustCompile(`(?s)<concepts>\s*(.*?)\s*</concepts>`)

// ChatExtract answers a conversation and mines graph concepts from the
// answer. A malformed extraction block yields an empty concept list rather
// than an error; the visible answer is still useful.
func (c *Client) ChatExtract(ctx context.Context, messages []ChatMessage, existing []Concept) (ChatResult, error) {
	system := chatSystemTemplate
	if len(existing) > 0 {
		var sb strings.Builder
		sb.WriteString("\n\nExisting concepts in the shared knowledge graph (avoid duplicating these):\n")
		for _, e := range existing {
			fmt.Fprintf(&sb, "- %s: %s\n", e.Title, e.Description)
		}
		system += sb.String()
	}

	text, err := c.complete(ctx, c.chatModel, 1500, system, messages)
	if err != nil {
		return ChatResult{}, err
	}

	result := ChatResult{Text: strings.TrimSpace(conceptBlockRe.ReplaceAllString(text, ""))}
	if m := conceptBlockRe.FindStringSubmatch(text); m != nil {
		// Extraction is best-effort: a malformed block leaves Concepts empty.
		_ = json.Unmarshal([]byte(cleanJSON(m[1])), &result.Concepts)
	}
	return result, nil
}
