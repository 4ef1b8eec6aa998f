package concept

// Concept is the two-field view of a graph node that the service reasons
// about. Callers pass whatever id they use locally; the service echoes ids
// back in classification results.
type Concept struct {
	ID          string `json:"id,omitempty"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// EdgeLabel is a generated relationship label between two concepts.
type EdgeLabel struct {
	Label    string `json:"label"`
	Directed bool   `json:"directed"`
}

// MergeSuggestion is the merged title/description for two similar concepts.
type MergeSuggestion struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Similarity classifies a new concept against existing ones. Each slice
// holds ids of existing concepts.
type Similarity struct {
	Duplicates []string `json:"duplicates"`
	Related    []string `json:"related"`
	Broader    []string `json:"broader"`
}

// Expansion is a suggested neighbor concept for graph expansion.
type Expansion struct {
	Title         string `json:"title"`
	Description   string `json:"description"`
	RelationLabel string `json:"relationLabel"`
}

// ChatMessage is one turn of a chat conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ExtractedConcept is a concept mined from a chat response. Type is
// "primary" or "secondary".
type ExtractedConcept struct {
	Title string `json:"title"`
	Type  string `json:"type"`
}

// ChatResult is a chat response with its extracted concepts and the
// visible text stripped of the extraction block.
type ChatResult struct {
	Text     string
	Concepts []ExtractedConcept
}
