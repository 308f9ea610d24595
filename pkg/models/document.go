package models

// IndexedDocument is the persisted unit of the knowledge base: one chunk of
// extracted text together with its embedding vector.
type IndexedDocument struct {
	ID        string    `json:"id,omitempty"`
	Text      string    `json:"text"`
	Embedding []float32 `json:"embedding,omitempty"`
}

// SearchMatch is a single similarity search hit.
// Score is the cosine similarity to the query vector; higher is closer.
type SearchMatch struct {
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

// Texts returns the text of every match, preserving order.
func Texts(matches []SearchMatch) []string {
	texts := make([]string, len(matches))
	for i, m := range matches {
		texts[i] = m.Text
	}
	return texts
}
