package match

// Match is one vector-index hit for the current tenant.
type Match struct {
	ID       string          `json:"id"`
	Score    float64         `json:"score"`
	Metadata Metadata        `json:"metadata"`
	Boost    *BoostBreakdown `json:"boost,omitempty"`
}

// Metadata holds the indexed fields the pipeline reads.
// Extra carries open-ended fields the index returned beyond the known ones.
type Metadata struct {
	Title    string            `json:"title"`
	URL      string            `json:"url"`
	Chunk    string            `json:"chunk"`
	PostID   int64             `json:"post_id"`
	PostType string            `json:"post_type"`
	Domain   string            `json:"domain"`
	Extra    map[string]string `json:"extra,omitempty"`
}

// BoostBreakdown explains how a final score was reached.
type BoostBreakdown struct {
	OriginalScore float64 `json:"original_score"`
	BoostTotal    float64 `json:"boost_total"`
	FinalScore    float64 `json:"final_score"`
}

// OriginalScore returns the similarity score before any boosting.
func (m *Match) OriginalScore() float64 {
	if m.Boost != nil {
		return m.Boost.OriginalScore
	}
	return m.Score
}

// HasChunk reports whether the match carries source text.
func (m *Match) HasChunk() bool { return m.Metadata.Chunk != "" }

// Clone returns a copy that shares no mutable state with m.
func (m *Match) Clone() Match {
	c := *m
	if m.Boost != nil {
		b := *m.Boost
		c.Boost = &b
	}
	if m.Metadata.Extra != nil {
		c.Metadata.Extra = make(map[string]string, len(m.Metadata.Extra))
		for k, v := range m.Metadata.Extra {
			c.Metadata.Extra[k] = v
		}
	}
	return c
}
