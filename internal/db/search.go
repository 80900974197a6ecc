package db

import "github.com/kailas-cloud/ragsearch/internal/domain/search/filter"

// DefaultVectorField is the hash field holding the embedding.
const DefaultVectorField = "vector"

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	IndexName    string
	VectorField  string // default DefaultVectorField
	Filters      filter.Expression
	Vector       []float32
	K            int
	EFRuntime    int // HNSW search breadth; 0 keeps the index default
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit. Score is a cosine similarity in [0, 1].
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}
