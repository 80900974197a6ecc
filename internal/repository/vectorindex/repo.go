package vectorindex

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/kailas-cloud/ragsearch/internal/db"
	"github.com/kailas-cloud/ragsearch/internal/domain"
	"github.com/kailas-cloud/ragsearch/internal/domain/search/filter"
	"github.com/kailas-cloud/ragsearch/internal/domain/search/match"
)

// Hash fields of an indexed content chunk.
const (
	FieldTitle    = "title"
	FieldURL      = "url"
	FieldChunk    = "chunk"
	FieldPostID   = "post_id"
	FieldPostType = "post_type"
	FieldVector   = "vector"
)

var knownFields = []string{FieldTitle, FieldURL, FieldChunk, FieldPostID, FieldPostType, domain.DomainField}

// store is the consumer interface for vector index operations (ISP).
type store interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// Config names the index and its documents.
type Config struct {
	IndexName          string
	KeyPrefix          string
	Dimensions         int
	HNSWM              int
	HNSWEFConstruction int
	EFRuntime          int
	ExtraFields        []string // returned into Metadata.Extra
}

// Repo implements domain.VectorIndex over a Redis/Valkey FT index.
type Repo struct {
	store store
	cfg   Config
}

// New creates a vector index repository.
func New(s store, cfg Config) *Repo {
	if cfg.IndexName == "" {
		cfg.IndexName = domain.KeyPrefix + "content:idx"
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = domain.KeyPrefix + "content:"
	}
	return &Repo{store: s, cfg: cfg}
}

// EnsureIndex creates the FT index when it is missing.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	exists, err := r.store.IndexExists(ctx, r.cfg.IndexName)
	if err != nil {
		return fmt.Errorf("check index %s: %w", r.cfg.IndexName, err)
	}
	if exists {
		return nil
	}

	def, err := buildIndex(r.cfg)
	if err != nil {
		return fmt.Errorf("build index %s: %w", r.cfg.IndexName, err)
	}
	if err := r.store.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("create index %s: %w", r.cfg.IndexName, err)
	}
	return nil
}

// Query returns up to topK nearest chunks within filters, best first.
func (r *Repo) Query(
	ctx context.Context, vector []float32, topK int, filters filter.Expression,
) ([]match.Match, error) {
	q := &db.KNNQuery{
		IndexName:    r.cfg.IndexName,
		Filters:      filters,
		Vector:       vector,
		K:            topK,
		EFRuntime:    r.cfg.EFRuntime,
		ReturnFields: r.returnFields(),
	}

	sr, err := r.store.SearchKNN(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("%w: search %s: %w", domain.ErrVectorIndexError, r.cfg.IndexName, err)
	}
	return r.parseMatches(sr), nil
}

func (r *Repo) returnFields() []string {
	out := make([]string, 0, len(knownFields)+len(r.cfg.ExtraFields))
	out = append(out, knownFields...)
	return append(out, r.cfg.ExtraFields...)
}

func (r *Repo) parseMatches(sr *db.SearchResult) []match.Match {
	if sr == nil || len(sr.Entries) == 0 {
		return nil
	}

	matches := make([]match.Match, 0, len(sr.Entries))
	for _, e := range sr.Entries {
		matches = append(matches, parseEntry(strings.TrimPrefix(e.Key, r.cfg.KeyPrefix), e))
	}

	slices.SortStableFunc(matches, func(a, b match.Match) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		default:
			return 0
		}
	})
	return matches
}

func parseEntry(id string, e db.SearchEntry) match.Match {
	m := match.Match{ID: id, Score: e.Score}
	for k, v := range e.Fields {
		switch k {
		case FieldTitle:
			m.Metadata.Title = v
		case FieldURL:
			m.Metadata.URL = v
		case FieldChunk:
			m.Metadata.Chunk = v
		case FieldPostID:
			// non-numeric ids are treated as absent
			if n, err := strconv.ParseInt(v, 10, 64); err == nil {
				m.Metadata.PostID = n
			}
		case FieldPostType:
			m.Metadata.PostType = v
		case domain.DomainField:
			m.Metadata.Domain = v
		case FieldVector:
		default:
			if m.Metadata.Extra == nil {
				m.Metadata.Extra = make(map[string]string)
			}
			m.Metadata.Extra[k] = v
		}
	}
	return m
}

// buildIndex creates the hash index definition for content chunks.
// Tenant and type are TAG fields so they can pre-filter KNN.
func buildIndex(cfg Config) (*db.IndexDefinition, error) {
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("vector dimensions must be positive, got %d", cfg.Dimensions)
	}
	def, err := db.NewIndex(cfg.IndexName).
		Prefix(cfg.KeyPrefix).
		Tag(domain.DomainField, FieldPostType).
		Numeric(FieldPostID).
		Vector(FieldVector, cfg.Dimensions, db.VectorHNSW, db.DistanceCosine).
		HNSW(cfg.HNSWM, cfg.HNSWEFConstruction).
		Build()
	if err != nil {
		return nil, fmt.Errorf("index definition: %w", err)
	}
	return def, nil
}
