package domain

import (
	"context"

	"github.com/kailas-cloud/ragsearch/internal/domain/search/filter"
	"github.com/kailas-cloud/ragsearch/internal/domain/search/match"
)

// VectorIndex runs a filtered nearest-neighbour query.
type VectorIndex interface {
	Query(ctx context.Context, vector []float32, topK int, filters filter.Expression) ([]match.Match, error)
}

// DomainField is the metadata field that scopes every query to one tenant.
const DomainField = "domain"
