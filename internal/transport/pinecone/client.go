package pinecone

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kailas-cloud/ragsearch/internal/domain"
	"github.com/kailas-cloud/ragsearch/internal/domain/search/filter"
	"github.com/kailas-cloud/ragsearch/internal/domain/search/match"
	"github.com/kailas-cloud/ragsearch/internal/metrics"
)

// Defaults.
const (
	DefaultTimeout = 20 * time.Second
	provider       = "pinecone"
	maxErrorBody   = 1 << 10
)

// Config holds the index endpoint settings.
type Config struct {
	Host              string // e.g. https://my-index-abc123.svc.us-east1-gcp.pinecone.io
	APIKey            string
	Namespace         string
	Timeout           time.Duration
	RequestsPerSecond float64 // 0 disables the outbound throttle
	Logger            *zap.Logger
}

// Client implements domain.VectorIndex over the Pinecone data plane REST API.
type Client struct {
	http      *http.Client
	host      string
	apiKey    string
	namespace string
	limiter   *rate.Limiter
	logger    *zap.Logger
}

// NewClient creates a Pinecone query client.
func NewClient(cfg *Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	host := strings.TrimRight(cfg.Host, "/")
	if host != "" && !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "https://" + host
	}

	c := &Client{
		http:      &http.Client{Timeout: timeout},
		host:      host,
		apiKey:    cfg.APIKey,
		namespace: cfg.Namespace,
		logger:    cfg.Logger,
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	if cfg.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), max(1, int(cfg.RequestsPerSecond)))
	}
	return c
}

type queryRequest struct {
	TopK            int            `json:"topK"`
	IncludeMetadata bool           `json:"includeMetadata"`
	Vector          []float32      `json:"vector"`
	Namespace       string         `json:"namespace,omitempty"`
	Filter          map[string]any `json:"filter,omitempty"`
}

type queryResponse struct {
	Matches []struct {
		ID       string         `json:"id"`
		Score    float64        `json:"score"`
		Metadata map[string]any `json:"metadata"`
	} `json:"matches"`
}

// Configured reports whether both the host and the API key are set.
func (c *Client) Configured() bool {
	return c.host != "" && c.apiKey != ""
}

// Query implements domain.VectorIndex.
func (c *Client) Query(
	ctx context.Context, vector []float32, topK int, filters filter.Expression,
) ([]match.Match, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("pinecone host and api key are required: %w", domain.ErrNotConfigured)
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: rate limiter: %w", domain.ErrVectorIndexError, err)
		}
	}

	body, err := json.Marshal(queryRequest{
		TopK:            topK,
		IncludeMetadata: true,
		Vector:          vector,
		Namespace:       c.namespace,
		Filter:          buildFilter(filters),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/query", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Api-Key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.observeError("transport")
		return nil, fmt.Errorf("%w: query request: %w", domain.ErrVectorIndexError, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.observeError("status_" + strconv.Itoa(resp.StatusCode))
		return nil, fmt.Errorf("%w: query status %d: %s",
			domain.ErrVectorIndexError, resp.StatusCode, readErrorMessage(resp.Body))
	}

	var qr queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&qr); err != nil {
		c.observeError("decode")
		return nil, fmt.Errorf("%w: decode response: %w", domain.ErrVectorIndexError, err)
	}

	metrics.ProviderRequestsTotal.WithLabelValues(provider, metrics.OpQuery, "success").Inc()
	metrics.ProviderRequestDuration.WithLabelValues(provider, metrics.OpQuery).Observe(time.Since(start).Seconds())

	matches := make([]match.Match, 0, len(qr.Matches))
	for _, m := range qr.Matches {
		matches = append(matches, match.Match{
			ID:       m.ID,
			Score:    m.Score,
			Metadata: parseMetadata(m.Metadata),
		})
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
	return matches, nil
}

func (c *Client) observeError(errType string) {
	metrics.ProviderRequestsTotal.WithLabelValues(provider, metrics.OpQuery, "error").Inc()
	metrics.ProviderErrorsTotal.WithLabelValues(provider, metrics.OpQuery, errType).Inc()
}

// buildFilter renders must as $eq and mustNot as $ne clauses, combined with $and when needed.
func buildFilter(f filter.Expression) map[string]any {
	if f.IsEmpty() {
		return nil
	}
	clauses := make([]map[string]any, 0, len(f.Must())+len(f.MustNot()))
	for _, c := range f.Must() {
		clauses = append(clauses, map[string]any{c.Key(): map[string]any{"$eq": c.Match()}})
	}
	for _, c := range f.MustNot() {
		clauses = append(clauses, map[string]any{c.Key(): map[string]any{"$ne": c.Match()}})
	}
	if len(clauses) == 1 {
		return clauses[0]
	}
	return map[string]any{"$and": clauses}
}

func parseMetadata(md map[string]any) match.Metadata {
	var out match.Metadata
	for k, v := range md {
		switch k {
		case "title":
			out.Title = asString(v)
		case "url":
			out.URL = asString(v)
		case "chunk":
			out.Chunk = asString(v)
		case "post_id":
			out.PostID = asInt(v)
		case "post_type":
			out.PostType = asString(v)
		case domain.DomainField:
			out.Domain = asString(v)
		default:
			if out.Extra == nil {
				out.Extra = make(map[string]string)
			}
			out.Extra[k] = asString(v)
		}
	}
	return out
}

func asString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case nil:
		return ""
	default:
		b, _ := json.Marshal(x)
		return string(b)
	}
}

// asInt accepts JSON numbers and numeric strings; anything else is 0.
func asInt(v any) int64 {
	switch x := v.(type) {
	case float64:
		return int64(x)
	case string:
		n, err := strconv.ParseInt(x, 10, 64)
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

func readErrorMessage(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if err != nil {
		return "unreadable body"
	}
	var parsed struct {
		Message string `json:"message"`
		Error   struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(data, &parsed) == nil {
		if parsed.Message != "" {
			return parsed.Message
		}
		if parsed.Error.Message != "" {
			return parsed.Error.Message
		}
	}
	return strings.TrimSpace(string(data))
}

