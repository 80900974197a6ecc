package cache

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/kailas-cloud/ragsearch/internal/domain"
)

func TestEmbed_CacheMissThenHit(t *testing.T) {
	c, ms := newTestCache(t)
	inner := &mockEmbedder{result: domain.EmbeddingResult{
		Embedding:    []float32{0.1, 0.2, 0.3},
		PromptTokens: 10,
		TotalTokens:  10,
	}}
	ce := NewEmbedder(inner, c, 0)
	ctx := context.Background()

	res, err := ce.Embed(ctx, "wordpress hosting")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.TotalTokens != 10 {
		t.Fatalf("expected TotalTokens=10, got %d", res.TotalTokens)
	}
	for k, ttl := range ms.ttls {
		if ttl != DefaultWarmTTL {
			t.Errorf("key %s ttl = %s, want %s", k, ttl, DefaultWarmTTL)
		}
	}

	res, err = ce.Embed(ctx, "  wordpress hosting ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.calls != 1 {
		t.Fatalf("expected 1 provider call, got %d", inner.calls)
	}
	if res.TotalTokens != 0 {
		t.Fatalf("expected TotalTokens=0 on cache hit, got %d", res.TotalTokens)
	}
	if len(res.Embedding) != 3 || res.Embedding[2] != 0.3 {
		t.Fatalf("unexpected cached vector: %v", res.Embedding)
	}
}

func TestEmbed_InnerError(t *testing.T) {
	c, ms := newTestCache(t)
	inner := &mockEmbedder{err: errors.New("provider down")}
	ce := NewEmbedder(inner, c, 0)

	_, err := ce.Embed(context.Background(), "q")
	if err == nil {
		t.Fatal("expected error")
	}
	if len(ms.data) != 0 {
		t.Fatal("failed embedding must not be cached")
	}
}

func TestEmbed_StoreDownFallsThrough(t *testing.T) {
	c, ms := newTestCache(t)
	ms.getErr = errors.New("connection refused")
	ms.setErr = errors.New("connection refused")
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{1}}}
	ce := NewEmbedder(inner, c, 0)

	res, err := ce.Embed(context.Background(), "q")
	if err != nil {
		t.Fatalf("cache failures must not fail embed: %v", err)
	}
	if len(res.Embedding) != 1 {
		t.Fatalf("unexpected vector: %v", res.Embedding)
	}
}

func TestEmbed_CorruptEntryRefetches(t *testing.T) {
	c, ms := newTestCache(t)
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{1, 2}}}
	ce := NewEmbedder(inner, c, 0)
	ms.data["test:cache:"+Key("emb", []byte("q"))] = []byte{1, 2, 3}

	res, err := ce.Embed(context.Background(), "q")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.calls != 1 || len(res.Embedding) != 2 {
		t.Fatalf("expected provider refetch, calls=%d vec=%v", inner.calls, res.Embedding)
	}
}

func TestEmbed_Concurrent(t *testing.T) {
	c, _ := newTestCache(t)
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{0.5}}}
	ce := NewEmbedder(inner, c, 0)

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := ce.Embed(context.Background(), "same"); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if inner.calls < 1 {
		t.Fatal("expected at least one provider call")
	}
}

func TestVectorBytes_RoundTrip(t *testing.T) {
	in := []float32{0, -1.5, 3.25}
	out, err := bytesToVector(vectorToBytes(in))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := range in {
		if in[i] != out[i] {
			t.Fatalf("index %d: %f != %f", i, in[i], out[i])
		}
	}
	if _, err := bytesToVector([]byte{1}); err == nil {
		t.Fatal("expected error for truncated data")
	}
}

func TestEmbed_CallerCancelDoesNotFailSharedCall(t *testing.T) {
	c, _ := newTestCache(t)
	inner := &gatedEmbedder{gatedCall: newGatedCall(), result: domain.EmbeddingResult{Embedding: []float32{0.5}}}
	ce := NewEmbedder(inner, c, 0)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := ce.Embed(ctx, "shared")
		errCh <- err
	}()

	<-inner.started
	cancel()
	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled caller: expected context.Canceled, got %v", err)
	}

	close(inner.release)
	res, err := ce.Embed(context.Background(), "shared")
	if err != nil {
		t.Fatalf("other caller failed: %v", err)
	}
	if len(res.Embedding) != 1 {
		t.Fatalf("unexpected vector: %v", res.Embedding)
	}

	ctxErr, hasDeadline := inner.firstCall()
	if ctxErr != nil {
		t.Errorf("shared call saw cancelled context: %v", ctxErr)
	}
	if !hasDeadline {
		t.Error("shared call should run with a deadline")
	}
}
