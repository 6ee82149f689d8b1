package embedding

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/ontology/internal/domain"
)

// SerializedEmbedder lets at most one call reach the inner embedder at a time.
// Local inference servers with a single model replica degrade badly under
// parallel batches; waiting callers give up when their context ends.
type SerializedEmbedder struct {
	inner domain.Embedder
	slot  chan struct{}
}

// NewSerializedEmbedder wraps inner with a single-slot gate.
func NewSerializedEmbedder(inner domain.Embedder) *SerializedEmbedder {
	return &SerializedEmbedder{inner: inner, slot: make(chan struct{}, 1)}
}

func (s *SerializedEmbedder) acquire(ctx context.Context) error {
	select {
	case s.slot <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for embedder: %w", ctx.Err())
	}
}

func (s *SerializedEmbedder) release() { <-s.slot }

// Embed implements domain.Embedder.
func (s *SerializedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	if err := s.acquire(ctx); err != nil {
		return domain.EmbeddingResult{}, err
	}
	defer s.release()
	return s.inner.Embed(ctx, text) //nolint:wrapcheck // transparent decorator
}

// BatchEmbed implements domain.BatchEmbedder; the whole batch holds the slot.
func (s *SerializedEmbedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if err := s.acquire(ctx); err != nil {
		return domain.BatchEmbeddingResult{}, err
	}
	defer s.release()
	return domain.EmbedAll(ctx, s.inner, texts)
}

// HealthCheck bypasses the gate: a long batch must not fail readiness probes.
func (s *SerializedEmbedder) HealthCheck(ctx context.Context) error {
	if hc, ok := s.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx) //nolint:wrapcheck // transparent decorator
	}
	return nil
}
