package embcache

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ontology/internal/db"
	"github.com/kailas-cloud/ontology/internal/domain"
)

// mockEmbedder returns a vector derived from the text length, so hits and misses are distinguishable.
type mockEmbedder struct {
	err        error
	calls      int
	batchCalls int
	batchTexts []string
}

func vecFor(text string) []float32 { return []float32{float32(len(text)), 1} }

func (m *mockEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	m.calls++
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: vecFor(text), TotalTokens: 10}, nil
}

func (m *mockEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	m.batchCalls++
	m.batchTexts = texts
	if m.err != nil {
		return domain.BatchEmbeddingResult{}, m.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = vecFor(t)
	}
	return domain.BatchEmbeddingResult{Embeddings: out, TotalTokens: 10 * len(texts)}, nil
}

// memStore is an in-memory KV implementing the consumer interface.
type memStore struct {
	mu      sync.Mutex
	data    map[string][]byte
	getErr  error
	setErr  error
	lastTTL time.Duration
	sets    int
}

func newMemStore() *memStore { return &memStore{data: make(map[string][]byte)} }

func (m *memStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *memStore) MGet(_ context.Context, keys []string) ([][]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	out := make([][]byte, len(keys))
	for i, k := range keys {
		out[i] = m.data[k]
	}
	return out, nil
}

func (m *memStore) SetMulti(_ context.Context, items []db.KVItem, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.lastTTL = ttl
	for _, it := range items {
		m.data[it.Key] = it.Value
		m.sets++
	}
	return nil
}

func newTestCachedEmbedder(t *testing.T, inner *mockEmbedder) (*CachedEmbedder, *memStore) {
	t.Helper()
	ms := newMemStore()
	return New(inner, ms, Namespace{Provider: "openai", Model: "e5"}, nil, zap.NewNop()), ms
}
