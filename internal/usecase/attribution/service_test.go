package attribution

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/kailas-cloud/ontology/internal/domain"
	"github.com/kailas-cloud/ontology/internal/domain/aggregation"
	"github.com/kailas-cloud/ontology/internal/domain/archetype"
	"github.com/kailas-cloud/ontology/internal/domain/content"
	"github.com/kailas-cloud/ontology/internal/domain/prototype"
	"github.com/kailas-cloud/ontology/internal/domain/vocabulary"
)

// --- Mocks ---

type mockProvider struct {
	profile  content.Profile
	err      error
	block    bool
	gotLimit int
	gotName  string
	calls    int
}

func (m *mockProvider) Fetch(ctx context.Context, subject string, limit int) (content.Profile, error) {
	m.calls++
	m.gotName = subject
	m.gotLimit = limit
	if m.block {
		<-ctx.Done()
		return content.Profile{}, ctx.Err()
	}
	return m.profile, m.err
}

// mockEmbedder maps texts to vectors; unknown texts get fallback.
type mockEmbedder struct {
	vectors    map[string][]float32
	fallback   []float32
	err        error
	batchCalls int
	lastBatch  []string
}

func (m *mockEmbedder) vec(text string) []float32 {
	if v, ok := m.vectors[text]; ok {
		return v
	}
	return m.fallback
}

func (m *mockEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	return domain.EmbeddingResult{Embedding: m.vec(text)}, m.err
}

func (m *mockEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	m.batchCalls++
	m.lastBatch = texts
	if m.err != nil {
		return domain.BatchEmbeddingResult{}, m.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = m.vec(t)
	}
	return domain.BatchEmbeddingResult{Embeddings: out, TotalTokens: len(texts)}, nil
}

// --- Fixtures ---

func newVocab(t *testing.T, defs ...archetype.Definition) *vocabulary.Store {
	t.Helper()
	v, err := vocabulary.New(defs)
	if err != nil {
		t.Fatal(err)
	}
	return v
}

func def(t *testing.T, name string, md archetype.Metadata, phrases ...string) archetype.Definition {
	t.Helper()
	d, err := archetype.New(name, phrases, md)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func buildService(t *testing.T, provider ContentProvider, emb *mockEmbedder, vocab *vocabulary.Store) *Service {
	t.Helper()
	set, err := prototype.Build(context.Background(), emb, vocab.All())
	if err != nil {
		t.Fatal(err)
	}
	emb.batchCalls = 0
	return New(provider, emb, vocab, set)
}

func builderProfile() content.Profile {
	return content.Profile{
		Biography: "I love coding",
		Posts:     []content.Post{{Caption: "shipping a release"}, {Caption: "debugging all night"}},
	}
}

// --- Tests ---

func TestAttribute_WeightedSum_Success(t *testing.T) {
	emb := &mockEmbedder{
		vectors: map[string][]float32{
			"I build things": {1, 0},
			"I wander":       {0, 1},
		},
		fallback: []float32{0.8, 0.6},
	}
	vocab := newVocab(t,
		def(t, "Builder", archetype.Metadata{Valence: "+", Description: "builds"}, "I build things"),
		def(t, "Wanderer", archetype.Metadata{Description: "wanders"}, "I wander"),
	)
	provider := &mockProvider{profile: builderProfile()}
	svc := buildService(t, provider, emb, vocab)

	res, err := svc.Attribute(context.Background(), "@coder", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Subject() != "coder" {
		t.Errorf("expected normalized subject, got %q", res.Subject())
	}
	if provider.gotName != "coder" {
		t.Errorf("provider got %q, want %q", provider.gotName, "coder")
	}
	if res.Policy() != aggregation.WeightedSumKind {
		t.Errorf("expected default weighted_sum, got %q", res.Policy())
	}
	if res.TotalDocuments() != 3 {
		t.Errorf("expected 3 documents, got %d", res.TotalDocuments())
	}
	if emb.batchCalls != 1 || len(emb.lastBatch) != 3 {
		t.Errorf("expected one batch call with 3 texts, got %d calls / %v", emb.batchCalls, emb.lastBatch)
	}

	ids := res.Identities()
	if len(ids) != 2 {
		t.Fatalf("expected 2 identities, got %+v", ids)
	}
	// raw 80 + 60 > 100 → rescaled to 57.1 / 42.9
	if ids[0].Name != "Builder" || ids[0].Weight != 57.1 {
		t.Errorf("unexpected first identity: %+v", ids[0])
	}
	if ids[0].Metadata.Description != "builds" || ids[0].Metadata.Valence != "+" {
		t.Errorf("metadata not passed through: %+v", ids[0].Metadata)
	}
	if ids[1].Name != "Wanderer" || ids[1].Weight != 42.9 {
		t.Errorf("unexpected second identity: %+v", ids[1])
	}
}

func TestAttribute_Scenario1_BelowNoiseFloor(t *testing.T) {
	emb := &mockEmbedder{
		vectors:  map[string][]float32{"I build things": {1, 0}},
		fallback: []float32{0, 1},
	}
	vocab := newVocab(t, def(t, "Builder", archetype.Metadata{}, "I build things"))
	svc := buildService(t, &mockProvider{profile: builderProfile()}, emb, vocab)

	res, err := svc.Attribute(context.Background(), "coder", aggregation.WeightedSumKind)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Identities()) != 0 {
		t.Errorf("expected empty identities, got %+v", res.Identities())
	}
	if res.TotalDocuments() != 3 {
		t.Errorf("expected 3 documents, got %d", res.TotalDocuments())
	}
}

func TestAttribute_Scenario2_InsufficientData(t *testing.T) {
	emb := &mockEmbedder{vectors: map[string][]float32{"p": {1, 0}}, fallback: []float32{1, 0}}
	vocab := newVocab(t, def(t, "A", archetype.Metadata{}, "p"))
	provider := &mockProvider{profile: content.Profile{
		Biography: "bio",
		Posts:     []content.Post{{Caption: "one"}, {Caption: "   "}},
	}}
	svc := buildService(t, provider, emb, vocab)

	_, err := svc.Attribute(context.Background(), "few", "")
	if !errors.Is(err, domain.ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
	if emb.batchCalls != 0 {
		t.Error("embedder must not be called when data is insufficient")
	}
}

func TestAttribute_Scenario3_SubjectNotFound(t *testing.T) {
	emb := &mockEmbedder{fallback: []float32{1, 0}}
	vocab := newVocab(t, def(t, "A", archetype.Metadata{}, "p"))

	tests := []struct {
		name     string
		provider *mockProvider
	}{
		{"empty profile", &mockProvider{}},
		{"provider reports not found", &mockProvider{err: domain.ErrSubjectNotFound}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := buildService(t, tc.provider, emb, vocab)
			_, err := svc.Attribute(context.Background(), "ghost", "")
			if !errors.Is(err, domain.ErrSubjectNotFound) {
				t.Fatalf("expected ErrSubjectNotFound, got %v", err)
			}
		})
	}
}

func TestAttribute_Scenario4_Undetermined(t *testing.T) {
	emb := &mockEmbedder{
		vectors:  map[string][]float32{"I build things": {1, 0}},
		fallback: []float32{0.5, 0.866},
	}
	vocab := newVocab(t, def(t, "Builder", archetype.Metadata{}, "I build things"))
	svc := buildService(t, &mockProvider{profile: builderProfile()}, emb, vocab)

	res, err := svc.Attribute(context.Background(), "coder", aggregation.BestMatchKind)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ids := res.Identities()
	if len(ids) != 1 || ids[0].Name != aggregation.Undetermined || ids[0].Weight != 100.0 {
		t.Fatalf("expected undetermined fallback, got %+v", ids)
	}
}

func TestAttribute_BestMatch_Votes(t *testing.T) {
	emb := &mockEmbedder{
		vectors: map[string][]float32{
			"I build things":      {1, 0},
			"I wander":            {0, 1},
			"I love coding":       {1, 0.1},
			"shipping a release":  {1, 0},
			"debugging all night": {0.1, 1},
		},
	}
	vocab := newVocab(t,
		def(t, "Builder", archetype.Metadata{CoreDesire: "mastery"}, "I build things"),
		def(t, "Wanderer", archetype.Metadata{}, "I wander"),
	)
	svc := buildService(t, &mockProvider{profile: builderProfile()}, emb, vocab).
		WithDefaultPolicy(aggregation.BestMatchKind)

	res, err := svc.Attribute(context.Background(), "coder", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ids := res.Identities()
	if len(ids) != 2 {
		t.Fatalf("expected 2 identities, got %+v", ids)
	}
	if ids[0].Name != "Builder" || ids[0].Votes != 2 || ids[0].Metadata.CoreDesire != "mastery" {
		t.Errorf("unexpected first identity: %+v", ids[0])
	}
	var sum float64
	for _, id := range ids {
		sum += id.Weight
	}
	if math.Abs(sum-100) > 1e-9 {
		t.Errorf("expected weights to sum to 100, got %f", sum)
	}
}

func TestAttribute_RecordsEmbeddingUsage(t *testing.T) {
	emb := &mockEmbedder{fallback: []float32{1, 0}}
	vocab := newVocab(t, def(t, "Builder", archetype.Metadata{}, "I build things"))
	svc := buildService(t, &mockProvider{profile: builderProfile()}, emb, vocab)

	ctx, usage := domain.NewContextWithUsage(context.Background())
	if _, err := svc.Attribute(ctx, "coder", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !usage.Used || usage.Texts != 3 || usage.TotalTokens != 3 {
		t.Errorf("unexpected usage: %+v", *usage)
	}
}

func TestAttribute_InvalidInput(t *testing.T) {
	provider := &mockProvider{profile: builderProfile()}
	emb := &mockEmbedder{fallback: []float32{1, 0}}
	vocab := newVocab(t, def(t, "A", archetype.Metadata{}, "p"))
	svc := buildService(t, provider, emb, vocab)

	for _, subject := range []string{"", "@", "  @@ "} {
		_, err := svc.Attribute(context.Background(), subject, "")
		if !errors.Is(err, domain.ErrInvalidInput) {
			t.Errorf("subject %q: expected ErrInvalidInput, got %v", subject, err)
		}
	}
	if provider.calls != 0 {
		t.Error("provider must not be called for invalid input")
	}
}

func TestAttribute_UnknownPolicy(t *testing.T) {
	emb := &mockEmbedder{fallback: []float32{1, 0}}
	vocab := newVocab(t, def(t, "A", archetype.Metadata{}, "p"))
	svc := buildService(t, &mockProvider{profile: builderProfile()}, emb, vocab)

	_, err := svc.Attribute(context.Background(), "coder", "majority")
	if !errors.Is(err, domain.ErrUnknownPolicy) {
		t.Fatalf("expected ErrUnknownPolicy, got %v", err)
	}
}

func TestAttribute_UpstreamError(t *testing.T) {
	emb := &mockEmbedder{fallback: []float32{1, 0}}
	vocab := newVocab(t, def(t, "A", archetype.Metadata{}, "p"))
	svc := buildService(t, &mockProvider{err: errors.New("status 503")}, emb, vocab)

	_, err := svc.Attribute(context.Background(), "coder", "")
	if !errors.Is(err, domain.ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
}

func TestAttribute_FetchTimeout(t *testing.T) {
	emb := &mockEmbedder{fallback: []float32{1, 0}}
	vocab := newVocab(t, def(t, "A", archetype.Metadata{}, "p"))
	provider := &mockProvider{block: true}
	cfg := domain.DefaultAttributionConfig()
	cfg.FetchTimeout = 20 * time.Millisecond
	svc := buildService(t, provider, emb, vocab).WithConfig(cfg)

	_, err := svc.Attribute(context.Background(), "slow", "")
	if !errors.Is(err, domain.ErrUpstream) {
		t.Fatalf("expected ErrUpstream on timeout, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded in chain, got %v", err)
	}
	if provider.calls != 1 {
		t.Errorf("expected a single attempt, got %d", provider.calls)
	}
}

func TestAttribute_EmbeddingError(t *testing.T) {
	emb := &mockEmbedder{vectors: map[string][]float32{"p": {1, 0}}}
	vocab := newVocab(t, def(t, "A", archetype.Metadata{}, "p"))
	svc := buildService(t, &mockProvider{profile: builderProfile()}, emb, vocab)
	emb.err = errors.New("inference crashed")

	_, err := svc.Attribute(context.Background(), "coder", "")
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatalf("expected ErrEmbeddingProviderError, got %v", err)
	}
}

func TestAttribute_DimensionMismatch(t *testing.T) {
	emb := &mockEmbedder{vectors: map[string][]float32{"p": {1, 0}}, fallback: []float32{1, 0, 0}}
	vocab := newVocab(t, def(t, "A", archetype.Metadata{}, "p"))
	svc := buildService(t, &mockProvider{profile: builderProfile()}, emb, vocab)

	_, err := svc.Attribute(context.Background(), "coder", "")
	if !errors.Is(err, domain.ErrVectorDimMismatch) {
		t.Fatalf("expected ErrVectorDimMismatch, got %v", err)
	}
}

func TestAttribute_CapsDocumentsAndPassesFetchLimit(t *testing.T) {
	posts := make([]content.Post, 80)
	for i := range posts {
		posts[i] = content.Post{Caption: "caption"}
	}
	provider := &mockProvider{profile: content.Profile{Biography: "bio", Posts: posts}}
	emb := &mockEmbedder{vectors: map[string][]float32{"p": {1, 0}}, fallback: []float32{1, 0}}
	vocab := newVocab(t, def(t, "A", archetype.Metadata{}, "p"))
	svc := buildService(t, provider, emb, vocab)

	res, err := svc.Attribute(context.Background(), "busy", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.TotalDocuments() != 51 {
		t.Errorf("expected biography plus 50 captions, got %d", res.TotalDocuments())
	}
	if len(emb.lastBatch) != 51 {
		t.Errorf("expected 51 texts embedded, got %d", len(emb.lastBatch))
	}
	if provider.gotLimit != 60 {
		t.Errorf("expected fetch limit 60, got %d", provider.gotLimit)
	}
}

func TestAttribute_Idempotent(t *testing.T) {
	emb := &mockEmbedder{
		vectors:  map[string][]float32{"a": {1, 0, 0}, "b": {0, 1, 0}},
		fallback: []float32{0.7, 0.5, 0.1},
	}
	vocab := newVocab(t, def(t, "A", archetype.Metadata{}, "a"), def(t, "B", archetype.Metadata{}, "b"))
	svc := buildService(t, &mockProvider{profile: builderProfile()}, emb, vocab)

	for _, kind := range []aggregation.Kind{aggregation.WeightedSumKind, aggregation.BestMatchKind} {
		r1, err1 := svc.Attribute(context.Background(), "coder", kind)
		r2, err2 := svc.Attribute(context.Background(), "coder", kind)
		if err1 != nil || err2 != nil {
			t.Fatalf("unexpected errors: %v, %v", err1, err2)
		}
		a, b := r1.Identities(), r2.Identities()
		if len(a) != len(b) {
			t.Fatalf("%s: different lengths", kind)
		}
		for i := range a {
			if a[i] != b[i] {
				t.Errorf("%s: entry %d differs: %+v vs %+v", kind, i, a[i], b[i])
			}
		}
	}
}

func TestNormalizeSubject(t *testing.T) {
	tests := map[string]string{
		"@user":    "user",
		"user":     "user",
		" @user  ": "user",
		"@@user":   "user",
		"@":        "",
		"":         "",
	}
	for in, want := range tests {
		if got := NormalizeSubject(in); got != want {
			t.Errorf("NormalizeSubject(%q) = %q, want %q", in, got, want)
		}
	}
}
