package gemini

import (
	"context"
	"errors"
	"net/http"
	"os"
	"testing"

	"google.golang.org/genai"

	"github.com/kailas-cloud/ontology/internal/domain"
	"github.com/kailas-cloud/ontology/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterEmbeddingMetrics()
	os.Exit(m.Run())
}

type fakeModels struct {
	resp     *genai.EmbedContentResponse
	err      error
	getErr   error
	model    string
	contents []*genai.Content
	config   *genai.EmbedContentConfig
}

func (f *fakeModels) EmbedContent(_ context.Context, model string, contents []*genai.Content,
	config *genai.EmbedContentConfig,
) (*genai.EmbedContentResponse, error) {
	f.model = model
	f.contents = contents
	f.config = config
	return f.resp, f.err
}

func (f *fakeModels) Get(_ context.Context, model string, _ *genai.GetModelConfig) (*genai.Model, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return &genai.Model{Name: model}, nil
}

func embeddings(vectors ...[]float32) *genai.EmbedContentResponse {
	resp := &genai.EmbedContentResponse{}
	for _, v := range vectors {
		resp.Embeddings = append(resp.Embeddings, &genai.ContentEmbedding{Values: v})
	}
	return resp
}

func TestEmbedder_BatchEmbed(t *testing.T) {
	fake := &fakeModels{resp: embeddings([]float32{0.1, 0.2}, []float32{0.3, 0.4})}
	emb := newEmbedder(fake, &Config{Model: "text-embedding-004", Dimensions: 2, TaskType: "SEMANTIC_SIMILARITY"})

	res, err := emb.BatchEmbed(context.Background(), []string{"hello", "world"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Embeddings) != 2 || res.Embeddings[1][0] != 0.3 {
		t.Errorf("unexpected embeddings: %v", res.Embeddings)
	}
	if len(fake.contents) != 2 || fake.contents[0].Parts[0].Text != "hello" {
		t.Errorf("unexpected contents sent: %+v", fake.contents)
	}
	if fake.config.OutputDimensionality == nil || *fake.config.OutputDimensionality != 2 {
		t.Errorf("expected output dimensionality 2, got %v", fake.config.OutputDimensionality)
	}
	if fake.config.TaskType != "SEMANTIC_SIMILARITY" {
		t.Errorf("expected task type passed through, got %q", fake.config.TaskType)
	}
}

func TestEmbedder_Embed_DefaultModel(t *testing.T) {
	fake := &fakeModels{resp: embeddings([]float32{1, 0})}
	emb := newEmbedder(fake, &Config{})

	res, err := emb.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Embedding) != 2 {
		t.Errorf("unexpected vector: %v", res.Embedding)
	}
	if fake.model != defaultModel {
		t.Errorf("expected default model, got %q", fake.model)
	}
	if fake.config.OutputDimensionality != nil {
		t.Error("dimensionality must be omitted when not configured")
	}
}

func TestEmbedder_BatchEmbed_Empty(t *testing.T) {
	fake := &fakeModels{}
	res, err := newEmbedder(fake, &Config{}).BatchEmbed(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Embeddings != nil || fake.contents != nil {
		t.Error("expected no call for empty input")
	}
}

func TestEmbedder_Errors(t *testing.T) {
	tests := []struct {
		name string
		fake *fakeModels
	}{
		{"api error", &fakeModels{err: genai.APIError{Code: http.StatusTooManyRequests, Status: "RESOURCE_EXHAUSTED"}}},
		{"transport error", &fakeModels{err: errors.New("connection reset")}},
		{"count mismatch", &fakeModels{resp: embeddings([]float32{1})}},
		{"nil response", &fakeModels{}},
		{"empty vector", &fakeModels{resp: embeddings(nil, []float32{1})}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := newEmbedder(tc.fake, &Config{}).BatchEmbed(context.Background(), []string{"a", "b"})
			if !errors.Is(err, domain.ErrEmbeddingProviderError) {
				t.Fatalf("expected ErrEmbeddingProviderError, got %v", err)
			}
		})
	}
}

func TestEmbedder_HealthCheck(t *testing.T) {
	if err := newEmbedder(&fakeModels{}, &Config{}).HealthCheck(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := newEmbedder(&fakeModels{getErr: errors.New("404")}, &Config{}).HealthCheck(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestNewEmbedder_RequiresKey(t *testing.T) {
	if _, err := NewEmbedder(context.Background(), &Config{APIKey: "  "}); err == nil {
		t.Fatal("expected error for empty api key")
	}
}
