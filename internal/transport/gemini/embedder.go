// Package gemini implements domain.Embedder on top of the Google GenAI embeddings API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/kailas-cloud/ontology/internal/domain"
	"github.com/kailas-cloud/ontology/internal/metrics"
)

const (
	defaultModel = "text-embedding-004"
	providerName = "gemini"
)

// modelsAPI is the subset of *genai.Models the embedder uses.
type modelsAPI interface {
	EmbedContent(ctx context.Context, model string, contents []*genai.Content,
		config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
	Get(ctx context.Context, model string, config *genai.GetModelConfig) (*genai.Model, error)
}

// Embedder vectorizes text with a Gemini embedding model.
type Embedder struct {
	models     modelsAPI
	model      string
	dimensions int
	taskType   string
	logger     *zap.Logger
}

// Config holds the Gemini embedder settings.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
	// TaskType is passed through as-is (e.g. SEMANTIC_SIMILARITY, CLUSTERING).
	TaskType string
	Logger   *zap.Logger
}

// NewEmbedder creates a Gemini API backed embedder.
func NewEmbedder(ctx context.Context, cfg *Config) (*Embedder, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return newEmbedder(client.Models, cfg), nil
}

func newEmbedder(models modelsAPI, cfg *Config) *Embedder {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Embedder{
		models:     models,
		model:      model,
		dimensions: cfg.Dimensions,
		taskType:   cfg.TaskType,
		logger:     logger,
	}
}

// Embed implements domain.Embedder.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	res, err := e.embed(ctx, []string{text})
	if err != nil {
		return domain.EmbeddingResult{}, err
	}
	return domain.EmbeddingResult{Embedding: res.Embeddings[0]}, nil
}

// BatchEmbed implements domain.BatchEmbedder. Gemini does not report token usage
// for embeddings, so the result carries vectors only.
func (e *Embedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, nil
	}
	return e.embed(ctx, texts)
}

func (e *Embedder) embed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	contents := make([]*genai.Content, len(texts))
	for i, t := range texts {
		contents[i] = genai.NewContentFromText(t, genai.RoleUser)
	}

	cfg := &genai.EmbedContentConfig{TaskType: e.taskType}
	if e.dimensions > 0 {
		dims := int32(e.dimensions) //nolint:gosec // validated by config
		cfg.OutputDimensionality = &dims
	}

	start := time.Now()
	resp, err := e.models.EmbedContent(ctx, e.model, contents, cfg)
	duration := time.Since(start)

	if err != nil {
		metrics.EmbeddingRequestsTotal.WithLabelValues(providerName, e.model, "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues(providerName, e.model, "api_error").Inc()
		e.logger.Warn("gemini embed failed", zap.Int("texts", len(texts)), zap.Error(err))
		return domain.BatchEmbeddingResult{}, wrapAPIError(err)
	}
	if resp == nil || len(resp.Embeddings) != len(texts) {
		got := 0
		if resp != nil {
			got = len(resp.Embeddings)
		}
		metrics.EmbeddingRequestsTotal.WithLabelValues(providerName, e.model, "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues(providerName, e.model, "count_mismatch").Inc()
		return domain.BatchEmbeddingResult{}, fmt.Errorf("expected %d embeddings, got %d: %w",
			len(texts), got, domain.ErrEmbeddingProviderError)
	}

	out := make([][]float32, len(resp.Embeddings))
	for i, emb := range resp.Embeddings {
		if emb == nil || len(emb.Values) == 0 {
			metrics.EmbeddingRequestsTotal.WithLabelValues(providerName, e.model, "error").Inc()
			metrics.EmbeddingErrorsTotal.WithLabelValues(providerName, e.model, "empty_response").Inc()
			return domain.BatchEmbeddingResult{}, fmt.Errorf("empty embedding at %d: %w",
				i, domain.ErrEmbeddingProviderError)
		}
		out[i] = emb.Values
	}

	metrics.EmbeddingRequestsTotal.WithLabelValues(providerName, e.model, "success").Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues(providerName, e.model).Observe(duration.Seconds())

	return domain.BatchEmbeddingResult{Embeddings: out}, nil
}

// HealthCheck fetches the model descriptor.
func (e *Embedder) HealthCheck(ctx context.Context) error {
	if _, err := e.models.Get(ctx, e.model, nil); err != nil {
		return fmt.Errorf("get model %s: %w", e.model, err)
	}
	return nil
}

// Model returns the configured model name.
func (e *Embedder) Model() string { return e.model }

func wrapAPIError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("gemini API error %d %s: %s: %w",
			apiErr.Code, apiErr.Status, apiErr.Message, domain.ErrEmbeddingProviderError)
	}
	return fmt.Errorf("gemini embed: %w: %w", domain.ErrEmbeddingProviderError, err)
}
