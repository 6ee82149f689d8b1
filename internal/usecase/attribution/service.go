package attribution

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ontology/internal/domain"
	"github.com/kailas-cloud/ontology/internal/domain/aggregation"
	domattr "github.com/kailas-cloud/ontology/internal/domain/attribution"
	"github.com/kailas-cloud/ontology/internal/domain/prototype"
	logpkg "github.com/kailas-cloud/ontology/internal/logger"
	"github.com/kailas-cloud/ontology/internal/metrics"
)

// Service runs the attribution pipeline: fetch → embed → score → aggregate.
// It holds only read-only state, so one instance serves concurrent requests.
type Service struct {
	content    ContentProvider
	embed      Embedder
	vocab      Vocabulary
	prototypes *prototype.Set
	cfg        domain.AttributionConfig
	policy     aggregation.Kind
}

// New creates an attribution service. prototypes must be fully built.
func New(
	content ContentProvider,
	embed Embedder,
	vocab Vocabulary,
	prototypes *prototype.Set,
) *Service {
	return &Service{
		content:    content,
		embed:      embed,
		vocab:      vocab,
		prototypes: prototypes,
		cfg:        domain.DefaultAttributionConfig(),
		policy:     aggregation.WeightedSumKind,
	}
}

// WithConfig overrides the pipeline thresholds. Zero values keep defaults.
func (s *Service) WithConfig(cfg domain.AttributionConfig) *Service {
	def := domain.DefaultAttributionConfig()
	if cfg.FetchLimit <= 0 {
		cfg.FetchLimit = def.FetchLimit
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = def.FetchTimeout
	}
	if cfg.MaxPosts <= 0 {
		cfg.MaxPosts = def.MaxPosts
	}
	if cfg.MinDocuments <= 0 {
		cfg.MinDocuments = def.MinDocuments
	}
	if cfg.TopN <= 0 {
		cfg.TopN = def.TopN
	}
	s.cfg = cfg
	return s
}

// WithDefaultPolicy sets the policy used when a request does not name one.
func (s *Service) WithDefaultPolicy(kind aggregation.Kind) *Service {
	s.policy = kind
	return s
}

// DefaultPolicy returns the policy used when a request does not name one.
func (s *Service) DefaultPolicy() aggregation.Kind { return s.policy }

// Attribute computes the archetype distribution for subject.
// An empty kind selects the default policy.
func (s *Service) Attribute(
	ctx context.Context, subject string, kind aggregation.Kind,
) (domattr.Result, error) {
	if kind == "" {
		kind = s.policy
	}

	res, err := s.attribute(ctx, subject, kind)

	label := string(kind)
	if !kind.IsValid() {
		label = "unknown"
	}
	metrics.AttributionsTotal.WithLabelValues(label, outcome(err)).Inc()
	if err != nil {
		return domattr.Result{}, err
	}
	metrics.AttributionDocuments.Observe(float64(res.TotalDocuments()))
	return res, nil
}

func (s *Service) attribute(
	ctx context.Context, rawSubject string, kind aggregation.Kind,
) (domattr.Result, error) {
	policy, err := aggregation.New(kind, s.cfg)
	if err != nil {
		return domattr.Result{}, err
	}

	subject := NormalizeSubject(rawSubject)
	if subject == "" {
		return domattr.Result{}, fmt.Errorf("%w: subject identifier is empty", domain.ErrInvalidInput)
	}
	ctx = logpkg.With(ctx, zap.String("subject", subject))
	log := logpkg.FromContext(ctx)

	docs, err := s.fetchDocuments(ctx, subject)
	if err != nil {
		return domattr.Result{}, err
	}
	log.Debug("documents collected", zap.Int("documents", len(docs)))

	embs, err := domain.EmbedAll(ctx, s.embed, docs)
	if err != nil {
		if !errors.Is(err, domain.ErrEmbeddingProviderError) {
			err = fmt.Errorf("%w: %w", domain.ErrEmbeddingProviderError, err)
		}
		return domattr.Result{}, fmt.Errorf("embed documents: %w", err)
	}
	domain.UsageFromContext(ctx).Add(len(docs), embs.TotalTokens)
	for i, v := range embs.Embeddings {
		if len(v) != s.prototypes.Dim() {
			return domattr.Result{}, fmt.Errorf("document %d: dim %d, prototypes dim %d: %w",
				i, len(v), s.prototypes.Dim(), domain.ErrVectorDimMismatch)
		}
	}

	ranked := policy.Aggregate(embs.Embeddings, s.prototypes)

	identities := make([]domattr.Identity, len(ranked))
	for i, r := range ranked {
		id := domattr.Identity{Name: r.Name, Weight: r.Weight, Votes: r.Votes}
		if def, ok := s.vocab.Get(r.Name); ok {
			id.Metadata = def.Metadata()
		}
		identities[i] = id
	}

	log.Info("attribution computed",
		zap.String("policy", string(kind)),
		zap.Int("documents", len(docs)),
		zap.Int("identities", len(identities)),
		zap.Int("embedding_tokens", embs.TotalTokens),
	)

	return domattr.New(subject, kind, len(docs), identities), nil
}

// fetchDocuments calls the provider under a bounded timeout and applies the document caps.
func (s *Service) fetchDocuments(ctx context.Context, subject string) ([]string, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout)
	defer cancel()

	profile, err := s.content.Fetch(fetchCtx, subject, s.cfg.FetchLimit)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrSubjectNotFound), errors.Is(err, domain.ErrUpstream):
			return nil, fmt.Errorf("fetch %q: %w", subject, err)
		default:
			return nil, fmt.Errorf("fetch %q: %w: %w", subject, domain.ErrUpstream, err)
		}
	}
	if profile.IsEmpty() {
		return nil, fmt.Errorf("fetch %q: %w", subject, domain.ErrSubjectNotFound)
	}

	docs := profile.Documents(s.cfg.MaxPosts)
	if len(docs) < s.cfg.MinDocuments {
		return nil, fmt.Errorf("%w: got %d documents, need at least %d",
			domain.ErrInsufficientData, len(docs), s.cfg.MinDocuments)
	}
	return docs, nil
}

// NormalizeSubject trims whitespace and leading "@" markers.
func NormalizeSubject(subject string) string {
	return strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(subject), "@"))
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrUnknownPolicy):
		return "invalid_input"
	case errors.Is(err, domain.ErrSubjectNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrUpstream):
		return "upstream_error"
	case errors.Is(err, domain.ErrInsufficientData):
		return "insufficient_data"
	case errors.Is(err, domain.ErrEmbeddingProviderError), errors.Is(err, domain.ErrVectorDimMismatch):
		return "embedding_error"
	default:
		return "error"
	}
}
