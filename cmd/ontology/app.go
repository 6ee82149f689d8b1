package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ontology/internal/config"
	dbRedis "github.com/kailas-cloud/ontology/internal/db/redis"
	"github.com/kailas-cloud/ontology/internal/domain"
	"github.com/kailas-cloud/ontology/internal/domain/aggregation"
	"github.com/kailas-cloud/ontology/internal/domain/prototype"
	"github.com/kailas-cloud/ontology/internal/domain/vocabulary"
	logpkg "github.com/kailas-cloud/ontology/internal/logger"
	"github.com/kailas-cloud/ontology/internal/metrics"
	"github.com/kailas-cloud/ontology/internal/repository/embcache"
	"github.com/kailas-cloud/ontology/internal/transport/apify"
	geminiEmb "github.com/kailas-cloud/ontology/internal/transport/gemini"
	openaiEmb "github.com/kailas-cloud/ontology/internal/transport/openai"
	attributionuc "github.com/kailas-cloud/ontology/internal/usecase/attribution"
	embeddinguc "github.com/kailas-cloud/ontology/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/ontology/internal/usecase/health"
)

// application is the composition root shared by serve and attribute.
type application struct {
	env         string
	cfg         config.Config
	logger      *zap.Logger
	store       *dbRedis.Store
	embedder    domain.Embedder
	vocab       *vocabulary.Store
	prototypes  *prototype.Set
	attribution *attributionuc.Service
}

func newApplication(ctx context.Context, env string) (*application, error) {
	cfg, err := config.Load(env)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	a := &application{env: env, cfg: cfg, logger: logger}

	// Метрики регистрируем явно (без init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterAttributionMetrics()

	if cfg.Cache.Enabled() {
		if err := a.connectCache(ctx); err != nil {
			a.Close()
			return nil, err
		}
	}

	if err := a.buildEmbedder(ctx); err != nil {
		a.Close()
		return nil, err
	}

	if err := a.loadVocabulary(ctx); err != nil {
		a.Close()
		return nil, err
	}

	content := apify.NewClient(&apify.Config{
		Token:   cfg.Content.Token,
		BaseURL: cfg.Content.BaseURL,
		Actor:   cfg.Content.Actor,
		Timeout: time.Duration(cfg.Content.TimeoutSec) * time.Second,
		Logger:  logger,
	})
	if cfg.Content.Token == "" {
		logger.Warn("content.token is empty, every attribution will fail upstream")
	}

	docEmbedder := a.decorate(cfg.Embedding.DocumentInstruction)
	a.attribution = attributionuc.New(content, docEmbedder, a.vocab, a.prototypes).
		WithConfig(cfg.AttributionSettings()).
		WithDefaultPolicy(aggregation.Kind(cfg.Attribution.Policy))

	return a, nil
}

func (a *application) connectCache(ctx context.Context) error {
	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    a.cfg.Cache.Addrs,
		Password: a.cfg.Cache.Password,
	})
	if err != nil {
		return fmt.Errorf("create %s store: %w", a.cfg.Cache.Driver, err)
	}
	a.store = store

	timeout := time.Duration(a.cfg.Cache.ReadinessTimeout) * time.Second
	if err := store.WaitForReady(ctx, timeout); err != nil {
		return fmt.Errorf("cache not ready: %w", err)
	}
	a.logger.Info("Connected to embedding cache",
		zap.String("driver", a.cfg.Cache.Driver),
		zap.Strings("addrs", a.cfg.Cache.Addrs),
	)
	return nil
}

// buildEmbedder assembles the shared chain: Provider -> Cached -> Instrumented -> Serialized.
// Instruction and normalization wrappers are added per use in decorate.
func (a *application) buildEmbedder(ctx context.Context) error {
	ec := a.cfg.Embedding

	var base domain.Embedder
	switch ec.Provider {
	case "gemini":
		g, err := geminiEmb.NewEmbedder(ctx, &geminiEmb.Config{
			APIKey:     ec.APIKey,
			BaseURL:    ec.BaseURL,
			Model:      ec.Model,
			Dimensions: ec.Dimensions,
			TaskType:   "SEMANTIC_SIMILARITY",
			Logger:     a.logger,
		})
		if err != nil {
			return fmt.Errorf("create gemini embedder: %w", err)
		}
		base = g
	default:
		base = openaiEmb.NewEmbedder(&openaiEmb.Config{
			APIKey:     ec.APIKey,
			BaseURL:    ec.BaseURL,
			Model:      ec.Model,
			Dimensions: ec.Dimensions,
			Provider:   ec.Provider,
			Logger:     a.logger,
		})
	}

	embedder := base
	if a.store != nil {
		ns := embcache.Namespace{Provider: ec.Provider, Model: ec.Model, Dimensions: ec.Dimensions}
		embedder = embcache.New(base, a.store, ns, metrics.EmbeddingCacheTotal, a.logger).
			WithKeyPrefix(a.cfg.Cache.KeyPrefix, ns).
			WithTTL(time.Duration(a.cfg.Cache.TTLSec) * time.Second)
	}

	embedder = embeddinguc.NewInstrumentedEmbedder(embedder, ec.Provider, ec.Model, a.logger)

	if ec.Serialize {
		embedder = embeddinguc.NewSerializedEmbedder(embedder)
	}

	a.embedder = embedder
	a.logger.Info("Embedder created",
		zap.String("provider", ec.Provider),
		zap.String("model", ec.Model),
		zap.Int("dimensions", ec.Dimensions),
		zap.Bool("cache", a.store != nil),
		zap.Bool("serialize", ec.Serialize),
	)
	return nil
}

// decorate adds the instruction prefix (cache key includes it) and L2 normalization on top.
func (a *application) decorate(instruction string) domain.Embedder {
	e := a.embedder
	if instruction != "" {
		e = domain.NewInstructionEmbedder(e, instruction)
	}
	if a.cfg.Embedding.NormalizeEnabled() {
		e = domain.NewNormalizingEmbedder(e)
	}
	return e
}

// loadVocabulary reads the archetype file and builds every prototype before serving.
func (a *application) loadVocabulary(ctx context.Context) error {
	vocab, err := vocabulary.Load(a.cfg.Vocabulary.Path)
	if err != nil {
		return fmt.Errorf("load vocabulary: %w", err)
	}
	a.vocab = vocab

	start := time.Now()
	protos, err := prototype.Build(ctx, a.decorate(a.cfg.Embedding.PhraseInstruction), vocab.All())
	if err != nil {
		return fmt.Errorf("build prototypes: %w", err)
	}
	if protos.Len() == 0 {
		return fmt.Errorf("build prototypes: %w: no archetype has phrases", domain.ErrInvalidVocabulary)
	}
	a.prototypes = protos
	metrics.PrototypesBuilt.Set(float64(protos.Len()))

	a.logger.Info("Prototypes built",
		zap.String("path", a.cfg.Vocabulary.Path),
		zap.Int("archetypes", vocab.Len()),
		zap.Int("prototypes", protos.Len()),
		zap.Int("dim", protos.Dim()),
		zap.Duration("took", time.Since(start)),
	)
	return nil
}

func (a *application) health() *healthuc.Service {
	var cache healthuc.CachePinger
	if a.store != nil {
		cache = a.store
	}
	var emb healthuc.EmbeddingChecker
	if hc, ok := a.embedder.(domain.HealthChecker); ok {
		emb = hc
	}
	return healthuc.New(cache, emb, a.prototypes)
}

// Close releases the cache connection and flushes the logger.
func (a *application) Close() {
	if a.store != nil {
		a.store.Close()
	}
	_ = a.logger.Sync()
}
