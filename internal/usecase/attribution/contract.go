package attribution

import (
	"context"

	"github.com/kailas-cloud/ontology/internal/domain"
	"github.com/kailas-cloud/ontology/internal/domain/archetype"
	"github.com/kailas-cloud/ontology/internal/domain/content"
)

// ContentProvider fetches raw text fragments for a subject.
// Implementations return domain.ErrSubjectNotFound when the subject has no
// reachable content and domain.ErrUpstream on transport faults.
type ContentProvider interface {
	Fetch(ctx context.Context, subject string, limit int) (content.Profile, error)
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Vocabulary resolves archetype metadata by name.
type Vocabulary interface {
	Get(name string) (archetype.Definition, bool)
}
