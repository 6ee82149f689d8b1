// Package prototype derives one representative vector per archetype.
package prototype

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/ontology/internal/domain"
	"github.com/kailas-cloud/ontology/internal/domain/archetype"
)

// Prototype is the mean phrase embedding of one archetype.
type Prototype struct {
	name   string
	vector []float32
}

// Name returns the archetype name.
func (p Prototype) Name() string { return p.name }

// Vector returns the prototype vector. Callers must not modify it.
func (p Prototype) Vector() []float32 { return p.vector }

// Set is the immutable collection of prototypes in vocabulary order.
// It is built once at startup and shared read-only by every request.
type Set struct {
	items []Prototype
	dim   int
}

// NewSet assembles a Set from precomputed vectors (tests, cache hydration).
// All vectors must share one dimension.
func NewSet(names []string, vectors [][]float32) (*Set, error) {
	if len(names) != len(vectors) {
		return nil, fmt.Errorf("names/vectors length mismatch: %d vs %d", len(names), len(vectors))
	}
	s := &Set{items: make([]Prototype, 0, len(names))}
	for i, name := range names {
		if err := s.add(name, vectors[i]); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Set) add(name string, vec []float32) error {
	if len(vec) == 0 {
		return fmt.Errorf("prototype %q: empty vector: %w", name, domain.ErrVectorDimMismatch)
	}
	if s.dim == 0 {
		s.dim = len(vec)
	} else if len(vec) != s.dim {
		return fmt.Errorf("prototype %q: dim %d, want %d: %w", name, len(vec), s.dim, domain.ErrVectorDimMismatch)
	}
	s.items = append(s.items, Prototype{name: name, vector: vec})
	return nil
}

// Len returns the number of prototypes.
func (s *Set) Len() int { return len(s.items) }

// Dim returns the shared vector dimension (0 for an empty set).
func (s *Set) Dim() int { return s.dim }

// At returns the i-th prototype in vocabulary order.
func (s *Set) At(i int) Prototype { return s.items[i] }

// Has reports whether an archetype got a prototype.
func (s *Set) Has(name string) bool {
	for _, p := range s.items {
		if p.name == name {
			return true
		}
	}
	return false
}

// Build embeds every archetype's phrases (one batch call per archetype) and
// averages them. Archetypes without phrases are skipped.
func Build(ctx context.Context, embedder domain.Embedder, defs []archetype.Definition) (*Set, error) {
	s := &Set{items: make([]Prototype, 0, len(defs))}

	for _, d := range defs {
		if !d.HasPhrases() {
			continue
		}

		phrases := d.Phrases()
		res, err := domain.EmbedAll(ctx, embedder, phrases)
		if err != nil {
			return nil, fmt.Errorf("embed phrases of %q: %w", d.Name(), err)
		}

		mean, err := Mean(res.Embeddings)
		if err != nil {
			return nil, fmt.Errorf("archetype %q: %w", d.Name(), err)
		}
		if err := s.add(d.Name(), mean); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Mean returns the element-wise arithmetic mean of equally sized vectors.
func Mean(vectors [][]float32) ([]float32, error) {
	if len(vectors) == 0 {
		return nil, fmt.Errorf("mean of zero vectors")
	}
	dim := len(vectors[0])
	sum := make([]float64, dim)
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("vector %d: dim %d, want %d: %w", i, len(v), dim, domain.ErrVectorDimMismatch)
		}
		for j, x := range v {
			sum[j] += float64(x)
		}
	}

	n := float64(len(vectors))
	out := make([]float32, dim)
	for j, x := range sum {
		out[j] = float32(x / n)
	}
	return out, nil
}
