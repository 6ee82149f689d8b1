// Package aggregation turns per-document similarity scores into a ranked,
// subject-level distribution over archetypes.
//
// Two policies are provided and selected by Kind:
//
//   - WeightedSum: continuous attribution. Each archetype's weight is its mean
//     similarity over all documents, as a percentage.
//   - BestMatch: discrete voting. Each document votes for its closest archetype
//     if the match is confident enough.
//
// Both are pure functions of their inputs.
package aggregation

import (
	"fmt"

	"github.com/kailas-cloud/ontology/internal/domain"
	"github.com/kailas-cloud/ontology/internal/domain/prototype"
	"github.com/kailas-cloud/ontology/internal/domain/similarity"
)

// Undetermined is the synthetic archetype returned by BestMatch when no document votes.
const Undetermined = "undetermined identity"

// Score is the similarity of one document to one archetype.
type Score struct {
	Archetype  string
	Similarity float64
}

// Ranked is one entry of an aggregated distribution.
type Ranked struct {
	Name   string
	Weight float64 // percent, one decimal
	Votes  int     // BestMatch only
}

// Policy aggregates document embeddings against a prototype set.
type Policy interface {
	Kind() Kind
	Aggregate(docs [][]float32, set *prototype.Set) []Ranked
}

// New builds the policy for kind using the thresholds in cfg.
func New(kind Kind, cfg domain.AttributionConfig) (Policy, error) {
	switch kind {
	case WeightedSumKind:
		return WeightedSum{NoiseFloor: cfg.NoiseFloor, TopN: cfg.TopN}, nil
	case BestMatchKind:
		return BestMatch{Threshold: cfg.ConfidenceThreshold}, nil
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownPolicy, kind)
	}
}

// ScoreDocument scores one document embedding against every prototype, in set order.
func ScoreDocument(doc []float32, set *prototype.Set) []Score {
	scores := make([]Score, set.Len())
	for i := range scores {
		p := set.At(i)
		scores[i] = Score{Archetype: p.Name(), Similarity: similarity.Cosine(doc, p.Vector())}
	}
	return scores
}
