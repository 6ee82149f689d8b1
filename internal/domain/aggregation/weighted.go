package aggregation

import (
	"math"
	"sort"

	"github.com/kailas-cloud/ontology/internal/domain/prototype"
)

// WeightedSum accumulates every document's similarity to every archetype.
//
// weight(a) = round(sum_d sim(d, a) / len(docs) * 100, 1), negatives clamped to 0.
// Entries at or below NoiseFloor are dropped, the rest are sorted by weight
// (ties keep vocabulary order) and cut to TopN. If the kept entries add up to
// more than 100 they are rescaled proportionally to 100.
type WeightedSum struct {
	NoiseFloor float64
	TopN       int
}

// Kind implements Policy.
func (WeightedSum) Kind() Kind { return WeightedSumKind }

// Aggregate implements Policy.
func (p WeightedSum) Aggregate(docs [][]float32, set *prototype.Set) []Ranked {
	if len(docs) == 0 || set.Len() == 0 {
		return []Ranked{}
	}

	sums := make([]float64, set.Len())
	for _, doc := range docs {
		for i, s := range ScoreDocument(doc, set) {
			sums[i] += s.Similarity
		}
	}

	type kept struct {
		idx int
		raw float64
	}
	n := float64(len(docs))
	survivors := make([]kept, 0, len(sums))
	for i, sum := range sums {
		w := math.Max(sum/n*100, 0)
		if roundTenth(w) <= p.NoiseFloor {
			continue
		}
		survivors = append(survivors, kept{idx: i, raw: w})
	}

	sort.SliceStable(survivors, func(a, b int) bool { return survivors[a].raw > survivors[b].raw })
	if p.TopN > 0 && len(survivors) > p.TopN {
		survivors = survivors[:p.TopN]
	}

	raw := make([]float64, len(survivors))
	var total float64
	for i, s := range survivors {
		raw[i] = s.raw
		total += s.raw
	}

	weights := make([]float64, len(raw))
	var rounded float64
	for i, w := range raw {
		weights[i] = roundTenth(w)
		rounded += weights[i]
	}
	if total > 100 || rounded > 100+1e-9 {
		if total > 100 {
			for i := range raw {
				raw[i] = raw[i] / total * 100
			}
		}
		weights = roundTenths(raw)
	}

	out := make([]Ranked, len(survivors))
	for i, s := range survivors {
		out[i] = Ranked{Name: set.At(s.idx).Name(), Weight: weights[i]}
	}
	return out
}

func roundTenth(w float64) float64 { return math.Round(w*10) / 10 }
