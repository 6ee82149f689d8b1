package aggregation

import (
	"sort"

	"github.com/kailas-cloud/ontology/internal/domain/prototype"
)

// BestMatch lets each document vote for its single closest archetype.
// A document votes only when its best similarity is strictly above Threshold.
// weight(a) = votes(a) / qualifying votes * 100. With no votes at all the result
// is the single Undetermined entry with weight 100.
type BestMatch struct {
	Threshold float64
}

// Kind implements Policy.
func (BestMatch) Kind() Kind { return BestMatchKind }

// Aggregate implements Policy.
func (p BestMatch) Aggregate(docs [][]float32, set *prototype.Set) []Ranked {
	votes := make(map[int]int)
	var order []int // archetype indexes in first-vote order
	qualifying := 0

	for _, doc := range docs {
		best, bestSim := -1, 0.0
		for i, s := range ScoreDocument(doc, set) {
			if best < 0 || s.Similarity > bestSim {
				best, bestSim = i, s.Similarity
			}
		}
		if best < 0 || bestSim <= p.Threshold {
			continue
		}
		if _, seen := votes[best]; !seen {
			order = append(order, best)
		}
		votes[best]++
		qualifying++
	}

	if qualifying == 0 {
		return []Ranked{{Name: Undetermined, Weight: 100.0}}
	}

	sort.SliceStable(order, func(a, b int) bool { return votes[order[a]] > votes[order[b]] })

	raw := make([]float64, len(order))
	for i, idx := range order {
		raw[i] = float64(votes[idx]) / float64(qualifying) * 100
	}
	weights := roundTenths(raw)

	out := make([]Ranked, len(order))
	for i, idx := range order {
		out[i] = Ranked{Name: set.At(idx).Name(), Weight: weights[i], Votes: votes[idx]}
	}
	return out
}
