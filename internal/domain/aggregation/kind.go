package aggregation

// Kind names an aggregation policy.
type Kind string

// Aggregation policy constants.
const (
	// WeightedSumKind averages every document's similarity to every archetype.
	WeightedSumKind Kind = "weighted_sum"
	// BestMatchKind lets each confident document vote for its closest archetype.
	BestMatchKind Kind = "best_match"
)

// IsValid checks if the kind is one of the supported values.
func (k Kind) IsValid() bool {
	return k == WeightedSumKind || k == BestMatchKind
}
