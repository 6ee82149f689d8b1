package attribution

import (
	"github.com/kailas-cloud/ontology/internal/domain/aggregation"
	"github.com/kailas-cloud/ontology/internal/domain/archetype"
)

// Identity is one ranked archetype in an attribution, enriched with its metadata.
type Identity struct {
	Name     string
	Weight   float64
	Votes    int
	Metadata archetype.Metadata
}

// Result is the outcome of attributing one subject.
type Result struct {
	subject        string
	policy         aggregation.Kind
	totalDocuments int
	identities     []Identity
}

// New creates an attribution result.
func New(subject string, policy aggregation.Kind, totalDocuments int, identities []Identity) Result {
	if identities == nil {
		identities = []Identity{}
	}
	return Result{
		subject:        subject,
		policy:         policy,
		totalDocuments: totalDocuments,
		identities:     identities,
	}
}

// Subject returns the normalized subject identifier.
func (r *Result) Subject() string { return r.subject }

// Policy returns the aggregation policy that produced the result.
func (r *Result) Policy() aggregation.Kind { return r.policy }

// TotalDocuments returns how many documents were analyzed.
func (r *Result) TotalDocuments() int { return r.totalDocuments }

// Identities returns the ranked archetypes.
func (r *Result) Identities() []Identity { return r.identities }
