package archetype

import (
	"fmt"
	"strings"
)

// Metadata is descriptive pass-through data. It never affects scoring.
type Metadata struct {
	Valence     string
	CoreFear    string
	CoreDesire  string
	Description string
}

// Definition is an immutable identity archetype: a unique name plus example phrases.
type Definition struct {
	name     string
	phrases  []string
	metadata Metadata
}

// New validates and creates a Definition.
// Name must be non-empty after trimming. Blank phrases are dropped;
// a definition may end up with no phrases, in which case it never gets a prototype.
func New(name string, phrases []string, md Metadata) (Definition, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Definition{}, fmt.Errorf("archetype name is required")
	}

	kept := make([]string, 0, len(phrases))
	for _, p := range phrases {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}

	return Definition{name: name, phrases: kept, metadata: md}, nil
}

// Name returns the archetype key.
func (d Definition) Name() string { return d.name }

// Phrases returns a copy of the example phrases in definition order.
func (d Definition) Phrases() []string {
	out := make([]string, len(d.phrases))
	copy(out, d.phrases)
	return out
}

// HasPhrases reports whether the archetype can be matched at all.
func (d Definition) HasPhrases() bool { return len(d.phrases) > 0 }

// Metadata returns the pass-through descriptive fields.
func (d Definition) Metadata() Metadata { return d.metadata }
