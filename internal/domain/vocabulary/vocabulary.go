// Package vocabulary loads the closed set of identity archetypes.
//
// The source is a JSON array of records, or the same records as a YAML list.
// The store is built once at startup and is read-only after that.
package vocabulary

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/ontology/internal/domain"
	"github.com/kailas-cloud/ontology/internal/domain/archetype"
)

// record mirrors one entry of the vocabulary file.
type record struct {
	NameRU      string   `json:"name_ru" yaml:"name_ru"`
	PhrasesRU   []string `json:"phrases_ru" yaml:"phrases_ru"`
	PhrasesEN   []string `json:"phrases_en" yaml:"phrases_en"`
	Valence     string   `json:"valence" yaml:"valence"`
	CoreFear    string   `json:"core_fear" yaml:"core_fear"`
	CoreDesire  string   `json:"core_desire" yaml:"core_desire"`
	Description string   `json:"description" yaml:"description"`
}

// Store is the immutable archetype vocabulary in file order.
type Store struct {
	defs  []archetype.Definition
	index map[string]int
}

// Load reads and parses the vocabulary file at path.
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read vocabulary %s: %w", path, err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("vocabulary %s: %w", path, err)
	}
	return s, nil
}

// Parse builds a Store from raw file contents.
// Fails on malformed input, an empty list, a record without a name, or duplicate names.
func Parse(data []byte) (*Store, error) {
	records, err := decodeRecords(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidVocabulary, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no archetypes defined", domain.ErrInvalidVocabulary)
	}

	defs := make([]archetype.Definition, 0, len(records))
	for i, r := range records {
		phrases := make([]string, 0, len(r.PhrasesRU)+len(r.PhrasesEN))
		phrases = append(phrases, r.PhrasesRU...)
		phrases = append(phrases, r.PhrasesEN...)

		d, err := archetype.New(r.NameRU, phrases, archetype.Metadata{
			Valence:     r.Valence,
			CoreFear:    r.CoreFear,
			CoreDesire:  r.CoreDesire,
			Description: r.Description,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: record %d: %w", domain.ErrInvalidVocabulary, i, err)
		}
		defs = append(defs, d)
	}

	return New(defs)
}

// decodeRecords reads a JSON array with encoding/json (yaml.v3 rejects JSON
// escapes such as \/ and surrogate pairs) and anything else as YAML.
func decodeRecords(data []byte) ([]record, error) {
	var records []record
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.New("empty source")
	}
	if trimmed[0] == '[' && json.Valid(trimmed) {
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
		return records, nil
	}
	if err := yaml.NewDecoder(bytes.NewReader(data)).Decode(&records); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty source")
		}
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return records, nil
}

// New builds a Store from already constructed definitions. Names must be unique.
func New(defs []archetype.Definition) (*Store, error) {
	if len(defs) == 0 {
		return nil, fmt.Errorf("%w: no archetypes defined", domain.ErrInvalidVocabulary)
	}
	index := make(map[string]int, len(defs))
	for i, d := range defs {
		if _, dup := index[d.Name()]; dup {
			return nil, fmt.Errorf("%w: duplicate archetype %q", domain.ErrInvalidVocabulary, d.Name())
		}
		index[d.Name()] = i
	}
	out := make([]archetype.Definition, len(defs))
	copy(out, defs)
	return &Store{defs: out, index: index}, nil
}

// All returns every archetype in file order.
func (s *Store) All() []archetype.Definition {
	out := make([]archetype.Definition, len(s.defs))
	copy(out, s.defs)
	return out
}

// Get looks an archetype up by name.
func (s *Store) Get(name string) (archetype.Definition, bool) {
	i, ok := s.index[name]
	if !ok {
		return archetype.Definition{}, false
	}
	return s.defs[i], true
}

// Len returns the number of archetypes, including those without phrases.
func (s *Store) Len() int { return len(s.defs) }
