package domain

import "time"

// KeyPrefix namespaces every key this service writes to the shared cache.
const KeyPrefix = "ontology:"

// AttributionConfig holds the tunable constants of the attribution pipeline.
type AttributionConfig struct {
	FetchLimit          int
	FetchTimeout        time.Duration
	MaxPosts            int
	MinDocuments        int
	NoiseFloor          float64
	TopN                int
	ConfidenceThreshold float64
}

// DefaultAttributionConfig returns the constants the service was calibrated with
// (multilingual-e5-large, normalized embeddings).
func DefaultAttributionConfig() AttributionConfig {
	return AttributionConfig{
		FetchLimit:          60,
		FetchTimeout:        90 * time.Second,
		MaxPosts:            50,
		MinDocuments:        3,
		NoiseFloor:          1.0,
		TopN:                10,
		ConfidenceThreshold: 0.55,
	}
}
