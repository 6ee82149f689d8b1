package domain

import "context"

type embeddingUsageKey struct{}

// EmbeddingUsage collects embedding usage of one attribution request.
// The handler puts it into the context, the pipeline fills it after the
// document batch, the handler turns it into response headers.
type EmbeddingUsage struct {
	TotalTokens int
	Texts       int
	Used        bool // embedding was called, even if every vector came from cache
}

// NewContextWithUsage returns a context with an embedded usage collector.
func NewContextWithUsage(ctx context.Context) (context.Context, *EmbeddingUsage) {
	u := &EmbeddingUsage{}
	return context.WithValue(ctx, embeddingUsageKey{}, u), u
}

// UsageFromContext extracts the usage collector from context. Returns nil if not set.
func UsageFromContext(ctx context.Context) *EmbeddingUsage {
	u, _ := ctx.Value(embeddingUsageKey{}).(*EmbeddingUsage)
	return u
}

// Add records one embedding call over texts. Safe on a nil receiver.
func (u *EmbeddingUsage) Add(texts, tokens int) {
	if u == nil {
		return
	}
	u.Texts += texts
	u.TotalTokens += tokens
	u.Used = true
}
