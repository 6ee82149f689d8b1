package chi

// ErrorCode is a machine-readable API error code.
type ErrorCode string

// API error codes.
const (
	CodeBadRequest             ErrorCode = "bad_request"
	CodeUnauthorized           ErrorCode = "unauthorized"
	CodeNotFound               ErrorCode = "not_found"
	CodeMethodNotAllowed       ErrorCode = "method_not_allowed"
	CodeInvalidInput           ErrorCode = "invalid_input"
	CodeUnknownPolicy          ErrorCode = "unknown_policy"
	CodeInsufficientData       ErrorCode = "insufficient_data"
	CodeSubjectNotFound        ErrorCode = "subject_not_found"
	CodeUpstreamError          ErrorCode = "upstream_error"
	CodeEmbeddingProviderError ErrorCode = "embedding_provider_error"
	CodeVectorDimMismatch      ErrorCode = "vector_dim_mismatch"
	CodeInternalError          ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// AnalyzeRequest is the body of POST /api/ontology.
type AnalyzeRequest struct {
	Username string `json:"username"`
	Policy   string `json:"policy,omitempty"`
}

// AttributionResponse is a computed archetype distribution.
type AttributionResponse struct {
	Username           string             `json:"username"`
	Policy             string             `json:"policy"`
	TotalPostsAnalyzed int                `json:"total_posts_analyzed"`
	Identities         []IdentityResponse `json:"identities"`
}

// IdentityResponse is one ranked archetype.
// weighted_sum entries carry Percent, best_match entries carry Weight and Votes.
type IdentityResponse struct {
	Name        string   `json:"name"`
	Percent     *float64 `json:"percent,omitempty"`
	Weight      *float64 `json:"weight,omitempty"`
	Votes       *int     `json:"votes,omitempty"`
	Valence     string   `json:"valence"`
	CoreFear    string   `json:"core_fear"`
	CoreDesire  string   `json:"core_desire"`
	Description string   `json:"description"`
}

// ArchetypeResponse describes one vocabulary entry.
type ArchetypeResponse struct {
	Name         string `json:"name"`
	Phrases      int    `json:"phrases"`
	HasPrototype bool   `json:"has_prototype"`
	Valence      string `json:"valence"`
	CoreFear     string `json:"core_fear"`
	CoreDesire   string `json:"core_desire"`
	Description  string `json:"description"`
}

// ArchetypeListResponse is the body of GET /archetypes.
type ArchetypeListResponse struct {
	Items []ArchetypeResponse `json:"items"`
	Total int                 `json:"total"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
