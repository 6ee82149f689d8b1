package domain

import "errors"

var (
	// ErrInvalidInput signals an empty or malformed subject identifier.
	ErrInvalidInput = errors.New("invalid input")
	// ErrSubjectNotFound signals that the content provider returned nothing for the subject.
	ErrSubjectNotFound = errors.New("subject not found or private")
	// ErrUpstream signals a content provider failure (timeout, non-success status).
	ErrUpstream = errors.New("content provider error")
	// ErrInsufficientData signals that the subject has too few documents to attribute.
	ErrInsufficientData = errors.New("insufficient data: more text content is needed")
	// ErrUnknownPolicy signals an unsupported aggregation policy name.
	ErrUnknownPolicy = errors.New("unknown aggregation policy")

	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrInvalidVocabulary signals a malformed or empty archetype vocabulary.
	ErrInvalidVocabulary = errors.New("invalid vocabulary")
)
