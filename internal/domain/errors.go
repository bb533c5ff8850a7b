package domain

import "errors"

var (
	// ErrFatalInit marks failures that must abort service startup.
	ErrFatalInit = errors.New("fatal init")
	// ErrCorpusMissing is returned when the corpus source is absent or has no records.
	ErrCorpusMissing = errors.New("corpus missing")
	// ErrMissingCredential is returned when a provider credential is not configured.
	ErrMissingCredential = errors.New("missing provider credential")
	// ErrIndexCorrupt is returned when a persisted snapshot cannot be used.
	ErrIndexCorrupt = errors.New("index snapshot corrupt")
	// ErrEmbeddingUnavailable wraps embedding provider failures.
	ErrEmbeddingUnavailable = errors.New("embedding unavailable")
	// ErrCompletionUnavailable wraps completion provider failures.
	ErrCompletionUnavailable = errors.New("completion unavailable")
)

// IsProviderError reports whether err came from the embedding or completion provider.
func IsProviderError(err error) bool {
	return errors.Is(err, ErrEmbeddingUnavailable) || errors.Is(err, ErrCompletionUnavailable)
}
