package types

import "errors"

var (
	// ErrInvalidInput is returned for malformed requests; no side effects happen.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound is returned for unknown sessions or messages, including a
	// message id that belongs to another session.
	ErrNotFound = errors.New("not found")

	// ErrStorageUnavailable is returned when the database cannot be reached.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrProviderUnavailable is returned when the generation backend is
	// unreachable or answers with a non-2xx status.
	ErrProviderUnavailable = errors.New("generation provider unavailable")
)

// Guidance returns an operator-facing hint for infrastructure failures.
func Guidance(err error) string {
	switch {
	case errors.Is(err, ErrStorageUnavailable):
		return "check that the database is running and DATABASE_URL is correct, then run `operator migrate`"
	case errors.Is(err, ErrProviderUnavailable):
		return "check that the model server is running and LLM_PROVIDER / LLM_BASE_URL / API keys are set"
	}
	return ""
}
