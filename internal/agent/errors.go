package agent

import (
	"errors"
	"fmt"
)

// ErrEmptyResponse marks a backend call that returned no content.
// Empty responses count as failures for retry purposes.
var ErrEmptyResponse = errors.New("empty response from generation backend")

// GenerationError is returned when a generation call exhausted its
// retries. It carries the last underlying error; callers that have no
// documented fallback propagate it as a phase failure.
type GenerationError struct {
	Attempts int
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// IsGenerationError reports whether err wraps a GenerationError.
func IsGenerationError(err error) bool {
	var ge *GenerationError
	return errors.As(err, &ge)
}
