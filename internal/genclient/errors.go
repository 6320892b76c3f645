package genclient

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingAPIKey is returned when no API key is configured. The
	// pipeline treats it as fatal to the task: no generation attempt is
	// made and the menu resolves without an image.
	ErrMissingAPIKey = errors.New("generation API key is not configured")

	// ErrMalformedResponse is returned when the service answered 200 but
	// the response carried no inline image payload.
	ErrMalformedResponse = errors.New("generation response contained no image data")
)

// ExternalServiceError is returned when the generation service answers
// with a non-success HTTP status.
type ExternalServiceError struct {
	Status int
	Body   string
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("generation service returned status %d: %s", e.Status, e.Body)
}
