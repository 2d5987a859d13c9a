package commentsvc

import (
	"errors"
	"fmt"
)

var (
	ErrUnexpectedResponse = errors.New("unexpected response from comment service")
	ErrMissingID          = errors.New("comment id is required")
	ErrEmptyContent       = errors.New("comment content is required")
)

// ServiceError is a logical failure the server reported with success=false.
type ServiceError struct {
	Status  int
	Message string
}

func (e *ServiceError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("comment service refused request (status %d)", e.Status)
	}
	return e.Message
}

// IsServiceError reports whether err carries a server-reported failure.
func IsServiceError(err error) bool {
	var se *ServiceError
	return errors.As(err, &se)
}
