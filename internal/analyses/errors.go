package analyses

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedPayload  = errors.New("malformed recommendation payload")
	ErrMalformedEnvelope = errors.New("malformed analysis envelope")
)

// ServiceError is an error the recommendation service reported inside a success response.
type ServiceError struct {
	Message string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("recommendation service error: %s", e.Message)
}
