package recommender

import (
	"context"
	"errors"
	"fmt"
)

// DefaultBaseURL is used when RECOMMENDER_API_URL is not set.
const DefaultBaseURL = "http://localhost:12000"

const (
	uploadPath = "/upload-pdf"
	healthPath = "/health"
	fileField  = "file"
)

// Document is the single transcript sent with one request.
type Document struct {
	FileName    string
	ContentType string
	Content     []byte
}

// Client abstracts the external recommendation service.
type Client interface {
	// Recommend submits one document and returns the raw success body.
	Recommend(ctx context.Context, doc Document) ([]byte, error)
	Health(ctx context.Context) error
}

var ErrTimeout = errors.New("recommender request timeout")

// StatusError reports a non-success response. Status and body are kept verbatim.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upload failed: %d - %s", e.StatusCode, e.Body)
}
