package submissions

import (
	"errors"
	"time"

	"transcript-advisor/internal/analyses"
)

const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

var ErrNotFound = errors.New("not found")

// Submission records one document sent to the recommendation service.
type Submission struct {
	ID           string             `json:"id"`
	ContextID    string             `json:"-"`
	FileName     string             `json:"fileName"`
	Status       string             `json:"status"`
	ErrorMessage string             `json:"errorMessage,omitempty"`
	Envelope     *analyses.Envelope `json:"envelope,omitempty"`
	CreatedAt    time.Time          `json:"createdAt"`
	CompletedAt  time.Time          `json:"completedAt"`
}
