package submissions

import "context"

// Repo defines persistence operations for the submission ledger.
type Repo interface {
	Create(ctx context.Context, sub Submission) error
	GetByID(ctx context.Context, contextID, id string) (Submission, error)
	ListByContext(ctx context.Context, contextID string, limit, offset int) ([]Submission, error)
}
