package submissions

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo stores submissions in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu        sync.RWMutex
	byContext map[string][]Submission
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byContext: make(map[string][]Submission)}
}

// Create appends a submission to its browsing context.
func (r *MemoryRepo) Create(ctx context.Context, sub Submission) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if sub.Envelope != nil {
		env := sub.Envelope.Clone()
		sub.Envelope = &env
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byContext[sub.ContextID] = append(r.byContext[sub.ContextID], sub)
	return nil
}

// GetByID returns one submission of a browsing context.
func (r *MemoryRepo) GetByID(ctx context.Context, contextID, id string) (Submission, error) {
	if err := ctx.Err(); err != nil {
		return Submission{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, sub := range r.byContext[contextID] {
		if sub.ID == id {
			return sub, nil
		}
	}
	return Submission{}, ErrNotFound
}

// ListByContext returns submissions newest first, honoring limit/offset.
func (r *MemoryRepo) ListByContext(ctx context.Context, contextID string, limit, offset int) ([]Submission, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if offset < 0 {
		offset = 0
	}
	if limit < 0 {
		limit = 0
	}

	r.mu.RLock()
	subs := make([]Submission, len(r.byContext[contextID]))
	copy(subs, r.byContext[contextID])
	r.mu.RUnlock()

	if len(subs) == 0 || offset >= len(subs) {
		return []Submission{}, nil
	}

	sort.SliceStable(subs, func(i, j int) bool {
		return subs[i].CreatedAt.After(subs[j].CreatedAt)
	})

	end := len(subs)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return subs[offset:end], nil
}

var _ Repo = (*MemoryRepo)(nil)
