package submissions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"transcript-advisor/internal/analyses"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// Create inserts a submission row.
func (r *PGRepo) Create(ctx context.Context, sub Submission) error {
	const query = `
INSERT INTO submissions (
    id,
    context_id,
    file_name,
    status,
    error_message,
    envelope,
    created_at,
    completed_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	var errorMessage sql.NullString
	if sub.ErrorMessage != "" {
		errorMessage = sql.NullString{String: sub.ErrorMessage, Valid: true}
	}

	var envelope any
	if sub.Envelope != nil {
		data, err := analyses.EncodeEnvelope(*sub.Envelope)
		if err != nil {
			return fmt.Errorf("encode envelope: %w", err)
		}
		envelope = data
	}

	_, err := r.DB.ExecContext(
		ctx,
		query,
		sub.ID,
		sub.ContextID,
		sub.FileName,
		sub.Status,
		errorMessage,
		envelope,
		sub.CreatedAt,
		sub.CompletedAt,
	)
	return err
}

// GetByID fetches one submission of a browsing context.
func (r *PGRepo) GetByID(ctx context.Context, contextID, id string) (Submission, error) {
	const query = `
SELECT id, context_id, file_name, status, error_message, envelope, created_at, completed_at
FROM submissions
WHERE context_id = $1 AND id = $2
LIMIT 1`
	sub, err := scanSubmission(r.DB.QueryRowContext(ctx, query, contextID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Submission{}, ErrNotFound
		}
		return Submission{}, err
	}
	return sub, nil
}

// ListByContext returns submissions newest first.
func (r *PGRepo) ListByContext(ctx context.Context, contextID string, limit, offset int) ([]Submission, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = 50
	}
	const query = `
SELECT id, context_id, file_name, status, error_message, envelope, created_at, completed_at
FROM submissions
WHERE context_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`

	rows, err := r.DB.QueryContext(ctx, query, contextID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Submission{}
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubmission(row rowScanner) (Submission, error) {
	var sub Submission
	var errorMessage sql.NullString
	var envelope []byte
	if err := row.Scan(
		&sub.ID,
		&sub.ContextID,
		&sub.FileName,
		&sub.Status,
		&errorMessage,
		&envelope,
		&sub.CreatedAt,
		&sub.CompletedAt,
	); err != nil {
		return Submission{}, err
	}
	if errorMessage.Valid {
		sub.ErrorMessage = errorMessage.String
	}
	if len(envelope) > 0 {
		env, err := analyses.DecodeEnvelope(envelope)
		if err != nil {
			return Submission{}, err
		}
		sub.Envelope = &env
	}
	return sub, nil
}

var _ Repo = (*PGRepo)(nil)
