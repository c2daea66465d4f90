package uploads

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"transcript-advisor/internal/queue"
	"transcript-advisor/internal/shared/metrics"
	"transcript-advisor/internal/shared/telemetry"
	"transcript-advisor/internal/shared/util"
	"transcript-advisor/internal/submissions"
	"transcript-advisor/internal/transfer"
)

const defaultSubmitTimeout = 120 * time.Second

// Service binds the per-context sessions to the transfer slot, the ledger and the queue.
type Service struct {
	Registry *Registry
	Slots    transfer.SlotStore
	Ledger   submissions.Repo
	// Queue is optional.
	Queue   queue.Client
	Timeout time.Duration
}

// NewService constructs a Service.
func NewService(registry *Registry, slots transfer.SlotStore, ledger submissions.Repo, q queue.Client, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = defaultSubmitTimeout
	}
	return &Service{
		Registry: registry,
		Slots:    slots,
		Ledger:   ledger,
		Queue:    q,
		Timeout:  timeout,
	}
}

// Snapshot returns the session state of a browsing context. Contexts without
// a session report an empty idle snapshot. Reading counts as activity.
func (s *Service) Snapshot(contextID string) Snapshot {
	o, ok := s.Registry.Get(contextID)
	if !ok {
		return Snapshot{State: StateIdle, Files: []StagedFile{}}
	}
	o.Touch()
	return o.Snapshot()
}

// Stage stages candidates for a browsing context, starting its session if needed.
func (s *Service) Stage(ctx context.Context, contextID string, files ...Candidate) (Snapshot, int, error) {
	o := s.Registry.GetOrCreate(contextID)
	accepted, err := o.Stage(ctx, files...)
	if err != nil {
		return Snapshot{}, 0, err
	}
	metrics.AddFilesRejected(len(files) - accepted)
	return o.Snapshot(), accepted, nil
}

// Unstage removes one staged file. ok is false when nothing was removed.
func (s *Service) Unstage(ctx context.Context, contextID string, index int) (Snapshot, bool) {
	o, found := s.Registry.Get(contextID)
	if !found {
		return s.Snapshot(contextID), false
	}
	ok := o.Unstage(ctx, index)
	return o.Snapshot(), ok
}

// Reset returns the session of a browsing context to idle.
func (s *Service) Reset(contextID string) Snapshot {
	if o, ok := s.Registry.Get(contextID); ok {
		o.Reset()
	}
	return s.Snapshot(contextID)
}

// Close ends the orchestration session. The transfer slot is left alone so a
// results view already handed off keeps working.
func (s *Service) Close(ctx context.Context, contextID string) bool {
	return s.Registry.Close(ctx, contextID)
}

// EndSession ends the orchestration session and clears the transfer slot.
func (s *Service) EndSession(ctx context.Context, contextID string) error {
	s.Registry.Close(ctx, contextID)
	return transfer.NewChannel(s.Slots, contextID).Clear(ctx)
}

// Submit submits the first staged file of a browsing context.
// The call runs detached from ctx cancellation, bounded by the service timeout.
// A failed submission returns the failed snapshot with a *SubmitError.
// With handoff, a successful envelope is written to the transfer slot.
func (s *Service) Submit(ctx context.Context, contextID string, handoff bool) (Snapshot, error) {
	o, ok := s.Registry.Get(contextID)
	if !ok {
		return s.Snapshot(contextID), ErrNothingStaged
	}

	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.Timeout)
	defer cancel()

	out, err := o.submit(callCtx)
	if errors.Is(err, ErrNothingStaged) || errors.Is(err, ErrSubmitInProgress) {
		return o.Snapshot(), err
	}
	if out.started.IsZero() {
		// closed before anything was sent
		return o.Snapshot(), err
	}

	submissionID := s.record(callCtx, contextID, out)
	snap := o.Snapshot()
	snap.SubmissionID = submissionID

	if err != nil {
		return snap, err
	}
	if handoff {
		if err := transfer.NewChannel(s.Slots, contextID).Put(callCtx, out.envelope); err != nil {
			telemetry.Error("uploads.handoff.failed", map[string]any{
				"session":    util.HashScope(contextID),
				"request_id": telemetry.RequestID(ctx),
				"err":        err.Error(),
			})
			return snap, fmt.Errorf("handoff: %w", err)
		}
		metrics.IncHandoff()
	}
	return snap, nil
}

// History lists the ledger of a browsing context, newest first.
func (s *Service) History(ctx context.Context, contextID string, limit, offset int) ([]submissions.Submission, error) {
	if s.Ledger == nil {
		return []submissions.Submission{}, nil
	}
	return s.Ledger.ListByContext(ctx, contextID, limit, offset)
}

// Submission returns one ledger entry of a browsing context.
func (s *Service) Submission(ctx context.Context, contextID, id string) (submissions.Submission, error) {
	if s.Ledger == nil {
		return submissions.Submission{}, submissions.ErrNotFound
	}
	return s.Ledger.GetByID(ctx, contextID, id)
}

func (s *Service) record(ctx context.Context, contextID string, out outcome) string {
	metrics.IncSubmissionStarted()
	metrics.ObserveSubmissionDuration(out.finished.Sub(out.started))

	sub := submissions.Submission{
		ID:          uuid.NewString(),
		ContextID:   contextID,
		FileName:    out.fileName,
		CreatedAt:   out.started.UTC(),
		CompletedAt: out.finished.UTC(),
	}
	if out.failure != nil {
		metrics.IncSubmissionFailed()
		sub.Status = submissions.StatusFailed
		sub.ErrorMessage = out.failure.Error()
	} else {
		metrics.IncSubmissionSucceeded()
		env := out.envelope.Clone()
		sub.Status = submissions.StatusSucceeded
		sub.Envelope = &env
	}

	fields := map[string]any{
		"session":       util.HashScope(contextID),
		"request_id":    telemetry.RequestID(ctx),
		"submission_id": sub.ID,
		"status":        sub.Status,
		"duration_ms":   float64(out.finished.Sub(out.started).Microseconds()) / 1000.0,
	}
	if sub.ErrorMessage != "" {
		fields["err"] = sub.ErrorMessage
	}
	telemetry.Info("uploads.submit.complete", fields)

	if s.Ledger != nil {
		if err := s.Ledger.Create(ctx, sub); err != nil {
			telemetry.Error("uploads.ledger.write_failed", map[string]any{
				"submission_id": sub.ID,
				"err":           err.Error(),
			})
		}
	}

	if s.Queue != nil {
		msg := queue.Message{
			SubmissionID: sub.ID,
			ContextID:    util.HashScope(contextID),
			RequestID:    telemetry.RequestID(ctx),
			Status:       sub.Status,
			EnqueuedAt:   time.Now().UTC().Format(time.RFC3339),
			Version:      queue.MessageVersion,
		}
		if err := s.Queue.Send(ctx, msg); err != nil {
			telemetry.Error("uploads.queue.send_failed", map[string]any{
				"submission_id": sub.ID,
				"err":           err.Error(),
			})
		}
	}
	return sub.ID
}
