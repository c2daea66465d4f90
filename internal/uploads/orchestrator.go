package uploads

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"transcript-advisor/internal/analyses"
	"transcript-advisor/internal/extract"
	"transcript-advisor/internal/recommender"
	"transcript-advisor/internal/shared/storage/object"
	"transcript-advisor/internal/shared/telemetry"
	"transcript-advisor/internal/shared/util"
)

// State is the orchestration state of one session.
type State string

const (
	StateIdle       State = "idle"
	StateSubmitting State = "submitting"
	StateSucceeded  State = "succeeded"
	StateFailed     State = "failed"
)

var (
	ErrNothingStaged    = errors.New("no staged files")
	ErrSubmitInProgress = errors.New("submission already in progress")
	ErrSessionClosed    = errors.New("orchestration session closed")
)

// SubmitError reports a submission that reached the recommendation service and failed.
// Its message is meant to be shown to the user as is.
type SubmitError struct {
	Err error
}

func (e *SubmitError) Error() string { return e.Err.Error() }

func (e *SubmitError) Unwrap() error { return e.Err }

// Candidate is a file offered for staging.
type Candidate struct {
	Name      string
	MediaType string
	Content   io.Reader
}

// StagedFile is an accepted candidate waiting for submission.
type StagedFile struct {
	Name       string `json:"name"`
	MediaType  string `json:"mediaType"`
	SizeBytes  int64  `json:"sizeBytes"`
	PageCount  int    `json:"pageCount,omitempty"`
	storageKey string
}

// Snapshot is a consistent copy of the session state.
type Snapshot struct {
	State    State              `json:"state"`
	Files    []StagedFile       `json:"files"`
	Error    string             `json:"error,omitempty"`
	Envelope *analyses.Envelope `json:"envelope,omitempty"`

	// SubmissionID names the ledger entry of the submission that produced this snapshot.
	SubmissionID string `json:"submissionId,omitempty"`
}

// Orchestrator drives staged files through one submission at a time.
// Safe for concurrent use; the recommender call runs without holding the lock.
type Orchestrator struct {
	scope  string
	store  object.ObjectStore
	client recommender.Client

	mu         sync.Mutex
	state      State
	staged     []StagedFile
	errMsg     string
	envelope   *analyses.Envelope
	closed     bool
	generation uint64
	lastUsed   time.Time

	// bytes of the file being submitted outlive Unstage and Close until the call settles
	inFlight string
	orphaned []StagedFile
}

// NewOrchestrator constructs an idle session bound to a browsing context.
func NewOrchestrator(scope string, store object.ObjectStore, client recommender.Client) *Orchestrator {
	return &Orchestrator{
		scope:    scope,
		store:    store,
		client:   client,
		state:    StateIdle,
		lastUsed: time.Now(),
	}
}

// Stage appends the PDF candidates, in order, after the already staged files.
// Other candidates are dropped without error; err reports storage failures only.
func (o *Orchestrator) Stage(ctx context.Context, files ...Candidate) (int, error) {
	accepted := make([]StagedFile, 0, len(files))
	for _, file := range files {
		if !extract.IsPDF(file.MediaType) || file.Content == nil {
			continue
		}
		staged, err := o.save(ctx, file)
		if err != nil {
			o.discard(ctx, accepted)
			return 0, err
		}
		accepted = append(accepted, staged)
	}

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		o.discard(ctx, accepted)
		return 0, ErrSessionClosed
	}
	o.staged = append(o.staged, accepted...)
	o.lastUsed = time.Now()
	o.mu.Unlock()
	return len(accepted), nil
}

func (o *Orchestrator) save(ctx context.Context, file Candidate) (StagedFile, error) {
	data, err := io.ReadAll(file.Content)
	if err != nil {
		return StagedFile{}, fmt.Errorf("read %s: %w", file.Name, err)
	}
	name, err := util.SanitizeFileName(file.Name)
	if err != nil {
		name = "transcript.pdf"
	}
	obj, err := o.store.Put(ctx, o.scope, name, bytes.NewReader(data))
	if err != nil {
		return StagedFile{}, fmt.Errorf("stage %s: %w", file.Name, err)
	}
	pages, err := extract.PageCount(data)
	if err != nil {
		pages = 0
	}
	return StagedFile{
		Name:       file.Name,
		MediaType:  strings.TrimSpace(file.MediaType),
		SizeBytes:  obj.Size,
		PageCount:  pages,
		storageKey: obj.Key,
	}, nil
}

// Unstage removes the staged file at index. Out-of-range indexes are ignored.
func (o *Orchestrator) Unstage(ctx context.Context, index int) bool {
	o.mu.Lock()
	if index < 0 || index >= len(o.staged) {
		o.mu.Unlock()
		return false
	}
	removed := o.staged[index]
	o.staged = append(o.staged[:index:index], o.staged[index+1:]...)
	o.lastUsed = time.Now()
	drop := o.releaseLocked([]StagedFile{removed})
	o.mu.Unlock()

	o.discard(ctx, drop)
	return true
}

// Submit sends the first staged file, and only that file, to the recommendation service.
// Failures leave the session in StateFailed and are returned as *SubmitError.
// The staged files are kept so the caller can retry.
func (o *Orchestrator) Submit(ctx context.Context) (analyses.Envelope, error) {
	out, err := o.submit(ctx)
	if err != nil {
		return analyses.Envelope{}, err
	}
	return out.envelope, nil
}

// outcome describes one submission that reached the network.
type outcome struct {
	fileName string
	envelope analyses.Envelope
	failure  error
	started  time.Time
	finished time.Time
}

func (o *Orchestrator) submit(ctx context.Context) (outcome, error) {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return outcome{}, ErrSessionClosed
	}
	if len(o.staged) == 0 {
		o.mu.Unlock()
		return outcome{}, ErrNothingStaged
	}
	if o.state == StateSubmitting {
		o.mu.Unlock()
		return outcome{}, ErrSubmitInProgress
	}
	first := o.staged[0]
	from := o.state
	o.state = StateSubmitting
	o.errMsg = ""
	o.envelope = nil
	gen := o.generation
	o.inFlight = first.storageKey
	o.mu.Unlock()

	logTransition(ctx, o.scope, from, StateSubmitting)

	out := outcome{fileName: first.Name, started: time.Now()}
	out.envelope, out.failure = o.send(ctx, first)
	out.finished = time.Now()

	o.mu.Lock()
	o.inFlight = ""
	orphaned := o.orphaned
	o.orphaned = nil
	err := o.settleLocked(ctx, gen, out)
	o.mu.Unlock()

	o.discard(ctx, orphaned)
	return out, err
}

func (o *Orchestrator) settleLocked(ctx context.Context, gen uint64, out outcome) error {
	if o.closed || o.generation != gen {
		// nobody is waiting for this result anymore
		return ErrSessionClosed
	}
	o.lastUsed = out.finished
	if out.failure != nil {
		o.state = StateFailed
		o.errMsg = out.failure.Error()
		logTransition(ctx, o.scope, StateSubmitting, StateFailed)
		return &SubmitError{Err: out.failure}
	}
	env := out.envelope.Clone()
	o.state = StateSucceeded
	o.envelope = &env
	logTransition(ctx, o.scope, StateSubmitting, StateSucceeded)
	return nil
}

// releaseLocked returns the files whose bytes can be deleted now and parks the in-flight one.
func (o *Orchestrator) releaseLocked(files []StagedFile) []StagedFile {
	if o.inFlight == "" {
		return files
	}
	drop := make([]StagedFile, 0, len(files))
	for _, f := range files {
		if f.storageKey == o.inFlight {
			o.orphaned = append(o.orphaned, f)
			continue
		}
		drop = append(drop, f)
	}
	return drop
}

func (o *Orchestrator) send(ctx context.Context, file StagedFile) (analyses.Envelope, error) {
	body, err := o.store.Get(ctx, file.storageKey)
	if err != nil {
		return analyses.Envelope{}, fmt.Errorf("open staged file: %w", err)
	}
	content, err := io.ReadAll(body)
	_ = body.Close()
	if err != nil {
		return analyses.Envelope{}, fmt.Errorf("read staged file: %w", err)
	}

	raw, err := o.client.Recommend(ctx, recommender.Document{
		FileName:    file.Name,
		ContentType: file.MediaType,
		Content:     content,
	})
	if err != nil {
		return analyses.Envelope{}, err
	}
	payload, err := analyses.DecodePayload(raw)
	if err != nil {
		return analyses.Envelope{}, err
	}
	return analyses.NewEnvelope(payload), nil
}

// Reset returns a settled session to idle, clearing the error and the last result.
// Staged files are kept. A session with a submission in flight is left as is.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state == StateSubmitting {
		return
	}
	o.state = StateIdle
	o.errMsg = ""
	o.envelope = nil
	o.lastUsed = time.Now()
}

// Close ends the session and drops the staged files. A submission still in
// flight completes at the transport level but its result is discarded.
func (o *Orchestrator) Close(ctx context.Context) {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.closed = true
	o.generation++
	drop := o.releaseLocked(o.staged)
	o.staged = nil
	o.state = StateIdle
	o.errMsg = ""
	o.envelope = nil
	o.mu.Unlock()

	o.discard(ctx, drop)
}

// Snapshot returns a copy of the current session state.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	snap := Snapshot{
		State: o.state,
		Files: make([]StagedFile, len(o.staged)),
		Error: o.errMsg,
	}
	copy(snap.Files, o.staged)
	if o.envelope != nil {
		env := o.envelope.Clone()
		snap.Envelope = &env
	}
	return snap
}

// Touch marks the session as in use so a sweep keeps it.
func (o *Orchestrator) Touch() {
	o.mu.Lock()
	o.lastUsed = time.Now()
	o.mu.Unlock()
}

func (o *Orchestrator) idleSince() (time.Time, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastUsed, o.state != StateSubmitting
}

func (o *Orchestrator) discard(ctx context.Context, files []StagedFile) {
	for _, f := range files {
		if err := o.store.Remove(ctx, f.storageKey); err != nil {
			telemetry.Error("uploads.unstage.delete_failed", map[string]any{
				"session":     util.HashScope(o.scope),
				"storage_key": f.storageKey,
				"err":         err.Error(),
			})
		}
	}
}

func logTransition(ctx context.Context, scope string, from, to State) {
	telemetry.Info("uploads.state.transition", map[string]any{
		"session":           util.HashScope(scope),
		"request_id":        telemetry.RequestID(ctx),
		"status_transition": string(from) + "->" + string(to),
	})
}
