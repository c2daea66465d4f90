package uploads

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"transcript-advisor/internal/presenter"
	"transcript-advisor/internal/recommender"
	"transcript-advisor/internal/shared/storage/object/local"
)

const samplePayload = `{
  "recommendations": [{
    "course_code": "CS101",
    "score": 0.87,
    "course_info": {
      "course_description": "Intro",
      "liked_percentage": 80,
      "useful_percentage": 70,
      "easy_percentage": 60,
      "url": "https://x",
      "reviews": ["good", "hard"]
    }
  }],
  "extracted_courses": ["CS100"],
  "total_courses_found": 1,
  "total_recommendations": 1,
  "raw_text_length": 4200
}`

const (
	pdfType  = "application/pdf"
	docxType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

type fakeClient struct {
	mu    sync.Mutex
	calls []recommender.Document
	body  []byte
	err   error

	// entered receives once per call; gate blocks the call until closed.
	entered chan struct{}
	gate    chan struct{}
}

func (f *fakeClient) Recommend(ctx context.Context, doc recommender.Document) ([]byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, doc)
	f.mu.Unlock()
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.gate != nil {
		<-f.gate
	}
	return f.body, f.err
}

func (f *fakeClient) Health(context.Context) error { return nil }

func (f *fakeClient) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func newTestOrchestrator(t *testing.T, client recommender.Client) *Orchestrator {
	t.Helper()
	return NewOrchestrator("tab-1", local.New(t.TempDir()), client)
}

func candidate(name, mediaType string) Candidate {
	return Candidate{Name: name, MediaType: mediaType, Content: strings.NewReader("%PDF-1.4 " + name)}
}

func fileNames(snap Snapshot) []string {
	names := make([]string, 0, len(snap.Files))
	for _, f := range snap.Files {
		names = append(names, f.Name)
	}
	return names
}

func equalNames(got []string, want ...string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func TestStageKeepsOnlyPDFsInOrder(t *testing.T) {
	ctx := context.Background()
	o := newTestOrchestrator(t, &fakeClient{})

	if n, err := o.Stage(ctx, candidate("first.pdf", pdfType)); err != nil || n != 1 {
		t.Fatalf("Stage first: n=%d err=%v", n, err)
	}
	n, err := o.Stage(ctx,
		candidate("a.pdf", pdfType),
		candidate("notes.docx", docxType),
		candidate("b.pdf", "Application/PDF; charset=binary"),
		candidate("scan.png", "image/png"),
		candidate("c.pdf", ""),
	)
	if err != nil {
		t.Fatalf("Stage: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 accepted, got %d", n)
	}

	snap := o.Snapshot()
	if !equalNames(fileNames(snap), "first.pdf", "a.pdf", "b.pdf") {
		t.Fatalf("unexpected staged set %v", fileNames(snap))
	}
	if snap.State != StateIdle || snap.Error != "" {
		t.Fatalf("rejections must not change state: %+v", snap)
	}
	if snap.Files[1].SizeBytes != int64(len("%PDF-1.4 a.pdf")) {
		t.Fatalf("unexpected size %d", snap.Files[1].SizeBytes)
	}
}

func TestStageDocxLeavesSessionEmpty(t *testing.T) {
	o := newTestOrchestrator(t, &fakeClient{})
	n, err := o.Stage(context.Background(), candidate("transcript.docx", docxType))
	if err != nil || n != 0 {
		t.Fatalf("expected silent rejection, got n=%d err=%v", n, err)
	}
	snap := o.Snapshot()
	if len(snap.Files) != 0 || snap.State != StateIdle || snap.Error != "" {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}

func TestUnstage(t *testing.T) {
	ctx := context.Background()
	o := newTestOrchestrator(t, &fakeClient{})
	_, _ = o.Stage(ctx, candidate("a.pdf", pdfType), candidate("b.pdf", pdfType), candidate("c.pdf", pdfType))

	if !o.Unstage(ctx, 1) {
		t.Fatal("expected index 1 to be removed")
	}
	if got := fileNames(o.Snapshot()); !equalNames(got, "a.pdf", "c.pdf") {
		t.Fatalf("unexpected staged set %v", got)
	}

	for _, idx := range []int{-1, 2, 99} {
		if o.Unstage(ctx, idx) {
			t.Fatalf("index %d must be a no-op", idx)
		}
	}
	if got := fileNames(o.Snapshot()); !equalNames(got, "a.pdf", "c.pdf") {
		t.Fatalf("out-of-range unstage changed the set: %v", got)
	}
}

func TestSubmitTranscriptEndToEnd(t *testing.T) {
	client := &fakeClient{body: []byte(samplePayload)}
	o := newTestOrchestrator(t, client)
	ctx := context.Background()
	_, _ = o.Stage(ctx, candidate("transcript.pdf", pdfType), candidate("extra.pdf", pdfType))

	env, err := o.Submit(ctx)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if env.TotalPages != 2 || env.FilesProcessed != 1 {
		t.Fatalf("unexpected envelope header: %+v", env)
	}
	if len(env.Recommendations) != 1 {
		t.Fatalf("expected one recommendation, got %d", len(env.Recommendations))
	}
	if got := presenter.MatchLabel(env.Recommendations[0].Score); got != "87.0% Match" {
		t.Fatalf("unexpected match label %q", got)
	}

	if client.callCount() != 1 {
		t.Fatalf("expected exactly one call, got %d", client.callCount())
	}
	sent := client.calls[0]
	if sent.FileName != "transcript.pdf" || sent.ContentType != pdfType {
		t.Fatalf("only the first staged file may be sent, got %+v", sent)
	}
	if string(sent.Content) != "%PDF-1.4 transcript.pdf" {
		t.Fatalf("unexpected content %q", sent.Content)
	}

	snap := o.Snapshot()
	if snap.State != StateSucceeded || snap.Envelope == nil || len(snap.Files) != 2 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}

func TestSubmitServerErrorThenRetry(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte("server error"))
			return
		}
		_, _ = w.Write([]byte(samplePayload))
	}))
	t.Cleanup(srv.Close)

	client, err := recommender.NewHTTPClient(srv.URL, 5*time.Second)
	if err != nil {
		t.Fatalf("NewHTTPClient: %v", err)
	}
	o := newTestOrchestrator(t, client)
	ctx := context.Background()
	_, _ = o.Stage(ctx, candidate("transcript.pdf", pdfType))

	_, err = o.Submit(ctx)
	var submitErr *SubmitError
	if !errors.As(err, &submitErr) {
		t.Fatalf("expected *SubmitError, got %v", err)
	}
	var statusErr *recommender.StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected wrapped status error, got %v", err)
	}

	snap := o.Snapshot()
	if snap.State != StateFailed {
		t.Fatalf("expected failed state, got %s", snap.State)
	}
	if !strings.Contains(snap.Error, "500") || !strings.Contains(snap.Error, "server error") {
		t.Fatalf("message must carry status and body, got %q", snap.Error)
	}
	if !equalNames(fileNames(snap), "transcript.pdf") {
		t.Fatalf("failed submit must keep staged files, got %v", fileNames(snap))
	}

	fail.Store(false)
	if _, err := o.Submit(ctx); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if got := o.Snapshot(); got.State != StateSucceeded || got.Error != "" {
		t.Fatalf("unexpected snapshot after retry %+v", got)
	}
}

func TestSubmitMalformedResponseFails(t *testing.T) {
	for _, body := range []string{"<html>oops</html>", `["not", "an", "object"]`, `{"recommendations":[{"score":7}]}`} {
		o := newTestOrchestrator(t, &fakeClient{body: []byte(body)})
		_, _ = o.Stage(context.Background(), candidate("t.pdf", pdfType))
		_, err := o.Submit(context.Background())
		var submitErr *SubmitError
		if !errors.As(err, &submitErr) {
			t.Fatalf("body %q: expected *SubmitError, got %v", body, err)
		}
		if snap := o.Snapshot(); snap.State != StateFailed || snap.Error == "" {
			t.Fatalf("body %q: unexpected snapshot %+v", body, snap)
		}
	}
}

func TestSubmitPreconditions(t *testing.T) {
	o := newTestOrchestrator(t, &fakeClient{body: []byte(samplePayload)})
	if _, err := o.Submit(context.Background()); !errors.Is(err, ErrNothingStaged) {
		t.Fatalf("expected ErrNothingStaged, got %v", err)
	}
	if snap := o.Snapshot(); snap.State != StateIdle {
		t.Fatalf("precondition failure changed state to %s", snap.State)
	}
}

func TestSubmitIsNotReentrant(t *testing.T) {
	client := &fakeClient{
		body:    []byte(samplePayload),
		entered: make(chan struct{}, 1),
		gate:    make(chan struct{}),
	}
	o := newTestOrchestrator(t, client)
	ctx := context.Background()
	_, _ = o.Stage(ctx, candidate("transcript.pdf", pdfType))

	done := make(chan error, 1)
	go func() {
		_, err := o.Submit(ctx)
		done <- err
	}()
	<-client.entered

	if _, err := o.Submit(ctx); !errors.Is(err, ErrSubmitInProgress) {
		t.Fatalf("expected ErrSubmitInProgress, got %v", err)
	}
	// the session stays usable while the call is outstanding
	if n, err := o.Stage(ctx, candidate("later.pdf", pdfType)); err != nil || n != 1 {
		t.Fatalf("Stage during submit: n=%d err=%v", n, err)
	}
	o.Reset()
	if snap := o.Snapshot(); snap.State != StateSubmitting {
		t.Fatalf("Reset must not interrupt a submission, state=%s", snap.State)
	}

	close(client.gate)
	if err := <-done; err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if client.callCount() != 1 {
		t.Fatalf("expected one network call, got %d", client.callCount())
	}
}

func TestCloseDropsLateResponse(t *testing.T) {
	client := &fakeClient{
		body:    []byte(samplePayload),
		entered: make(chan struct{}, 1),
		gate:    make(chan struct{}),
	}
	o := newTestOrchestrator(t, client)
	ctx := context.Background()
	_, _ = o.Stage(ctx, candidate("transcript.pdf", pdfType))

	done := make(chan error, 1)
	go func() {
		_, err := o.Submit(ctx)
		done <- err
	}()
	<-client.entered

	o.Close(ctx)
	close(client.gate)

	if err := <-done; !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("expected ErrSessionClosed, got %v", err)
	}
	snap := o.Snapshot()
	if snap.State != StateIdle || snap.Envelope != nil || len(snap.Files) != 0 {
		t.Fatalf("late response leaked into closed session: %+v", snap)
	}
	if _, err := o.Stage(ctx, candidate("again.pdf", pdfType)); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("expected closed session to refuse staging, got %v", err)
	}
}

func TestUnstageDuringSubmitKeepsBytesUntilSettled(t *testing.T) {
	client := &fakeClient{
		body:    []byte(samplePayload),
		entered: make(chan struct{}, 1),
		gate:    make(chan struct{}),
	}
	o := newTestOrchestrator(t, client)
	ctx := context.Background()
	_, _ = o.Stage(ctx, candidate("transcript.pdf", pdfType))

	done := make(chan error, 1)
	go func() {
		_, err := o.Submit(ctx)
		done <- err
	}()
	<-client.entered

	if !o.Unstage(ctx, 0) {
		t.Fatal("expected unstage to succeed during submit")
	}
	close(client.gate)
	if err := <-done; err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if snap := o.Snapshot(); snap.State != StateSucceeded || len(snap.Files) != 0 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}

func TestResetKeepsStagedFiles(t *testing.T) {
	o := newTestOrchestrator(t, &fakeClient{err: errors.New("dial tcp: connection refused")})
	ctx := context.Background()
	_, _ = o.Stage(ctx, candidate("transcript.pdf", pdfType))
	_, _ = o.Submit(ctx)

	o.Reset()
	snap := o.Snapshot()
	if snap.State != StateIdle || snap.Error != "" {
		t.Fatalf("unexpected snapshot after reset %+v", snap)
	}
	if !equalNames(fileNames(snap), "transcript.pdf") {
		t.Fatalf("reset must keep staged files, got %v", fileNames(snap))
	}
}
