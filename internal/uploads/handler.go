package uploads

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"transcript-advisor/internal/presenter"
	"transcript-advisor/internal/shared/server/middleware"
	"transcript-advisor/internal/shared/server/respond"
	"transcript-advisor/internal/submissions"
)

const (
	defaultMaxUploadBytes = 10 << 20 // 10MB
	resultsPath           = "/api/v1/results"
)

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc            *Service
	MaxUploadBytes int64
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, maxUploadBytes int64) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = defaultMaxUploadBytes
	}
	return &Handler{Svc: svc, MaxUploadBytes: maxUploadBytes}
}

// RegisterRoutes attaches upload routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/uploads", h.snapshot)
	rg.POST("/uploads/files", h.stage)
	rg.DELETE("/uploads/files/:index", h.unstage)
	rg.POST("/uploads/submit", h.submit)
	rg.POST("/uploads/reset", h.reset)
	rg.DELETE("/uploads", h.close)
	rg.GET("/uploads/history", h.history)
	rg.GET("/uploads/history/:id", h.submission)
	rg.DELETE("/session", h.endSession)
}

type snapshotResponse struct {
	Snapshot
	View *presenter.View `json:"view,omitempty"`

	// ResultsURL is set after a handoff to the standalone results view.
	ResultsURL string `json:"resultsUrl,omitempty"`
}

func withInlineView(snap Snapshot) snapshotResponse {
	resp := snapshotResponse{Snapshot: snap}
	if snap.State == StateSucceeded && snap.Envelope != nil {
		view := presenter.Present(*snap.Envelope, presenter.ModeInline)
		resp.View = &view
	}
	return resp
}

func (h *Handler) snapshot(c *gin.Context) {
	sessionID := middleware.SessionIDFromContext(c)
	respond.OK(c, withInlineView(h.Svc.Snapshot(sessionID)))
}

type stageResponse struct {
	Accepted int `json:"accepted"`
	snapshotResponse
}

func (h *Handler) stage(c *gin.Context) {
	sessionID := middleware.SessionIDFromContext(c)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUploadBytes)

	form, err := c.MultipartForm()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respond.Error(c, http.StatusRequestEntityTooLarge, "payload_too_large", "upload exceeds size limit", nil)
			return
		}
		respond.Error(c, http.StatusBadRequest, "validation_error", "multipart form is required", nil)
		return
	}

	headers := append(form.File["files"], form.File["file"]...)
	if len(headers) == 0 {
		respond.Error(c, http.StatusBadRequest, "validation_error", "files are required", nil)
		return
	}

	candidates := make([]Candidate, 0, len(headers))
	opened := make([]multipart.File, 0, len(headers))
	defer func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}()
	for _, fh := range headers {
		file, err := fh.Open()
		if err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
			return
		}
		opened = append(opened, file)
		candidates = append(candidates, Candidate{
			Name:      fh.Filename,
			MediaType: fh.Header.Get("Content-Type"),
			Content:   file,
		})
	}

	snap, accepted, err := h.Svc.Stage(c.Request.Context(), sessionID, candidates...)
	if err != nil {
		switch {
		case errors.Is(err, ErrSessionClosed):
			respond.Error(c, http.StatusConflict, "session_closed", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to stage files", nil)
		}
		return
	}

	respond.OK(c, stageResponse{Accepted: accepted, snapshotResponse: withInlineView(snap)})
}

func (h *Handler) unstage(c *gin.Context) {
	sessionID := middleware.SessionIDFromContext(c)
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "index must be an integer", nil)
		return
	}

	snap, removed := h.Svc.Unstage(c.Request.Context(), sessionID, index)
	respond.OK(c, gin.H{
		"removed":  removed,
		"snapshot": withInlineView(snap),
	})
}

func (h *Handler) submit(c *gin.Context) {
	sessionID := middleware.SessionIDFromContext(c)
	handoff, _ := strconv.ParseBool(c.Query("handoff"))

	snap, err := h.Svc.Submit(c.Request.Context(), sessionID, handoff)
	if snap.SubmissionID != "" {
		c.Set("submissionId", snap.SubmissionID)
	}
	if err != nil {
		var failed *SubmitError
		switch {
		case errors.As(err, &failed):
			c.Set("statusTransition", string(StateSubmitting)+"->"+string(StateFailed))
			respond.OK(c, withInlineView(snap))
		case errors.Is(err, ErrNothingStaged):
			respond.Error(c, http.StatusBadRequest, "validation_error", "no staged files", nil)
		case errors.Is(err, ErrSubmitInProgress):
			respond.Error(c, http.StatusConflict, "submit_in_progress", "a submission is already in progress", nil)
		case errors.Is(err, ErrSessionClosed):
			respond.Error(c, http.StatusConflict, "session_closed", "the upload session was closed", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to hand off results", nil)
		}
		return
	}

	c.Set("statusTransition", string(StateSubmitting)+"->"+string(StateSucceeded))
	resp := withInlineView(snap)
	if handoff {
		resp.ResultsURL = resultsPath
	}
	respond.OK(c, resp)
}

func (h *Handler) reset(c *gin.Context) {
	sessionID := middleware.SessionIDFromContext(c)
	respond.OK(c, withInlineView(h.Svc.Reset(sessionID)))
}

func (h *Handler) close(c *gin.Context) {
	sessionID := middleware.SessionIDFromContext(c)
	closed := h.Svc.Close(c.Request.Context(), sessionID)
	respond.OK(c, gin.H{"closed": closed})
}

func (h *Handler) endSession(c *gin.Context) {
	sessionID := middleware.SessionIDFromContext(c)
	if err := h.Svc.EndSession(c.Request.Context(), sessionID); err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to end session", nil)
		return
	}
	respond.NoContent(c)
}

func (h *Handler) history(c *gin.Context) {
	sessionID := middleware.SessionIDFromContext(c)

	limit := 20
	offset := 0

	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}
	if limit < 1 {
		limit = 1
	}
	if limit > 50 {
		limit = 50
	}

	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			offset = parsed
		}
	}
	if offset < 0 {
		offset = 0
	}

	subs, err := h.Svc.History(c.Request.Context(), sessionID, limit, offset)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list submissions", nil)
		return
	}
	respond.OK(c, gin.H{
		"submissions": subs,
		"limit":       limit,
		"offset":      offset,
	})
}

func (h *Handler) submission(c *gin.Context) {
	sessionID := middleware.SessionIDFromContext(c)
	sub, err := h.Svc.Submission(c.Request.Context(), sessionID, c.Param("id"))
	if err != nil {
		if errors.Is(err, submissions.ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "submission not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load submission", nil)
		return
	}
	respond.OK(c, sub)
}
