package metrics

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
)

// series is anything that can write itself in Prometheus text format.
type series interface {
	writeTo(w io.Writer)
}

type counter struct {
	name, help string
	v          atomic.Uint64
}

func (c *counter) add(n uint64) { c.v.Add(n) }

func (c *counter) writeTo(w io.Writer) {
	fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s counter\n%s %d\n", c.name, c.help, c.name, c.name, c.v.Load())
}

// histogram keeps cumulative bucket counts.
type histogram struct {
	name, help string

	mu     sync.Mutex
	bounds []float64
	le     []uint64
	sum    float64
	count  uint64
}

func (h *histogram) observe(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += v
	for i, b := range h.bounds {
		if v <= b {
			h.le[i]++
		}
	}
}

func (h *histogram) writeTo(w io.Writer) {
	h.mu.Lock()
	le := append([]uint64(nil), h.le...)
	sum, count := h.sum, h.count
	h.mu.Unlock()

	fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s histogram\n", h.name, h.help, h.name)
	for i, b := range h.bounds {
		fmt.Fprintf(w, "%s_bucket{le=%q} %d\n", h.name, formatFloat(b), le[i])
	}
	fmt.Fprintf(w, "%s_bucket{le=\"+Inf\"} %d\n", h.name, count)
	fmt.Fprintf(w, "%s_sum %s\n%s_count %d\n", h.name, formatFloat(sum), h.name, count)
}

var registry []series

func newCounter(name, help string) *counter {
	c := &counter{name: name, help: help}
	registry = append(registry, c)
	return c
}

func newHistogram(name, help string, bounds ...float64) *histogram {
	h := &histogram{name: name, help: help, bounds: bounds, le: make([]uint64, len(bounds))}
	registry = append(registry, h)
	return h
}

var (
	submissionsStarted   = newCounter("submission_started_total", "Total submissions started")
	submissionsSucceeded = newCounter("submission_succeeded_total", "Total submissions succeeded")
	submissionsFailed    = newCounter("submission_failed_total", "Total submissions failed")
	filesRejected        = newCounter("upload_files_rejected_total", "Total candidate files rejected at staging")
	handoffs             = newCounter("transfer_handoffs_total", "Total envelopes handed to the results view")
	panicsRecovered      = newCounter("http_panics_recovered_total", "Total handler panics recovered")

	submissionDuration = newHistogram("submission_duration_ms", "Submission round trip in milliseconds",
		100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000, 120000)
)

func IncSubmissionStarted()   { submissionsStarted.add(1) }
func IncSubmissionSucceeded() { submissionsSucceeded.add(1) }
func IncSubmissionFailed()    { submissionsFailed.add(1) }

// IncHandoff counts envelopes placed on the transfer channel.
func IncHandoff() { handoffs.add(1) }

// IncPanicRecovered counts handler panics turned into 500 responses.
func IncPanicRecovered() { panicsRecovered.add(1) }

// AddFilesRejected counts candidates refused at staging time.
func AddFilesRejected(n int) {
	if n > 0 {
		filesRejected.add(uint64(n))
	}
}

// ObserveSubmissionDuration records a submission round trip.
func ObserveSubmissionDuration(d time.Duration) {
	submissionDuration.observe(max(0, float64(d)/float64(time.Millisecond)))
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders all registered series.
func Render() string {
	var b strings.Builder
	for _, s := range registry {
		s.writeTo(&b)
	}
	return b.String()
}

func formatFloat(v float64) string {
	if v == float64(int64(v)) {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
