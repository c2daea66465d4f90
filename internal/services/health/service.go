package health

import (
	"context"
	"time"
)

const checkTimeout = 2 * time.Second

// Check probes one downstream dependency.
type Check struct {
	Name  string
	Probe func(ctx context.Context) error
}

// Service encapsulates health-related checks.
type Service struct {
	checks []Check
}

// NewService constructs a new health service.
func NewService(checks ...Check) *Service {
	return &Service{checks: checks}
}

// Status runs every check and reports "ok" or the error text per dependency.
// ready is false when any check failed.
func (s *Service) Status(ctx context.Context) (status map[string]string, ready bool) {
	status = make(map[string]string, len(s.checks))
	ready = true
	for _, c := range s.checks {
		checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
		err := c.Probe(checkCtx)
		cancel()
		if err != nil {
			status[c.Name] = err.Error()
			ready = false
			continue
		}
		status[c.Name] = "ok"
	}
	return status, ready
}
