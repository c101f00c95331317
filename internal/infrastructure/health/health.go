// Package health runs named readiness probes against the ledger and its
// collaborators.
package health

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/housepoints/house-points-hub/internal/domain/ledger"
)

// ══════════════════════════════════════════════════════════════════════════════
// TYPES
// ══════════════════════════════════════════════════════════════════════════════

// CheckFunc performs one probe. A nil error means healthy. A probe still
// running when its context expires is reported as timed out.
type CheckFunc func(ctx context.Context) error

// Result is the outcome of one probe.
type Result struct {
	Name     string
	Healthy  bool
	Message  string
	Duration time.Duration
}

// Status aggregates all probe results, sorted by name.
type Status struct {
	Healthy   bool
	Message   string
	Results   []Result
	CheckedAt time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// CHECKER
// ══════════════════════════════════════════════════════════════════════════════

// Checker runs its registered probes concurrently, each under its own
// timeout.
type Checker struct {
	mu      sync.RWMutex
	checks  map[string]CheckFunc
	timeout time.Duration
	now     func() time.Time
}

// NewChecker creates a Checker with a per-probe timeout.
func NewChecker(timeout time.Duration) *Checker {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Checker{
		checks:  make(map[string]CheckFunc),
		timeout: timeout,
		now:     time.Now,
	}
}

// Add registers a probe, replacing any probe with the same name.
func (c *Checker) Add(name string, check CheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
}

// Check runs every probe and waits for all of them.
func (c *Checker) Check(ctx context.Context) Status {
	c.mu.RLock()
	checks := make(map[string]CheckFunc, len(c.checks))
	for name, check := range c.checks {
		checks[name] = check
	}
	c.mu.RUnlock()

	status := Status{Healthy: true, CheckedAt: c.now().UTC()}
	if len(checks) == 0 {
		status.Message = "no checks registered"
		return status
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results = make([]Result, 0, len(checks))
	)
	for name, check := range checks {
		wg.Add(1)
		go func(name string, check CheckFunc) {
			defer wg.Done()
			r := c.run(ctx, name, check)
			mu.Lock()
			results = append(results, r)
			mu.Unlock()
		}(name, check)
	}
	wg.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].Name < results[j].Name })
	status.Results = results

	var failed []string
	for _, r := range results {
		if !r.Healthy {
			failed = append(failed, r.Name)
		}
	}
	if len(failed) == 0 {
		status.Message = "all checks passed"
	} else {
		status.Healthy = false
		status.Message = "failing: " + strings.Join(failed, ", ")
	}
	return status
}

func (c *Checker) run(ctx context.Context, name string, check CheckFunc) Result {
	checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := c.now()
	done := make(chan error, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- errPanicked
			}
		}()
		done <- check(checkCtx)
	}()

	// A probe that ignores its context is abandoned at the deadline; the
	// buffered channel lets its goroutine finish later without blocking.
	var err error
	select {
	case err = <-done:
	case <-checkCtx.Done():
		err = checkCtx.Err()
	}

	r := Result{Name: name, Duration: c.now().Sub(start), Healthy: err == nil, Message: "OK"}
	switch {
	case err == nil:
	case errors.Is(err, context.DeadlineExceeded):
		r.Message = "timed out"
	default:
		r.Message = err.Error()
	}
	return r
}

var errPanicked = errors.New("check panicked")

// ══════════════════════════════════════════════════════════════════════════════
// PREDEFINED CHECKS
// ══════════════════════════════════════════════════════════════════════════════

// Pinger is anything with a connectivity probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingCheck wraps a Pinger.
func PingCheck(p Pinger) CheckFunc {
	return p.Ping
}

// ErrNotSetUp means the ledger has no houses or no class years yet.
var ErrNotSetUp = errors.New("competition not set up; run init")

// SeededCheck fails until houses and class years have been seeded.
func SeededCheck(r ledger.Reader) CheckFunc {
	return func(ctx context.Context) error {
		houses, err := r.ListHouses(ctx)
		if err != nil {
			return err
		}
		years, err := r.ListClassYears(ctx)
		if err != nil {
			return err
		}
		if len(houses) == 0 || len(years) == 0 {
			return ErrNotSetUp
		}
		return nil
	}
}
