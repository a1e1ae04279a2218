package health

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Checker is a function that checks the health of a dependency.
type Checker func(ctx context.Context) error

// Status represents the health status of a component.
type Status string

const (
	StatusUp       Status = "up"
	StatusDown     Status = "down"
	StatusDegraded Status = "degraded"
)

// Report is the outcome of running every registered check.
type Report struct {
	Status    Status                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// CheckResult is the result of a single health check.
type CheckResult struct {
	Status   Status        `json:"status"`
	Critical bool          `json:"critical"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

type entry struct {
	check    Checker
	critical bool
}

// Registry holds named dependency checks. A failing critical check makes
// the report down; a failing non-critical one only degrades it.
type Registry struct {
	mu       sync.RWMutex
	checkers map[string]entry
	timeout  time.Duration
}

// NewRegistry creates a Registry whose checks share the given timeout.
func NewRegistry(timeout time.Duration) *Registry {
	return &Registry{
		checkers: make(map[string]entry),
		timeout:  timeout,
	}
}

// RegisterCritical adds a check the console cannot work without.
func (r *Registry) RegisterCritical(name string, checker Checker) {
	r.register(name, checker, true)
}

// RegisterNonCritical adds a check whose failure is reported but tolerated.
func (r *Registry) RegisterNonCritical(name string, checker Checker) {
	r.register(name, checker, false)
}

func (r *Registry) register(name string, checker Checker, critical bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checkers[name] = entry{check: checker, critical: critical}
}

// Names returns the registered check names in order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.checkers))
	for name := range r.checkers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Check runs all registered checks concurrently and aggregates them.
func (r *Registry) Check(ctx context.Context) Report {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	r.mu.RLock()
	checkers := make(map[string]entry, len(r.checkers))
	for k, v := range r.checkers {
		checkers[k] = v
	}
	r.mu.RUnlock()

	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		checks = make(map[string]CheckResult, len(checkers))
	)
	for name, e := range checkers {
		wg.Add(1)
		go func(name string, e entry) {
			defer wg.Done()
			start := time.Now()
			res := CheckResult{Status: StatusUp, Critical: e.critical}
			if err := e.check(ctx); err != nil {
				res.Status = StatusDown
				res.Error = err.Error()
			}
			res.Duration = time.Since(start)

			mu.Lock()
			checks[name] = res
			mu.Unlock()
		}(name, e)
	}
	wg.Wait()

	overall := StatusUp
	for _, res := range checks {
		if res.Status != StatusDown {
			continue
		}
		if res.Critical {
			overall = StatusDown
			break
		}
		overall = StatusDegraded
	}

	return Report{
		Status:    overall,
		Timestamp: time.Now().UTC(),
		Checks:    checks,
	}
}
