// Package health serves liveness and readiness probes for the upload API.
package health

import (
	"cmp"
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"sync"
	"time"
)

type Status string

const (
	StatusUp   Status = "up"
	StatusDown Status = "down"
)

// Probe reports whether a dependency is usable. A nil error means up.
type Probe func(ctx context.Context) error

type Result struct {
	Name      string `json:"name"`
	Status    Status `json:"status"`
	LatencyMS int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

type Report struct {
	Status    Status    `json:"status"`
	Checks    []Result  `json:"checks,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// Checker runs its probes in parallel under a shared deadline.
type Checker struct {
	timeout time.Duration
	names   []string
	probes  []Probe
}

func NewChecker(timeout time.Duration) *Checker {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Checker{timeout: timeout}
}

// Register must not be called once the checker is serving.
func (c *Checker) Register(name string, p Probe) *Checker {
	c.names = append(c.names, name)
	c.probes = append(c.probes, p)
	return c
}

// Run executes every probe and returns results ordered by name.
func (c *Checker) Run(ctx context.Context) Report {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	results := make([]Result, len(c.probes))
	var wg sync.WaitGroup
	for i, p := range c.probes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = probe(ctx, c.names[i], p)
		}()
	}
	wg.Wait()

	slices.SortFunc(results, func(a, b Result) int { return cmp.Compare(a.Name, b.Name) })

	report := Report{Status: StatusUp, Checks: results, CheckedAt: time.Now().UTC()}
	for _, r := range results {
		if r.Status == StatusDown {
			report.Status = StatusDown
		}
	}
	return report
}

func probe(ctx context.Context, name string, p Probe) Result {
	start := time.Now()
	err := p(ctx)
	r := Result{Name: name, Status: StatusUp, LatencyMS: time.Since(start).Milliseconds()}
	if err != nil {
		r.Status = StatusDown
		r.Error = err.Error()
	}
	return r
}

// LivenessHandler answers 200 while the process can serve HTTP.
func LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]Status{"status": StatusUp})
	}
}

// ReadinessHandler answers 503 when any probe is down.
func ReadinessHandler(c *Checker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := c.Run(r.Context())
		code := http.StatusOK
		if report.Status == StatusDown {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, report)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
