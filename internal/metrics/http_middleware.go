package metrics

import (
	"net/http"
	"strconv"
	"time"
)

// routes are the paths reported as-is. Everything else is folded into
// "other" so scanners cannot grow the label set.
var routes = map[string]bool{
	"/v1/upload":     true,
	"/v1/signed-url": true,
	"/v1/url":        true,
	"/health/ready":  true,
}

// Route returns the path label for a request path.
func Route(path string) string {
	if routes[path] {
		return path
	}
	return "other"
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

// HTTPMetricsMiddleware counts requests by method, route and status. Scrapes
// and liveness probes are not counted.
func HTTPMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" || r.URL.Path == "/health/live" {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		route := Route(r.URL.Path)

		HTTPRequestsInFlight.Inc()
		defer HTTPRequestsInFlight.Dec()

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		status := strconv.Itoa(rec.status)
		HTTPRequestsTotal.WithLabelValues(r.Method, route, status).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		HTTPResponseBytes.WithLabelValues(route).Add(float64(rec.bytes))
	})
}
