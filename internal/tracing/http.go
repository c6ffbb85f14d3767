package tracing

import (
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// untraced paths are polled by orchestrators and scrapers.
var untraced = map[string]bool{
	"/metrics":      true,
	"/health/live":  true,
	"/health/ready": true,
}

var named = map[string]bool{
	"/v1/upload":     true,
	"/v1/signed-url": true,
	"/v1/url":        true,
}

// HTTPMiddleware opens a server span per API request. Unknown paths share a
// single span name.
func HTTPMiddleware(service string) func(http.Handler) http.Handler {
	filter := func(r *http.Request) bool {
		return !untraced[r.URL.Path]
	}
	name := func(_ string, r *http.Request) string {
		if named[r.URL.Path] {
			return "HTTP " + r.Method + " " + r.URL.Path
		}
		return "HTTP " + r.Method + " other"
	}
	return func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, service,
			otelhttp.WithFilter(filter),
			otelhttp.WithSpanNameFormatter(name),
		)
	}
}
