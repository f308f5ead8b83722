// Response writer plumbing for the RateLimit headers.

package ratelimit

import (
	"net/http"
	"strconv"
)

// WriteHeaders writes the rate limit headers for a check result. They go
// out on every limited route, allowed or denied.
func WriteHeaders(w http.ResponseWriter, result Result) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
	if !result.Allowed {
		// Retry-After accompanies the 429 only.
		w.Header().Set("Retry-After", strconv.Itoa(int(result.RetryAfter.Seconds())))
	}
}

// responseWriter injects the rate limit headers right before the first
// byte or status code is written, whichever comes first.
type responseWriter struct {
	http.ResponseWriter
	result      Result
	wroteHeader bool
}

// NewResponseWriter wraps w so the rate limit headers for result are
// injected on first write.
func NewResponseWriter(w http.ResponseWriter, result Result) *responseWriter {
	return &responseWriter{ResponseWriter: w, result: result}
}

func (rw *responseWriter) ensureHeaders() {
	if !rw.wroteHeader {
		WriteHeaders(rw.ResponseWriter, rw.result)
		rw.wroteHeader = true
	}
}

func (rw *responseWriter) WriteHeader(statusCode int) {
	rw.ensureHeaders()
	rw.ResponseWriter.WriteHeader(statusCode)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.ensureHeaders()
	return rw.ResponseWriter.Write(b)
}

// Unwrap exposes the underlying ResponseWriter to http.ResponseController.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// BuildKey forms the bucket key for a scope, identifier and tier name.
func BuildKey(scope Scope, identifier, tierName string) string {
	prefix := "unknown"
	switch scope {
	case ScopeIP:
		prefix = "ip"
	case ScopeUser:
		prefix = "user"
	}
	return prefix + ":" + identifier + ":" + tierName
}
