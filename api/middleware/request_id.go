package middleware

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/oklog/ulid/v2"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const (
	requestIDHeader = "X-Request-Id"
	// set by Google front ends as TRACE_ID/SPAN_ID;o=OPTIONS
	cloudTraceHeader = "X-Cloud-Trace-Context"
)

var (
	validRequestID = regexp.MustCompile(`^[A-Za-z0-9._-]{8,64}$`)
	validTraceID   = regexp.MustCompile(`^[0-9a-f]{32}$`)
)

// requestID picks the caller's X-Request-Id, then the load balancer trace
// id, then a fresh ULID.
func requestID(r *http.Request) string {
	if id := r.Header.Get(requestIDHeader); validRequestID.MatchString(id) {
		return id
	}
	trace, _, _ := strings.Cut(r.Header.Get(cloudTraceHeader), "/")
	if validTraceID.MatchString(trace) {
		return trace
	}
	return ulid.Make().String()
}

// RequestID echoes the request id in the response and on every log line
// written for the request.
func RequestID(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := requestID(r)
			w.Header().Set(requestIDHeader, id)
			next.ServeHTTP(w, r.WithContext(logg.WithRequestID(r.Context(), id)))
		})
	}
}
