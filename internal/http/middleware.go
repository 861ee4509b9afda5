package http

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"posledger/internal/log"
)

const requestIDHeader = "X-Request-ID"

var validRequestID = regexp.MustCompile(`^[A-Za-z0-9_\-]{1,64}$`)

// generateRequestID creates a unique request ID for tracing.
func generateRequestID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(b)
}

// requestID reuses a well-formed incoming X-Request-ID or makes a new one.
func requestID(r *http.Request) string {
	if id := r.Header.Get(requestIDHeader); validRequestID.MatchString(id) {
		return id
	}
	return generateRequestID()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// requestLogging attaches a request-scoped logger and logs each completed
// request with its status and duration.
func requestLogging(logger *log.Logger) func(http.Handler) http.Handler {
	structured := log.NewStructuredLogger(logger)
	withRequestID := log.RequestIDMiddleware(func(r *http.Request) string {
		return r.Header.Get(requestIDHeader)
	})

	return func(next http.Handler) http.Handler {
		logged := log.Middleware(logger)(withRequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			structured.LogHTTPEnd(r.Context(), r, rec.status, time.Since(start).Milliseconds(), extractClientIP(r))
		})))

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := requestID(r)
			r.Header.Set(requestIDHeader, id)
			w.Header().Set(requestIDHeader, id)
			logged.ServeHTTP(w, r)
		})
	}
}
