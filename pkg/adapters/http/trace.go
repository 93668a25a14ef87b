package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// RequestIDHeader carries the request trace id.
const RequestIDHeader = "X-Request-Id"

// Trace tags every request with a trace id, taken from Header when the
// client sent one, and logs it once the request is done.
type Trace struct {
	Header string
	Logger *slog.Logger
}

// Wrap returns a Handler that traces the request and calls next.
func (t Trace) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t0 := time.Now()

		var tID string
		if t.Header != "" {
			tID = r.Header.Get(t.Header)
		}
		if tID == "" {
			tID = uuid.New().String()
		}
		if t.Header != "" {
			w.Header().Set(t.Header, tID)
		}

		sw := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(sw, r)

		if t.Logger != nil {
			t.Logger.Debug("Processed HTTP request",
				"request_id", tID,
				"method", r.Method,
				"uri", r.RequestURI,
				"status", sw.status,
				"duration", time.Since(t0),
			)
		}
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(statusCode int) {
	if sr.status == 0 {
		sr.status = statusCode
	}
	sr.ResponseWriter.WriteHeader(statusCode)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.status == 0 {
		sr.status = http.StatusOK
	}
	return sr.ResponseWriter.Write(b)
}

// Unwrap exposes the wrapped writer to http.ResponseController.
func (sr *statusRecorder) Unwrap() http.ResponseWriter {
	return sr.ResponseWriter
}

var _ http.ResponseWriter = &statusRecorder{}
