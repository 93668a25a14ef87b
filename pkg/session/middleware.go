package session

import (
	"net/http"

	"github.com/valyala/bytebufferpool"
)

// Middleware opens the session of every request, exposes it through
// FromContext and saves it before the response is sent.
//
// The response is buffered so the credential can still be set once the
// handler returns. If the save fails the buffered response is dropped and
// the client gets a 500. Streaming handlers are buffered too: nothing reaches
// the client before the handler returns, and Flush is not forwarded.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := m.Open(r)
		ctx := NewContext(r.Context(), rec)

		bw := &bufferedWriter{ResponseWriter: w, buf: bytebufferpool.Get()}
		defer bytebufferpool.Put(bw.buf)

		next.ServeHTTP(bw, r.WithContext(ctx))

		if err := m.Save(ctx, rec, w); err != nil {
			m.logger.Error("Failed to save session",
				"session_id", rec.ID(),
				"err", err,
			)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		if bw.status != 0 {
			w.WriteHeader(bw.status)
		}
		if _, err := bw.buf.WriteTo(w); err != nil {
			m.logger.Warn("Failed to write response", "err", err)
		}
	})
}

// bufferedWriter holds the status and body until the session is saved.
// Headers go straight to the wrapped writer; they are only sent by WriteHeader.
type bufferedWriter struct {
	http.ResponseWriter
	buf    *bytebufferpool.ByteBuffer
	status int
}

func (bw *bufferedWriter) WriteHeader(statusCode int) {
	if bw.status == 0 {
		bw.status = statusCode
	}
}

func (bw *bufferedWriter) Write(b []byte) (int, error) {
	if bw.status == 0 {
		bw.status = http.StatusOK
	}
	return bw.buf.Write(b)
}

// Unwrap exposes the wrapped writer to http.ResponseController.
func (bw *bufferedWriter) Unwrap() http.ResponseWriter {
	return bw.ResponseWriter
}

var _ http.ResponseWriter = &bufferedWriter{}
