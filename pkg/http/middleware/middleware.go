// Package middleware wraps the metrics listener with recovery and request logging.
package middleware

import (
	"log/slog"
	"net/http"
)

type requestLog struct {
	Method     string `json:"method"`
	URI        string `json:"uri"`
	RemoteAddr string `json:"remote_addr"`
	Proto      string `json:"proto"`
}

// Recoverer logs a handler panic and answers 500 when no response was started.
// http.ErrAbortHandler is re-raised so net/http can abort the connection.
func Recoverer(log *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rw := &statusWriter{ResponseWriter: w}

		defer func() {
			rvr := recover()
			if rvr == nil {
				return
			}

			if rvr == http.ErrAbortHandler {
				panic(rvr)
			}

			log.ErrorContext(r.Context(), "http handler panic",
				slog.Any("panic", rvr), slog.String("uri", r.RequestURI))

			if rw.status == 0 {
				rw.WriteHeader(http.StatusInternalServerError)
			}
		}()

		next.ServeHTTP(rw, r)
	})
}

// Logger logs every request at debug level.
func Logger(log *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.DebugContext(r.Context(), "http request",
			slog.Any("request", requestLog{
				Method:     r.Method,
				URI:        r.RequestURI,
				RemoteAddr: r.RemoteAddr,
				Proto:      r.Proto,
			}))
		next.ServeHTTP(w, r)
	})
}

type statusWriter struct {
	http.ResponseWriter

	status int
}

func (w *statusWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}

	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}

	return w.ResponseWriter.Write(b)
}
