// Package middleware wraps dev server page handlers with access logging and
// panic recovery.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	foundationerrors "git.home.luguber.info/inful/marksite/internal/foundation/errors"
	"git.home.luguber.info/inful/marksite/internal/logfields"
)

// Chain wraps a page handler: requests are logged, panics become a 500.
func Chain(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return accessLog(logger, recoverPanics(logger, next))
	}
}

// levelFor keeps routine page hits at debug. A missing page is worth seeing
// while writing (usually a broken link), a server error more so.
func levelFor(status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelWarn
	case status == http.StatusNotFound:
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}

func accessLog(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &recorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)

		msg := "Served page"
		if rec.status() == http.StatusNotFound {
			msg = "Page not found"
		}
		logger.LogAttrs(r.Context(), levelFor(rec.status()), msg,
			logfields.Method(r.Method),
			logfields.Path(r.URL.Path),
			logfields.Status(rec.status()),
			slog.Int64("bytes", rec.bytes),
			logfields.Since(start))
	})
}

func recoverPanics(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			err := foundationerrors.InternalError("page handler panic").
				WithContext("path", r.URL.Path).
				WithContext("panic", rec).
				Build()
			logger.LogAttrs(context.Background(), slog.LevelError, "Page handler panicked",
				logfields.Path(r.URL.Path), logfields.Error(err))
			// A response that already started cannot be turned into a 500.
			if rw, ok := w.(*recorder); ok && rw.code != 0 {
				return
			}
			http.Error(w, "internal server error", http.StatusInternalServerError)
		}()
		next.ServeHTTP(w, r)
	})
}

// recorder captures the status code and body size of a response.
type recorder struct {
	http.ResponseWriter
	code  int
	bytes int64
}

func (rw *recorder) status() int {
	if rw.code == 0 {
		return http.StatusOK
	}
	return rw.code
}

func (rw *recorder) WriteHeader(code int) {
	if rw.code == 0 {
		rw.code = code
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *recorder) Write(p []byte) (int, error) {
	if rw.code == 0 {
		rw.code = http.StatusOK
	}
	n, err := rw.ResponseWriter.Write(p)
	rw.bytes += int64(n)
	return n, err
}

func (rw *recorder) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
