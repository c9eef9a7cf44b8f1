package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func debugLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func serve(h http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestChainLogsStatusAndSize(t *testing.T) {
	var buf bytes.Buffer
	h := Chain(debugLogger(&buf))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("hello"))
	}))

	rec := serve(h, "/about/")
	assert.Equal(t, http.StatusOK, rec.Code)

	out := buf.String()
	assert.Contains(t, out, "level=DEBUG")
	assert.Contains(t, out, "status=200")
	assert.Contains(t, out, "bytes=5")
	assert.Contains(t, out, "path=/about/")
	assert.NotContains(t, out, "remote_addr")
}

func TestChainLogsMissingPagesAtInfo(t *testing.T) {
	var buf bytes.Buffer
	h := Chain(debugLogger(&buf))(http.NotFoundHandler())

	rec := serve(h, "/nope/")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, buf.String(), `level=INFO msg="Page not found"`)
}

func TestChainRecoversPanics(t *testing.T) {
	var buf bytes.Buffer
	h := Chain(debugLogger(&buf))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := serve(h, "/")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, buf.String(), "Page handler panicked")
	assert.Contains(t, buf.String(), "level=WARN")
}

func TestChainPanicAfterWriteKeepsResponse(t *testing.T) {
	var buf bytes.Buffer
	h := Chain(debugLogger(&buf))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("partial"))
		panic("late")
	}))

	rec := serve(h, "/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "partial", rec.Body.String())
}

func TestChainPreservesFlusher(t *testing.T) {
	h := Chain(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, ok := w.(http.Flusher)
		assert.True(t, ok)
	}))
	serve(h, "/")
}
