package errors

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilderProducesClassifiedError(t *testing.T) {
	cause := stderrors.New("permission denied")
	err := FileSystemError("cannot create destination").
		WithCause(cause).
		WithContext("path", "/tmp/out").
		Build()

	assert.Equal(t, CategoryFileSystem, err.Category())
	assert.Equal(t, SeverityError, err.Severity())
	assert.Equal(t, "[filesystem] cannot create destination: permission denied", err.Error())
	assert.ErrorIs(t, err, cause)

	path, ok := err.Context().GetString("path")
	require.True(t, ok)
	assert.Equal(t, "/tmp/out", path)
}

func TestAsClassifiedThroughWrapping(t *testing.T) {
	inner := ConfigError("site.title is required").Build()
	wrapped := fmt.Errorf("load: %w", inner)

	got, ok := AsClassified(wrapped)
	require.True(t, ok)
	assert.Same(t, inner, got)
	assert.True(t, HasCategory(wrapped, CategoryConfig))
	assert.True(t, got.IsFatal())
	assert.Equal(t, CategoryInternal, GetCategory(stderrors.New("plain")))
}

func TestWithContextDoesNotMutateOriginal(t *testing.T) {
	base := ContentError("missing title").Build()
	derived := base.WithContext("file", "a.md")

	_, ok := base.Context().Get("file")
	assert.False(t, ok)
	v, ok := derived.Context().GetString("file")
	require.True(t, ok)
	assert.Equal(t, "a.md", v)
	assert.Equal(t, SeverityWarning, derived.Severity())
}

func TestExitCodes(t *testing.T) {
	a := NewCLIErrorAdapter(false, slog.New(slog.NewTextHandler(io.Discard, nil)))

	cases := map[string]struct {
		err  error
		want int
	}{
		"nil":        {nil, 0},
		"plain":      {stderrors.New("boom"), 1},
		"validation": {ValidationError("bad flag").Build(), 2},
		"config":     {ConfigError("bad config").Build(), 7},
		"template":   {TemplateError("bad template").Build(), 11},
		"filesystem": {FileSystemError("disk").Build(), 11},
		"server":     {ServerError("port in use").Build(), 12},
		"watch":      {WatchError("no paths").Build(), 12},
		"internal":   {InternalError("bug").Build(), 10},
		"cache":      {CacheError("corrupt").Build(), 1},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, a.ExitCodeFor(tc.err))
		})
	}
}

func TestHandleErrorPrintsAndExits(t *testing.T) {
	var out bytes.Buffer
	code := -1
	a := NewCLIErrorAdapter(true, slog.New(slog.NewTextHandler(io.Discard, nil)))
	a.out = &out
	a.exit = func(c int) { code = c }

	a.HandleError(ServerError("port 8080 already in use").
		WithCause(stderrors.New("address in use")).
		WithContext("port", 8080).
		Build())

	assert.Equal(t, 12, code)
	assert.Contains(t, out.String(), "Error: port 8080 already in use")
	assert.Contains(t, out.String(), "cause: address in use")
	assert.Contains(t, out.String(), "port: 8080")
}

func TestHandleErrorNilIsNoop(t *testing.T) {
	called := false
	a := NewCLIErrorAdapter(false, nil)
	a.exit = func(int) { called = true }
	a.HandleError(nil)
	assert.False(t, called)
}
