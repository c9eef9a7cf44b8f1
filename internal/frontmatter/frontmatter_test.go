package frontmatter

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit_NoFrontmatter_ReturnsBodyOnly(t *testing.T) {
	input := []byte("# Title\n\nHello\n")

	fm, body, had, err := Split(input)
	require.NoError(t, err)
	require.False(t, had)
	require.Empty(t, fm)
	require.Equal(t, input, body)
}

func TestSplit_YAMLFrontmatter_SplitsFrontmatterAndBody(t *testing.T) {
	fm, body, had, err := Split([]byte("---\nkey: value\n---\n# Title\n"))
	require.NoError(t, err)
	require.True(t, had)
	require.Equal(t, []byte("key: value\n"), fm)
	require.Equal(t, []byte("# Title\n"), body)
}

func TestSplit_MissingClosingDelimiter_ReturnsError(t *testing.T) {
	_, _, had, err := Split([]byte("---\nkey: value\n# Title\n"))
	require.Error(t, err)
	require.False(t, had)
	require.True(t, errors.Is(err, ErrMissingClosingDelimiter))
}

func TestSplit_CRLF_SplitsFrontmatterAndBody(t *testing.T) {
	fm, body, had, err := Split([]byte("---\r\nkey: value\r\n---\r\n# Title\r\n"))
	require.NoError(t, err)
	require.True(t, had)
	require.Equal(t, []byte("key: value\r\n"), fm)
	require.Equal(t, []byte("# Title\r\n"), body)
}

func TestSplit_EmptyFrontmatterBlock(t *testing.T) {
	fm, body, had, err := Split([]byte("---\n---\n# Title\n"))
	require.NoError(t, err)
	require.True(t, had)
	require.Empty(t, fm)
	require.Equal(t, []byte("# Title\n"), body)
}

func TestSplit_ClosingDelimiterAtEOF(t *testing.T) {
	fm, body, had, err := Split([]byte("---\ntitle: Only\n---"))
	require.NoError(t, err)
	require.True(t, had)
	require.Equal(t, []byte("title: Only\n"), fm)
	require.Empty(t, body)
}

func TestParse_DecodesAttributes(t *testing.T) {
	doc, err := Parse([]byte("---\ntitle: Hello\ntags: [go, web]\ncategories: tools\ndraft: true\ndate: 2024-03-01\n---\nBody text\n"))
	require.NoError(t, err)

	assert.Equal(t, "Hello", doc.Attributes.String("title"))
	assert.Equal(t, []string{"go", "web"}, doc.Attributes.Strings("tags"))
	assert.Equal(t, []string{"tools"}, doc.Attributes.Strings("categories"))
	assert.Equal(t, []string{}, doc.Attributes.Strings("missing"))
	assert.True(t, doc.Attributes.Bool("draft"))
	assert.Equal(t, "Body text\n", doc.Body)

	date, ok := doc.Attributes.Time("date")
	require.True(t, ok)
	assert.Equal(t, 2024, date.Year())
	assert.Equal(t, time.March, date.Month())
}

func TestParse_MalformedYAML(t *testing.T) {
	_, err := Parse([]byte("---\ntitle: [unclosed\n---\nbody\n"))
	require.Error(t, err)
}

func TestAttributes_TimeFormats(t *testing.T) {
	attrs := Attributes{
		"a": "2024-01-02",
		"b": "2024-01-02 10:30:00",
		"c": "2024-01-02T10:30:00Z",
		"d": "next tuesday",
	}
	for _, key := range []string{"a", "b", "c"} {
		_, ok := attrs.Time(key)
		assert.True(t, ok, key)
	}
	_, ok := attrs.Time("d")
	assert.False(t, ok)
	_, ok = attrs.Time("missing")
	assert.False(t, ok)
}

func TestSplit_LeadingBOM(t *testing.T) {
	input := []byte("\uFEFF---\ntitle: Marked\n---\nBody\n")

	fm, body, had, err := Split(input)
	require.NoError(t, err)
	require.True(t, had)
	require.Equal(t, []byte("title: Marked\n"), fm)
	require.Equal(t, []byte("Body\n"), body)
}

func TestAttributes_StringsScalarIsOneElement(t *testing.T) {
	doc, err := Parse([]byte("---\ntags: \"Hello, World\"\ncategories: 42\n---\n"))
	require.NoError(t, err)

	assert.Equal(t, []string{"Hello, World"}, doc.Attributes.Strings("tags"))
	assert.Equal(t, []string{"42"}, doc.Attributes.Strings("categories"))
}

func TestParse_DatesResolveInLocalTime(t *testing.T) {
	doc, err := Parse([]byte("---\nplain: 2024-01-01\nquoted: \"2024-01-01\"\nclock: 2024-01-01 10:30:00\noffset: 2024-01-01T10:30:00+02:00\nnested:\n  when: 2024-01-01\n---\n"))
	require.NoError(t, err)

	plain, ok := doc.Attributes.Time("plain")
	require.True(t, ok)
	quoted, ok := doc.Attributes.Time("quoted")
	require.True(t, ok)
	assert.True(t, plain.Equal(quoted))
	assert.Equal(t, time.Local, plain.Location())
	assert.True(t, plain.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.Local)))

	clock, ok := doc.Attributes.Time("clock")
	require.True(t, ok)
	assert.True(t, clock.Equal(time.Date(2024, 1, 1, 10, 30, 0, 0, time.Local)))

	offset, ok := doc.Attributes.Time("offset")
	require.True(t, ok)
	assert.True(t, offset.Equal(time.Date(2024, 1, 1, 8, 30, 0, 0, time.UTC)))

	nested, ok := doc.Attributes["nested"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "2024-01-01", nested["when"])
}
