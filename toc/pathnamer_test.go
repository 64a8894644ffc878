package toc

import (
	"strings"
	"testing"

	"github.com/mwantia/fdb/data"
	"github.com/mwantia/fdb/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustNamer(t *testing.T, expr, template string) *PathNamer {
	t.Helper()
	p, err := NewPathNamer(expr, template)
	require.NoError(t, err)
	return p
}

func TestPathNamer_Name(t *testing.T) {
	p := mustNamer(t, "a,b", "{a}/{b}")

	name, err := p.Name(data.NewKey("a", "x", "b", "y"))
	require.NoError(t, err)
	assert.Equal(t, "x/y", name)
}

func TestPathNamer_TemplateErrors(t *testing.T) {
	key := data.NewKey("a", "x", "b", "y")

	tests := []struct {
		template string
		message  string
	}{
		{"{a}/{c}", "cannot find a value for 'c'"},
		{"{a{b}}", "unexpected '{' at position 2"},
		{"a}/{b}", "unexpected '}' at position 1"},
		{"{a}/{b", "missing '}'"},
	}

	for _, tt := range tests {
		t.Run(tt.template, func(t *testing.T) {
			_, err := mustNamer(t, "a,b", tt.template).Name(key)
			require.ErrorIs(t, err, data.ErrConfiguration)
			assert.Contains(t, err.Error(), tt.message)
			assert.Contains(t, err.Error(), tt.template)
		})
	}
}

func TestPathNamer_MatchNeedsExactKeywordSet(t *testing.T) {
	p := mustNamer(t, "class=od,stream", "{class}-{stream}")

	assert.True(t, p.Match(data.NewKey("stream", "oper", "class", "od"), ""))
	assert.False(t, p.Match(data.NewKey("class", "od"), ""))
	assert.False(t, p.Match(data.NewKey("class", "od", "stream", "oper", "date", "1"), ""))
	assert.False(t, p.Match(data.NewKey("class", "rd", "stream", "oper"), ""))
	assert.True(t, p.Match(data.NewKey("class", "*", "stream", "oper"), "*"))
}

func TestPathNamer_NamePartial(t *testing.T) {
	p := mustNamer(t, "a=fixed,b", "{a}/{b}")

	name, err := p.NamePartial(data.NewKey("a", "*", "b", "y"), "*")
	require.NoError(t, err)
	assert.Equal(t, "fixed/y", name)

	_, err = p.NamePartial(data.NewKey("a", "fixed", "b", "*"), "*")
	assert.ErrorIs(t, err, data.ErrNotLiteral)
}

func TestPathNamer_NamePattern(t *testing.T) {
	p := mustNamer(t, "a=fixed,b=[0-9]+", "db.{a}/{b}")

	pattern, err := p.NamePattern(data.NewKey("a", "fixed", "b", "*"), "*")
	require.NoError(t, err)
	assert.Equal(t, `db\.fixed/(?:[0-9]+)`, pattern)

	pattern, err = p.NamePattern(data.NewKey("a", "*", "b", "12"), "*")
	require.NoError(t, err)
	assert.Equal(t, `db\.(?:fixed)/12`, pattern)
}

func TestPathNamers_ResolvePatternsKeepsExpressionRules(t *testing.T) {
	table := PathNamers{mustNamer(t, "class=od,expver", "{class}/{expver}")}
	key := data.NewKey("class", "od", "expver", "*")

	// the expver expression is not a literal, so no partial name exists
	names, err := table.ResolvePartial(key, "*")
	require.NoError(t, err)
	assert.Equal(t, []string{"od:*"}, names)

	patterns, err := table.ResolvePatterns(key, "*")
	require.NoError(t, err)
	assert.Equal(t, []string{"od/(?:.*)", "od:[^/]*"}, patterns)
}

func TestPathNamers_ResolveFallsBackToCanonical(t *testing.T) {
	table := PathNamers{mustNamer(t, "a=1,b", "one/{b}")}

	name, err := table.Resolve(data.NewKey("a", "1", "b", "y"))
	require.NoError(t, err)
	assert.Equal(t, "one/y", name)

	name, err = table.Resolve(data.NewKey("a", "2", "b", "y"))
	require.NoError(t, err)
	assert.Equal(t, "2:y", name)
}

func TestPathNamers_ResolvePartial(t *testing.T) {
	table := PathNamers{
		mustNamer(t, "a=fixed,b", "lit/{a}/{b}"),
		mustNamer(t, "a=x|y,b", "alt/{a}/{b}"),
	}

	names, err := table.ResolvePartial(data.NewKey("a", "*", "b", "v"), "*")
	require.NoError(t, err)
	assert.Equal(t, []string{"lit/fixed/v", "*:v"}, names)
}

func TestParsePathNamers(t *testing.T) {
	input := `
# comment
class=od,stream=oper   {class}/{stream}
this line is broken
class=rd,expver        rd-{expver}
`
	var buf strings.Builder
	logger := log.NewWriterLogger("test", log.Warn, &buf)

	table, err := ParsePathNamers(strings.NewReader(input), "dbnames", logger)
	require.NoError(t, err)
	require.Len(t, table, 2)
	assert.Contains(t, buf.String(), "Invalid line ignored in dbnames: this line is broken")

	_, err = ParsePathNamers(strings.NewReader("a=( {a}\n"), "dbnames", logger)
	assert.ErrorIs(t, err, data.ErrConfiguration)
}
