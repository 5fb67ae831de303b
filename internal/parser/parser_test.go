package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGrepParserFilesize(t *testing.T) {
	p := NewGrepParser()

	f, ok := p.Parse("/a/b/c/20140101/x/f1.hdr:#filesize= 2000000 /")
	require.True(t, ok)

	assert.Equal(t, "/a/b/c/20140101/x/f1.hdr", f.Key)
	assert.Equal(t, "#filesize", f.Name)
	// Value is left untrimmed for the reconciler.
	assert.Equal(t, "2000000 ", f.Value)
}

func TestGrepParserDateObs(t *testing.T) {
	p := NewGrepParser()

	f, ok := p.Parse("/a/b/c/20140101/x/f1.hdr:DATE-OBS='2014-01-01T10:00:00'")
	require.True(t, ok)

	assert.Equal(t, "DATE-OBS", f.Name)
	assert.Equal(t, "'2014-01-01T10:00:00'", f.Value)
}

func TestGrepParserStopsAtComment(t *testing.T) {
	p := NewGrepParser()

	f, ok := p.Parse("/m/20141230/k4m/f.hdr:TIME-OBS= '09:30:00.5'  / time of obs")
	require.True(t, ok)

	assert.Equal(t, "TIME-OBS", f.Name)
	assert.Equal(t, "'09:30:00.5'  ", f.Value)
}

func TestGrepParserNoMatch(t *testing.T) {
	p := NewGrepParser()

	for _, line := range []string{"garbage text", "", "/a/b.hdr:", "/a/b.hdr:DATE-OBS"} {
		_, ok := p.Parse(line)
		assert.False(t, ok, "line %q should not parse", line)
	}
}

func TestRegexParser(t *testing.T) {
	p, err := NewRegexParser(`^(?P<key>\S+) (?P<field>\S+) (?P<value>.+)$`)
	require.NoError(t, err)

	f, ok := p.Parse("/x/y.hdr DATE 2014-01-01T00:00:00")
	require.True(t, ok)
	assert.Equal(t, "/x/y.hdr", f.Key)
	assert.Equal(t, "DATE", f.Name)
	assert.Equal(t, "2014-01-01T00:00:00", f.Value)
}

func TestRegexParserInvalidPattern(t *testing.T) {
	_, err := NewRegexParser(`[invalid`)
	assert.Error(t, err)
}

func TestRegexParserMissingGroup(t *testing.T) {
	_, err := NewRegexParser(`^(?P<key>\S+) (?P<field>\S+)`)
	assert.ErrorContains(t, err, `"value"`)
}

func TestNewFallsBackToGrep(t *testing.T) {
	p, err := New("")
	require.NoError(t, err)
	assert.IsType(t, &GrepParser{}, p)
}
