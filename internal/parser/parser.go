package parser

import (
	"fmt"
	"regexp"

	"github.com/pothiers/cadence/internal/model"
)

// Parser decodes one raw input line into a field observation.
// The boolean is false when the line does not match the grammar.
type Parser interface {
	Parse(line string) (model.Field, bool)
}

// DefaultPattern matches grep output of header files:
//
//	/path/to/file.hdr:FIELD = value / comment
//
// The field name may carry a leading '#' and the value stops at the first '/'.
const DefaultPattern = `^(?P<key>[^:]+):(?P<field>#?[\w-]+)\s*=\s*(?P<value>[^/]+)`

// group names every pattern must define.
var requiredGroups = []string{"key", "field", "value"}

// ---------------------------------------------------------------------------
// Grep Parser (default header grammar)
// ---------------------------------------------------------------------------

// GrepParser handles "key:field=value" lines produced by grepping header files.
type GrepParser struct {
	re *RegexParser
}

func NewGrepParser() *GrepParser {
	re, err := NewRegexParser(DefaultPattern)
	if err != nil {
		panic(err)
	}
	return &GrepParser{re: re}
}

func (p *GrepParser) Parse(line string) (model.Field, bool) {
	return p.re.Parse(line)
}

// ---------------------------------------------------------------------------
// Regex Parser (user-defined patterns)
// ---------------------------------------------------------------------------

// RegexParser uses a user-supplied regex with the named capture groups
// key, field and value.
type RegexParser struct {
	re    *regexp.Regexp
	key   int
	field int
	value int
}

func NewRegexParser(pattern string) (*RegexParser, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid regex pattern: %w", err)
	}
	p := &RegexParser{re: re}
	for _, name := range requiredGroups {
		idx := re.SubexpIndex(name)
		if idx < 0 {
			return nil, fmt.Errorf("regex pattern %q lacks named group %q", pattern, name)
		}
		switch name {
		case "key":
			p.key = idx
		case "field":
			p.field = idx
		case "value":
			p.value = idx
		}
	}
	return p, nil
}

func (p *RegexParser) Parse(line string) (model.Field, bool) {
	matches := p.re.FindStringSubmatch(line)
	if matches == nil {
		return model.Field{}, false
	}
	return model.Field{
		Key:   matches[p.key],
		Name:  matches[p.field],
		Value: matches[p.value],
	}, true
}

// New returns the parser for pattern, falling back to the grep grammar
// when pattern is empty.
func New(pattern string) (Parser, error) {
	if pattern == "" {
		return NewGrepParser(), nil
	}
	return NewRegexParser(pattern)
}
