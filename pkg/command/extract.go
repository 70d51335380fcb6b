package command

import (
	"strings"
	"unicode"
)

// Result is the outcome of matching a line against a Command
type Result int

// Extraction results
const (
	// NoMatch means the line is for some other command
	NoMatch Result = iota
	// MissingRequired means the command matched but nothing followed it
	// and a required argument exists. Callers usually show the help text.
	MissingRequired
	// Matched means arguments were extracted
	Matched
)

func (r Result) String() string {
	switch r {
	case NoMatch:
		return "no match"
	case MissingRequired:
		return "missing required"
	case Matched:
		return "matched"
	}
	return "unknown"
}

// Args maps argument keys to the text bound to them. Slots that bound
// nothing are absent.
type Args map[string]string

// NonEmpty returns the value bound to key if it has any content
func (a Args) NonEmpty(key string) (string, bool) {
	v, ok := a[key]
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// Extract matches input against the command. The name is matched as a
// plain prefix, so "foo" also matches "foobar". Arguments are split on
// single spaces; a flexible slot takes the rest of the line and text past
// the last slot is dropped.
func (c *Command) Extract(input string) (Args, Result) {
	input = strings.TrimPrefix(input, c.leader)
	if !strings.HasPrefix(input, c.name) {
		return nil, NoMatch
	}
	rest := strings.TrimLeftFunc(input[len(c.name):], unicode.IsSpace)
	if rest == "" && c.requires() {
		return nil, MissingRequired
	}

	args := make(Args, len(c.args))
	for _, arg := range c.args {
		next := strings.IndexByte(rest, ' ')
		if arg.Kind == Flexible || next < 0 {
			if rest != "" {
				args[arg.Key] = rest
			}
			break
		}
		// a doubled space consumes the slot without binding it
		if next > 0 {
			args[arg.Key] = rest[:next]
		}
		rest = rest[next+1:]
	}
	return args, Matched
}
