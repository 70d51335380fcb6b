// Package command compiles usage strings such as "!hello <name> <other?> <rest...>"
// into command definitions and extracts arguments from chat lines with them.
package command

import (
	"strings"
	"unicode"
)

// DefaultLeader marks a line as a command invocation
const DefaultLeader = '!'

// Kind is the cardinality of an argument slot
type Kind int

// Slot kinds
const (
	// Required must bind a value
	Required Kind = iota
	// Optional may bind nothing
	Optional
	// Flexible binds all remaining text, spaces included
	Flexible
)

func (k Kind) String() string {
	switch k {
	case Required:
		return "required"
	case Optional:
		return "optional"
	case Flexible:
		return "flexible"
	}
	return "unknown"
}

// Arg is one declared argument slot
type Arg struct {
	Key  string
	Kind Kind
}

// Command is an immutable, validated command definition
type Command struct {
	name     string
	help     string
	leader   string
	args     []Arg
	elevated bool
}

// Option configures New
type Option func(*Command)

// WithLeader overrides the leader character
func WithLeader(leader rune) Option {
	return func(c *Command) { c.leader = string(leader) }
}

// Elevated marks the command as requiring elevated privileges
func Elevated() Option {
	return func(c *Command) { c.elevated = true }
}

// New parses a usage string into a Command
func New(help string, opts ...Option) (*Command, error) {
	c := &Command{
		help:   help,
		leader: string(DefaultLeader),
	}
	for _, opt := range opts {
		opt(c)
	}
	if err := c.parse(); err != nil {
		return nil, err
	}
	return c, nil
}

// MustNew is like New but panics on error
func MustNew(help string, opts ...Option) *Command {
	c, err := New(help, opts...)
	if err != nil {
		panic("command: " + help + ": " + err.Error())
	}
	return c
}

func (c *Command) parse() error {
	parts := splitTerminator(strings.TrimPrefix(c.help, c.leader), " ")
	if len(parts) == 0 || parts[0] == "" {
		return ErrNoCommand
	}

	seen := make(map[string]struct{})
	var args []Arg
	for _, part := range parts[1:] {
		key, ok := trimBrackets(part)
		if !ok {
			continue
		}

		kind := Required
		switch {
		case strings.HasSuffix(key, "?"):
			key, kind = strings.TrimRight(key, "?"), Optional
		case strings.HasSuffix(key, "..."):
			key, kind = trimSuffixes(key, "..."), Flexible
		}

		if !isAlphanumeric(key) {
			return ErrInvalidCharacters
		}
		if _, dup := seen[key]; dup {
			return &Error{Kind: DuplicateKey, Key: key}
		}
		seen[key] = struct{}{}

		switch kind {
		case Required:
			if containsKind(args, Optional, Flexible) {
				return ErrRequiredInTail
			}
		case Optional:
			if containsKind(args, Flexible) {
				return ErrOptionalAfterFlex
			}
		case Flexible:
			if containsKind(args, Flexible) {
				return ErrMultipleFlexible
			}
		}
		args = append(args, Arg{Key: key, Kind: kind})
	}

	c.name = parts[0]
	c.args = args
	return nil
}

// Name is the word that follows the leader
func (c *Command) Name() string { return c.name }

// Help is the usage string the command was built from
func (c *Command) Help() string { return c.help }

// Leader is the prefix the command expects
func (c *Command) Leader() string { return c.leader }

// Elevated reports whether the command requires elevated privileges
func (c *Command) Elevated() bool { return c.elevated }

// Args returns a copy of the argument slots in declared order
func (c *Command) Args() []Arg {
	out := make([]Arg, len(c.args))
	copy(out, c.args)
	return out
}

// String returns the usage string
func (c *Command) String() string { return c.help }

// Equal reports whether both commands were built from the same usage string
func (c *Command) Equal(other *Command) bool {
	if c == nil || other == nil {
		return c == other
	}
	return c.help == other.help
}

func (c *Command) requires() bool {
	return containsKind(c.args, Required)
}

// splitTerminator splits s on sep, dropping a single trailing empty piece
func splitTerminator(s, sep string) []string {
	parts := strings.Split(s, sep)
	if n := len(parts); n > 0 && parts[n-1] == "" {
		parts = parts[:n-1]
	}
	return parts
}

// trimBrackets strips every leading '<' and trailing '>', so "<<a>>" is "a"
func trimBrackets(s string) (string, bool) {
	if !strings.HasPrefix(s, "<") || !strings.HasSuffix(s, ">") {
		return "", false
	}
	return strings.TrimRight(strings.TrimLeft(s, "<"), ">"), true
}

// trimSuffixes removes every trailing repetition of suffix
func trimSuffixes(s, suffix string) string {
	for strings.HasSuffix(s, suffix) {
		s = strings.TrimSuffix(s, suffix)
	}
	return s
}

func isAlphanumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func containsKind(args []Arg, kinds ...Kind) bool {
	for _, a := range args {
		for _, k := range kinds {
			if a.Kind == k {
				return true
			}
		}
	}
	return false
}
