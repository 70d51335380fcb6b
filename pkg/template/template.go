// Package template expands ${key} placeholders in user authored responses.
package template

import (
	"errors"
	"strings"
)

// Parse errors
var (
	ErrNested       = errors.New("nested templates are not allowed")
	ErrUnterminated = errors.New("non-terminated template found")
	ErrEmpty        = errors.New("empty templates are not allowed")
)

// Env resolves placeholder keys
type Env map[string]string

// Template is a parsed response body
type Template struct {
	body string
	keys []string
}

// Parse validates the placeholders in body
func Parse(body string) (*Template, error) {
	var keys []string
	rest := body
	for {
		start := strings.Index(rest, "${")
		if start < 0 {
			break
		}
		rest = rest[start+2:]
		end := strings.IndexByte(rest, '}')
		if end < 0 {
			if strings.IndexByte(rest, '{') >= 0 {
				return nil, ErrNested
			}
			return nil, ErrUnterminated
		}
		key := rest[:end]
		if strings.IndexByte(key, '{') >= 0 {
			return nil, ErrNested
		}
		if key == "" {
			return nil, ErrEmpty
		}
		keys = append(keys, key)
		rest = rest[end+1:]
	}
	return &Template{body: body, keys: keys}, nil
}

// Apply substitutes every key known to env. Unknown placeholders are left as is.
func (t *Template) Apply(env Env) string {
	if len(t.keys) == 0 {
		return t.body
	}
	pairs := make([]string, 0, len(t.keys)*2)
	for _, key := range t.keys {
		if val, ok := env[key]; ok {
			pairs = append(pairs, "${"+key+"}", val)
		}
	}
	return strings.NewReplacer(pairs...).Replace(t.body)
}
