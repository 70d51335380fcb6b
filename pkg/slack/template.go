// Package slack holds helpers for rendering chat replies.
package slack

import (
	"strings"
	"text/template"
)

var (
	FuncMap = template.FuncMap{
		"list": list,
	}
)

func list(v []string) string {
	return strings.Join(v, ", ")
}
