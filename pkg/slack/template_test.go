package slack

import (
	"strings"
	"testing"
	"text/template"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFuncMap(t *testing.T) {
	tpl := template.Must(template.New("t").Funcs(FuncMap).Parse(`{{.Name}}: {{list .Items}}`))

	var b strings.Builder
	err := tpl.Execute(&b, struct {
		Name  string
		Items []string
	}{"!help", []string{"!a", "!b"}})
	require.NoError(t, err)
	assert.Equal(t, "!help: !a, !b", b.String())
}
