package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/alecthomas/kingpin.v2"
)

func parse(t *testing.T, args ...string) (*Config, error) {
	t.Helper()
	app := kingpin.New("test", "")
	c := New(app)
	_, err := app.Parse(args)
	return c, err
}

func TestDefaults(t *testing.T) {
	c, err := parse(t, "--slack.token=xoxb-1")
	require.NoError(t, err)
	require.NoError(t, c.Validate())

	assert.Equal(t, "xoxb-1", c.SlackToken)
	assert.Equal(t, "./plugins", c.PluginDir)
	assert.Equal(t, '!', c.LeaderRune())
	assert.Equal(t, "commands.yaml", c.CommandsFile)
	assert.Equal(t, "info", c.LogLevel)
	assert.Equal(t, "http://localhost:54612", c.Shaken.Host)
	assert.Equal(t, time.Second, c.Shaken.Timeout)
	assert.Equal(t, 100*time.Millisecond, c.Shaken.DelayLower)
	assert.Equal(t, 3*time.Second, c.Shaken.DelayUpper)
	assert.Equal(t, 0.25, c.Shaken.IgnoreChance)
}

func TestTokenRequired(t *testing.T) {
	t.Setenv("SLACK_TOKEN", "")
	os.Unsetenv("SLACK_TOKEN")
	_, err := parse(t)
	assert.Error(t, err)
}

func TestTokenFromEnv(t *testing.T) {
	t.Setenv("SLACK_TOKEN", "xoxb-env")
	c, err := parse(t)
	require.NoError(t, err)
	assert.Equal(t, "xoxb-env", c.SlackToken)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"long leader", []string{"--command.leader=!!"}},
		{"empty leader", []string{"--command.leader="}},
		{"inverted delays", []string{"--shaken.delay-lower=2s", "--shaken.delay-upper=1s"}},
		{"chance", []string{"--shaken.ignore-chance=1.5"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := parse(t, append([]string{"--slack.token=x"}, tt.args...)...)
			require.NoError(t, err)
			assert.Error(t, c.Validate())
		})
	}
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("SHAKEN_CONFIG_TEST=from-file\n"), 0644))
	t.Setenv("SHAKEN_CONFIG_TEST", "")
	os.Unsetenv("SHAKEN_CONFIG_TEST")

	require.NoError(t, LoadEnv(path, filepath.Join(dir, "missing")))
	assert.Equal(t, "from-file", os.Getenv("SHAKEN_CONFIG_TEST"))
}

func TestLoadEnvMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("SHAKEN_CONFIG_BROKEN=\"unterminated\n"), 0644))

	err := LoadEnv(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), path)
}
