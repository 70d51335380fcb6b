package leet

import (
	"context"
	"errors"
	"testing"

	"github.com/BonnierNews/shakenbot/pkg/api"
	"github.com/BonnierNews/shakenbot/pkg/command"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exec(t *testing.T, cmd api.Command, line string) []api.Reply {
	t.Helper()
	schema := command.MustNew(cmd.Usage())
	args, res := schema.Extract(line)
	require.Equal(t, command.Matched, res)
	replies, err := cmd.Exec(context.Background(), &api.Request{
		Msg:  &api.Message{Channel: "C1", Text: line},
		Cmd:  schema,
		Args: args,
	})
	require.NoError(t, err)
	return replies
}

func TestRegistry(t *testing.T) {
	m := New()
	require.NoError(t, m.Init(context.Background()))
	reg := m.Registry()
	for name, cmd := range reg {
		assert.Equal(t, name, command.MustNew(cmd.Usage()).Name())
		assert.False(t, cmd.Elevated())
	}
	assert.Len(t, reg, 2)
}

func TestLeet(t *testing.T) {
	replies := exec(t, New().leet, "!leet hello world")
	require.Len(t, replies, 1)
	assert.False(t, replies[0].Threaded)
	assert.NotEmpty(t, replies[0].Message)
	assert.NotEqual(t, "hello world", replies[0].Message)
}

func TestMorse(t *testing.T) {
	replies := exec(t, New().morse, "!morse sos")
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0].Message, "...")
}

func TestMissingText(t *testing.T) {
	replies := exec(t, New().leet, "!leet")
	assert.Equal(t, []api.Reply{api.Respond("!leet <text...>")}, replies)
}

func TestFailure(t *testing.T) {
	cmd := textCmd{
		usage:   "!broken <text...>",
		failure: "Unable to do it",
		fn:      func(string) (string, error) { return "", errors.New("boom") },
	}
	replies := exec(t, cmd, "!broken text")
	assert.Equal(t, []api.Reply{api.Respond("Unable to do it")}, replies)
}
