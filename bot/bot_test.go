package bot

import (
	"context"
	"errors"
	"os"
	"sort"
	"sync"
	"testing"

	"github.com/BonnierNews/shakenbot/pkg/api"
	"github.com/nlopes/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type sent struct {
	channel  string
	threaded bool
	text     string
}

type recorder struct {
	mu   sync.Mutex
	sent []sent
}

func (r *recorder) Say(channel, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sent{channel: channel, text: text})
	return nil
}

func (r *recorder) Reply(msg *api.Message, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sent{channel: msg.Channel, threaded: true, text: text})
	return nil
}

// all returns what was sent, ordered by text since passives race commands
func (r *recorder) all() []sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := append([]sent(nil), r.sent...)
	sort.Slice(out, func(i, j int) bool { return out[i].text < out[j].text })
	return out
}

type admins map[string]bool

func (a admins) IsElevated(ctx context.Context, user string) (bool, error) {
	if user == "broken" {
		return false, errors.New("no such user")
	}
	return a[user], nil
}

type fakeCmd struct {
	usage    string
	desc     string
	elevated bool
	err      error
}

func (c fakeCmd) Usage() string     { return c.usage }
func (c fakeCmd) ShortDesc() string { return c.desc }
func (c fakeCmd) Elevated() bool    { return c.elevated }
func (c fakeCmd) Exec(ctx context.Context, req *api.Request) ([]api.Reply, error) {
	if c.err != nil {
		return nil, c.err
	}
	text := req.Cmd.Name()
	for _, arg := range req.Cmd.Args() {
		if v, ok := req.Args[arg.Key]; ok {
			text += " " + arg.Key + "=" + v
		}
	}
	return []api.Reply{api.Say(text)}, nil
}

type fakeModule struct {
	cmds    map[string]api.Command
	initErr error
}

func (m *fakeModule) Init(ctx context.Context) error   { return m.initErr }
func (m *fakeModule) Registry() map[string]api.Command { return m.cmds }
func (m *fakeModule) Names(channel string) []string    { return []string{"custom"} }
func (m *fakeModule) Lookup(channel, name string) (string, bool) {
	if name == "custom" {
		return "a custom body", true
	}
	return "", false
}

type echoPassive struct{}

func (echoPassive) Init(ctx context.Context) error { return nil }
func (echoPassive) Observe(ctx context.Context, msg *api.Message) ([]api.Reply, error) {
	return []api.Reply{api.Say("saw " + msg.Text)}, nil
}

func newTestBot(t *testing.T, leader rune, modules ...api.Module) (*Bot, *recorder) {
	t.Helper()
	rec := &recorder{}
	bot := New(leader, rec, admins{"admin": true})
	require.NoError(t, bot.Init(context.Background(), modules...))
	return bot, rec
}

func testModule() *fakeModule {
	return &fakeModule{cmds: map[string]api.Command{
		"crate":  fakeCmd{usage: "!crate <name>"},
		"crates": fakeCmd{usage: "!crates <name>"},
		"greet":  fakeCmd{usage: "!greet <name> <greeting?> <rest...>"},
		"kick":   fakeCmd{usage: "!kick <who>", elevated: true},
		"fail":   fakeCmd{usage: "!fail", err: errors.New("boom")},
	}}
}

func dispatch(t *testing.T, bot *Bot, user, text string) error {
	t.Helper()
	return bot.Dispatch(context.Background(), &api.Message{Channel: "C1", User: user, Text: text})
}

func TestDispatchCommand(t *testing.T) {
	bot, rec := newTestBot(t, '!', testModule())

	require.NoError(t, dispatch(t, bot, "user", "!greet world hello there you"))
	assert.Equal(t, []sent{
		{channel: "C1", text: "greet name=world greeting=hello rest=there you"},
	}, rec.all())
}

func TestDispatchLongestNameFirst(t *testing.T) {
	bot, rec := newTestBot(t, '!', testModule())

	require.NoError(t, dispatch(t, bot, "user", "!crates serde"))
	require.NoError(t, dispatch(t, bot, "user", "!crate rand"))
	assert.Equal(t, []sent{
		{channel: "C1", text: "crate name=rand"},
		{channel: "C1", text: "crates name=serde"},
	}, rec.all())
}

func TestDispatchMissingRequired(t *testing.T) {
	bot, rec := newTestBot(t, '!', testModule())

	require.NoError(t, dispatch(t, bot, "user", "!greet"))
	assert.Equal(t, []sent{
		{channel: "C1", threaded: true, text: "!greet <name> <greeting?> <rest...>"},
	}, rec.all())
}

func TestDispatchNeedsLeader(t *testing.T) {
	bot, rec := newTestBot(t, '!', testModule())

	require.NoError(t, dispatch(t, bot, "user", "greet world"))
	require.NoError(t, dispatch(t, bot, "user", "!unknown thing"))
	assert.Empty(t, rec.all())
}

func TestDispatchElevated(t *testing.T) {
	bot, rec := newTestBot(t, '!', testModule())

	require.NoError(t, dispatch(t, bot, "user", "!kick bob"))
	require.NoError(t, dispatch(t, bot, "admin", "!kick bob"))
	assert.Equal(t, []sent{
		{channel: "C1", text: "kick who=bob"},
		{channel: "C1", threaded: true, text: denied},
	}, rec.all())

	assert.Error(t, dispatch(t, bot, "broken", "!kick bob"))
}

func TestDispatchExecError(t *testing.T) {
	bot, rec := newTestBot(t, '!', testModule())

	err := dispatch(t, bot, "user", "!fail")
	assert.EqualError(t, err, "fail: boom")
	assert.Empty(t, rec.all())
}

func TestDispatchPassives(t *testing.T) {
	bot, rec := newTestBot(t, '!', testModule(), echoPassive{})

	require.NoError(t, dispatch(t, bot, "user", "!crate x"))
	require.NoError(t, dispatch(t, bot, "user", "just talking"))
	assert.Equal(t, []sent{
		{channel: "C1", text: "crate name=x"},
		{channel: "C1", text: "saw !crate x"},
		{channel: "C1", text: "saw just talking"},
	}, rec.all())
}

func TestCustomLeader(t *testing.T) {
	bot, rec := newTestBot(t, '.', testModule())

	require.NoError(t, dispatch(t, bot, "user", ".crate x"))
	require.NoError(t, dispatch(t, bot, "user", "!crate y"))
	require.NoError(t, dispatch(t, bot, "user", ".greet"))
	assert.Equal(t, []sent{
		{channel: "C1", threaded: true, text: ".greet <name> <greeting?> <rest...>"},
		{channel: "C1", text: "crate name=x"},
	}, rec.all())
}

func TestHelp(t *testing.T) {
	bot, rec := newTestBot(t, '!', &fakeModule{cmds: map[string]api.Command{
		"crate": fakeCmd{usage: "!crate <name>"},
		"kick":  fakeCmd{usage: "!kick <who>", elevated: true},
	}})

	require.NoError(t, dispatch(t, bot, "user", "!help"))
	assert.Equal(t, []sent{
		{channel: "C1", text: "!crate, !help, !kick, !custom"},
	}, rec.all())
}

func TestHelpLookup(t *testing.T) {
	tests := []struct {
		line string
		want string
	}{
		{"!help crate", "!crate <name> - looks up a crate"},
		{"!help !kick", "!kick <who>"},
		{"!help help", "!help <command?> - lists commands or shows how to use one"},
		{"!help custom", "a custom body"},
		{"!help nope", "I don't know what 'nope' is"},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			bot, rec := newTestBot(t, '!', &fakeModule{cmds: map[string]api.Command{
				"crate": fakeCmd{usage: "!crate <name>", desc: "looks up a crate"},
				"kick":  fakeCmd{usage: "!kick <who>", elevated: true},
			}})
			require.NoError(t, dispatch(t, bot, "user", tt.line))
			assert.Equal(t, []sent{{channel: "C1", threaded: true, text: tt.want}}, rec.all())
		})
	}
}

func TestRegisterErrors(t *testing.T) {
	bot := New('!', &recorder{}, admins{})

	assert.Error(t, bot.Register(fakeCmd{usage: "!help"}), "duplicate")
	assert.Error(t, bot.Register(fakeCmd{usage: "!bad <a> <a>"}), "duplicate key")
	assert.Error(t, bot.Register(fakeCmd{usage: "!bad <a-b>"}), "invalid characters")
	assert.Error(t, bot.Register(fakeCmd{usage: "!"}), "no command")
	assert.NoError(t, bot.Register(fakeCmd{usage: "!fine <a?>"}))
}

func TestInitErrors(t *testing.T) {
	bot := New('!', &recorder{}, admins{})
	err := bot.Init(context.Background(), &fakeModule{cmds: map[string]api.Command{
		"wrong": fakeCmd{usage: "!right"},
	}})
	assert.Error(t, err)

	bot = New('!', &recorder{}, admins{})
	err = bot.Init(context.Background(), &fakeModule{initErr: errors.New("nope")})
	assert.Error(t, err)
}

func TestInitMissingPluginDir(t *testing.T) {
	bot := New('!', &recorder{}, admins{})
	bot.pluginsDir = t.TempDir() + "/missing"
	assert.NoError(t, bot.Init(context.Background()))
}

func TestListFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.so", "b.so.txt", "c.go"} {
		require.NoError(t, writeEmpty(dir+"/"+name))
	}
	files, err := listFiles(dir, `.*\.so$`)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.so"}, files)
}

func TestToMessage(t *testing.T) {
	event := func(user, subtype, text string) *slack.MessageEvent {
		return &slack.MessageEvent{Msg: slack.Msg{
			Channel:   "C1",
			User:      user,
			SubType:   subtype,
			Text:      text,
			Timestamp: "123.456",
		}}
	}

	msg, ok := toMessage(event("U1", "", " <@BOT> !speak "), "BOT")
	require.True(t, ok)
	assert.Equal(t, &api.Message{
		Channel: "C1", User: "U1", UserName: "U1", Text: "!speak", Timestamp: "123.456", Mentioned: true,
	}, msg)

	msg, ok = toMessage(event("U1", "", "hey <@BOT> what"), "BOT")
	require.True(t, ok)
	assert.True(t, msg.Mentioned)
	assert.Equal(t, "hey <@BOT> what", msg.Text)

	msg, ok = toMessage(event("U1", "", "<@BOT>"), "BOT")
	require.True(t, ok)
	assert.True(t, msg.Mentioned)
	assert.Empty(t, msg.Text)

	for _, ev := range []*slack.MessageEvent{
		event("BOT", "", "my own line"),
		event("", "", "no user"),
		event("U1", "message_changed", "edited"),
		event("U1", "", "   "),
	} {
		_, ok := toMessage(ev, "BOT")
		assert.False(t, ok, ev.Text)
	}
}

func writeEmpty(path string) error {
	return os.WriteFile(path, nil, 0644)
}
