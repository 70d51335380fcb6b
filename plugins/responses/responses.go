// Package responses lets channel admins define their own canned replies.
package responses

import (
	"context"
	"fmt"
	"strings"

	"github.com/BonnierNews/shakenbot/pkg/api"
	"github.com/BonnierNews/shakenbot/pkg/persist"
	"github.com/BonnierNews/shakenbot/pkg/template"
)

var (
	log = api.NewLogger()
)

const (
	msgEmptyBody = "try again. you provided an empty command body"
	msgNope      = "lol"
)

type mode int

const (
	upsert mode = iota
	create
	update
)

// Module provides !set, !add, !edit and !remove, and answers the custom
// commands they define
type Module struct {
	store  *persist.Store
	leader string
}

// New creates the module on top of store
func New(store *persist.Store, leader rune) *Module {
	return &Module{store: store, leader: string(leader)}
}

// Init ...
func (m *Module) Init(ctx context.Context) error {
	log.WithField("file", m.store.Path()).Info("Loaded responses plugin")
	return nil
}

// Registry ...
func (m *Module) Registry() map[string]api.Command {
	return map[string]api.Command{
		"set":    setCmd{m: m, usage: "!set <command> <body...>", desc: "sets a custom command", mode: upsert},
		"add":    setCmd{m: m, usage: "!add <command> <body...>", desc: "adds a new custom command", mode: create},
		"edit":   setCmd{m: m, usage: "!edit <command> <body...>", desc: "changes an existing custom command", mode: update},
		"remove": removeCmd{m},
	}
}

// Names lists the custom commands of channel
func (m *Module) Names(channel string) []string {
	return m.store.Names(channel)
}

// Lookup returns the unexpanded body of a custom command
func (m *Module) Lookup(channel, name string) (string, bool) {
	return m.store.Get(channel, name)
}

// Observe answers custom commands
func (m *Module) Observe(ctx context.Context, msg *api.Message) ([]api.Reply, error) {
	if !strings.HasPrefix(msg.Text, m.leader) {
		return nil, nil
	}
	fields := strings.Fields(strings.TrimPrefix(msg.Text, m.leader))
	if len(fields) == 0 {
		return nil, nil
	}

	body, ok := m.store.Get(msg.Channel, fields[0])
	if !ok {
		return nil, nil
	}
	tpl, err := template.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("stored response %q is broken: %w", fields[0], err)
	}
	out := tpl.Apply(template.Env{
		"name":    msg.UserName,
		"channel": msg.Channel,
	})
	return []api.Reply{api.Say(out)}, nil
}

type setCmd struct {
	m     *Module
	usage string
	desc  string
	mode  mode
}

func (c setCmd) Usage() string     { return c.usage }
func (c setCmd) ShortDesc() string { return c.desc }
func (c setCmd) Elevated() bool    { return true }

func (c setCmd) Exec(ctx context.Context, req *api.Request) ([]api.Reply, error) {
	name := c.m.name(req.Args["command"])
	body := strings.TrimSpace(req.Args["body"])
	switch {
	case body == "":
		return []api.Reply{api.Respond(msgEmptyBody)}, nil
	case strings.HasPrefix(body, ".") || strings.HasPrefix(body, "/"):
		return []api.Reply{api.Respond(msgNope)}, nil
	}
	if _, err := template.Parse(body); err != nil {
		return []api.Reply{api.Respond(err.Error())}, nil
	}

	ch := req.Msg.Channel
	_, exists := c.m.store.Get(ch, name)
	switch {
	case c.mode == create && exists:
		return []api.Reply{api.Respond(fmt.Sprintf("'%s' already exists", name))}, nil
	case c.mode == update && !exists:
		return []api.Reply{api.Respond(fmt.Sprintf("'%s' does not exist", name))}, nil
	}

	if err := c.m.store.Set(ch, name, body); err != nil {
		return nil, err
	}
	log.WithField("channel", ch).Infof("%s set %q", req.Msg.User, name)
	return []api.Reply{api.Respond(fmt.Sprintf("updated '%s' -> '%s'", name, body))}, nil
}

type removeCmd struct{ m *Module }

func (removeCmd) Usage() string     { return "!remove <command>" }
func (removeCmd) ShortDesc() string { return "removes a custom command" }
func (removeCmd) Elevated() bool    { return true }

func (c removeCmd) Exec(ctx context.Context, req *api.Request) ([]api.Reply, error) {
	name := c.m.name(req.Args["command"])
	ok, err := c.m.store.Remove(req.Msg.Channel, name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []api.Reply{api.Respond(fmt.Sprintf("'%s' does not exist", name))}, nil
	}
	log.WithField("channel", req.Msg.Channel).Infof("%s removed %q", req.Msg.User, name)
	return []api.Reply{api.Respond(fmt.Sprintf("removed '%s'", name))}, nil
}

// name accepts the command with or without the leader
func (m *Module) name(s string) string {
	return strings.TrimPrefix(s, m.leader)
}
