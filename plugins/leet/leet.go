// Package leet rewrites text as leetspeak or morse code.
package leet

import (
	"context"

	"github.com/BonnierNews/shakenbot/pkg/api"
	"github.com/briandowns/formatifier"
)

var (
	log = api.NewLogger()
)

type transform func(string) (string, error)

type textCmd struct {
	usage, desc, failure string
	fn                   transform
}

func (t textCmd) Usage() string     { return t.usage }
func (t textCmd) ShortDesc() string { return t.desc }
func (t textCmd) Elevated() bool    { return false }
func (t textCmd) Exec(ctx context.Context, req *api.Request) ([]api.Reply, error) {
	text, ok := req.Args.NonEmpty("text")
	if !ok {
		return []api.Reply{api.Respond(t.usage)}, nil
	}
	log.WithField("command", req.Cmd.Name()).Debugf("running on: %s", text)
	out, err := t.fn(text)
	if err != nil {
		log.Errorf("%s failed: %v", req.Cmd.Name(), err)
		return []api.Reply{api.Respond(t.failure)}, nil
	}
	return []api.Reply{api.Say(out)}, nil
}

// Module provides !leet and !morse
type Module struct {
	leet, morse textCmd
}

// New creates the module
func New() *Module {
	return &Module{
		leet: textCmd{
			usage:   "!leet <text...>",
			desc:    "prints leet of <text>",
			failure: "Unable to leetify",
			fn:      formatifier.ToLeet,
		},
		morse: textCmd{
			usage:   "!morse <text...>",
			desc:    "prints morse code from <text>",
			failure: "Unable to morse code",
			fn:      formatifier.ToMorseCode,
		},
	}
}

// Init ...
func (m *Module) Init(ctx context.Context) error {
	log.Info("Loaded leet plugin")
	return nil
}

// Registry ...
func (m *Module) Registry() map[string]api.Command {
	return map[string]api.Command{
		"leet":  m.leet,
		"morse": m.morse,
	}
}
