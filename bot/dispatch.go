package bot

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"text/template"

	"github.com/BonnierNews/shakenbot/pkg/api"
	"github.com/BonnierNews/shakenbot/pkg/command"
	slacktemplates "github.com/BonnierNews/shakenbot/pkg/slack"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const denied = "you cannot do that"

// Dispatch hands msg to the first matching command and to every passive,
// concurrently. Each sends its own replies. The first error is returned
// after all have finished.
func (bot *Bot) Dispatch(ctx context.Context, msg *api.Message) error {
	var g errgroup.Group
	fields := logrus.Fields{"channel": msg.Channel, "user": msg.User}

	g.Go(func() error {
		err := bot.dispatchCommand(ctx, msg)
		if err != nil {
			log.WithFields(fields).Errorf("%v", err)
		}
		return err
	})
	for _, p := range bot.passives {
		p := p
		g.Go(func() error {
			replies, err := p.Observe(ctx, msg)
			if err == nil {
				err = api.Send(bot.responder, msg, replies)
			}
			if err != nil {
				err = fmt.Errorf("%T: %w", p, err)
				log.WithFields(fields).Errorf("%v", err)
			}
			return err
		})
	}
	return g.Wait()
}

func (bot *Bot) dispatchCommand(ctx context.Context, msg *api.Message) error {
	if !strings.HasPrefix(msg.Text, string(bot.leader)) {
		return nil
	}

	for _, r := range bot.commands {
		args, res := r.schema.Extract(msg.Text)
		switch res {
		case command.NoMatch:
			continue
		case command.MissingRequired:
			return bot.responder.Reply(msg, r.schema.Help())
		}

		if r.schema.Elevated() {
			ok, err := bot.directory.IsElevated(ctx, msg.User)
			if err != nil {
				return fmt.Errorf("cannot check privileges of %s: %w", msg.User, err)
			}
			if !ok {
				return bot.responder.Reply(msg, denied)
			}
		}

		log.WithFields(logrus.Fields{
			"channel": msg.Channel,
			"user":    msg.User,
			"command": r.schema.Name(),
		}).Info("Handled command")

		replies, err := r.cmd.Exec(ctx, &api.Request{Msg: msg, Cmd: r.schema, Args: args})
		if err != nil {
			return fmt.Errorf("%s: %w", r.schema.Name(), err)
		}
		return api.Send(bot.responder, msg, replies)
	}
	return nil
}

const (
	tplHelpBase    = `{{list .}}`
	tplHelpCommand = `{{.Usage}}{{with .ShortDesc}} - {{.}}{{end}}`
)

var (
	helpBase    = template.Must(template.New("help").Funcs(slacktemplates.FuncMap).Parse(tplHelpBase))
	helpCommand = template.Must(template.New("command").Parse(tplHelpCommand))
)

type helpCmd struct {
	bot *Bot
}

func (helpCmd) Usage() string     { return "!help <command?>" }
func (helpCmd) ShortDesc() string { return "lists commands or shows how to use one" }
func (helpCmd) Elevated() bool    { return false }

func (h helpCmd) Exec(ctx context.Context, req *api.Request) ([]api.Reply, error) {
	if name, ok := req.Args.NonEmpty("command"); ok {
		text, err := h.lookup(req.Msg.Channel, name)
		if err != nil {
			return nil, err
		}
		return []api.Reply{api.Respond(text)}, nil
	}

	var b strings.Builder
	if err := helpBase.Execute(&b, h.names(req.Msg.Channel)); err != nil {
		return nil, err
	}
	return []api.Reply{api.Say(b.String())}, nil
}

func (h helpCmd) names(channel string) []string {
	leader := string(h.bot.leader)

	var builtin []string
	for _, r := range h.bot.commands {
		builtin = append(builtin, leader+r.schema.Name())
	}
	sort.Strings(builtin)

	names := builtin
	for _, l := range h.bot.listers {
		for _, name := range l.Names(channel) {
			names = append(names, leader+name)
		}
	}
	return names
}

// lookup describes a registered command by its usage and short
// description, or a custom command by its body
func (h helpCmd) lookup(channel, name string) (string, error) {
	search := strings.TrimPrefix(name, string(h.bot.leader))
	for _, r := range h.bot.commands {
		if r.schema.Name() != search {
			continue
		}
		var b strings.Builder
		err := helpCommand.Execute(&b, struct{ Usage, ShortDesc string }{r.schema.Help(), r.cmd.ShortDesc()})
		return b.String(), err
	}
	for _, l := range h.bot.listers {
		if body, ok := l.Lookup(channel, search); ok {
			return body, nil
		}
	}
	return fmt.Sprintf("I don't know what '%s' is", name), nil
}
