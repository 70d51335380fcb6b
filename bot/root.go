package bot

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"plugin"
	"regexp"
	"sort"
	"strings"
	"syscall"

	"github.com/BonnierNews/shakenbot/pkg/api"
	"github.com/BonnierNews/shakenbot/pkg/command"
	"github.com/BonnierNews/shakenbot/pkg/config"
	"github.com/BonnierNews/shakenbot/pkg/persist"
	"github.com/BonnierNews/shakenbot/plugins/crates"
	"github.com/BonnierNews/shakenbot/plugins/leet"
	"github.com/BonnierNews/shakenbot/plugins/responses"
	"github.com/BonnierNews/shakenbot/plugins/shaken"
	"github.com/BonnierNews/shakenbot/plugins/uptime"
	"github.com/nlopes/slack"
	"github.com/sirupsen/logrus"
	"gopkg.in/alecthomas/kingpin.v2"
)

var (
	log = api.NewLogger()
)

type registered struct {
	schema *command.Command
	cmd    api.Command
}

// Bot type
type Bot struct {
	ctx        context.Context
	leader     rune
	pluginsDir string
	responder  api.Responder
	directory  api.Directory
	commands   []registered
	passives   []api.Passive
	listers    []api.Lister
}

// New creates a bot that answers through responder and asks directory
// about users. The help command is always registered.
func New(leader rune, responder api.Responder, directory api.Directory) *Bot {
	bot := &Bot{
		ctx:       context.Background(),
		leader:    leader,
		responder: responder,
		directory: directory,
	}
	if err := bot.Register(helpCmd{bot: bot}); err != nil {
		panic(err)
	}
	return bot
}

// Init initializes and registers modules, then any plugins found in the
// plugin directory
func (bot *Bot) Init(ctx context.Context, modules ...api.Module) error {
	bot.ctx = ctx
	for _, m := range modules {
		if err := bot.load(m); err != nil {
			return err
		}
	}
	return bot.loadPlugins()
}

func (bot *Bot) load(m api.Module) error {
	if err := m.Init(bot.ctx); err != nil {
		return fmt.Errorf("%T initialization failed: %w", m, err)
	}
	if cmds, ok := m.(api.Commands); ok {
		for name, cmd := range cmds.Registry() {
			schema, err := bot.register(cmd)
			if err != nil {
				return err
			}
			if schema.Name() != name {
				return fmt.Errorf("%T registers %q under the name %q", m, cmd.Usage(), name)
			}
		}
	}
	if p, ok := m.(api.Passive); ok {
		bot.passives = append(bot.passives, p)
	}
	if l, ok := m.(api.Lister); ok {
		bot.listers = append(bot.listers, l)
	}
	return nil
}

// Register adds a single command
func (bot *Bot) Register(cmd api.Command) error {
	_, err := bot.register(cmd)
	return err
}

func (bot *Bot) register(cmd api.Command) (*command.Command, error) {
	usage := cmd.Usage()
	if bot.leader != command.DefaultLeader && strings.HasPrefix(usage, string(command.DefaultLeader)) {
		usage = string(bot.leader) + strings.TrimPrefix(usage, string(command.DefaultLeader))
	}

	opts := []command.Option{command.WithLeader(bot.leader)}
	if cmd.Elevated() {
		opts = append(opts, command.Elevated())
	}
	schema, err := command.New(usage, opts...)
	if err != nil {
		return nil, fmt.Errorf("invalid usage %q: %w", usage, err)
	}
	for _, r := range bot.commands {
		if r.schema.Name() == schema.Name() {
			return nil, fmt.Errorf("command %q is already registered as %q", usage, r.schema.Help())
		}
	}

	bot.commands = append(bot.commands, registered{schema: schema, cmd: cmd})
	// names match as prefixes, so try the longest first
	sort.SliceStable(bot.commands, func(i, j int) bool {
		return len(bot.commands[i].schema.Name()) > len(bot.commands[j].schema.Name())
	})
	log.WithField("command", schema.Name()).Debug("registered command")
	return schema, nil
}

func (bot *Bot) loadPlugins() error {
	if bot.pluginsDir == "" {
		return nil
	}
	if _, err := os.Stat(bot.pluginsDir); os.IsNotExist(err) {
		log.Debugf("no plugin directory at %s", bot.pluginsDir)
		return nil
	} else if err != nil {
		return err
	}

	plugins, err := listFiles(bot.pluginsDir, `.*\.so$`)
	if err != nil {
		return err
	}

	for _, name := range plugins {
		plug, err := plugin.Open(filepath.Join(bot.pluginsDir, name))
		if err != nil {
			return fmt.Errorf("failed to open plugin %s: %w", name, err)
		}
		sym, err := plug.Lookup(api.SymbolName)
		if err != nil {
			log.Errorf("plugin %s does not export symbol %q", name, api.SymbolName)
			continue
		}
		m, ok := sym.(api.Module)
		if !ok {
			log.Errorf("Symbol %s (from %s) does not implement Module interface", api.SymbolName, name)
			continue
		}
		if err := bot.load(m); err != nil {
			return fmt.Errorf("plugin %s: %w", name, err)
		}
		log.Infof("Loaded plugin %s", name)
	}
	return nil
}

func listFiles(dir, pattern string) ([]string, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if re.MatchString(entry.Name()) {
			files = append(files, entry.Name())
		}
	}
	return files, nil
}

// Execute runs the bot
func Execute() {
	app := kingpin.New("shakenbot", "A chat bot for slack").DefaultEnvars()
	if err := config.LoadEnv(config.EnvFiles...); err != nil {
		kingpin.Fatalf("%v", err)
	}
	app.Version("0.1.0")
	app.UsageTemplate(kingpin.CompactUsageTemplate)
	app.HelpFlag.Short('h')
	cfg := config.New(app)
	kingpin.MustParse(app.Parse(os.Args[1:]))
	if err := cfg.Validate(); err != nil {
		kingpin.Fatalf("%v", err)
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		kingpin.Fatalf("%v", err)
	}
	api.SetLogLevel(level)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	store, err := persist.Open(cfg.CommandsFile)
	if err != nil {
		kingpin.Fatalf("%v", err)
	}

	log.Info("Starting shakenbot")
	rtm := slack.New(cfg.SlackToken).NewRTM()
	chat := newSlackChat(rtm)

	bot := New(cfg.LeaderRune(), chat, chat)
	bot.pluginsDir = cfg.PluginDir
	err = bot.Init(ctx,
		leet.New(),
		uptime.New(),
		crates.New(cfg.CratesEndpoint),
		shaken.New(cfg.Shaken, cfg.LeaderRune()),
		responses.New(store, cfg.LeaderRune()),
	)
	if err != nil {
		kingpin.Fatalf("%v", err)
	}

	go rtm.ManageConnection()
	bot.run(ctx, rtm, chat)
}

func (bot *Bot) run(ctx context.Context, rtm *slack.RTM, chat *slackChat) {
	for {
		select {
		case <-ctx.Done():
			log.Info("shutting down")
			if err := rtm.Disconnect(); err != nil {
				log.Warnf("disconnect: %v", err)
			}
			return

		case ev := <-rtm.IncomingEvents:
			switch data := ev.Data.(type) {
			case *slack.ConnectedEvent:
				log.WithField("connections", data.ConnectionCount).Info("connected to slack")

			case *slack.MessageEvent:
				info := rtm.GetInfo()
				if info == nil || info.User == nil {
					continue
				}
				msg, ok := toMessage(data, info.User.ID)
				if !ok {
					continue
				}
				go func() {
					msg.UserName = chat.userName(msg.User)
					log.Debugf("Message %+v", msg)
					_ = bot.Dispatch(ctx, msg)
				}()

			case *slack.RTMError:
				log.Errorf("Error: %s", data.Error())

			case *slack.InvalidAuthEvent:
				log.Fatalf("Invalid credentials")

			default:
				//Take no action
			}
		}
	}
}
