// Package config binds the bot's settings to command line flags and
// environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"
	"unicode/utf8"

	"github.com/joho/godotenv"
	"gopkg.in/alecthomas/kingpin.v2"
)

// EnvFiles are loaded, when present, before flags are parsed
var EnvFiles = []string{".env", ".env.dev"}

// Config holds everything the bot and its modules need
type Config struct {
	SlackToken     string
	PluginDir      string
	Leader         string
	CommandsFile   string
	LogLevel       string
	CratesEndpoint string
	Shaken         Shaken
}

// Shaken configures the text generation module
type Shaken struct {
	Host         string
	Timeout      time.Duration
	DelayLower   time.Duration
	DelayUpper   time.Duration
	IgnoreChance float64
}

// LoadEnv loads the env files that exist. Variables already set win.
func LoadEnv(files ...string) error {
	for _, f := range files {
		err := godotenv.Load(f)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return fmt.Errorf("cannot load %s: %w", f, err)
		}
	}
	return nil
}

// New registers the flags on app and returns the Config they fill in
func New(app *kingpin.Application) *Config {
	c := &Config{}
	app.Flag("slack.token", "Slack token").
		Required().
		OverrideDefaultFromEnvar("SLACK_TOKEN").
		StringVar(&c.SlackToken)
	app.Flag("plugin.dir", "Realtive path to the plugins directory").
		OverrideDefaultFromEnvar("PLUGIN_DIR").
		Default("./plugins").
		StringVar(&c.PluginDir)
	app.Flag("command.leader", "Character that starts a command").
		Default("!").
		StringVar(&c.Leader)
	app.Flag("commands.file", "File the per-channel custom commands are kept in").
		Default("commands.yaml").
		StringVar(&c.CommandsFile)
	app.Flag("log.level", "Log level (debug, info, warn, error)").
		Default("info").
		EnumVar(&c.LogLevel, "trace", "debug", "info", "warn", "error")
	app.Flag("crates.endpoint", "crates.io search endpoint").
		Default("https://crates.io/api/v1/crates").
		StringVar(&c.CratesEndpoint)
	app.Flag("shaken.host", "Text generation service").
		Default("http://localhost:54612").
		StringVar(&c.Shaken.Host)
	app.Flag("shaken.timeout", "Minimum time between unprompted replies").
		Default("1s").
		DurationVar(&c.Shaken.Timeout)
	app.Flag("shaken.delay-lower", "Lower bound of the delay before an unprompted reply").
		Default("100ms").
		DurationVar(&c.Shaken.DelayLower)
	app.Flag("shaken.delay-upper", "Upper bound of the delay before an unprompted reply").
		Default("3s").
		DurationVar(&c.Shaken.DelayUpper)
	app.Flag("shaken.ignore-chance", "Chance to skip an unprompted reply").
		Default("0.25").
		Float64Var(&c.Shaken.IgnoreChance)
	return c
}

// LeaderRune returns the leader as a single character
func (c *Config) LeaderRune() rune {
	r, _ := utf8.DecodeRuneInString(c.Leader)
	return r
}

// Validate checks values kingpin cannot
func (c *Config) Validate() error {
	if utf8.RuneCountInString(c.Leader) != 1 {
		return fmt.Errorf("command.leader must be a single character, got %q", c.Leader)
	}
	if c.Shaken.DelayLower < 0 || c.Shaken.DelayUpper < c.Shaken.DelayLower {
		return fmt.Errorf("invalid shaken delay range %s..%s", c.Shaken.DelayLower, c.Shaken.DelayUpper)
	}
	if c.Shaken.IgnoreChance < 0 || c.Shaken.IgnoreChance > 1 {
		return fmt.Errorf("shaken.ignore-chance must be within [0, 1], got %v", c.Shaken.IgnoreChance)
	}
	return nil
}
