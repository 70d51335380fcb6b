// Package uptime reports how long the bot has been running.
package uptime

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/BonnierNews/shakenbot/pkg/api"
)

var (
	log = api.NewLogger()
)

// Module provides !uptime
type Module struct {
	start time.Time
	now   func() time.Time
}

// New creates the module. The clock starts at Init.
func New() *Module {
	return &Module{now: time.Now}
}

// Init ...
func (m *Module) Init(ctx context.Context) error {
	m.start = m.now()
	log.Info("Loaded uptime plugin")
	return nil
}

// Registry ...
func (m *Module) Registry() map[string]api.Command {
	return map[string]api.Command{"uptime": uptimeCmd{m}}
}

type uptimeCmd struct{ m *Module }

func (uptimeCmd) Usage() string     { return "!uptime" }
func (uptimeCmd) ShortDesc() string { return "how long the bot has been running" }
func (uptimeCmd) Elevated() bool    { return false }
func (c uptimeCmd) Exec(ctx context.Context, req *api.Request) ([]api.Reply, error) {
	d := c.m.now().Sub(c.m.start)
	return []api.Reply{api.Say(fmt.Sprintf("I've been running for %s.", Relative(d)))}, nil
}

var units = []struct {
	name string
	dur  time.Duration
}{
	{"day", 24 * time.Hour},
	{"hour", time.Hour},
	{"minute", time.Minute},
	{"second", time.Second},
}

// Relative formats d as e.g. "2 days, 1 hour, 3 minutes and 1 second"
func Relative(d time.Duration) string {
	var parts []string
	for _, u := range units {
		n := d / u.dur
		if n == 0 {
			continue
		}
		d -= n * u.dur
		name := u.name
		if n > 1 {
			name += "s"
		}
		parts = append(parts, fmt.Sprintf("%d %s", n, name))
	}

	switch len(parts) {
	case 0:
		return "0 seconds"
	case 1:
		return parts[0]
	}
	return strings.Join(parts[:len(parts)-1], ", ") + " and " + parts[len(parts)-1]
}
