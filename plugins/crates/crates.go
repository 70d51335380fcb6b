// Package crates looks up Rust crates on crates.io.
package crates

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/BonnierNews/shakenbot/pkg/api"
)

var (
	log = api.NewLogger()
)

const maxDescription = 400

type crate struct {
	Name        string  `json:"name"`
	MaxVersion  string  `json:"max_version"`
	Description *string `json:"description"`
	Repository  *string `json:"repository"`
}

// Module provides !crate and its aliases
type Module struct {
	endpoint string
	client   *http.Client
}

// New creates the module querying endpoint, e.g. https://crates.io/api/v1/crates
func New(endpoint string) *Module {
	return &Module{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// Init ...
func (m *Module) Init(ctx context.Context) error {
	if _, err := url.Parse(m.endpoint); err != nil {
		return fmt.Errorf("invalid crates endpoint: %w", err)
	}
	log.Info("Loaded crates plugin")
	return nil
}

// Registry ...
func (m *Module) Registry() map[string]api.Command {
	return map[string]api.Command{
		"crate":  crateCmd{m: m, usage: "!crate <crate>"},
		"crates": crateCmd{m: m, usage: "!crates <crate>"},
		"lookup": crateCmd{m: m, usage: "!lookup <crate>"},
	}
}

type crateCmd struct {
	m     *Module
	usage string
}

func (c crateCmd) Usage() string     { return c.usage }
func (c crateCmd) ShortDesc() string { return "looks up a crate on crates.io" }
func (c crateCmd) Elevated() bool    { return false }
func (c crateCmd) Exec(ctx context.Context, req *api.Request) ([]api.Reply, error) {
	query := req.Args["crate"]
	found, err := c.m.lookup(ctx, query)
	if err != nil {
		log.Errorf("cannot lookup crate: %v", err)
		return []api.Reply{api.Respond("I cannot do a lookup on crates.io :(")}, nil
	}
	if len(found) == 0 {
		return []api.Reply{api.Respond(fmt.Sprintf("I cannot find anything for '%s'", query))}, nil
	}
	return format(found[len(found)-1]), nil
}

func (m *Module) lookup(ctx context.Context, query string) ([]crate, error) {
	q := url.Values{}
	q.Set("page", "1")
	q.Set("per_page", "1")
	q.Set("q", query)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	// crates.io rejects requests without one
	req.Header.Set("User-Agent", "shakenbot (https://github.com/BonnierNews/shakenbot)")

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("crates.io returned %s", resp.Status)
	}

	var body struct {
		Crates []crate `json:"crates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("cannot decode crates.io response: %w", err)
	}
	return body.Crates, nil
}

func format(c crate) []api.Reply {
	out := fmt.Sprintf("%s = %s", c.Name, c.MaxVersion)
	if c.Description != nil {
		desc := strings.Join(strings.Fields(*c.Description), " ")
		out += " | " + shrink(desc, maxDescription)
	}
	replies := []api.Reply{api.Say(out)}
	if c.Repository != nil {
		replies = append(replies, api.Say("repository: "+*c.Repository))
	}
	replies = append(replies, api.Say(fmt.Sprintf(
		"documentation: https://docs.rs/%[1]s/%[2]s/%[1]s", c.Name, c.MaxVersion)))
	return replies
}

// shrink cuts s to at most limit characters
func shrink(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}
	return s
}
