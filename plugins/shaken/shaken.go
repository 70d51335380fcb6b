// Package shaken chimes in with lines from a text generation service.
package shaken

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/BonnierNews/shakenbot/pkg/api"
	"github.com/BonnierNews/shakenbot/pkg/config"
	"golang.org/x/time/rate"
)

var (
	log = api.NewLogger()
)

const (
	prefix    = "~ "
	maxWords  = 45
	settleFor = time.Second
)

// Module provides !speak and unprompted replies
type Module struct {
	cfg      config.Shaken
	leader   string
	generate string
	client   *http.Client
	limiter  *rate.Limiter
	settle   time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

// New creates the module
func New(cfg config.Shaken, leader rune) *Module {
	return &Module{
		cfg:      cfg,
		leader:   string(leader),
		generate: strings.TrimSuffix(cfg.Host, "/") + "/generate",
		client:   &http.Client{Timeout: 10 * time.Second},
		limiter:  rate.NewLimiter(rate.Every(cfg.Timeout), 1),
		settle:   settleFor,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Init ...
func (m *Module) Init(ctx context.Context) error {
	log.WithField("host", m.cfg.Host).Info("Loaded shaken plugin")
	return nil
}

// Registry ...
func (m *Module) Registry() map[string]api.Command {
	return map[string]api.Command{"speak": speakCmd{m}}
}

type speakCmd struct{ m *Module }

func (speakCmd) Usage() string     { return "!speak" }
func (speakCmd) ShortDesc() string { return "says something" }
func (speakCmd) Elevated() bool    { return false }
func (c speakCmd) Exec(ctx context.Context, req *api.Request) ([]api.Reply, error) {
	line, err := c.m.fetch(ctx, nil)
	if err != nil {
		return nil, err
	}
	return []api.Reply{api.Say(prefix + line)}, nil
}

// Observe speaks when mentioned and otherwise, now and then, replies to
// the conversation
func (m *Module) Observe(ctx context.Context, msg *api.Message) ([]api.Reply, error) {
	if msg.Mentioned {
		line, err := m.fetch(ctx, nil)
		if err != nil {
			return nil, err
		}
		return []api.Reply{api.Say(prefix + line)}, nil
	}
	if strings.HasPrefix(msg.Text, m.leader) {
		return nil, nil
	}

	// let everything else answer first
	if err := sleep(ctx, m.settle); err != nil {
		return nil, nil
	}
	if m.float() < m.cfg.IgnoreChance || !m.limiter.Allow() {
		return nil, nil
	}

	line, err := m.fetch(ctx, m.topic(msg.Text))
	if err != nil {
		return nil, err
	}
	if err := sleep(ctx, m.delay()); err != nil {
		return nil, nil
	}
	log.WithField("channel", msg.Channel).Debugf("generated %q", line)
	return []api.Reply{api.Say(prefix + line)}, nil
}

// topic picks a random word worth talking about, if any
func (m *Module) topic(text string) *string {
	var choices []string
	for _, word := range strings.Fields(text) {
		if strings.HasPrefix(word, "http") || strings.HasPrefix(word, m.leader) || strings.HasPrefix(word, ".") {
			continue
		}
		choices = append(choices, word)
	}
	if len(choices) == 0 {
		return nil
	}
	m.mu.Lock()
	word := choices[m.rng.Intn(len(choices))]
	m.mu.Unlock()
	return &word
}

func (m *Module) delay() time.Duration {
	lower, upper := m.cfg.DelayLower, m.cfg.DelayUpper
	if upper <= lower {
		return lower
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return lower + time.Duration(m.rng.Int63n(int64(upper-lower)))
}

func (m *Module) float() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rng.Float64()
}

func (m *Module) intn(n int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rng.Intn(n)
}

type generateRequest struct {
	Min     int     `json:"min"`
	Max     int     `json:"max"`
	Context *string `json:"context"`
}

type generateResponse struct {
	Status string `json:"status"`
	Data   string `json:"data"`
}

func (m *Module) fetch(ctx context.Context, topic *string) (string, error) {
	body, err := json.Marshal(generateRequest{
		Min:     1 + m.intn(3),
		Max:     maxWords,
		Context: topic,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.generate, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("generate: %s", resp.Status)
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("generate: cannot decode response: %w", err)
	}
	return out.Data, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
