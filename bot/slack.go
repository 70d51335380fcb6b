package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/BonnierNews/shakenbot/pkg/api"
	"github.com/nlopes/slack"
)

// slackChat sends replies over the RTM connection and caches user lookups
type slackChat struct {
	rtm *slack.RTM

	mu    sync.RWMutex
	users map[string]*slack.User
}

func newSlackChat(rtm *slack.RTM) *slackChat {
	return &slackChat{
		rtm:   rtm,
		users: make(map[string]*slack.User),
	}
}

func (s *slackChat) Say(channel, text string) error {
	s.rtm.SendMessage(s.rtm.NewOutgoingMessage(text, channel))
	return nil
}

func (s *slackChat) Reply(msg *api.Message, text string) error {
	out := s.rtm.NewOutgoingMessage(text, msg.Channel)
	out.ThreadTimestamp = msg.Timestamp
	s.rtm.SendMessage(out)
	return nil
}

func (s *slackChat) IsElevated(ctx context.Context, user string) (bool, error) {
	u, err := s.user(user)
	if err != nil {
		return false, err
	}
	return u.IsAdmin || u.IsOwner, nil
}

func (s *slackChat) userName(id string) string {
	u, err := s.user(id)
	if err != nil {
		log.Warnf("cannot look up user %s: %v", id, err)
		return id
	}
	return u.Name
}

func (s *slackChat) user(id string) (*slack.User, error) {
	s.mu.RLock()
	u, ok := s.users[id]
	s.mu.RUnlock()
	if ok {
		return u, nil
	}

	u, err := s.rtm.GetUserInfo(id)
	if err != nil {
		return nil, fmt.Errorf("user info for %s: %w", id, err)
	}
	s.mu.Lock()
	s.users[id] = u
	s.mu.Unlock()
	return u, nil
}

// toMessage converts a slack event, dropping the bot's own messages,
// edits and other subtypes. A leading mention of the bot is stripped.
func toMessage(ev *slack.MessageEvent, botID string) (*api.Message, bool) {
	if ev.SubType != "" || ev.User == "" || ev.User == botID {
		return nil, false
	}

	msg := &api.Message{
		Channel:   ev.Channel,
		User:      ev.User,
		UserName:  ev.User,
		Text:      strings.TrimSpace(ev.Text),
		Timestamp: ev.Timestamp,
	}
	mention := fmt.Sprintf("<@%s>", botID)
	if strings.HasPrefix(msg.Text, mention) {
		msg.Text = strings.TrimSpace(strings.TrimPrefix(msg.Text, mention))
		msg.Mentioned = true
	} else if strings.Contains(msg.Text, mention) {
		msg.Mentioned = true
	}
	return msg, msg.Text != "" || msg.Mentioned
}
