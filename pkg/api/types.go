package api

import (
	"context"

	"github.com/BonnierNews/shakenbot/pkg/command"
)

// Symbolname for exported symbols
const (
	SymbolName = "ShakenModule"
)

// Message is a line of chat received from the transport
type Message struct {
	Channel   string
	User      string
	UserName  string
	Text      string
	Timestamp string
	// Mentioned is set when the line addressed the bot directly
	Mentioned bool
}

// Reply is a message to be sent back, either to the channel or in
// reply to the message that triggered it
type Reply struct {
	Message  string
	Threaded bool
}

// Say replies to the channel
func Say(msg string) Reply { return Reply{Message: msg} }

// Respond replies to the triggering message
func Respond(msg string) Reply { return Reply{Message: msg, Threaded: true} }

// Request is handed to a command that matched
type Request struct {
	Msg  *Message
	Cmd  *command.Command
	Args command.Args
}

// Module a plugin that can be initialized
type Module interface {
	Init(context.Context) error
}

// Command represents a bot command. Usage is parsed into the command's
// argument schema, e.g. "!crate <crate>".
type Command interface {
	Usage() string
	ShortDesc() string
	Elevated() bool
	Exec(context.Context, *Request) ([]Reply, error)
}

// Commands a plugin that contains one or more commands, keyed by name
type Commands interface {
	Module
	Registry() map[string]Command
}

// Passive sees every message, commands included
type Passive interface {
	Observe(context.Context, *Message) ([]Reply, error)
}

// Lister exposes per-channel commands that are not registered up front
type Lister interface {
	Names(channel string) []string
	Lookup(channel, name string) (string, bool)
}

// Responder delivers replies to the chat
type Responder interface {
	Say(channel, text string) error
	Reply(msg *Message, text string) error
}

// Directory answers questions about chat users
type Directory interface {
	IsElevated(ctx context.Context, user string) (bool, error)
}
