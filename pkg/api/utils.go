package api

import (
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	loggersMu sync.Mutex
	loggers   []*logrus.Logger
)

// NewLogger returns a logger that follows SetLogLevel
func NewLogger() *logrus.Logger {
	l := logrus.New()
	loggersMu.Lock()
	loggers = append(loggers, l)
	loggersMu.Unlock()
	return l
}

// SetLogLevel sets the level of every logger made by NewLogger
func SetLogLevel(level logrus.Level) {
	loggersMu.Lock()
	defer loggersMu.Unlock()
	for _, l := range loggers {
		l.SetLevel(level)
	}
}

// Send delivers replies in the context of msg
func Send(r Responder, msg *Message, replies []Reply) error {
	for _, reply := range replies {
		text := strings.TrimSpace(reply.Message)
		if text == "" {
			continue
		}
		var err error
		if reply.Threaded {
			err = r.Reply(msg, text)
		} else {
			err = r.Say(msg.Channel, text)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
