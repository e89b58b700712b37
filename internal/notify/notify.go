package notify

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Message is a notification addressed to a single recipient.
type Message struct {
	Recipient string `json:"recipient"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
}

// Sender delivers notifications. A returned error means the message was not accepted.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// LogSender writes notifications to the log instead of delivering them.
type LogSender struct {
	log *logrus.Logger
}

func NewLogSender(log *logrus.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Send(_ context.Context, msg Message) error {
	s.log.WithFields(logrus.Fields{
		"recipient": msg.Recipient,
		"subject":   msg.Subject,
	}).Info(msg.Body)
	return nil
}
