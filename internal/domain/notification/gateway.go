// internal/domain/notification/gateway.go
package notification

import (
	"context"
	"errors"
)

// ErrNotifierFailure wraps any transport error raised while delivering a message.
// It is never fatal to the operation that triggered the send.
var ErrNotifierFailure = errors.New("notification delivery failed")

// ErrUnknownChannel is returned for a channel hint with no registered channel.
var ErrUnknownChannel = errors.New("unknown notification channel")

// ChannelHint selects a delivery channel. The empty hint means the default channel.
type ChannelHint string

const (
	ChannelDefault  ChannelHint = ""
	ChannelTelegram ChannelHint = "telegram"
	ChannelWebhook  ChannelHint = "webhook"
)

// Action is an inline choice offered with a message. Data is the opaque callback payload.
type Action struct {
	Label string
	Data  string
}

// Message is a channel-neutral notification.
type Message struct {
	Title   string
	Body    string
	Actions []Action
}

// Text renders title and body as plain text.
func (m Message) Text() string {
	if m.Title == "" {
		return m.Body
	}
	if m.Body == "" {
		return m.Title
	}
	return m.Title + "\n\n" + m.Body
}

// Gateway sends a message to one recipient. No retries are performed.
type Gateway interface {
	Send(ctx context.Context, recipientID int64, hint ChannelHint, msg Message) error
}

// Channel is one concrete transport behind a Gateway.
type Channel interface {
	Name() ChannelHint
	Deliver(ctx context.Context, recipientID int64, msg Message) error
}
