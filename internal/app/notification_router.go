package app

import (
	"context"
	"fmt"

	"hotel_ops_bot/internal/domain/notification"

	"github.com/sirupsen/logrus"
)

// Router is the notification Gateway. It dispatches to a registered channel by hint; the empty
// hint goes to the default channel.
type Router struct {
	channels map[notification.ChannelHint]notification.Channel
	fallback notification.ChannelHint
	logger   *logrus.Entry
}

func NewRouter(logger *logrus.Entry, defaultChannel notification.Channel, others ...notification.Channel) *Router {
	r := &Router{
		channels: make(map[notification.ChannelHint]notification.Channel, len(others)+1),
		fallback: defaultChannel.Name(),
		logger:   logger.WithField("component", "notification_router"),
	}
	r.channels[defaultChannel.Name()] = defaultChannel
	for _, ch := range others {
		if ch == nil {
			continue
		}
		r.channels[ch.Name()] = ch
	}
	return r
}

// Send delivers msg once. Transport errors come back wrapped in ErrNotifierFailure.
func (r *Router) Send(ctx context.Context, recipientID int64, hint notification.ChannelHint, msg notification.Message) error {
	if hint == notification.ChannelDefault {
		hint = r.fallback
	}
	ch, ok := r.channels[hint]
	if !ok {
		return fmt.Errorf("%w: %w %q", notification.ErrNotifierFailure, notification.ErrUnknownChannel, hint)
	}

	if err := ch.Deliver(ctx, recipientID, msg); err != nil {
		r.logger.WithFields(logrus.Fields{
			"channel":      hint,
			"recipient_id": recipientID,
		}).WithError(err).Debug("Channel delivery failed")
		return fmt.Errorf("%w via %s to %d: %w", notification.ErrNotifierFailure, hint, recipientID, err)
	}
	return nil
}
