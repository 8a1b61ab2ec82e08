package webhook

import (
	"context"
	"fmt"
	"time"

	"hotel_ops_bot/internal/domain/notification"

	"github.com/go-resty/resty/v2"
)

const requestTimeout = 10 * time.Second

type payloadAction struct {
	Label string `json:"label"`
	Data  string `json:"data"`
}

// payload is the JSON document posted for every message.
type payload struct {
	RecipientID int64           `json:"recipient_id"`
	Title       string          `json:"title"`
	Body        string          `json:"body"`
	Actions     []payloadAction `json:"actions,omitempty"`
}

// Channel posts notifications to an operations webhook (a dashboard or chat bridge).
type Channel struct {
	httpClient *resty.Client
	url        string
}

// NewChannel builds the webhook channel. Deliveries are single attempts.
func NewChannel(url, token string) *Channel {
	client := resty.New().
		SetTimeout(requestTimeout).
		SetRetryCount(0).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if token != "" {
		client.SetAuthToken(token)
	}
	return &Channel{httpClient: client, url: url}
}

func (c *Channel) Name() notification.ChannelHint {
	return notification.ChannelWebhook
}

func (c *Channel) Deliver(ctx context.Context, recipientID int64, msg notification.Message) error {
	body := payload{RecipientID: recipientID, Title: msg.Title, Body: msg.Body}
	for _, a := range msg.Actions {
		body.Actions = append(body.Actions, payloadAction{Label: a.Label, Data: a.Data})
	}

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(body).
		Post(c.url)
	if err != nil {
		return fmt.Errorf("failed to call webhook: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode())
	}
	return nil
}
