package collaborators

import (
	"context"
	"time"
)

// NotificationClient delivers templated messages.
type NotificationClient struct {
	client
}

// NewNotificationClient creates a NotificationClient for baseURL.
func NewNotificationClient(baseURL string, timeout time.Duration) *NotificationClient {
	return &NotificationClient{client: newClient("notification", baseURL, timeout)}
}

type notification struct {
	Channel   string            `json:"channel"`
	Recipient string            `json:"recipient"`
	Template  string            `json:"template"`
	Data      map[string]string `json:"data,omitempty"`
}

// Notify sends template to recipient over channel.
func (c *NotificationClient) Notify(ctx context.Context, channel, recipient, template string, data map[string]string) error {
	return c.post(ctx, "/notifications", notification{
		Channel:   channel,
		Recipient: recipient,
		Template:  template,
		Data:      data,
	}, nil)
}
