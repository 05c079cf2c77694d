package telegram

import (
	"context"

	"certwatch/pkg/notify"
)

// notifier adapts an API plus a fixed chat into the notify.Notifier contract.
type notifier struct {
	api    API
	chatID int64
}

// Send delivers text to the configured chat.
func (n *notifier) Send(ctx context.Context, text string) error {
	return n.api.SendMessage(ctx, n.chatID, text) //nolint: wrapcheck
}

// NewNotifier returns a notify.Notifier that posts every message to chatID
// through the given API.
func NewNotifier(api API, chatID int64) notify.Notifier {
	return &notifier{api: api, chatID: chatID}
}
