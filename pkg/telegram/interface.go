// Package telegram provides a minimal Telegram Bot API client covering the
// two calls the application needs: sending messages and long-polling updates.
package telegram

import "context"

// Update is one incoming event from getUpdates. Only message updates are
// used; everything else arrives with a nil Message and is skipped.
type Update struct {
	ID      int64    `json:"update_id"`
	Message *Message `json:"message"`
}

// Message is an incoming chat message.
type Message struct {
	ID   int64  `json:"message_id"`
	Text string `json:"text"`
	Chat Chat   `json:"chat"`
	From *User  `json:"from"`
}

// Chat identifies the conversation a message belongs to.
type Chat struct {
	ID int64 `json:"id"`
}

// User identifies the sender of a message.
type User struct {
	ID int64 `json:"id"`
}

// API is the abstraction over the Telegram Bot API consumed by the command
// bot and the notifier.
//
//go:generate mockgen -package mocktelegram -source=interface.go -destination=mock/mocktelegram.go *
type API interface {
	// SendMessage delivers a Markdown-formatted text to the given chat.
	SendMessage(ctx context.Context, chatID int64, text string) error
	// GetUpdates long-polls for updates with an ID greater than or equal to
	// offset, waiting up to the client's configured poll timeout.
	GetUpdates(ctx context.Context, offset int64) ([]Update, error)
}
