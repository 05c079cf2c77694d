// Package notify defines the outbound notification contract. The monitor
// treats the sink as fire-and-forget: a failed Send is logged and counted but
// never stalls or aborts a scan pass.
//
//go:generate mockgen -package mocknotify -source=interface.go -destination=mock/mocknotify.go *
package notify

import "context"

// Notifier delivers one plain-text (markdown-safe) message to the operator.
type Notifier interface {
	Send(ctx context.Context, text string) error
}
