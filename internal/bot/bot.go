// Package bot implements the Telegram command surface: a long-polling loop
// that reads operator commands from a single admin chat and drives the
// monitoring engine.
package bot

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"certwatch/internal/config"
	"certwatch/pkg/domain"
	"certwatch/pkg/logger"
	"certwatch/pkg/serrors"
	"certwatch/pkg/telegram"

	"go.uber.org/zap"
)

// Monitor is the slice of the monitoring engine the bot drives.
//
//go:generate mockgen -package mockbot -source=bot.go -destination=mock/mockbot.go *
type Monitor interface {
	AddDomain(raw string) (string, bool, error)
	RemoveDomain(ctx context.Context, raw string) error
	Domains() []string
	Running() bool
	Start(ctx context.Context) bool
	Stop() bool
	Probe(ctx context.Context, raw string) (domain.ScanResult, []string, error)
}

const helpText = `*Commands*

/auth <password> - authenticate this chat
/add <domain> - start monitoring a domain
/remove <domain> - stop monitoring a domain and forget its subdomains
/list - show monitored domains
/probe <domain> - scan a domain right now
/start - start the monitoring loop
/stop - stop the monitoring loop
/status - show monitoring state
/help - show this message`

// pollRetryDelay is the pause before re-polling after a failed getUpdates.
const pollRetryDelay = 5 * time.Second

// Options configure the Bot.
type Options struct {
	// AdminChatID is the only chat the bot accepts commands from.
	AdminChatID int64
	// Password gates commands until /auth succeeds. Empty disables the gate.
	Password string
}

// NewOptions constructs an Options value from the provided application config.
func NewOptions(cfg *config.Config) Options {
	return Options{
		AdminChatID: cfg.Telegram.AdminChatID,
		Password:    cfg.Telegram.Password,
	}
}

// Bot reads commands from the admin chat and translates them into monitor
// operations. Commands other than /auth and /help require authentication
// when a password is configured.
type Bot struct {
	api  telegram.API
	mon  Monitor
	opts Options

	mu     sync.Mutex
	authed bool
	offset int64
}

// New constructs a Bot on top of the given Telegram API and monitor.
func New(api telegram.API, mon Monitor, opts Options) *Bot {
	return &Bot{
		api:    api,
		mon:    mon,
		opts:   opts,
		authed: opts.Password == "",
	}
}

// Run long-polls for updates until ctx is canceled. Poll failures are logged
// and retried after a short delay; they never terminate the loop.
func (b *Bot) Run(ctx context.Context) error {
	logger.Info(ctx, "bot loop started", zap.Int64("adminChatID", b.opts.AdminChatID))

	for {
		if ctx.Err() != nil {
			logger.Info(ctx, "bot loop stopped")

			return ctx.Err() //nolint: wrapcheck
		}

		updates, err := b.api.GetUpdates(ctx, b.offset)
		if err != nil {
			if ctx.Err() != nil {
				logger.Info(ctx, "bot loop stopped")

				return ctx.Err() //nolint: wrapcheck
			}

			logger.Warn(ctx, "could not poll updates", zap.Error(err))
			select {
			case <-ctx.Done():
				return ctx.Err() //nolint: wrapcheck
			case <-time.After(pollRetryDelay):
			}

			continue
		}

		for _, update := range updates {
			if update.ID >= b.offset {
				b.offset = update.ID + 1
			}
			if update.Message == nil {
				continue
			}

			b.HandleMessage(ctx, *update.Message)
		}
	}
}

// HandleMessage processes one incoming message: messages from chats other
// than the admin chat are dropped, everything else goes through the command
// dispatcher and the reply (if any) is sent back to the chat.
func (b *Bot) HandleMessage(ctx context.Context, msg telegram.Message) {
	if msg.Chat.ID != b.opts.AdminChatID {
		logger.Warn(ctx, "ignoring message from unknown chat",
			zap.Int64("chatID", msg.Chat.ID))

		return
	}

	reply := b.dispatch(ctx, msg.Text)
	if reply == "" {
		return
	}

	if err := b.api.SendMessage(ctx, msg.Chat.ID, reply); err != nil {
		logger.Error(ctx, "could not send reply", zap.Error(err))
	}
}

// dispatch parses text as a command and executes it, returning the reply.
// Non-command text is ignored.
func (b *Bot) dispatch(ctx context.Context, text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return ""
	}

	// Group chats suffix commands with the bot username.
	cmd, _, _ := strings.Cut(fields[0], "@")
	args := fields[1:]

	switch cmd {
	case "/auth":
		return b.auth(args)
	case "/help":
		return helpText
	}

	if !b.authorized() {
		return "🔒 Not authenticated. Use /auth <password> first."
	}

	switch cmd {
	case "/add":
		return b.add(args)
	case "/remove":
		return b.remove(ctx, args)
	case "/list":
		return b.list()
	case "/probe":
		return b.probe(ctx, args)
	case "/start":
		return b.start(ctx)
	case "/stop":
		return b.stop()
	case "/status":
		return b.status()
	default:
		return "Unknown command. See /help."
	}
}

func (b *Bot) authorized() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.authed
}

func (b *Bot) auth(args []string) string {
	if b.opts.Password == "" {
		return "✅ Authentication is not required."
	}
	if len(args) != 1 {
		return "Usage: /auth <password>"
	}

	if subtle.ConstantTimeCompare([]byte(args[0]), []byte(b.opts.Password)) != 1 {
		return "❌ Wrong password."
	}

	b.mu.Lock()
	b.authed = true
	b.mu.Unlock()

	return "✅ Authenticated."
}

func (b *Bot) add(args []string) string {
	if len(args) != 1 {
		return "Usage: /add <domain>"
	}

	name, added, err := b.mon.AddDomain(args[0])
	if err != nil {
		return "❌ " + errText(err)
	}
	if !added {
		return fmt.Sprintf("ℹ️ *%s* is already monitored.", name)
	}

	return fmt.Sprintf("✅ Monitoring *%s*.", name)
}

func (b *Bot) remove(ctx context.Context, args []string) string {
	if len(args) != 1 {
		return "Usage: /remove <domain>"
	}

	if err := b.mon.RemoveDomain(ctx, args[0]); err != nil {
		if errors.Is(err, serrors.ErrNotFound) {
			return fmt.Sprintf("ℹ️ *%s* is not monitored.", args[0])
		}

		return "❌ " + errText(err)
	}

	return fmt.Sprintf("✅ Stopped monitoring *%s*.", args[0])
}

func (b *Bot) list() string {
	domains := b.mon.Domains()
	if len(domains) == 0 {
		return "No domains are monitored. Use /add <domain>."
	}

	var sb strings.Builder
	sb.WriteString("*Monitored domains*\n")
	for _, d := range domains {
		fmt.Fprintf(&sb, "• %s\n", d)
	}

	return strings.TrimRight(sb.String(), "\n")
}

func (b *Bot) probe(ctx context.Context, args []string) string {
	if len(args) != 1 {
		return "Usage: /probe <domain>"
	}

	res, newSubdomains, err := b.mon.Probe(ctx, args[0])
	if err != nil {
		return "❌ " + errText(err)
	}

	return fmt.Sprintf("🔍 Scanned *%s*: %d subdomains known, %d new.",
		res.Domain, res.Subdomains.Len(), len(newSubdomains))
}

func (b *Bot) start(ctx context.Context) string {
	if !b.mon.Start(ctx) {
		return "ℹ️ Monitoring is already running."
	}

	return "▶️ Monitoring started."
}

func (b *Bot) stop() string {
	if !b.mon.Stop() {
		return "ℹ️ Monitoring is not running."
	}

	return "⏹️ Monitoring stopped."
}

func (b *Bot) status() string {
	state := "stopped"
	if b.mon.Running() {
		state = "running"
	}

	return fmt.Sprintf("📊 Monitoring is *%s*. Domains: %d.", state, len(b.mon.Domains()))
}

// errText extracts the operator-facing message from err, preferring the
// semantic error's own message over the full chain.
func errText(err error) string {
	var serr *serrors.Error
	if errors.As(err, &serr) && serr.Message() != "" {
		return serr.Message()
	}

	return err.Error()
}
