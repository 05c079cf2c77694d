package monitor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"certwatch/pkg/domain"
	"certwatch/pkg/logger"
	"certwatch/pkg/notify"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Dispatcher turns scan events into outbound notifications. Delivery is
// fire-and-forget from the scheduler's point of view: a sink failure is
// logged and counted, never propagated.
type Dispatcher struct {
	notifier notify.Notifier
	failures metric.Int64Counter
}

// NewDispatcher constructs a Dispatcher. failures may be nil when the caller
// does not record metrics.
func NewDispatcher(notifier notify.Notifier, failures metric.Int64Counter) *Dispatcher {
	return &Dispatcher{notifier: notifier, failures: failures}
}

// Alert notifies the operator about newly discovered subdomains.
func (d *Dispatcher) Alert(ctx context.Context, event domain.AlertEvent) {
	d.send(ctx, FormatAlert(event))
}

// Error notifies the operator about a terminally failed scan or a
// persistence failure.
func (d *Dispatcher) Error(ctx context.Context, event domain.ErrorEvent) {
	d.send(ctx, FormatError(event))
}

// QuietPass notifies the operator that a full pass found nothing new.
func (d *Dispatcher) QuietPass(ctx context.Context, domains []string, nextIn time.Duration) {
	d.send(ctx, FormatQuietPass(domains, nextIn))
}

func (d *Dispatcher) send(ctx context.Context, text string) {
	if err := d.notifier.Send(ctx, text); err != nil {
		logger.Error(ctx, "could not deliver notification", zap.Error(err))
		if d.failures != nil {
			d.failures.Add(ctx, 1)
		}
	}
}

// FormatAlert renders an alert notification: the domain, the count and the
// full sorted list of new subdomains.
func FormatAlert(event domain.AlertEvent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🚨 *New subdomains detected on %s*\n\n", event.Domain)
	fmt.Fprintf(&b, "📊 *Total found: %d*\n\n", len(event.NewSubdomains))
	for i, sub := range event.NewSubdomains {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "`%s`", sub)
	}

	return b.String()
}

// FormatError renders an error notification with the error category and a
// human-readable cause.
func FormatError(event domain.ErrorEvent) string {
	return fmt.Sprintf("⚠️ *Scan error on %s*\n\nKind: `%s`\nCause: `%s`",
		event.Domain, event.Kind, event.Cause)
}

// FormatQuietPass renders the all-quiet summary sent after a pass that
// produced no alerts.
func FormatQuietPass(domains []string, nextIn time.Duration) string {
	var b strings.Builder
	b.WriteString("✅ *Scan complete*\n\nChecked:\n")
	for _, d := range domains {
		fmt.Fprintf(&b, "• *%s*\n", d)
	}
	b.WriteString("\nNo new subdomains detected this cycle.\n")
	fmt.Fprintf(&b, "⏰ Next scan in: %s", FormatInterval(nextIn))

	return b.String()
}

// FormatInterval renders a duration as "N hours, M minutes, S seconds",
// omitting zero components ("0 seconds" for a zero duration).
func FormatInterval(d time.Duration) string {
	total := int(d.Seconds())
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60

	var parts []string
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%d %s", hours, plural("hour", hours)))
	}
	if minutes > 0 {
		parts = append(parts, fmt.Sprintf("%d %s", minutes, plural("minute", minutes)))
	}
	if seconds > 0 || len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("%d %s", seconds, plural("second", seconds)))
	}

	return strings.Join(parts, ", ")
}

func plural(unit string, n int) string {
	if n == 1 {
		return unit
	}

	return unit + "s"
}
