package feedback

import (
	"context"
	"log/slog"
	"time"

	"github.com/BTreeMap/MissionLink/internal/models"
)

// DefaultPollInterval is used when the configured interval is not positive.
const DefaultPollInterval = 3 * time.Second

// Notifier surfaces one feedback entry to the sender.
type Notifier interface {
	Notify(ctx context.Context, entry models.FeedbackEntry) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, entry models.FeedbackEntry) error

func (f NotifierFunc) Notify(ctx context.Context, entry models.FeedbackEntry) error {
	return f(ctx, entry)
}

// Poller periodically surfaces unread feedback, at most one entry per tick.
type Poller struct {
	channel  *Channel
	notifier Notifier
	filter   Filter
	interval time.Duration
}

// NewPoller creates a new Poller.
func NewPoller(channel *Channel, notifier Notifier, filter Filter, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{
		channel:  channel,
		notifier: notifier,
		filter:   filter,
		interval: interval,
	}
}

// Run starts the polling loop. It blocks until the context is cancelled.
func (p *Poller) Run(ctx context.Context) {
	slog.Info("Poller.Run: watching for feedback", "pollInterval", p.interval, "from", p.filter.From, "to", p.filter.To)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Poller.Run: stopping")
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

// poll surfaces the oldest unread entry and marks only that one read.
// It reports whether an entry was surfaced.
func (p *Poller) poll(ctx context.Context) bool {
	unread, err := p.channel.PollUnread(ctx, p.filter)
	if err != nil {
		slog.Error("Poller.poll: read failed", "error", err)
		return false
	}
	if len(unread) == 0 {
		return false
	}

	entry := unread[0]
	slog.Debug("Poller.poll: surfacing feedback", "id", entry.ID, "response", entry.Response, "pending", len(unread))
	if err := p.notifier.Notify(ctx, entry); err != nil {
		slog.Error("Poller.poll: notify failed, will retry", "id", entry.ID, "error", err)
		return false
	}
	if err := p.channel.MarkRead(ctx, entry.ID); err != nil {
		slog.Error("Poller.poll: mark read failed", "id", entry.ID, "error", err)
	}
	return true
}
