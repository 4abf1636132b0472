// Package feedback carries the receiver's decision back to the sender through
// the shared key-value store.
//
// The queue is a JSON array stored under a single key and rewritten as a
// whole on every change. Writers do not lock: two receivers deciding at the
// same moment can race and one entry may be lost. Delivery is best-effort.
package feedback

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/BTreeMap/MissionLink/internal/models"
	"github.com/BTreeMap/MissionLink/internal/store"
)

// QueueKey is the store key holding the feedback queue.
const QueueKey = "mission_feedback_queue"

// Filter narrows PollUnread to one sender and/or receiver. Empty fields match
// any value; comparison is case-insensitive.
type Filter struct {
	From string
	To   string
}

func (f Filter) matches(e models.FeedbackEntry) bool {
	if f.From != "" && !strings.EqualFold(f.From, e.From) {
		return false
	}
	if f.To != "" && !strings.EqualFold(f.To, e.To) {
		return false
	}
	return true
}

// Channel is the append/read/update API over the shared queue.
type Channel struct {
	kv store.KV
}

// NewChannel creates a Channel over kv.
func NewChannel(kv store.KV) *Channel {
	return &Channel{kv: kv}
}

// NewEntry builds an unread entry stamped with the current Unix milliseconds.
func NewEntry(from, to string, decision models.Decision) models.FeedbackEntry {
	return models.FeedbackEntry{
		ID:       time.Now().UnixMilli(),
		From:     from,
		To:       to,
		Response: decision.Response(),
		Read:     false,
	}
}

// load reads the queue. Absent or unparsable values are an empty queue; only
// a failing store is an error.
func (c *Channel) load(ctx context.Context) ([]models.FeedbackEntry, error) {
	raw, ok, err := c.kv.Get(ctx, QueueKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read feedback queue: %w", err)
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	var queue []models.FeedbackEntry
	if err := json.Unmarshal([]byte(raw), &queue); err != nil {
		slog.Warn("Channel.load: feedback queue is corrupt, treating as empty", "error", err, "bytes", len(raw))
		return nil, nil
	}
	return queue, nil
}

func (c *Channel) save(ctx context.Context, queue []models.FeedbackEntry) error {
	if queue == nil {
		queue = []models.FeedbackEntry{}
	}
	data, err := json.Marshal(queue)
	if err != nil {
		return fmt.Errorf("failed to encode feedback queue: %w", err)
	}
	if err := c.kv.Set(ctx, QueueKey, string(data)); err != nil {
		return fmt.Errorf("failed to write feedback queue: %w", err)
	}
	return nil
}

// Publish appends entry to the queue and returns it as stored. The ID is
// bumped past every queued ID when it would otherwise collide. When the store
// cannot be read nothing is written, so entries of other sessions survive.
func (c *Channel) Publish(ctx context.Context, entry models.FeedbackEntry) (models.FeedbackEntry, error) {
	queue, err := c.load(ctx)
	if err != nil {
		return entry, err
	}

	if entry.ID == 0 {
		entry.ID = time.Now().UnixMilli()
	}
	var maxID int64
	for _, e := range queue {
		if e.ID > maxID {
			maxID = e.ID
		}
	}
	if entry.ID <= maxID {
		entry.ID = maxID + 1
	}

	queue = append(queue, entry)
	if err := c.save(ctx, queue); err != nil {
		return entry, err
	}

	slog.Debug("Channel.Publish: feedback queued", "id", entry.ID, "from", entry.From, "to", entry.To, "response", entry.Response, "queueLen", len(queue))
	return entry, nil
}

// PollUnread returns unread entries matching f, in queue order.
func (c *Channel) PollUnread(ctx context.Context, f Filter) ([]models.FeedbackEntry, error) {
	queue, err := c.load(ctx)
	if err != nil {
		return nil, err
	}

	var unread []models.FeedbackEntry
	for _, e := range queue {
		if !e.Read && f.matches(e) {
			unread = append(unread, e)
		}
	}
	return unread, nil
}

// MarkRead flags the entry with id as read. Unknown or already read ids leave
// the stored queue untouched.
func (c *Channel) MarkRead(ctx context.Context, id int64) error {
	queue, err := c.load(ctx)
	if err != nil {
		return err
	}

	for i := range queue {
		if queue[i].ID != id {
			continue
		}
		if queue[i].Read {
			return nil
		}
		queue[i].Read = true
		if err := c.save(ctx, queue); err != nil {
			return err
		}
		slog.Debug("Channel.MarkRead: entry marked read", "id", id)
		return nil
	}

	slog.Debug("Channel.MarkRead: unknown id, nothing written", "id", id)
	return nil
}

// Clear empties the queue together with every other key of the shared
// namespace. Only receiver teardown calls it.
func (c *Channel) Clear(ctx context.Context) error {
	if err := c.kv.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear feedback store: %w", err)
	}
	slog.Debug("Channel.Clear: shared store cleared")
	return nil
}
