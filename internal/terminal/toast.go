package terminal

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/BTreeMap/MissionLink/internal/models"
)

var acceptColor = lipgloss.Color("#43A047")

// toast is one visible notification.
type toast struct {
	id    int64
	lines int
	timer *time.Timer
}

// Toaster shows feedback entries as transient boxes on the sender's terminal.
// It implements feedback.Notifier.
type Toaster struct {
	out          io.Writer
	duration     time.Duration
	dismissDelay time.Duration
	muted        bool

	mu      sync.Mutex
	active  *toast
	pending *time.Timer
}

// NewToaster creates a Toaster. Toasts auto-dismiss after duration; a user
// dismissal takes effect after dismissDelay.
func NewToaster(out io.Writer, duration, dismissDelay time.Duration, muted bool) *Toaster {
	return &Toaster{out: out, duration: duration, dismissDelay: dismissDelay, muted: muted}
}

// Render returns the toast box for e.
func Render(e models.FeedbackEntry) string {
	color, title := acceptColor, "MISSION ACCEPTED"
	if !e.Accepted() {
		color, title = alertColor, "MISSION DECLINED"
	}
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(color).
		Padding(0, 2)
	heading := lipgloss.NewStyle().Foreground(color).Bold(true).Render(title)
	body := fmt.Sprintf("AGENT %s HAS %s THE MISSION.", e.To, e.Response)
	return box.Render(heading + "\n" + body)
}

// Notify replaces any visible toast with one for e.
func (t *Toaster) Notify(_ context.Context, e models.FeedbackEntry) error {
	rendered := Render(e)
	sound := ""
	if !t.muted {
		sound = bell
		if !e.Accepted() {
			sound = bell + bell
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.eraseLocked()

	if _, err := io.WriteString(t.out, sound+strings.ReplaceAll(rendered, "\n", eol)+eol); err != nil {
		return fmt.Errorf("failed to draw toast: %w", err)
	}
	current := &toast{id: e.ID, lines: strings.Count(rendered, "\n") + 1}
	if t.duration > 0 {
		current.timer = time.AfterFunc(t.duration, func() { t.dismiss(current) })
	}
	t.active = current
	return nil
}

// Dismiss removes the visible toast after the dismiss delay.
func (t *Toaster) Dismiss() {
	t.mu.Lock()
	defer t.mu.Unlock()
	current := t.active
	if current == nil {
		return
	}
	if t.dismissDelay <= 0 {
		t.eraseLocked()
		return
	}
	if t.pending != nil {
		t.pending.Stop()
	}
	t.pending = time.AfterFunc(t.dismissDelay, func() { t.dismiss(current) })
}

// Active reports the ID of the visible toast.
func (t *Toaster) Active() (int64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.active == nil {
		return 0, false
	}
	return t.active.id, true
}

// Close stops pending dismissals and leaves the screen as is.
func (t *Toaster) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.active != nil && t.active.timer != nil {
		t.active.timer.Stop()
	}
	if t.pending != nil {
		t.pending.Stop()
	}
	t.active = nil
}

func (t *Toaster) dismiss(target *toast) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.active != target {
		return
	}
	t.eraseLocked()
}

// eraseLocked moves the cursor over the visible toast and clears it.
func (t *Toaster) eraseLocked() {
	if t.active == nil {
		return
	}
	if t.active.timer != nil {
		t.active.timer.Stop()
	}
	fmt.Fprintf(t.out, "\x1b[%dA\r\x1b[J", t.active.lines)
	t.active = nil
}
