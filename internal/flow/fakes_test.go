package flow

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/BTreeMap/MissionLink/internal/config"
	"github.com/BTreeMap/MissionLink/internal/models"
	"github.com/BTreeMap/MissionLink/internal/tone"
)

// ---- fakeTimer ----

type fakeEntry struct {
	id  string
	at  time.Duration
	seq int
	fn  func()
}

// fakeTimer is a manual clock. Callbacks only fire from advance.
type fakeTimer struct {
	mu      sync.Mutex
	now     time.Duration
	seq     int
	pending map[string]*fakeEntry
	stops   int
	cancels []string
}

func newFakeTimer() *fakeTimer {
	return &fakeTimer{pending: make(map[string]*fakeEntry)}
}

func (f *fakeTimer) ScheduleAfter(d time.Duration, fn func()) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	id := fmt.Sprintf("fake_%d", f.seq)
	f.pending[id] = &fakeEntry{id: id, at: f.now + d, seq: f.seq, fn: fn}
	return id, nil
}

func (f *fakeTimer) Cancel(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancels = append(f.cancels, id)
	delete(f.pending, id)
	return nil
}

func (f *fakeTimer) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	f.pending = make(map[string]*fakeEntry)
}

func (f *fakeTimer) ListActive() []models.TimerInfo {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.TimerInfo, 0, len(f.pending))
	for id := range f.pending {
		out = append(out, models.TimerInfo{ID: id})
	}
	return out
}

// fireNext runs the earliest callback due at or before limit.
func (f *fakeTimer) fireNext(limit time.Duration) bool {
	f.mu.Lock()
	entries := make([]*fakeEntry, 0, len(f.pending))
	for _, e := range f.pending {
		if e.at <= limit {
			entries = append(entries, e)
		}
	}
	if len(entries) == 0 {
		f.mu.Unlock()
		return false
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].at != entries[j].at {
			return entries[i].at < entries[j].at
		}
		return entries[i].seq < entries[j].seq
	})
	next := entries[0]
	delete(f.pending, next.id)
	f.now = next.at
	f.mu.Unlock()

	next.fn()
	return true
}

func (f *fakeTimer) clock() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// ---- recorder ----

type event struct {
	at     time.Duration
	kind   string
	target Target
	text   string
	style  LineStyle
	value  int
}

// recorder implements Effects, Sound, Renderer and Navigator.
type recorder struct {
	clock *fakeTimer

	mu          sync.Mutex
	events      []event
	holdReveals bool
	heldDone    []func()
	theme       tone.Preset
}

func (r *recorder) add(e event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e.at = r.clock.clock()
	r.events = append(r.events, e)
}

func (r *recorder) RevealText(target Target, text string, _ time.Duration, done func()) {
	r.add(event{kind: "reveal", target: target, text: text})
	r.mu.Lock()
	hold := r.holdReveals
	if hold {
		r.heldDone = append(r.heldDone, done)
	}
	r.mu.Unlock()
	if !hold {
		done()
	}
}

func (r *recorder) FadeOut(target Target, done func()) {
	r.add(event{kind: "fadeout", target: target})
	done()
}

func (r *recorder) FadeIn(target Target, done func()) {
	r.add(event{kind: "fadein", target: target})
	done()
}

func (r *recorder) Emphasize(target Target) { r.add(event{kind: "emphasize", target: target}) }

func (r *recorder) PlayCue(cue Cue) error {
	r.add(event{kind: "cue", text: string(cue)})
	return nil
}

func (r *recorder) ApplyTheme(p tone.Preset) {
	r.mu.Lock()
	r.theme = p
	r.mu.Unlock()
	r.add(event{kind: "theme", text: string(p.Name)})
}

func (r *recorder) RequestFullscreen() error {
	r.add(event{kind: "fullscreen"})
	return errors.New("fullscreen not permitted")
}

func (r *recorder) AppendLine(target Target, text string, style LineStyle) {
	r.add(event{kind: "append", target: target, text: text, style: style})
}

func (r *recorder) Show(target Target) { r.add(event{kind: "show", target: target}) }
func (r *recorder) Hide(target Target) { r.add(event{kind: "hide", target: target}) }
func (r *recorder) CompleteProgress() { r.add(event{kind: "progress"}) }
func (r *recorder) SetCountdown(n int) { r.add(event{kind: "countdown", value: n}) }
func (r *recorder) EngageIntensity() { r.add(event{kind: "intensity"}) }
func (r *recorder) ClearHistory() error { r.add(event{kind: "clear-history"}); return nil }
func (r *recorder) Navigate(d string) error { r.add(event{kind: "navigate", text: d}); return nil }
func (r *recorder) Close() error { r.add(event{kind: "close"}); return nil }

// filter returns the events of kind, in order.
func (r *recorder) filter(kind string) []event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []event
	for _, e := range r.events {
		if e.kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// index returns the position of the first event matching pred, or -1.
func (r *recorder) index(pred func(event) bool) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, e := range r.events {
		if pred(e) {
			return i
		}
	}
	return -1
}

// releaseReveal completes the oldest held reveal.
func (r *recorder) releaseReveal() bool {
	r.mu.Lock()
	if len(r.heldDone) == 0 {
		r.mu.Unlock()
		return false
	}
	done := r.heldDone[0]
	r.heldDone = r.heldDone[1:]
	r.mu.Unlock()
	done()
	return true
}

// ---- publisher ----

type recordingPublisher struct {
	mu        sync.Mutex
	published []models.FeedbackEntry
	clears    int
	err       error
}

func (p *recordingPublisher) Publish(_ context.Context, e models.FeedbackEntry) (models.FeedbackEntry, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return e, p.err
	}
	p.published = append(p.published, e)
	return e, nil
}

func (p *recordingPublisher) Clear(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clears++
	return nil
}

// ---- harness ----

type harness struct {
	t     *testing.T
	ctrl  *Controller
	timer *fakeTimer
	rec   *recorder
	pub   *recordingPublisher
}

var falcon = models.MissionParameters{From: "FALCON", To: "NIGHTINGALE", Tone: models.ToneRomantic, Message: "MEET AT DAWN"}

func newHarness(t *testing.T, cfg *config.Mission, params models.MissionParameters, opts ...Option) *harness {
	t.Helper()
	if cfg == nil {
		def := config.Default()
		cfg = &def
	}
	timer := newFakeTimer()
	rec := &recorder{clock: timer}
	pub := &recordingPublisher{}

	base := []Option{
		WithTimer(timer),
		WithEffects(rec),
		WithSound(rec),
		WithRenderer(rec),
		WithNavigator(rec),
		WithPublisher(pub),
		WithChance(func(float64) bool { return false }),
		WithMissionURL("https://example.com/v/mission.html?to=NIGHTINGALE"),
	}
	ctrl := NewController(cfg, params, append(base, opts...)...)
	return &harness{t: t, ctrl: ctrl, timer: timer, rec: rec, pub: pub}
}

// advance moves the fake clock by d, firing due timers and draining the loop.
func (h *harness) advance(d time.Duration) {
	target := h.timer.clock() + d
	for {
		h.ctrl.loop.drain()
		if !h.timer.fireNext(target) {
			break
		}
	}
	h.timer.mu.Lock()
	h.timer.now = target
	h.timer.mu.Unlock()
	h.ctrl.loop.drain()
}

func (h *harness) start() {
	h.ctrl.Start()
	h.ctrl.loop.drain()
}

func (h *harness) decide(d models.Decision) {
	h.ctrl.Decide(d)
	h.ctrl.loop.drain()
}

func (h *harness) requirePhase(want models.SequencePhase) {
	h.t.Helper()
	if got := h.ctrl.Phase(); got != want {
		h.t.Fatalf("phase = %s, want %s", got, want)
	}
}

func (h *harness) isDone() bool {
	select {
	case <-h.ctrl.Done():
		return true
	default:
		return false
	}
}
