package flow

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/BTreeMap/MissionLink/internal/config"
	"github.com/BTreeMap/MissionLink/internal/models"
	"github.com/BTreeMap/MissionLink/internal/util"
)

// publishTimeout bounds the feedback write made on the loop goroutine.
const publishTimeout = 5 * time.Second

// Controller sequences one receiver session: boot, briefing, decision,
// response, countdown and teardown. Exactly one Controller exists per
// mission run and it cannot be restarted.
type Controller struct {
	cfg        *config.Mission
	params     models.MissionParameters
	missionURL string

	effects   Effects
	sound     Sound
	renderer  Renderer
	navigator Navigator
	publisher Publisher
	timer     Timer
	chance    func(p float64) bool
	now       func() time.Time

	loop  *loop
	phase atomic.Int32

	mu      sync.Mutex
	history []models.StateTransition

	// Loop goroutine only
	epoch          int
	decision       models.Decision
	decided        bool
	countdownArmed bool
	countdownID    string
	remaining      int
	intense        bool

	done     chan struct{}
	doneOnce sync.Once
}

// Option configures a Controller.
type Option func(*Controller)

// WithEffects sets the animation collaborator. Nil completes effects immediately.
func WithEffects(e Effects) Option { return func(c *Controller) { c.effects = e } }

// WithSound sets the audio collaborator.
func WithSound(s Sound) Option { return func(c *Controller) { c.sound = s } }

// WithRenderer sets the view collaborator.
func WithRenderer(r Renderer) Option { return func(c *Controller) { c.renderer = r } }

// WithNavigator sets where the session goes once terminated.
func WithNavigator(n Navigator) Option { return func(c *Controller) { c.navigator = n } }

// WithPublisher sets the feedback channel decisions are published to.
func WithPublisher(p Publisher) Option { return func(c *Controller) { c.publisher = p } }

// WithTimer replaces the SimpleTimer.
func WithTimer(t Timer) Option { return func(c *Controller) { c.timer = t } }

// WithChance replaces the random source deciding boot line glitches.
func WithChance(fn func(p float64) bool) Option { return func(c *Controller) { c.chance = fn } }

// WithMissionURL sets the URL the mission was opened from; the expired page
// is resolved next to it.
func WithMissionURL(u string) Option { return func(c *Controller) { c.missionURL = u } }

// NewController creates a Controller in the Idle phase.
func NewController(cfg *config.Mission, params models.MissionParameters, opts ...Option) *Controller {
	if cfg == nil {
		def := config.Default()
		cfg = &def
	}
	c := &Controller{
		cfg:    cfg,
		params: params.WithDefaults(),
		chance: util.Chance,
		now:    time.Now,
		loop:   newLoop(),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.effects == nil {
		c.effects = immediateEffects{}
	}
	if c.sound == nil {
		c.sound = silentSound{}
	}
	if c.renderer == nil {
		c.renderer = nopRenderer{}
	}
	if c.navigator == nil {
		c.navigator = nopNavigator{}
	}
	if c.publisher == nil {
		c.publisher = discardPublisher{}
	}
	if c.timer == nil {
		c.timer = NewSimpleTimer()
	}

	c.effects = guardedEffects{e: c.effects}
	c.sound = guardedSound{s: c.sound}
	c.renderer = guardedRenderer{r: c.renderer}
	c.navigator = guardedNavigator{n: c.navigator}
	c.publisher = guardedPublisher{p: c.publisher}

	c.phase.Store(int32(models.PhaseIdle))
	return c
}

// Phase returns the current phase. Safe from any goroutine.
func (c *Controller) Phase() models.SequencePhase {
	return models.SequencePhase(c.phase.Load())
}

// Done is closed once teardown has finished.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// Start is the user gesture that begins the sequence. Calls outside the Idle
// phase are ignored.
func (c *Controller) Start() {
	c.loop.post(c.begin)
}

// Decide records the receiver's choice. Only the first call made while
// awaiting a decision has any effect.
func (c *Controller) Decide(d models.Decision) {
	c.loop.post(func() { c.decide(d) })
}

// Run processes the sequence until teardown finishes (nil) or ctx is
// cancelled (ctx.Err()). Cancellation is an unload: pending timers are
// dropped and nothing else is cleaned up.
func (c *Controller) Run(ctx context.Context) error {
	slog.Info("Controller.Run: mission sequence ready", "to", c.params.To, "from", c.params.From, "tone", c.params.Tone)

	for {
		c.loop.drain()

		select {
		case <-c.done:
			slog.Info("Controller.Run: mission sequence finished", "transitions", len(c.Transitions()))
			return nil
		default:
		}

		select {
		case <-ctx.Done():
			c.timer.Stop()
			slog.Info("Controller.Run: unloaded mid-sequence", "phase", c.Phase())
			return ctx.Err()
		case <-c.done:
		case <-c.loop.wake:
		}
	}
}

// after schedules fn on the loop after d. Callbacks scheduled before
// termination are dropped once the sequence terminates. When the timer
// refuses, fn is posted immediately so the sequence cannot stall.
func (c *Controller) after(d time.Duration, what string, fn func()) string {
	epoch := c.epoch
	step := func() {
		if c.epoch != epoch {
			slog.Debug("Controller.after: dropping stale step", "step", what)
			return
		}
		fn()
	}

	id, err := c.timer.ScheduleAfter(d, func() { c.loop.post(step) })
	if err != nil {
		slog.Warn("Controller.after: schedule failed, running now", "step", what, "error", err)
		c.loop.post(step)
		return ""
	}
	return id
}

// await starts an effect and continues with next once it completes. The
// completion is honoured once and always runs on the loop.
func (c *Controller) await(start func(done func()), next func()) {
	var once sync.Once
	start(func() {
		once.Do(func() { c.loop.post(next) })
	})
}

func (c *Controller) play(cue Cue) {
	if err := c.sound.PlayCue(cue); err != nil {
		slog.Debug("Controller.play: cue failed", "cue", cue, "error", err)
	}
}

func (c *Controller) finish() {
	c.doneOnce.Do(func() { close(c.done) })
}
