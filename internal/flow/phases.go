package flow

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/BTreeMap/MissionLink/internal/config"
	"github.com/BTreeMap/MissionLink/internal/feedback"
	"github.com/BTreeMap/MissionLink/internal/link"
	"github.com/BTreeMap/MissionLink/internal/models"
	"github.com/BTreeMap/MissionLink/internal/tone"
)

// ---- Idle -> Booting ----

func (c *Controller) begin() {
	if c.Phase() != models.PhaseIdle {
		slog.Debug("Controller.begin: already started, ignoring", "phase", c.Phase())
		return
	}
	if err := c.transition(models.PhaseBooting); err != nil {
		return
	}

	preset := tone.Lookup(c.cfg.Tones, c.params.Tone)
	c.renderer.ApplyTheme(preset)
	if err := c.renderer.RequestFullscreen(); err != nil {
		slog.Debug("Controller.begin: fullscreen denied", "error", err)
	}

	c.after(c.cfg.StartDelay, "boot", func() {
		c.play(CueBoot)
		c.renderer.Show(TargetBootLog)
		c.bootLine(0)
	})
}

// ---- Booting ----

func (c *Controller) bootLine(i int) {
	if i >= len(c.cfg.BootText) {
		c.renderer.CompleteProgress()
		c.after(c.cfg.BootFinalPause, "boot-fade", func() {
			c.await(func(done func()) { c.effects.FadeOut(TargetBootLog, done) }, func() {
				c.renderer.Hide(TargetBootLog)
				c.enterBriefing()
			})
		})
		return
	}

	c.renderer.AppendLine(TargetBootLog, c.cfg.BootText[i], StyleNormal)
	if c.chance(c.cfg.GlitchProbability) {
		c.effects.Emphasize(TargetBootLog)
	}
	c.after(c.cfg.BootLineDelay, "boot-line", func() { c.bootLine(i + 1) })
}

// ---- Briefing ----

func (c *Controller) enterBriefing() {
	if err := c.transition(models.PhaseBriefing); err != nil {
		return
	}
	c.renderer.Show(TargetBriefing)
	c.effects.FadeIn(TargetBriefing, func() {})

	lines := make([]string, len(c.cfg.Briefing))
	for i, l := range c.cfg.Briefing {
		lines[i] = config.Substitute(l, c.params)
	}
	c.revealBriefing(lines, 0)
}

// revealBriefing reveals line i and continues only once its reveal completes.
func (c *Controller) revealBriefing(lines []string, i int) {
	if i >= len(lines) {
		c.revealIntel()
		return
	}
	c.play(CueType)
	c.await(func(done func()) {
		c.effects.RevealText(TargetBriefing, lines[i], c.cfg.TypingSpeed, done)
	}, func() { c.revealBriefing(lines, i+1) })
}

func (c *Controller) revealIntel() {
	if c.params.Message == "" {
		c.awaitDecision()
		return
	}
	c.renderer.Show(TargetIntel)
	c.play(CueType)
	c.await(func(done func()) {
		c.effects.RevealText(TargetIntel, c.params.Message, c.cfg.TypingSpeed, done)
	}, c.awaitDecision)
}

func (c *Controller) awaitDecision() {
	if err := c.transition(models.PhaseAwaitingDecision); err != nil {
		return
	}
	c.renderer.Show(TargetChoices)
}

// ---- AwaitingDecision -> ShowingResponse ----

func (c *Controller) decide(d models.Decision) {
	if c.decided || c.Phase() != models.PhaseAwaitingDecision {
		slog.Debug("Controller.decide: ignoring decision", "decision", d, "phase", c.Phase(), "decided", c.decided)
		return
	}
	if err := c.transition(models.PhaseShowingResponse); err != nil {
		return
	}
	c.decided = true
	c.decision = d

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	entry, err := c.publisher.Publish(ctx, feedback.NewEntry(c.params.From, c.params.To, d))
	cancel()
	if err != nil {
		slog.Warn("Controller.decide: feedback not persisted", "decision", d, "error", err)
	} else {
		slog.Info("Controller.decide: feedback published", "id", entry.ID, "response", entry.Response)
	}

	if d == models.DecisionDecline {
		c.play(CueAlert)
	}
	c.await(func(done func()) { c.effects.FadeOut(TargetChoices, done) }, func() {
		c.renderer.Hide(TargetChoices)
		c.renderer.Show(TargetResponse)
		c.responseLine(c.cfg.Responses.For(d), 0)
	})
}

// ---- ShowingResponse ----

func (c *Controller) responseLine(lines []string, i int) {
	if i >= len(lines) {
		if !c.countdownArmed {
			slog.Warn("Controller.responseLine: no countdown line, arming after last line")
			c.armCountdown()
		}
		return
	}

	line := lines[i]
	if !c.countdownArmed && strings.Contains(line, config.CountdownToken) {
		line = strings.Replace(line, config.CountdownToken, strconv.Itoa(c.cfg.Countdown()), 1)
		c.armCountdown()
	}

	style := StyleNormal
	if c.decision == models.DecisionDecline {
		style = StyleAlert
	}
	c.renderer.AppendLine(TargetResponse, line, style)
	c.effects.Emphasize(TargetResponse)

	c.after(c.cfg.ResponseLineDelay, "response-line", func() { c.responseLine(lines, i+1) })
}

// armCountdown starts CountingDown after the lead-in, concurrently with any
// response lines still to come.
func (c *Controller) armCountdown() {
	c.countdownArmed = true
	c.after(c.cfg.CountdownLeadIn, "countdown", c.enterCountdown)
}

// ---- CountingDown ----

func (c *Controller) enterCountdown() {
	if err := c.transition(models.PhaseCountingDown); err != nil {
		return
	}
	c.remaining = c.cfg.Countdown()
	c.renderer.Show(TargetCountdown)
	c.tick()
}

func (c *Controller) tick() {
	c.renderer.SetCountdown(c.remaining)

	if c.remaining <= c.cfg.IntensityThreshold {
		if !c.intense {
			c.intense = true
			c.renderer.EngageIntensity()
			c.play(CueAlert)
		}
		c.effects.Emphasize(TargetScreen)
	}

	if c.remaining <= 0 {
		c.terminate()
		return
	}
	c.countdownID = c.after(c.cfg.CountdownTick, "countdown-tick", func() {
		c.remaining--
		c.tick()
	})
}

// ---- Terminated ----

func (c *Controller) terminate() {
	if err := c.transition(models.PhaseTerminated); err != nil {
		return
	}

	if c.countdownID != "" {
		if err := c.timer.Cancel(c.countdownID); err != nil {
			slog.Debug("Controller.terminate: cancel countdown failed", "error", err)
		}
	}
	slog.Debug("Controller.terminate: stopping timers", "active", len(c.timer.ListActive()))
	c.timer.Stop()
	c.epoch++

	c.play(CueShutdown)
	c.await(func(done func()) { c.effects.FadeOut(TargetScreen, done) }, c.teardown)
}

func (c *Controller) teardown() {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	if err := c.publisher.Clear(ctx); err != nil {
		slog.Warn("Controller.teardown: shared state not cleared", "error", err)
	}
	cancel()

	if err := c.navigator.ClearHistory(); err != nil {
		slog.Debug("Controller.teardown: history not cleared", "error", err)
	}

	dest := link.Sibling(c.missionURL, c.cfg.ExpiredPage)
	if err := c.navigator.Navigate(dest); err != nil {
		slog.Debug("Controller.teardown: navigation failed", "dest", dest, "error", err)
	}

	c.after(c.cfg.CloseDelay, "close", func() {
		if err := c.navigator.Close(); err != nil {
			slog.Debug("Controller.teardown: close failed", "error", err)
		}
		c.finish()
	})
}
