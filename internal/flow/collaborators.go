package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/BTreeMap/MissionLink/internal/models"
	"github.com/BTreeMap/MissionLink/internal/tone"
)

// Target names a region of the mission view.
type Target string

const (
	TargetBootLog   Target = "boot-log"
	TargetBriefing  Target = "briefing"
	TargetIntel     Target = "intel" // custom message panel
	TargetChoices   Target = "choices"
	TargetResponse  Target = "response"
	TargetCountdown Target = "countdown"
	TargetScreen    Target = "screen"
)

// LineStyle selects how an appended line is drawn.
type LineStyle int

const (
	StyleNormal LineStyle = iota
	StyleAlert
)

// Cue is a named sound.
type Cue string

const (
	CueBoot     Cue = "boot"
	CueType     Cue = "type"
	CueShutdown Cue = "shutdown"
	CueAlert    Cue = "alert"
)

// Effects animates text and regions. Each done callback must eventually fire;
// the controller tolerates it firing more than once.
type Effects interface {
	RevealText(target Target, text string, speed time.Duration, done func())
	FadeOut(target Target, done func())
	FadeIn(target Target, done func())
	Emphasize(target Target)
}

// Sound plays cues. Failures are ignored.
type Sound interface {
	PlayCue(cue Cue) error
}

// Renderer owns the mission view.
type Renderer interface {
	ApplyTheme(preset tone.Preset)
	RequestFullscreen() error
	AppendLine(target Target, text string, style LineStyle)
	Show(target Target)
	Hide(target Target)
	CompleteProgress()
	SetCountdown(remaining int)
	EngageIntensity()
}

// Navigator leaves the mission once it is over.
type Navigator interface {
	ClearHistory() error
	Navigate(dest string) error
	Close() error
}

// Publisher is the part of the feedback channel the receiver uses.
type Publisher interface {
	Publish(ctx context.Context, entry models.FeedbackEntry) (models.FeedbackEntry, error)
	Clear(ctx context.Context) error
}

var errCollaboratorPanic = errors.New("collaborator panicked")

// protect runs fn and absorbs a panic raised by a collaborator.
// It reports whether fn returned normally.
func protect(call string, fn func()) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("flow.protect: collaborator panicked", "call", call, "panic", fmt.Sprint(r))
			ok = false
		}
	}()
	fn()
	return true
}

// ---- Fallbacks ----

// immediateEffects completes every effect synchronously.
type immediateEffects struct{}

func (immediateEffects) RevealText(_ Target, _ string, _ time.Duration, done func()) { done() }
func (immediateEffects) FadeOut(_ Target, done func()) { done() }
func (immediateEffects) FadeIn(_ Target, done func()) { done() }
func (immediateEffects) Emphasize(Target) {}

type silentSound struct{}

func (silentSound) PlayCue(Cue) error { return nil }

type nopRenderer struct{}

func (nopRenderer) ApplyTheme(tone.Preset) {}
func (nopRenderer) RequestFullscreen() error { return nil }
func (nopRenderer) AppendLine(Target, string, LineStyle) {}
func (nopRenderer) Show(Target) {}
func (nopRenderer) Hide(Target) {}
func (nopRenderer) CompleteProgress() {}
func (nopRenderer) SetCountdown(int) {}
func (nopRenderer) EngageIntensity() {}

type nopNavigator struct{}

func (nopNavigator) ClearHistory() error { return nil }
func (nopNavigator) Navigate(string) error { return nil }
func (nopNavigator) Close() error { return nil }

type discardPublisher struct{}

func (discardPublisher) Publish(_ context.Context, e models.FeedbackEntry) (models.FeedbackEntry, error) {
	slog.Debug("discardPublisher.Publish: no feedback channel configured", "id", e.ID)
	return e, nil
}
func (discardPublisher) Clear(context.Context) error { return nil }

// ---- Guards ----

// guardedEffects completes an effect immediately when it panics.
type guardedEffects struct{ e Effects }

func (g guardedEffects) RevealText(target Target, text string, speed time.Duration, done func()) {
	if !protect("Effects.RevealText", func() { g.e.RevealText(target, text, speed, done) }) {
		done()
	}
}

func (g guardedEffects) FadeOut(target Target, done func()) {
	if !protect("Effects.FadeOut", func() { g.e.FadeOut(target, done) }) {
		done()
	}
}

func (g guardedEffects) FadeIn(target Target, done func()) {
	if !protect("Effects.FadeIn", func() { g.e.FadeIn(target, done) }) {
		done()
	}
}

func (g guardedEffects) Emphasize(target Target) {
	protect("Effects.Emphasize", func() { g.e.Emphasize(target) })
}

type guardedSound struct{ s Sound }

func (g guardedSound) PlayCue(cue Cue) error {
	var err error
	if !protect("Sound.PlayCue", func() { err = g.s.PlayCue(cue) }) {
		return errCollaboratorPanic
	}
	return err
}

type guardedRenderer struct{ r Renderer }

func (g guardedRenderer) ApplyTheme(p tone.Preset) {
	protect("Renderer.ApplyTheme", func() { g.r.ApplyTheme(p) })
}

func (g guardedRenderer) RequestFullscreen() error {
	var err error
	if !protect("Renderer.RequestFullscreen", func() { err = g.r.RequestFullscreen() }) {
		return errCollaboratorPanic
	}
	return err
}

func (g guardedRenderer) AppendLine(target Target, text string, style LineStyle) {
	protect("Renderer.AppendLine", func() { g.r.AppendLine(target, text, style) })
}

func (g guardedRenderer) Show(target Target) { protect("Renderer.Show", func() { g.r.Show(target) }) }
func (g guardedRenderer) Hide(target Target) { protect("Renderer.Hide", func() { g.r.Hide(target) }) }

func (g guardedRenderer) CompleteProgress() {
	protect("Renderer.CompleteProgress", func() { g.r.CompleteProgress() })
}

func (g guardedRenderer) SetCountdown(remaining int) {
	protect("Renderer.SetCountdown", func() { g.r.SetCountdown(remaining) })
}

func (g guardedRenderer) EngageIntensity() {
	protect("Renderer.EngageIntensity", func() { g.r.EngageIntensity() })
}

type guardedNavigator struct{ n Navigator }

func (g guardedNavigator) call(name string, fn func() error) error {
	var err error
	if !protect(name, func() { err = fn() }) {
		return errCollaboratorPanic
	}
	return err
}

func (g guardedNavigator) ClearHistory() error {
	return g.call("Navigator.ClearHistory", g.n.ClearHistory)
}

func (g guardedNavigator) Navigate(dest string) error {
	return g.call("Navigator.Navigate", func() error { return g.n.Navigate(dest) })
}

func (g guardedNavigator) Close() error { return g.call("Navigator.Close", g.n.Close) }

type guardedPublisher struct{ p Publisher }

func (g guardedPublisher) Publish(ctx context.Context, e models.FeedbackEntry) (models.FeedbackEntry, error) {
	out, err := e, error(nil)
	if !protect("Publisher.Publish", func() { out, err = g.p.Publish(ctx, e) }) {
		return e, errCollaboratorPanic
	}
	return out, err
}

func (g guardedPublisher) Clear(ctx context.Context) error {
	var err error
	if !protect("Publisher.Clear", func() { err = g.p.Clear(ctx) }) {
		return errCollaboratorPanic
	}
	return err
}
