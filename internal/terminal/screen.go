// Package terminal renders a mission in a text terminal. Screen implements the
// flow collaborators (effects, sound, renderer and navigator) on top of an
// io.Writer using lipgloss styles and ANSI control sequences.
package terminal

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"

	"github.com/BTreeMap/MissionLink/internal/config"
	"github.com/BTreeMap/MissionLink/internal/flow"
	"github.com/BTreeMap/MissionLink/internal/tone"
	"github.com/BTreeMap/MissionLink/internal/util"
)

// ANSI control sequences
const (
	enterAltScreen  = "\x1b[?1049h"
	leaveAltScreen  = "\x1b[?1049l"
	clearScreen     = "\x1b[2J\x1b[H"
	clearScrollback = "\x1b[3J"
	bell            = "\a"
	eol             = "\r\n"
)

// glitchDensity is the share of glyphs scrambled in a glitch echo.
const glitchDensity = 0.35

// ErrFullscreenUnavailable is returned when the output is not a terminal.
var ErrFullscreenUnavailable = errors.New("fullscreen not available on this output")

var (
	alertColor = lipgloss.Color("#E53935")
	dimColor   = lipgloss.Color("#6B7280")
)

// Screen draws the mission. All writes are serialized.
type Screen struct {
	out     io.Writer
	choices config.Choices

	mu         sync.Mutex
	accent     lipgloss.Style
	alert      lipgloss.Style
	dim        lipgloss.Style
	muted      bool
	fullscreen bool
	inAlt      bool
	intense    bool
	flash      bool
	last       map[flow.Target]string
	dest       string
	fadeDelay  time.Duration

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// ScreenOption configures a Screen.
type ScreenOption func(*Screen)

// WithMuted silences every cue.
func WithMuted(muted bool) ScreenOption { return func(s *Screen) { s.muted = muted } }

// WithFullscreen allows switching to the alternate screen buffer.
func WithFullscreen(allowed bool) ScreenOption { return func(s *Screen) { s.fullscreen = allowed } }

// WithFadeDelay sets how long fade-outs take before completing.
func WithFadeDelay(d time.Duration) ScreenOption { return func(s *Screen) { s.fadeDelay = d } }

// NewScreen creates a Screen writing to out.
func NewScreen(out io.Writer, choices config.Choices, opts ...ScreenOption) *Screen {
	s := &Screen{
		out:       out,
		choices:   choices,
		accent:    lipgloss.NewStyle().Bold(true),
		alert:     lipgloss.NewStyle().Foreground(alertColor).Bold(true),
		dim:       lipgloss.NewStyle().Foreground(dimColor).Faint(true),
		last:      make(map[flow.Target]string),
		fadeDelay: 300 * time.Millisecond,
		stop:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Shutdown interrupts running reveals and waits for them to finish.
func (s *Screen) Shutdown() {
	s.stopOnce.Do(func() { close(s.stop) })
	s.wg.Wait()
}

func (s *Screen) write(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	io.WriteString(s.out, text)
}

func (s *Screen) writeLine(text string) {
	s.write(text + eol)
}

// ---- Effects ----

// RevealText types text one rune per speed, then completes.
func (s *Screen) RevealText(target flow.Target, text string, speed time.Duration, done func()) {
	prefix := ""
	if target == flow.TargetIntel {
		prefix = s.dim.Render("INTEL // ")
	}
	s.mu.Lock()
	s.last[target] = text
	style := s.accent
	s.mu.Unlock()

	if speed <= 0 || text == "" {
		s.writeLine(prefix + style.Render(text))
		done()
		return
	}

	s.write(prefix)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer done()

		ticker := time.NewTicker(speed)
		defer ticker.Stop()

		rest := text
		for rest != "" {
			r, size := utf8.DecodeRuneInString(rest)
			s.write(style.Render(string(r)))
			rest = rest[size:]
			if rest == "" {
				break
			}
			select {
			case <-s.stop:
				s.write(style.Render(rest))
				rest = ""
			case <-ticker.C:
			}
		}
		s.write(eol)
	}()
}

// FadeOut clears the target and completes after the fade delay.
func (s *Screen) FadeOut(target flow.Target, done func()) {
	s.mu.Lock()
	alt := s.inAlt
	s.mu.Unlock()
	if target == flow.TargetScreen || (target == flow.TargetBootLog && alt) {
		s.write(clearScreen)
	}
	if s.fadeDelay <= 0 {
		done()
		return
	}
	time.AfterFunc(s.fadeDelay, done)
}

func (s *Screen) FadeIn(_ flow.Target, done func()) { done() }

// Emphasize glitches the last line of a log, or flashes the countdown.
func (s *Screen) Emphasize(target flow.Target) {
	s.mu.Lock()
	if target == flow.TargetScreen {
		s.flash = !s.flash
		s.mu.Unlock()
		return
	}
	line := s.last[target]
	s.mu.Unlock()

	if line == "" {
		return
	}
	s.writeLine(s.dim.Render(util.ScrambleGlyphs(line, glitchDensity)))
}

// ---- Sound ----

// PlayCue rings the terminal bell. Typing is silent.
func (s *Screen) PlayCue(cue flow.Cue) error {
	if s.muted {
		return nil
	}
	switch cue {
	case flow.CueBoot, flow.CueAlert:
		s.write(bell)
	case flow.CueShutdown:
		s.write(bell + bell)
	}
	return nil
}

// ---- Renderer ----

func (s *Screen) ApplyTheme(p tone.Preset) {
	s.mu.Lock()
	s.accent = lipgloss.NewStyle().Foreground(lipgloss.Color(p.Accent)).Bold(true)
	header := s.accent.Render(fmt.Sprintf("%s  SECURE TRANSMISSION  %s", p.Emoji, p.Emoji))
	s.mu.Unlock()
	s.writeLine(header)
}

func (s *Screen) RequestFullscreen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.fullscreen {
		return ErrFullscreenUnavailable
	}
	io.WriteString(s.out, enterAltScreen+clearScreen)
	s.inAlt = true
	return nil
}

func (s *Screen) AppendLine(target flow.Target, text string, style flow.LineStyle) {
	s.mu.Lock()
	s.last[target] = text
	st := s.accent
	if style == flow.StyleAlert {
		st = s.alert
	}
	if target == flow.TargetBootLog {
		st = s.dim
	}
	s.mu.Unlock()

	prefix := "  "
	if target == flow.TargetBootLog {
		prefix = "> "
	}
	s.writeLine(prefix + st.Render(text))
}

func (s *Screen) Show(target flow.Target) {
	switch target {
	case flow.TargetChoices:
		s.mu.Lock()
		accept := s.accent.Render("[A] " + s.choices.Accept)
		decline := s.alert.Render("[D] " + s.choices.Decline)
		s.mu.Unlock()
		s.writeLine("")
		s.writeLine("  " + accept + "    " + decline)
	case flow.TargetBriefing, flow.TargetResponse, flow.TargetCountdown:
		s.writeLine("")
	}
}

func (s *Screen) Hide(target flow.Target) {
	if target == flow.TargetChoices {
		s.writeLine(s.dim.Render(strings.Repeat("-", 40)))
	}
}

func (s *Screen) CompleteProgress() {
	s.writeLine(s.dim.Render("[" + strings.Repeat("#", 20) + "] 100%"))
}

func (s *Screen) SetCountdown(remaining int) {
	s.mu.Lock()
	st := s.accent
	if s.intense {
		st = s.alert
	}
	if s.flash {
		st = st.Reverse(true)
	}
	s.mu.Unlock()
	s.writeLine(st.Render(fmt.Sprintf("  >>> %d <<<", remaining)))
}

func (s *Screen) EngageIntensity() {
	s.mu.Lock()
	s.intense = true
	s.mu.Unlock()
}

// ---- Navigator ----

func (s *Screen) ClearHistory() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inAlt {
		io.WriteString(s.out, clearScrollback)
	}
	return nil
}

func (s *Screen) Navigate(dest string) error {
	s.mu.Lock()
	s.dest = dest
	s.mu.Unlock()
	s.writeLine(s.alert.Render("MISSION EXPIRED. THIS LINK HAS SELF-DESTRUCTED."))
	return nil
}

// Close leaves the alternate screen and repeats where the mission went.
func (s *Screen) Close() error {
	s.mu.Lock()
	alt := s.inAlt
	s.inAlt = false
	dest := s.dest
	s.mu.Unlock()

	if alt {
		s.write(leaveAltScreen)
		s.writeLine(s.alert.Render("MISSION EXPIRED. THIS LINK HAS SELF-DESTRUCTED."))
	}
	if dest != "" {
		s.writeLine(s.dim.Render(dest))
	}
	return nil
}
