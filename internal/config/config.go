// Package config holds the static mission content and timing constants shared
// by the sender and receiver sides. Nothing mutates a Mission once loaded.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BTreeMap/MissionLink/internal/models"
	"github.com/BTreeMap/MissionLink/internal/tone"
)

// Placeholders substituted into the content lines.
const (
	SenderToken    = "[SENDER_CODENAME]"
	ReceiverToken  = "[RECEIVER_CODENAME]"
	CountdownToken = "{COUNTDOWN}"
)

// DefaultCountdown is used when SelfDestructCountdown is not positive.
const DefaultCountdown = 5

// Choices are the labels of the two decision controls.
type Choices struct {
	Accept  string `yaml:"accept"`
	Decline string `yaml:"decline"`
}

// Responses are the lines revealed after each decision.
type Responses struct {
	Accept  []string `yaml:"accept"`
	Decline []string `yaml:"decline"`
}

// For returns the response lines of a decision.
func (r Responses) For(d models.Decision) []string {
	if d == models.DecisionAccept {
		return r.Accept
	}
	return r.Decline
}

// Mission is the declarative content and timing of a mission run.
type Mission struct {
	// Receiver sequence content
	BootText  []string  `yaml:"boot_text"`
	Briefing  []string  `yaml:"briefing"`
	Choices   Choices   `yaml:"choices"`
	Responses Responses `yaml:"responses"`

	// Receiver sequence timing
	TypingSpeed           time.Duration `yaml:"typing_speed"` // per character
	StartDelay            time.Duration `yaml:"start_delay"`
	BootLineDelay         time.Duration `yaml:"boot_line_delay"`
	BootFinalPause        time.Duration `yaml:"boot_final_pause"`
	GlitchProbability     float64       `yaml:"glitch_probability"`
	ResponseLineDelay     time.Duration `yaml:"response_line_delay"`
	CountdownLeadIn       time.Duration `yaml:"countdown_lead_in"`
	CountdownTick         time.Duration `yaml:"countdown_tick"`
	SelfDestructCountdown int           `yaml:"self_destruct_countdown"`
	IntensityThreshold    int           `yaml:"intensity_threshold"`
	CloseDelay            time.Duration `yaml:"close_delay"`

	// Pages, resolved relative to the link base
	MissionPage string `yaml:"mission_page"`
	ExpiredPage string `yaml:"expired_page"`

	// Sender side
	PollInterval      time.Duration `yaml:"poll_interval"`
	ToastDuration     time.Duration `yaml:"toast_duration"`
	ToastDismissDelay time.Duration `yaml:"toast_dismiss_delay"`

	Tones map[models.Tone]tone.Preset `yaml:"tones"`
}

// Default returns the reference mission content.
func Default() Mission {
	tones := make(map[models.Tone]tone.Preset, len(tone.Defaults))
	for k, v := range tone.Defaults {
		tones[k] = v
	}

	return Mission{
		BootText: []string{
			"INITIALIZE SECURE CHANNEL...",
			"LOADING MISSION DATA...",
		},
		Briefing: []string{
			"Your mission, should you choose to accept it...",
			"Agent " + ReceiverToken + ",",
			SenderToken + " has a confidential message for you.",
			"Will you be my Valentine?",
		},
		Choices: Choices{
			Accept:  "ACCEPT MISSION",
			Decline: "DECLINE (RISK DISAVOWAL)",
		},
		Responses: Responses{
			Accept: []string{
				"MISSION CONFIRMED.",
				"DOWNLOADING TARGET COORDINATES...",
				"RENDEZVOUS VECTOR LOCKED.",
				"THIS MESSAGE WILL SELF-DESTRUCT IN " + CountdownToken + " SECONDS...",
			},
			Decline: []string{
				"MISSION DECLINED.",
				"COMMUNICATIONS TERMINATED.",
				"AGENT DISAVOWED.",
				"SYSTEM PURGE INITIATED IN " + CountdownToken + " SECONDS...",
			},
		},

		TypingSpeed:           50 * time.Millisecond,
		StartDelay:            800 * time.Millisecond,
		BootLineDelay:         600 * time.Millisecond,
		BootFinalPause:        800 * time.Millisecond,
		GlitchProbability:     0.3,
		ResponseLineDelay:     time.Second,
		CountdownLeadIn:       time.Second,
		CountdownTick:         time.Second,
		SelfDestructCountdown: DefaultCountdown,
		IntensityThreshold:    3,
		CloseDelay:            100 * time.Millisecond,

		MissionPage: "mission.html",
		ExpiredPage: "expired.html",

		PollInterval:      3 * time.Second,
		ToastDuration:     10 * time.Second,
		ToastDismissDelay: 500 * time.Millisecond,

		Tones: tones,
	}
}

// Countdown returns the configured countdown start, falling back to the default.
func (m *Mission) Countdown() int {
	if m.SelfDestructCountdown <= 0 {
		return DefaultCountdown
	}
	return m.SelfDestructCountdown
}

// Substitute replaces the codename tokens in line.
func Substitute(line string, p models.MissionParameters) string {
	line = strings.ReplaceAll(line, SenderToken, p.From)
	return strings.ReplaceAll(line, ReceiverToken, p.To)
}

// Validate checks the loaded content for values the sequence cannot run with.
func (m *Mission) Validate() error {
	var errs []error

	durations := map[string]time.Duration{
		"typing_speed":        m.TypingSpeed,
		"start_delay":         m.StartDelay,
		"boot_line_delay":     m.BootLineDelay,
		"boot_final_pause":    m.BootFinalPause,
		"response_line_delay": m.ResponseLineDelay,
		"countdown_lead_in":   m.CountdownLeadIn,
		"close_delay":         m.CloseDelay,
		"toast_duration":      m.ToastDuration,
		"toast_dismiss_delay": m.ToastDismissDelay,
	}
	for name, d := range durations {
		if d < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative, got %v", name, d))
		}
	}
	if m.CountdownTick <= 0 {
		errs = append(errs, fmt.Errorf("countdown_tick must be positive, got %v", m.CountdownTick))
	}
	if m.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("poll_interval must be positive, got %v", m.PollInterval))
	}
	if m.GlitchProbability < 0 || m.GlitchProbability > 1 {
		errs = append(errs, fmt.Errorf("glitch_probability must be within [0,1], got %v", m.GlitchProbability))
	}
	if len(m.Briefing) == 0 {
		errs = append(errs, errors.New("briefing must have at least one line"))
	}
	if len(m.Responses.Accept) == 0 || len(m.Responses.Decline) == 0 {
		errs = append(errs, errors.New("responses must have lines for both decisions"))
	}
	if m.MissionPage == "" || m.ExpiredPage == "" {
		errs = append(errs, errors.New("mission_page and expired_page are required"))
	}

	return errors.Join(errs...)
}
