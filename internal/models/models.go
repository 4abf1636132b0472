// Package models defines the core data structures for MissionLink.
//
// It includes the mission parameters carried by a shared link and the feedback
// entries that travel back from the receiver to the sender.
package models

import (
	"errors"
	"strings"
)

// Tone selects the thematic preset of a mission.
type Tone string

const (
	// TonePlayful is a light-hearted mission.
	TonePlayful Tone = "playful"
	// ToneRomantic is a heartfelt mission.
	ToneRomantic Tone = "romantic"
	// ToneDramatic is the classic briefing and the fallback preset.
	ToneDramatic Tone = "dramatic"
)

// Defaults applied when a link omits a field.
const (
	DefaultReceiverCodename = "AGENT"
	DefaultSenderCodename   = "UNKNOWN AGENT"
	DefaultTone             = ToneDramatic
)

// Validation constants for sender input
const (
	// MaxCodenameLength bounds sender and receiver codenames
	MaxCodenameLength = 64
	// MaxMessageLength bounds the custom message so links stay shareable
	MaxMessageLength = 1000
)

// Error variables for better error handling and testability
var (
	ErrReceiverRequired = errors.New("receiver codename is required")
	ErrCodenameTooLong  = errors.New("codename exceeds maximum length")
	ErrMessageTooLong   = errors.New("custom message exceeds maximum length")
)

// IsKnownTone reports whether t is one of the built-in tones.
func IsKnownTone(t Tone) bool {
	switch t {
	case TonePlayful, ToneRomantic, ToneDramatic:
		return true
	default:
		return false
	}
}

// MissionParameters is the decoded intent of a shared link.
// Values are treated as immutable for the lifetime of a mission run.
type MissionParameters struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Tone    Tone   `json:"tone"`
	Message string `json:"msg,omitempty"`
}

// Normalize trims every field and upper-cases the free-text ones, matching
// what the sender form enforces while typing.
func (p MissionParameters) Normalize() MissionParameters {
	return MissionParameters{
		From:    strings.ToUpper(strings.TrimSpace(p.From)),
		To:      strings.ToUpper(strings.TrimSpace(p.To)),
		Tone:    Tone(strings.ToLower(strings.TrimSpace(string(p.Tone)))),
		Message: strings.ToUpper(strings.TrimSpace(p.Message)),
	}
}

// Validate performs the sender-side checks. Only the receiver is required;
// the receiver side never validates and relies on defaults instead.
func (p *MissionParameters) Validate() error {
	if p.To == "" {
		return ErrReceiverRequired
	}
	if len(p.To) > MaxCodenameLength || len(p.From) > MaxCodenameLength {
		return ErrCodenameTooLong
	}
	if len(p.Message) > MaxMessageLength {
		return ErrMessageTooLong
	}
	return nil
}

// WithDefaults fills absent fields with the documented defaults.
func (p MissionParameters) WithDefaults() MissionParameters {
	if p.From == "" {
		p.From = DefaultSenderCodename
	}
	if p.To == "" {
		p.To = DefaultReceiverCodename
	}
	if p.Tone == "" {
		p.Tone = DefaultTone
	}
	return p
}
