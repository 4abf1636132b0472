// Package tone provides the fixed whitelist of mission tones, preset lookup
// with a dramatic fallback, and the tone guide used when drafting messages.
package tone

import (
	"sort"
	"strings"

	"github.com/BTreeMap/MissionLink/internal/models"
)

// ---- Presets ----

// Preset is the thematic configuration of a tone.
type Preset struct {
	Name   models.Tone `yaml:"name" json:"name"`
	Accent string      `yaml:"accent" json:"accent"` // hex color used for the primary accent
	Emoji  string      `yaml:"emoji" json:"emoji"`
}

// Defaults is the hard-coded set of tone presets.
var Defaults = map[models.Tone]Preset{
	models.TonePlayful:  {Name: models.TonePlayful, Accent: "#FFC107", Emoji: "🎉"},
	models.ToneRomantic: {Name: models.ToneRomantic, Accent: "#E91E63", Emoji: "❤️"},
	models.ToneDramatic: {Name: models.ToneDramatic, Accent: "#E53935", Emoji: "🕶️"},
}

// Valid reports whether name is a whitelisted tone.
func Valid(name models.Tone) bool {
	_, ok := Defaults[name]
	return ok
}

// Names returns the whitelisted tones in sorted order.
func Names() []string {
	names := make([]string, 0, len(Defaults))
	for n := range Defaults {
		names = append(names, string(n))
	}
	sort.Strings(names)
	return names
}

// Lookup returns the preset for name from presets. Unknown names, including
// hand-edited link values, fall back to the dramatic preset. It never fails:
// if presets lacks a dramatic entry the built-in one is used.
func Lookup(presets map[models.Tone]Preset, name models.Tone) Preset {
	if p, ok := presets[name]; ok {
		return withName(p, name)
	}
	if p, ok := presets[models.ToneDramatic]; ok {
		return withName(p, models.ToneDramatic)
	}
	return Defaults[models.ToneDramatic]
}

func withName(p Preset, name models.Tone) Preset {
	if p.Name == "" {
		p.Name = name
	}
	return p
}

// ---- Tone guide ----

// BuildToneGuide produces a compact instruction snippet for the message
// drafting prompt. Unknown tones get the dramatic guide.
func BuildToneGuide(name models.Tone) string {
	if !Valid(name) {
		name = models.ToneDramatic
	}

	var b strings.Builder
	b.WriteString("\n<TONE POLICY>\n")
	switch name {
	case models.TonePlayful:
		b.WriteString("- Keep it light, teasing and fun.\n")
		b.WriteString("- Spy jargon is welcome if it lands as a joke.\n")
	case models.ToneRomantic:
		b.WriteString("- Be warm and sincere; affection over theatrics.\n")
		b.WriteString("- Avoid anything that could read as sarcastic.\n")
	default:
		b.WriteString("- Sound like a classified briefing: terse, urgent, cinematic.\n")
		b.WriteString("- No jokes, no exclamation marks.\n")
	}
	b.WriteString("- One or two short sentences, upper case, no emojis.\n")
	b.WriteString("- NEVER include links, phone numbers or personal data.\n")
	b.WriteString("</TONE POLICY>\n")
	return b.String()
}
