package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/BTreeMap/MissionLink/internal/models"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
	if cfg.Countdown() != 5 {
		t.Errorf("Countdown() = %d, want 5", cfg.Countdown())
	}
	if cfg.TypingSpeed != 50*time.Millisecond {
		t.Errorf("TypingSpeed = %v, want 50ms", cfg.TypingSpeed)
	}
	for _, tone := range []models.Tone{models.TonePlayful, models.ToneRomantic, models.ToneDramatic} {
		if _, ok := cfg.Tones[tone]; !ok {
			t.Errorf("default tones missing %q", tone)
		}
	}
}

func TestCountdownFallback(t *testing.T) {
	for _, n := range []int{0, -3} {
		cfg := Default()
		cfg.SelfDestructCountdown = n
		if got := cfg.Countdown(); got != DefaultCountdown {
			t.Errorf("Countdown() with %d = %d, want %d", n, got, DefaultCountdown)
		}
	}
}

func TestResponseLinesContainCountdownToken(t *testing.T) {
	cfg := Default()
	for _, d := range []models.Decision{models.DecisionAccept, models.DecisionDecline} {
		found := false
		for _, line := range cfg.Responses.For(d) {
			if strings.Contains(line, CountdownToken) {
				found = true
			}
		}
		if !found {
			t.Errorf("responses for %s have no %s line", d, CountdownToken)
		}
	}
	if cfg.Responses.For(models.DecisionDecline)[0] != "MISSION DECLINED." {
		t.Errorf("decline responses start with %q", cfg.Responses.For(models.DecisionDecline)[0])
	}
}

func TestSubstitute(t *testing.T) {
	p := models.MissionParameters{From: "FALCON", To: "NIGHTINGALE"}
	got := Substitute("Agent "+ReceiverToken+", "+SenderToken+" calling", p)
	if got != "Agent NIGHTINGALE, FALCON calling" {
		t.Errorf("Substitute() = %q", got)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Mission)
	}{
		{"negative typing speed", func(m *Mission) { m.TypingSpeed = -time.Millisecond }},
		{"zero tick", func(m *Mission) { m.CountdownTick = 0 }},
		{"zero poll interval", func(m *Mission) { m.PollInterval = 0 }},
		{"glitch above one", func(m *Mission) { m.GlitchProbability = 1.5 }},
		{"empty briefing", func(m *Mission) { m.Briefing = nil }},
		{"empty decline", func(m *Mission) { m.Responses.Decline = nil }},
		{"missing expired page", func(m *Mission) { m.ExpiredPage = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Choices.Accept != "ACCEPT MISSION" {
		t.Errorf("Choices.Accept = %q", cfg.Choices.Accept)
	}
}

func TestLoadYAMLOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mission.yaml")
	content := `
self_destruct_countdown: 3
typing_speed: 10ms
choices:
  accept: AFFIRMATIVE
  decline: NEGATIVE
tones:
  noir:
    accent: "#777777"
    emoji: "🎩"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.SelfDestructCountdown != 3 {
		t.Errorf("SelfDestructCountdown = %d, want 3", cfg.SelfDestructCountdown)
	}
	if cfg.TypingSpeed != 10*time.Millisecond {
		t.Errorf("TypingSpeed = %v, want 10ms", cfg.TypingSpeed)
	}
	if cfg.Choices.Accept != "AFFIRMATIVE" {
		t.Errorf("Choices.Accept = %q, want AFFIRMATIVE", cfg.Choices.Accept)
	}
	// Untouched values keep their defaults
	if len(cfg.Briefing) != 4 {
		t.Errorf("Briefing has %d lines, want 4", len(cfg.Briefing))
	}
	if _, ok := cfg.Tones["noir"]; !ok {
		t.Error("custom tone not loaded")
	}
	if _, ok := cfg.Tones[models.ToneDramatic]; !ok {
		t.Error("default dramatic tone lost after overlay")
	}
}

func TestLoadEnvOverridesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mission.yaml")
	if err := os.WriteFile(path, []byte("self_destruct_countdown: 3\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvCountdown, "9")
	t.Setenv(EnvPollInterval, "750ms")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.SelfDestructCountdown != 9 {
		t.Errorf("SelfDestructCountdown = %d, want 9", cfg.SelfDestructCountdown)
	}
	if cfg.PollInterval != 750*time.Millisecond {
		t.Errorf("PollInterval = %v, want 750ms", cfg.PollInterval)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mission.yaml")
	if err := os.WriteFile(path, []byte("briefing: [unterminated\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load() = nil error for malformed YAML")
	}
}
