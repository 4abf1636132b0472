package terminal

import (
	"context"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/BTreeMap/MissionLink/internal/models"
)

type recordingSequence struct {
	mu        sync.Mutex
	starts    int
	decisions []models.Decision
}

func (r *recordingSequence) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.starts++
}

func (r *recordingSequence) Decide(d models.Decision) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decisions = append(r.decisions, d)
}

func TestBindMapsKeys(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	seq := &recordingSequence{}
	quit := false

	Bind(ctx, ReadKeys(ctx, strings.NewReader("\rxAD2q a")), seq, func() { quit = true })

	if seq.starts != 1 {
		t.Errorf("starts = %d, want 1", seq.starts)
	}
	want := []models.Decision{models.DecisionAccept, models.DecisionDecline, models.DecisionDecline}
	if len(seq.decisions) != len(want) {
		t.Fatalf("decisions = %v, want %v", seq.decisions, want)
	}
	for i := range want {
		if seq.decisions[i] != want[i] {
			t.Errorf("decision %d = %s, want %s", i, seq.decisions[i], want[i])
		}
	}
	if !quit {
		t.Error("q did not quit")
	}
}

func TestBindStopsWhenInputEnds(t *testing.T) {
	ctx := context.Background()
	seq := &recordingSequence{}
	Bind(ctx, ReadKeys(ctx, strings.NewReader("y")), seq, nil)
	if len(seq.decisions) != 1 || seq.decisions[0] != models.DecisionAccept {
		t.Errorf("decisions = %v", seq.decisions)
	}
}

func TestEnterRawOnNonTerminal(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "stdin")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if IsTerminal(f) {
		t.Skip("temp file reported as terminal")
	}
	restore, err := EnterRaw(f)
	if err != nil || restore == nil {
		t.Fatalf("EnterRaw() = %v, %v", restore, err)
	}
	restore()
}
