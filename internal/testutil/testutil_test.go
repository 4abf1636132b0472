package testutil

import (
	"context"
	"fmt"
	"testing"

	"github.com/BTreeMap/MissionLink/internal/feedback"
	"github.com/BTreeMap/MissionLink/internal/models"
)

func TestSeedFeedbackAndSnapshot(t *testing.T) {
	ch, kv := NewTestChannel()
	p := FalconParams()

	seeded := SeedFeedback(t, ch,
		models.FeedbackEntry{ID: 100, From: p.From, To: p.To, Response: models.ResponseAccepted},
		models.FeedbackEntry{ID: 100, From: p.From, To: p.To, Response: models.ResponseDeclined},
	)
	if seeded[1].ID != 101 {
		t.Errorf("expected colliding id to be bumped to 101, got %d", seeded[1].ID)
	}

	AssertQueueLen(t, kv, 2, "after seeding")
	snap := QueueSnapshot(t, kv)
	AssertFeedbackEquals(t, seeded[0], snap[0], "first entry")
	AssertFeedbackEquals(t, seeded[1], snap[1], "second entry")
}

func TestQueueSnapshotEmpty(t *testing.T) {
	_, kv := NewTestChannel()
	if got := QueueSnapshot(t, kv); got != nil {
		t.Errorf("expected nil snapshot, got %+v", got)
	}
	if err := kv.Set(context.Background(), feedback.QueueKey, "[]"); err != nil {
		t.Fatal(err)
	}
	AssertQueueLen(t, kv, 0, "empty array")
}

func TestAssertQueueLenFails(t *testing.T) {
	_, kv := NewTestChannel()
	mockT := &mockTestingT{}
	AssertQueueLen(mockT, kv, 1, "missing queue")
	if !mockT.failed {
		t.Error("expected AssertQueueLen to fail")
	}
}

func TestAssertFeedbackEquals(t *testing.T) {
	a := models.FeedbackEntry{ID: 1, From: "FALCON", To: "NIGHTHAWK", Response: models.ResponseAccepted}
	b := a
	c := a
	c.Read = true

	mockT := &mockTestingT{}
	AssertFeedbackEquals(mockT, a, b, "equal entries")
	if mockT.failed {
		t.Errorf("Expected equal entries to pass, but got: %s", mockT.errorMsg)
	}

	mockT = &mockTestingT{}
	AssertFeedbackEquals(mockT, a, c, "different entries")
	if !mockT.failed {
		t.Error("Expected different entries to fail")
	}
}

func TestMustMarshalJSON(t *testing.T) {
	result := MustMarshalJSON(t, models.FeedbackEntry{ID: 1, Response: models.ResponseAccepted})
	want := `{"id":1,"from":"","to":"","response":"ACCEPTED","read":false}`
	if string(result) != want {
		t.Errorf("got %s, want %s", result, want)
	}
}

func TestMustUnmarshalJSON(t *testing.T) {
	var target models.MissionParameters
	MustUnmarshalJSON(t, []byte(`{"from":"FALCON","to":"NIGHTHAWK","tone":"playful"}`), &target)
	if target.From != "FALCON" || target.Tone != models.TonePlayful {
		t.Errorf("unexpected target %+v", target)
	}
}

func TestMustUnmarshalJSONFails(t *testing.T) {
	mockT := &mockTestingT{}
	var target map[string]interface{}
	MustUnmarshalJSON(mockT, []byte(`{`), &target)
	if !mockT.failed {
		t.Error("expected failure on malformed JSON")
	}
}

// mockTestingT records failures instead of stopping the test.
type mockTestingT struct {
	failed   bool
	errorMsg string
}

func (m *mockTestingT) Helper() {}

func (m *mockTestingT) Errorf(format string, args ...interface{}) {
	m.failed = true
	m.errorMsg = fmt.Sprintf(format, args...)
}

func (m *mockTestingT) Fatalf(format string, args ...interface{}) {
	m.failed = true
	m.errorMsg = fmt.Sprintf(format, args...)
}
