// Package testutil provides shared fixtures and assertions for MissionLink tests.
package testutil

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/BTreeMap/MissionLink/internal/feedback"
	"github.com/BTreeMap/MissionLink/internal/models"
	"github.com/BTreeMap/MissionLink/internal/store"
)

// TB is the subset of testing.TB the assertions need.
type TB interface {
	Helper()
	Errorf(format string, args ...interface{})
	Fatalf(format string, args ...interface{})
}

// FalconParams are the mission parameters used throughout the scenarios.
func FalconParams() models.MissionParameters {
	return models.MissionParameters{From: "FALCON", To: "NIGHTHAWK", Tone: models.ToneRomantic, Message: "DINNER AT 8"}
}

// NewTestChannel returns a feedback channel over a fresh in-memory store.
func NewTestChannel() (*feedback.Channel, *store.InMemoryStore) {
	kv := store.NewInMemoryStore()
	return feedback.NewChannel(kv), kv
}

// SeedFeedback publishes entries in order and returns them as stored.
func SeedFeedback(t TB, ch *feedback.Channel, entries ...models.FeedbackEntry) []models.FeedbackEntry {
	t.Helper()
	out := make([]models.FeedbackEntry, 0, len(entries))
	for _, e := range entries {
		stored, err := ch.Publish(context.Background(), e)
		if err != nil {
			t.Fatalf("failed to seed feedback %+v: %v", e, err)
		}
		out = append(out, stored)
	}
	return out
}

// QueueSnapshot decodes the raw feedback queue held in kv.
func QueueSnapshot(t TB, kv store.KV) []models.FeedbackEntry {
	t.Helper()
	raw, ok, err := kv.Get(context.Background(), feedback.QueueKey)
	if err != nil {
		t.Fatalf("failed to read feedback queue: %v", err)
	}
	if !ok {
		return nil
	}
	var entries []models.FeedbackEntry
	MustUnmarshalJSON(t, []byte(raw), &entries)
	return entries
}

// AssertQueueLen checks the number of entries in the feedback queue.
func AssertQueueLen(t TB, kv store.KV, expected int, context string) {
	t.Helper()
	if got := len(QueueSnapshot(t, kv)); got != expected {
		t.Errorf("%s: expected %d queued entries, got %d", context, expected, got)
	}
}

// AssertFeedbackEquals compares two entries field by field.
func AssertFeedbackEquals(t TB, expected, actual models.FeedbackEntry, context string) {
	t.Helper()
	if actual != expected {
		t.Errorf("%s: entries don't match\nexpected: %+v\nactual: %+v", context, expected, actual)
	}
}

// MustMarshalJSON marshals an object to JSON and fails test on error.
func MustMarshalJSON(t TB, v interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("failed to marshal JSON: %v", err)
	}
	return data
}

// MustUnmarshalJSON unmarshals JSON data into target and fails test on error.
func MustUnmarshalJSON(t TB, data []byte, target interface{}) {
	t.Helper()
	if err := json.Unmarshal(data, target); err != nil {
		t.Fatalf("failed to unmarshal JSON: %v", err)
	}
}

var _ TB = (*testing.T)(nil)
