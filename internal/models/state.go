// Package models defines state management structures for MissionLink sequences.
package models

import "time"

// SequencePhase is a named step of the receiver-side scripted sequence.
type SequencePhase int

const (
	PhaseIdle SequencePhase = iota
	PhaseBooting
	PhaseBriefing
	PhaseAwaitingDecision
	PhaseShowingResponse
	PhaseCountingDown
	PhaseTerminated
)

var phaseNames = [...]string{
	PhaseIdle:             "IDLE",
	PhaseBooting:          "BOOTING",
	PhaseBriefing:         "BRIEFING",
	PhaseAwaitingDecision: "AWAITING_DECISION",
	PhaseShowingResponse:  "SHOWING_RESPONSE",
	PhaseCountingDown:     "COUNTING_DOWN",
	PhaseTerminated:       "TERMINATED",
}

func (p SequencePhase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return "UNKNOWN"
	}
	return phaseNames[p]
}

// CanTransition reports whether moving from p to next is allowed.
// Transitions are strictly forward and Terminated is absorbing.
func (p SequencePhase) CanTransition(next SequencePhase) bool {
	if p == PhaseTerminated {
		return false
	}
	return next > p && next <= PhaseTerminated
}

// StateTransition records one phase change of a sequence.
type StateTransition struct {
	FromState SequencePhase `json:"from_state"`
	ToState   SequencePhase `json:"to_state"`
	At        time.Time     `json:"at"`
}

// TimerInfo describes a scheduled timer.
type TimerInfo struct {
	ID          string    `json:"id"`
	ScheduledAt time.Time `json:"scheduled_at"`
	ExpiresAt   time.Time `json:"expires_at"`
	Remaining   string    `json:"remaining"`
	Description string    `json:"description"`
}
