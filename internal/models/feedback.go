// Package models defines the feedback records exchanged through the shared store.
package models

import "fmt"

// Decision is the receiver's choice.
type Decision string

const (
	DecisionAccept  Decision = "accept"
	DecisionDecline Decision = "decline"
)

// FeedbackResponse is the decision as recorded for the sender.
type FeedbackResponse string

const (
	ResponseAccepted FeedbackResponse = "ACCEPTED"
	ResponseDeclined FeedbackResponse = "DECLINED"
)

// ParseDecision maps user input onto a Decision.
func ParseDecision(s string) (Decision, error) {
	switch Decision(s) {
	case DecisionAccept, DecisionDecline:
		return Decision(s), nil
	default:
		return "", fmt.Errorf("unknown decision %q", s)
	}
}

// Response returns the recorded form of the decision.
func (d Decision) Response() FeedbackResponse {
	if d == DecisionAccept {
		return ResponseAccepted
	}
	return ResponseDeclined
}

// FeedbackEntry is one recorded decision awaiting delivery to the sender.
type FeedbackEntry struct {
	ID       int64            `json:"id"`   // creation time in Unix milliseconds, unique within the queue
	From     string           `json:"from"` // sender codename
	To       string           `json:"to"`   // receiver codename, the one who decided
	Response FeedbackResponse `json:"response"`
	Read     bool             `json:"read"`
}

// Accepted reports whether the receiver accepted the mission.
func (e FeedbackEntry) Accepted() bool {
	return e.Response == ResponseAccepted
}
