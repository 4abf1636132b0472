// Package flow drives the receiver-side mission sequence.
//
// The controller is a forward-only state machine. Timers, collaborator
// completions and user input never touch controller state directly; they post
// continuations onto a single event loop so every step runs on one goroutine.
package flow

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/BTreeMap/MissionLink/internal/models"
)

// ErrInvalidTransition is returned when a phase change would move backwards
// or leave the terminal phase.
var ErrInvalidTransition = errors.New("invalid phase transition")

// Timer defines the interface for scheduling delayed actions.
type Timer interface {
	// ScheduleAfter schedules a function to run after a delay and returns its ID
	ScheduleAfter(delay time.Duration, fn func()) (string, error)

	// Cancel cancels a scheduled function; unknown IDs are not an error
	Cancel(id string) error

	// Stop cancels every scheduled function
	Stop()

	// ListActive returns information about pending timers
	ListActive() []models.TimerInfo
}

// transition moves the controller to next and records it. Loop goroutine only.
func (c *Controller) transition(next models.SequencePhase) error {
	current := c.Phase()
	if !current.CanTransition(next) {
		err := fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, next)
		slog.Warn("Controller.transition: rejected", "from", current, "to", next, "error", err)
		return err
	}

	c.phase.Store(int32(next))
	c.mu.Lock()
	c.history = append(c.history, models.StateTransition{FromState: current, ToState: next, At: c.now()})
	c.mu.Unlock()

	slog.Debug("Controller.transition: phase changed", "from", current, "to", next, "to_codename", c.params.To)
	return nil
}

// Transitions returns the recorded phase changes in order.
func (c *Controller) Transitions() []models.StateTransition {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.StateTransition, len(c.history))
	copy(out, c.history)
	return out
}
