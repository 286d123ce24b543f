package tachi

import (
	"errors"
	"fmt"
	"time"

	"github.com/zkrising/tachi-import-scripts/internal/services"
)

// State is a step of a submission.
type State string

const (
	StateInit       State = "INIT"
	StateSubmitting State = "SUBMITTING"
	StatePolling    State = "POLLING"
	StateSuccess    State = "SUCCESS"
	StateFailure    State = "FAILURE"
)

// Terminal reports whether no transition leaves the state.
func (s State) Terminal() bool {
	return s == StateSuccess || s == StateFailure
}

var transitions = map[State][]State{
	StateInit:       {StateSubmitting, StateFailure},
	StateSubmitting: {StatePolling, StateSuccess, StateFailure},
	StatePolling:    {StateSuccess, StateFailure},
}

// CanTransition reports whether from -> to is a legal step.
func CanTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition records one step of a submission.
type Transition struct {
	From State
	To   State
	At   time.Time
}

// ErrMissingCredential is returned without any network call when no API
// token is configured.
var ErrMissingCredential = fmt.Errorf("%w: you have no auth token set up", services.ErrConfiguration)

var errIllegalTransition = errors.New("illegal state transition")

// machine tracks the current state and its history.
type machine struct {
	state   State
	history []Transition
	now     func() time.Time
}

func newMachine(now func() time.Time) *machine {
	return &machine{state: StateInit, now: now}
}

func (m *machine) to(next State) error {
	if !CanTransition(m.state, next) {
		return fmt.Errorf("%w: %s -> %s", errIllegalTransition, m.state, next)
	}
	m.history = append(m.history, Transition{From: m.state, To: next, At: m.now()})
	m.state = next
	return nil
}
