package task

import (
	"errors"
	"fmt"
)

// State represents the lifecycle state of a task
type State int

const (
	StateReady State = iota
	StateRunning
	StatePaused
	StateFinished
	StateFailed
)

// String returns the string representation
func (s State) String() string {
	switch s {
	case StateReady:
		return "READY"
	case StateRunning:
		return "RUNNING"
	case StatePaused:
		return "PAUSED"
	case StateFinished:
		return "FINISHED"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// IsTerminal reports whether no transition can leave the state
func (s State) IsTerminal() bool {
	return s == StateFinished || s == StateFailed
}

// IsActive reports whether the task is being driven (Running or Paused)
func (s State) IsActive() bool {
	return s == StateRunning || s == StatePaused
}

// CanTransitionTo checks if a state transition is valid
func (s State) CanTransitionTo(next State) bool {
	validTransitions := map[State][]State{
		StateReady:    {StateRunning},
		StateRunning:  {StatePaused, StateFinished, StateFailed},
		StatePaused:   {StateRunning, StateFinished, StateFailed},
		StateFinished: {},
		StateFailed:   {},
	}

	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

var (
	// ErrInvalidTransition is carried by every TransitionError panic
	ErrInvalidTransition = errors.New("invalid task state transition")

	// ErrDone is returned by Sequence.Next once the sequence is exhausted
	ErrDone = errors.New("sequence done")
)

// TransitionError is the panic value raised when Start, Pause, Resume or Stop is
// called from a state that forbids it.
type TransitionError struct {
	Task string
	Op   string
	From State
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("task %q: %s from %s: %v", e.Task, e.Op, e.From, ErrInvalidTransition)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// PanicError wraps a value recovered while advancing a sequence
type PanicError struct {
	Value interface{}
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic while advancing task: %v", e.Value)
}

func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
