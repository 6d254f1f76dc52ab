package model

import (
	"crypto/rand"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// TaskID represents a unique identifier for a task
type TaskID struct {
	value string
}

// NewTaskID creates a new TaskID
// Format: ULID (e.g., 01JB6X8Y2K9FQR4T3VWHGP5M2C)
func NewTaskID() TaskID {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return TaskID{value: ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()}
}

// NewTaskIDFromString creates a TaskID from an existing string
func NewTaskIDFromString(id string) (TaskID, error) {
	if id == "" {
		return TaskID{}, errors.New("task ID cannot be empty")
	}
	return TaskID{value: id}, nil
}

// String returns the string representation
func (t TaskID) String() string {
	return t.value
}

// Equals checks if two TaskIDs are equal
func (t TaskID) Equals(other TaskID) bool {
	return t.value == other.value
}

// IsZero reports whether the ID was never assigned
func (t TaskID) IsZero() bool {
	return t.value == ""
}

// SessionID identifies one game session (one run of the turn loop)
type SessionID struct {
	value uuid.UUID
}

// NewSessionID creates a random SessionID
func NewSessionID() SessionID {
	return SessionID{value: uuid.New()}
}

// ParseSessionID parses a SessionID from its string form
func ParseSessionID(s string) (SessionID, error) {
	v, err := uuid.Parse(s)
	if err != nil {
		return SessionID{}, fmt.Errorf("invalid session ID %q: %w", s, err)
	}
	return SessionID{value: v}, nil
}

// String returns the string representation
func (s SessionID) String() string {
	return s.value.String()
}

// Equals checks if two SessionIDs are equal
func (s SessionID) Equals(other SessionID) bool {
	return s.value == other.value
}

// Direction is the signed turn direction shared by every player of a session
type Direction int

const (
	Forward  Direction = 1
	Backward Direction = -1
)

// Sign returns +1 or -1
func (d Direction) Sign() int {
	if d < 0 {
		return -1
	}
	return 1
}

// Reverse returns the opposite direction
func (d Direction) Reverse() Direction {
	if d.Sign() < 0 {
		return Forward
	}
	return Backward
}

// String returns the string representation
func (d Direction) String() string {
	if d.Sign() < 0 {
		return "backward"
	}
	return "forward"
}

// Timestamp represents a point in time
type Timestamp struct {
	value time.Time
}

// NewTimestamp creates a new Timestamp with current time
func NewTimestamp() Timestamp {
	return Timestamp{value: time.Now()}
}

// NewTimestampFromTime creates a Timestamp from a time.Time value
func NewTimestampFromTime(t time.Time) Timestamp {
	return Timestamp{value: t}
}

// Value returns the time.Time value
func (t Timestamp) Value() time.Time {
	return t.value
}

// String returns the string representation
func (t Timestamp) String() string {
	return t.value.Format(time.RFC3339)
}
