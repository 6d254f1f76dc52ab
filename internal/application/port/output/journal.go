package output

import (
	"context"
	"time"
)

// Turn statuses stored in the journal
const (
	TurnFinished = "FINISHED"
	TurnFailed   = "FAILED"
	TurnStopped  = "STOPPED"
)

// TurnRecord is one journal entry, written when a turn ends
type TurnRecord struct {
	SessionID string        `json:"session_id"`
	Turn      int           `json:"turn"`
	Seat      int           `json:"seat"`
	Player    string        `json:"player"`
	From      int           `json:"from"`
	To        int           `json:"to"`
	Roll      int           `json:"roll"`
	Faces     []int         `json:"faces,omitempty"`
	Direction int           `json:"direction"`
	ExtraTurn bool          `json:"extra_turn"`
	Parked    bool          `json:"parked"`
	Status    string        `json:"status"`
	Error     string        `json:"error,omitempty"`
	SimTime   time.Duration `json:"sim_time_ns"`
	StartedAt time.Time     `json:"started_at"`
	EndedAt   time.Time     `json:"ended_at"`
}

// Journal stores turn records
type Journal interface {
	// Record appends a turn record
	Record(ctx context.Context, rec TurnRecord) error
	// List returns the records of a session in turn order; an empty session
	// ID lists every session. limit <= 0 means no limit.
	List(ctx context.Context, sessionID string, limit int) ([]TurnRecord, error)
	Close() error
}
