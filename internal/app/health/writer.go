package health

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/afero"

	"github.com/YoshitsuguKoike/deeboard/internal/application/port/output"
	"github.com/YoshitsuguKoike/deeboard/internal/infra/persistence/file"
)

// Health represents the health.json structure: the last turn a running
// game finished
type Health struct {
	Ts      string `json:"ts"`
	Session string `json:"session"`
	Turn    int    `json:"turn"`
	Player  string `json:"player"`
	Cell    int    `json:"cell"`
	Status  string `json:"status"`
	Ok      bool   `json:"ok"`
	Error   string `json:"error"`
}

// FromTurn builds the health of a game from its latest turn record
func FromTurn(rec output.TurnRecord) *Health {
	return &Health{
		Session: rec.SessionID,
		Turn:    rec.Turn,
		Player:  rec.Player,
		Cell:    rec.To,
		Status:  rec.Status,
		Ok:      rec.Status != output.TurnFailed,
		Error:   rec.Error,
	}
}

// WriteHealthAtomic writes health data atomically with current timestamp
func WriteHealthAtomic(fs afero.Fs, health *Health, path string) error {
	// Update timestamp to current time with RFC3339Nano precision
	health.Ts = time.Now().UTC().Format(time.RFC3339Nano)

	// Marshal to JSON (compact form)
	data, err := json.Marshal(health)
	if err != nil {
		return fmt.Errorf("failed to marshal health: %w", err)
	}

	// Write atomically
	if err := file.WriteFileAtomic(fs, path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write health: %w", err)
	}

	return nil
}
