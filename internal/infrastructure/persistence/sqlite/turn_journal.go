package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/YoshitsuguKoike/deeboard/internal/application/port/output"
)

// ErrDuplicateTurn is returned when a session records the same turn twice
var ErrDuplicateTurn = errors.New("turn already recorded")

// TurnJournal implements output.Journal with SQLite
type TurnJournal struct {
	db    *sql.DB
	owned bool
}

var _ output.Journal = (*TurnJournal)(nil)

// Open opens (creating if needed) the journal database at path and migrates
// it. ":memory:" opens a private in-memory database.
func Open(ctx context.Context, path string) (*TurnJournal, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create journal dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	// one connection keeps an in-memory database alive and serializes writers
	db.SetMaxOpenConns(1)

	if err := NewMigrator(db).Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate journal: %w", err)
	}
	j := NewTurnJournal(db)
	j.owned = true
	return j, nil
}

// NewTurnJournal creates a journal on an already migrated database. Close
// leaves db open.
func NewTurnJournal(db *sql.DB) *TurnJournal {
	return &TurnJournal{db: db}
}

// Record appends a turn record
func (j *TurnJournal) Record(ctx context.Context, rec output.TurnRecord) error {
	faces := rec.Faces
	if faces == nil {
		faces = []int{}
	}
	facesJSON, err := json.Marshal(faces)
	if err != nil {
		return fmt.Errorf("marshal faces: %w", err)
	}

	query := `
		INSERT INTO turns (
			session_id, turn, seat, player, from_cell, to_cell, roll, faces,
			direction, extra_turn, parked, status, error, sim_time_ns,
			started_at, ended_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = j.db.ExecContext(ctx, query,
		rec.SessionID,
		rec.Turn,
		rec.Seat,
		rec.Player,
		rec.From,
		rec.To,
		rec.Roll,
		string(facesJSON),
		rec.Direction,
		rec.ExtraTurn,
		rec.Parked,
		rec.Status,
		rec.Error,
		int64(rec.SimTime),
		rec.StartedAt.UTC().Format(time.RFC3339Nano),
		rec.EndedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("session %s turn %d: %w", rec.SessionID, rec.Turn, ErrDuplicateTurn)
		}
		return fmt.Errorf("insert turn: %w", err)
	}
	return nil
}

// List returns the records of a session in turn order; an empty session ID
// lists every session in recording order. limit <= 0 means no limit.
func (j *TurnJournal) List(ctx context.Context, sessionID string, limit int) ([]output.TurnRecord, error) {
	var (
		where []string
		args  []interface{}
	)
	if sessionID != "" {
		where = append(where, "session_id = ?")
		args = append(args, sessionID)
	}

	query := `
		SELECT session_id, turn, seat, player, from_cell, to_cell, roll, faces,
			direction, extra_turn, parked, status, error, sim_time_ns,
			started_at, ended_at
		FROM turns`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	if sessionID != "" {
		query += " ORDER BY turn"
	} else {
		query += " ORDER BY id"
	}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query turns: %w", err)
	}
	defer rows.Close()

	var out []output.TurnRecord
	for rows.Next() {
		rec, err := scanTurn(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate turns: %w", err)
	}
	return out, nil
}

// Count returns how many turns a session recorded per status
func (j *TurnJournal) Count(ctx context.Context, sessionID string) (map[string]int, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM turns WHERE session_id = ? GROUP BY status`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("count turns: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		out[status] = n
	}
	return out, rows.Err()
}

// Close closes the database if the journal opened it
func (j *TurnJournal) Close() error {
	if !j.owned {
		return nil
	}
	return j.db.Close()
}

func scanTurn(rows *sql.Rows) (output.TurnRecord, error) {
	var (
		rec                output.TurnRecord
		facesJSON          string
		simTime            int64
		startedAt, endedAt string
	)
	if err := rows.Scan(
		&rec.SessionID,
		&rec.Turn,
		&rec.Seat,
		&rec.Player,
		&rec.From,
		&rec.To,
		&rec.Roll,
		&facesJSON,
		&rec.Direction,
		&rec.ExtraTurn,
		&rec.Parked,
		&rec.Status,
		&rec.Error,
		&simTime,
		&startedAt,
		&endedAt,
	); err != nil {
		return rec, fmt.Errorf("scan turn: %w", err)
	}

	if err := json.Unmarshal([]byte(facesJSON), &rec.Faces); err != nil {
		return rec, fmt.Errorf("unmarshal faces: %w", err)
	}
	if len(rec.Faces) == 0 {
		rec.Faces = nil
	}
	rec.SimTime = time.Duration(simTime)

	var err error
	if rec.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
		return rec, fmt.Errorf("parse started_at: %w", err)
	}
	if rec.EndedAt, err = time.Parse(time.RFC3339Nano, endedAt); err != nil {
		return rec, fmt.Errorf("parse ended_at: %w", err)
	}
	return rec, nil
}

// isUniqueConstraintError checks if the error is a UNIQUE constraint violation
func isUniqueConstraintError(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}
