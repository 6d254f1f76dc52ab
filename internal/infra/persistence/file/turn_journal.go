package file

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/afero"

	"github.com/YoshitsuguKoike/deeboard/internal/app"
	"github.com/YoshitsuguKoike/deeboard/internal/application/port/output"
)

// TurnJournal implements output.Journal as newline delimited JSON, one turn
// record per line
type TurnJournal struct {
	fs     afero.Fs
	path   string
	logger app.Logger
}

var _ output.Journal = (*TurnJournal)(nil)

// NewTurnJournal creates a journal appending to path on fs
func NewTurnJournal(fs afero.Fs, path string, logger app.Logger) *TurnJournal {
	if logger == nil {
		logger = app.GetLogger()
	}
	return &TurnJournal{fs: fs, path: path, logger: logger}
}

// Path returns the journal file path
func (j *TurnJournal) Path() string {
	return j.path
}

// Record appends a turn record as one JSON line
func (j *TurnJournal) Record(ctx context.Context, rec output.TurnRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := j.fs.MkdirAll(filepath.Dir(j.path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", j.path, err)
	}

	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal turn record: %w", err)
	}

	f, err := j.fs.OpenFile(j.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open journal %s: %w", j.path, err)
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	if _, err := bw.Write(append(b, '\n')); err != nil {
		return fmt.Errorf("write journal %s: %w", j.path, err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flush journal %s: %w", j.path, err)
	}

	// The line is written even if the sync fails
	if err := f.Sync(); err != nil {
		j.logger.Warn("failed to fsync journal %s: %v", j.path, err)
	}
	return nil
}

// List reads the records of a session ordered by turn; an empty session ID
// lists every record in file order. limit <= 0 means no limit.
func (j *TurnJournal) List(ctx context.Context, sessionID string, limit int) ([]output.TurnRecord, error) {
	data, err := afero.ReadFile(j.fs, j.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read journal %s: %w", j.path, err)
	}

	var out []output.TurnRecord
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for line := 1; sc.Scan(); line++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 {
			continue
		}
		var rec output.TurnRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("journal %s line %d: %w", j.path, line, err)
		}
		if sessionID != "" && rec.SessionID != sessionID {
			continue
		}
		out = append(out, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan journal %s: %w", j.path, err)
	}

	if sessionID != "" {
		sort.SliceStable(out, func(a, b int) bool { return out[a].Turn < out[b].Turn })
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Close implements output.Journal; every Record closes its file
func (j *TurnJournal) Close() error {
	return nil
}
