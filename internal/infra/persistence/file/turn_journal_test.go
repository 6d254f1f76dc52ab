package file_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YoshitsuguKoike/deeboard/internal/app"
	"github.com/YoshitsuguKoike/deeboard/internal/application/port/output"
	"github.com/YoshitsuguKoike/deeboard/internal/infra/persistence/file"
)

func turn(session string, n int, status string) output.TurnRecord {
	at := time.Date(2026, 3, 1, 12, 0, n, 0, time.UTC)
	return output.TurnRecord{
		SessionID: session,
		Turn:      n,
		Player:    "Player 1",
		From:      n,
		To:        n + 4,
		Roll:      4,
		Faces:     []int{1, 3},
		Direction: 1,
		Status:    status,
		SimTime:   time.Second,
		StartedAt: at,
		EndedAt:   at.Add(time.Second),
	}
}

func TestTurnJournal_RecordAndList(t *testing.T) {
	fs := afero.NewMemMapFs()
	j := file.NewTurnJournal(fs, ".deeboard/var/journal.ndjson", app.NopLogger())
	ctx := context.Background()

	require.NoError(t, j.Record(ctx, turn("s1", 2, output.TurnFinished)))
	require.NoError(t, j.Record(ctx, turn("s2", 1, output.TurnFailed)))
	require.NoError(t, j.Record(ctx, turn("s1", 1, output.TurnStopped)))

	data, err := afero.ReadFile(fs, j.Path())
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(string(data), "\n"))
	assert.Contains(t, string(data), `"session_id":"s1"`)

	s1, err := j.List(ctx, "s1", 0)
	require.NoError(t, err)
	require.Len(t, s1, 2)
	assert.Equal(t, 1, s1[0].Turn)
	assert.Equal(t, 2, s1[1].Turn)
	assert.Equal(t, []int{1, 3}, s1[1].Faces)
	assert.Equal(t, time.Second, s1[1].SimTime)

	all, err := j.List(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "s2", all[1].SessionID)

	limited, err := j.List(ctx, "", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	assert.NoError(t, j.Close())
}

func TestTurnJournal_MissingFileIsEmpty(t *testing.T) {
	j := file.NewTurnJournal(afero.NewMemMapFs(), "journal.ndjson", app.NopLogger())
	recs, err := j.List(context.Background(), "", 0)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestTurnJournal_CorruptLine(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "journal.ndjson", []byte("{\"turn\":1}\n\nnot json\n"), 0o644))

	j := file.NewTurnJournal(fs, "journal.ndjson", app.NopLogger())
	_, err := j.List(context.Background(), "", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 3")
}

func TestTurnJournal_CanceledContext(t *testing.T) {
	j := file.NewTurnJournal(afero.NewMemMapFs(), "journal.ndjson", app.NopLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, j.Record(ctx, turn("s1", 1, output.TurnFinished)), context.Canceled)
}
