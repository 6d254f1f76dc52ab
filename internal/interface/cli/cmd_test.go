package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YoshitsuguKoike/deeboard/internal/app/config"
	"github.com/YoshitsuguKoike/deeboard/internal/application/port/output"
	"github.com/YoshitsuguKoike/deeboard/internal/infra/definition"
)

// setupHome points DEEBOARD_HOME at a temp dir and clears overrides
func setupHome(t *testing.T, driver string) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("DEEBOARD_HOME", home)
	t.Setenv("DEEBOARD_JOURNAL_DRIVER", driver)
	t.Setenv("DEEBOARD_STDERR_LEVEL", "error")
	t.Setenv("DEEBOARD_OTEL_ENDPOINT", "")
	return home
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRoot()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

var sessionLine = regexp.MustCompile(`session (\S+):`)

func TestRoot_Help(t *testing.T) {
	setupHome(t, config.JournalNone)
	out, err := execute(t)
	require.NoError(t, err)
	for _, sub := range []string{"play", "board", "journal", "config", "init", "version"} {
		assert.Contains(t, out, sub)
	}
}

func TestPlay_NDJSONJournal(t *testing.T) {
	home := setupHome(t, config.JournalNDJSON)

	out, err := execute(t, "play", "--turns", "4", "--seed", "5", "--players", "Ann,Bob,Cid")
	require.NoError(t, err)
	assert.Contains(t, out, "game over after 4 turns")
	assert.Contains(t, out, "Cid")
	assert.Contains(t, out, "turn   1  Ann")

	m := sessionLine.FindStringSubmatch(out)
	require.Len(t, m, 2)
	session := m[1]

	data, err := os.ReadFile(filepath.Join(home, "var", "journal.ndjson"))
	require.NoError(t, err)
	assert.Equal(t, 4, strings.Count(string(data), "\n"))

	data, err = os.ReadFile(filepath.Join(home, "var", "health.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"turn":4`)
	assert.Contains(t, string(data), `"session":"`+session+`"`)

	out, err = execute(t, "journal", "list", "--json", "--session", session)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	var rec output.TurnRecord
	require.NoError(t, json.Unmarshal([]byte(lines[2]), &rec))
	assert.Equal(t, 3, rec.Turn)
	assert.Equal(t, "Cid", rec.Player)

	out, err = execute(t, "journal", "stats", "--session", session)
	require.NoError(t, err)
	assert.Contains(t, out, output.TurnFinished)
}

func TestPlay_SQLiteJournal(t *testing.T) {
	home := setupHome(t, config.JournalSQLite)

	out, err := execute(t, "play", "--turns", "2", "-q")
	require.NoError(t, err)
	assert.Contains(t, out, "game over after 2 turns")
	assert.NotContains(t, out, "turn   1")
	assert.FileExists(t, filepath.Join(home, "var", "journal.db"))

	out, err = execute(t, "journal", "list", "-n", "1")
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(out, "\n"))
	assert.Contains(t, out, "Player 1")
}

func TestPlay_Interrupted(t *testing.T) {
	setupHome(t, config.JournalNone)
	cfg := config.NewAppConfig(
		t.TempDir(), 10, []string{"Ann", "Bob"},
		2, 6, 1, 0,
		0, 4, "space",
		false, 16, "",
		false, false,
		"", config.JournalNone,
		"error",
		"default", "",
	)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var out bytes.Buffer
	require.NoError(t, runPlay(ctx, cfg, PlayConfig{Turns: -1}, false, &out))
	assert.Contains(t, out.String(), "game interrupted after 0 turns")
	assert.Contains(t, out.String(), "Ann")
}

func TestPlay_BoardFile(t *testing.T) {
	setupHome(t, config.JournalNone)
	path := filepath.Join(t.TempDir(), "mini.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: mini\ncells:\n  - title: Start\n  - title: Lane\n    repeat: 7\n"), 0o644))

	out, err := execute(t, "play", "--board", path, "--turns", "3", "--board-size", "2", "--tick", "20ms")
	require.NoError(t, err)
	assert.Contains(t, out, "mini, 8 cells")
	assert.Contains(t, out, "game over after 3 turns")
}

func TestJournal_Disabled(t *testing.T) {
	setupHome(t, config.JournalNone)
	_, err := execute(t, "journal", "list")
	assert.ErrorIs(t, err, errNoJournal)
}

func TestJournal_StatsRequiresSession(t *testing.T) {
	setupHome(t, config.JournalNDJSON)
	_, err := execute(t, "journal", "stats")
	assert.Error(t, err)
}

func TestBoard_Show(t *testing.T) {
	setupHome(t, config.JournalNone)
	out, err := execute(t, "board", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "Board: classic (40 cells)")
	assert.Contains(t, out, "Deck chance")
	assert.Contains(t, out, "enter: Script")
}

func TestBoard_Validate(t *testing.T) {
	setupHome(t, config.JournalNone)
	dir := t.TempDir()

	good := filepath.Join(dir, "good.yaml")
	require.NoError(t, os.WriteFile(good, []byte("name: good\ncells:\n  - title: Start\n    enter: [Announce, Script]\n"), 0o644))
	out, err := execute(t, "board", "validate", good)
	require.NoError(t, err)
	assert.Contains(t, out, "OK: good (1 cells, 0 decks)")

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("name: bad\ncells:\n  - title: Start\n    enter: [Teleport]\n"), 0o644))
	out, err = execute(t, "board", "validate", bad)
	require.Error(t, err)
	assert.Contains(t, out, `cells[0].enter: unknown effect "Teleport"`)

	_, err = execute(t, "board", "validate")
	assert.Error(t, err)
}

func TestBoard_Export(t *testing.T) {
	setupHome(t, config.JournalNone)
	path := filepath.Join(t.TempDir(), "out", "board.yaml")

	_, err := execute(t, "board", "export", "-o", path)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, definition.DefaultYAML(), data)

	out, err := execute(t, "board", "export")
	require.NoError(t, err)
	assert.Equal(t, string(definition.DefaultYAML()), out)
}

func TestConfig_Formats(t *testing.T) {
	home := setupHome(t, config.JournalNDJSON)

	out, err := execute(t, "config", "--format", "json")
	require.NoError(t, err)
	var eff EffectiveConfig
	require.NoError(t, json.Unmarshal([]byte(out), &eff))
	assert.Equal(t, "env", eff.Meta.Source)
	assert.Equal(t, home, eff.Meta.Home)
	assert.Equal(t, 2, eff.Game.Dice)
	assert.Equal(t, "(built-in)", eff.Game.Board)
	assert.Equal(t, config.JournalNDJSON, eff.Journal.Driver)
	assert.Equal(t, filepath.Join(home, "var", "journal.ndjson"), eff.Journal.Path)

	out, err = execute(t, "config")
	require.NoError(t, err)
	assert.Contains(t, out, "board_size: 10")

	_, err = execute(t, "config", "--format", "toml")
	assert.Error(t, err)
}

func TestInit(t *testing.T) {
	home := setupHome(t, config.JournalNone)

	out, err := execute(t, "init", "--board")
	require.NoError(t, err)
	assert.Contains(t, out, "Created "+filepath.Join(home, "setting.json"))
	assert.FileExists(t, filepath.Join(home, "board.yaml"))
	assert.DirExists(t, filepath.Join(home, "var"))

	out, err = execute(t, "init", "--board")
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, "Skipped"))

	out, err = execute(t, "config", "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"source": "json"`)
}

func TestRunInit_MemFs(t *testing.T) {
	fs := afero.NewMemMapFs()
	var out bytes.Buffer
	require.NoError(t, runInit(fs, "/home/.deeboard", false, &out))

	exists, err := afero.Exists(fs, "/home/.deeboard/setting.json")
	require.NoError(t, err)
	assert.True(t, exists)
	exists, _ = afero.Exists(fs, "/home/.deeboard/board.yaml")
	assert.False(t, exists)
}

func TestPrintTurn(t *testing.T) {
	var out bytes.Buffer
	printTurn(&out, output.TurnRecord{
		Turn: 7, Player: "Ann", From: 3, To: 9, Roll: 6, Faces: []int{2, 4},
		ExtraTurn: true, Status: output.TurnFailed, Error: "boom",
		SimTime: time.Second,
	})
	assert.Equal(t, "turn   7  Ann           3 ->  9  roll 6 [2 4]  extra turn  FAILED: boom\n", out.String())
}

func TestVersion(t *testing.T) {
	setupHome(t, config.JournalNone)
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "deeboard version")
}
