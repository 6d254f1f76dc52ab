package config

import (
	"encoding/json"
	"io/fs"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YoshitsuguKoike/deeboard/internal/app/config"
)

func writeSettings(t *testing.T, fsys afero.Fs, dir string, settings map[string]interface{}) {
	t.Helper()
	data, err := json.MarshalIndent(settings, "", "  ")
	require.NoError(t, err)
	require.NoError(t, afero.WriteFile(fsys, filepath.Join(dir, SettingFile), data, 0o644))
}

func TestLoadSettings(t *testing.T) {
	tests := []struct {
		name          string
		settings      map[string]interface{}
		envVars       map[string]string
		wantHome      string
		wantBoardSize int
		wantPlayers   []string
		wantSource    string
	}{
		{
			name:          "Default values only",
			wantHome:      ".deeboard",
			wantBoardSize: 10,
			wantPlayers:   []string{"Player 1", "Player 2"},
			wantSource:    "default",
		},
		{
			name: "Environment variables only",
			envVars: map[string]string{
				"DEEBOARD_HOME":       "/custom/home",
				"DEEBOARD_BOARD_SIZE": "6",
				"DEEBOARD_PLAYERS":    "Ann,Bob,Cy",
			},
			wantHome:      "/custom/home",
			wantBoardSize: 6,
			wantPlayers:   []string{"Ann", "Bob", "Cy"},
			wantSource:    "env",
		},
		{
			name: "JSON file only",
			settings: map[string]interface{}{
				"home":       "/json/home",
				"board_size": 8,
				"players":    []string{"Red", "Blue"},
			},
			wantHome:      "/json/home",
			wantBoardSize: 8,
			wantPlayers:   []string{"Red", "Blue"},
			wantSource:    "json",
		},
		{
			name: "JSON with ENV override",
			settings: map[string]interface{}{
				"home":       "/json/home",
				"board_size": 8,
			},
			envVars: map[string]string{
				"DEEBOARD_BOARD_SIZE": "12",
			},
			wantHome:      "/json/home",
			wantBoardSize: 12, // ENV overrides JSON
			wantPlayers:   []string{"Player 1", "Player 2"},
			wantSource:    "json", // Source is still JSON since it was loaded
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fsys := afero.NewMemMapFs()
			if tt.settings != nil {
				writeSettings(t, fsys, "/base", tt.settings)
			}
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			cfg, err := LoadSettings(fsys, "/base")
			require.NoError(t, err)

			assert.Equal(t, tt.wantHome, cfg.Home())
			assert.Equal(t, tt.wantBoardSize, cfg.BoardSize())
			assert.Equal(t, tt.wantPlayers, cfg.Players())
			assert.Equal(t, tt.wantSource, cfg.ConfigSource())
			if tt.wantSource == "json" {
				assert.Equal(t, filepath.Join("/base", SettingFile), cfg.SettingPath())
			} else {
				assert.Empty(t, cfg.SettingPath())
			}
		})
	}
}

func TestLoadSettings_Defaults(t *testing.T) {
	cfg, err := LoadSettings(afero.NewMemMapFs(), "/base")
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Dice())
	assert.Equal(t, 6, cfg.DiceSides())
	assert.Equal(t, int64(1), cfg.Seed())
	assert.Zero(t, cfg.DiceOverride())
	assert.Zero(t, cfg.MaxTurns())
	assert.Equal(t, 4.0, cfg.MoveSpeed())
	assert.Equal(t, "space", cfg.RollKey())
	assert.Equal(t, 16*time.Millisecond, cfg.Tick())
	assert.Empty(t, cfg.Definition())
	assert.False(t, cfg.UseFirstCellOnce())
	assert.Equal(t, config.JournalSQLite, cfg.JournalDriver())
	assert.Equal(t, filepath.Join(".deeboard", "var", "journal.db"), cfg.Journal())
	assert.Equal(t, "warn", cfg.StderrLevel())
}

func TestLoadSettings_Flags(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeSettings(t, fsys, "/base", map[string]interface{}{
		"skip_throw":     true,
		"journal_driver": "NDJSON",
		"stderr_level":   "DEBUG",
	})
	t.Setenv("DEEBOARD_REQUIRE_SHAKE", "true")

	cfg, err := LoadSettings(fsys, "/base")
	require.NoError(t, err)

	assert.True(t, cfg.Flag("skip_throw"))
	assert.True(t, cfg.Flag("require_shake"))
	assert.False(t, cfg.Flag("unknown"))
	assert.Equal(t, config.JournalNDJSON, cfg.JournalDriver())
	assert.Equal(t, filepath.Join(".deeboard", "var", "journal.ndjson"), cfg.Journal())
	assert.Equal(t, "debug", cfg.StderrLevel())
}

func TestLoadSettings_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		settings map[string]interface{}
		envVars  map[string]string
		wantErr  string
	}{
		{
			name:     "board too small",
			settings: map[string]interface{}{"board_size": 0},
			wantErr:  "board_size",
		},
		{
			name:     "negative dice",
			settings: map[string]interface{}{"dice": -1},
			wantErr:  "dice must not be negative",
		},
		{
			name:     "unknown journal driver",
			settings: map[string]interface{}{"journal_driver": "postgres"},
			wantErr:  "journal_driver",
		},
		{
			name:     "zero move speed",
			settings: map[string]interface{}{"move_speed": 0},
			wantErr:  "move_speed",
		},
		{
			name:    "malformed env",
			envVars: map[string]string{"DEEBOARD_DICE": "two"},
			wantErr: "parse env",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fsys := afero.NewMemMapFs()
			if tt.settings != nil {
				writeSettings(t, fsys, "/base", tt.settings)
			}
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			_, err := LoadSettings(fsys, "/base")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadSettings_BadJSON(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/base/setting.json", []byte("{"), 0o644))

	_, err := LoadSettings(fsys, "/base")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse")
}

func TestCreateDefaultSettings(t *testing.T) {
	data := CreateDefaultSettings()

	var settings RawSettings
	require.NoError(t, json.Unmarshal(data, &settings))

	require.NotNil(t, settings.Home)
	assert.Equal(t, ".deeboard", *settings.Home)
	require.NotNil(t, settings.BoardSize)
	assert.Equal(t, 10, *settings.BoardSize)
	require.NotNil(t, settings.JournalDriver)
	assert.Equal(t, "sqlite", *settings.JournalDriver)
}

func TestWriteDefaultSettings(t *testing.T) {
	fsys := afero.NewMemMapFs()

	path, err := WriteDefaultSettings(fsys, "/base")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/base", SettingFile), path)

	cfg, err := LoadSettings(fsys, "/base")
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.ConfigSource())

	_, err = WriteDefaultSettings(fsys, "/base")
	assert.ErrorIs(t, err, fs.ErrExist)
}
