package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/afero"

	"github.com/YoshitsuguKoike/deeboard/internal/app"
	"github.com/YoshitsuguKoike/deeboard/internal/app/config"
	"github.com/YoshitsuguKoike/deeboard/internal/infra/persistence/file"
)

// SettingFile is the name of the settings file inside the base directory
const SettingFile = "setting.json"

// RawSettings represents the structure of setting.json file.
// JSON tags are used for marshaling/unmarshaling, env tags for overrides.
type RawSettings struct {
	// Core settings
	Home *string `json:"home" env:"DEEBOARD_HOME"`

	// Game setup
	BoardSize        *int     `json:"board_size" env:"DEEBOARD_BOARD_SIZE"`
	Players          []string `json:"players" env:"DEEBOARD_PLAYERS" envSeparator:","`
	Dice             *int     `json:"dice" env:"DEEBOARD_DICE"`
	DiceSides        *int     `json:"dice_sides" env:"DEEBOARD_DICE_SIDES"`
	Seed             *int64   `json:"seed" env:"DEEBOARD_SEED"`
	DiceOverride     *int     `json:"dice_override" env:"DEEBOARD_DICE_OVERRIDE"`
	MaxTurns         *int     `json:"max_turns" env:"DEEBOARD_MAX_TURNS"`
	MoveSpeed        *float64 `json:"move_speed" env:"DEEBOARD_MOVE_SPEED"`
	RollKey          *string  `json:"roll_key" env:"DEEBOARD_ROLL_KEY"`
	UseFirstCellOnce *bool    `json:"use_first_cell_once" env:"DEEBOARD_USE_FIRST_CELL_ONCE"`
	TickMS           *int     `json:"tick_ms" env:"DEEBOARD_TICK_MS"`
	Definition       *string  `json:"definition" env:"DEEBOARD_DEFINITION"`

	// Feature flags
	RequireShake *bool `json:"require_shake" env:"DEEBOARD_REQUIRE_SHAKE"`
	SkipThrow    *bool `json:"skip_throw" env:"DEEBOARD_SKIP_THROW"`

	// Journal
	Journal       *string `json:"journal" env:"DEEBOARD_JOURNAL"`
	JournalDriver *string `json:"journal_driver" env:"DEEBOARD_JOURNAL_DRIVER"`

	// Logging
	StderrLevel *string `json:"stderr_level" env:"DEEBOARD_STDERR_LEVEL"`
}

// LoadSettings loads configuration from setting.json and the environment.
// Priority: environment > setting.json > defaults
func LoadSettings(fsys afero.Fs, baseDir string) (*config.AppConfig, error) {
	settings := &RawSettings{}
	configSource := "default"
	settingPath := ""

	jsonPath := filepath.Join(baseDir, SettingFile)
	data, err := afero.ReadFile(fsys, jsonPath)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, settings); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", jsonPath, err)
		}
		configSource = "json"
		settingPath = jsonPath
	case !errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("failed to read %s: %w", jsonPath, err)
	}

	overridden, err := applyEnv(settings)
	if err != nil {
		return nil, err
	}
	if overridden && configSource == "default" {
		configSource = "env"
	}

	applyDefaults(settings)

	if err := validate(settings); err != nil {
		return nil, err
	}

	return buildAppConfig(settings, configSource, settingPath), nil
}

// applyEnv overlays DEEBOARD_* variables on settings and reports whether
// any of them was set
func applyEnv(settings *RawSettings) (bool, error) {
	var overrides RawSettings
	if err := env.Parse(&overrides); err != nil {
		return false, fmt.Errorf("parse env: %w", err)
	}

	set := false
	str := func(dst **string, v *string) {
		if v != nil {
			*dst, set = v, true
		}
	}
	num := func(dst **int, v *int) {
		if v != nil {
			*dst, set = v, true
		}
	}
	flag := func(dst **bool, v *bool) {
		if v != nil {
			*dst, set = v, true
		}
	}

	str(&settings.Home, overrides.Home)
	num(&settings.BoardSize, overrides.BoardSize)
	if len(overrides.Players) > 0 {
		settings.Players, set = overrides.Players, true
	}
	num(&settings.Dice, overrides.Dice)
	num(&settings.DiceSides, overrides.DiceSides)
	if overrides.Seed != nil {
		settings.Seed, set = overrides.Seed, true
	}
	num(&settings.DiceOverride, overrides.DiceOverride)
	num(&settings.MaxTurns, overrides.MaxTurns)
	if overrides.MoveSpeed != nil {
		settings.MoveSpeed, set = overrides.MoveSpeed, true
	}
	str(&settings.RollKey, overrides.RollKey)
	flag(&settings.UseFirstCellOnce, overrides.UseFirstCellOnce)
	num(&settings.TickMS, overrides.TickMS)
	str(&settings.Definition, overrides.Definition)
	flag(&settings.RequireShake, overrides.RequireShake)
	flag(&settings.SkipThrow, overrides.SkipThrow)
	str(&settings.Journal, overrides.Journal)
	str(&settings.JournalDriver, overrides.JournalDriver)
	str(&settings.StderrLevel, overrides.StderrLevel)

	return set, nil
}

// applyDefaults fills in default values for any nil fields
func applyDefaults(settings *RawSettings) {
	// Core defaults
	if settings.Home == nil {
		v := ".deeboard"
		settings.Home = &v
	}

	// Game setup
	if settings.BoardSize == nil {
		v := 10
		settings.BoardSize = &v
	}
	if len(settings.Players) == 0 {
		settings.Players = []string{"Player 1", "Player 2"}
	}
	if settings.Dice == nil {
		v := 2
		settings.Dice = &v
	}
	if settings.DiceSides == nil {
		v := 6
		settings.DiceSides = &v
	}
	if settings.Seed == nil {
		v := int64(1)
		settings.Seed = &v
	}
	if settings.DiceOverride == nil {
		v := 0
		settings.DiceOverride = &v
	}
	if settings.MaxTurns == nil {
		v := 0 // play until stopped
		settings.MaxTurns = &v
	}
	if settings.MoveSpeed == nil {
		v := 4.0
		settings.MoveSpeed = &v
	}
	if settings.RollKey == nil {
		v := "space"
		settings.RollKey = &v
	}
	if settings.UseFirstCellOnce == nil {
		v := false
		settings.UseFirstCellOnce = &v
	}
	if settings.TickMS == nil {
		v := 16
		settings.TickMS = &v
	}
	if settings.Definition == nil {
		v := ""
		settings.Definition = &v
	}

	// Feature flags (default to false)
	if settings.RequireShake == nil {
		v := false
		settings.RequireShake = &v
	}
	if settings.SkipThrow == nil {
		v := false
		settings.SkipThrow = &v
	}

	// Journal
	if settings.Journal == nil {
		v := ""
		settings.Journal = &v
	}
	if settings.JournalDriver == nil {
		v := config.JournalSQLite
		settings.JournalDriver = &v
	}

	// Logging
	if settings.StderrLevel == nil {
		v := "warn" // Default to WARN level
		settings.StderrLevel = &v
	}
}

// validate rejects settings the game cannot start with
func validate(settings *RawSettings) error {
	if *settings.BoardSize < 1 {
		return fmt.Errorf("board_size must be at least 1, got %d", *settings.BoardSize)
	}
	if *settings.Dice < 0 {
		return fmt.Errorf("dice must not be negative, got %d", *settings.Dice)
	}
	if *settings.DiceSides < 1 {
		return fmt.Errorf("dice_sides must be at least 1, got %d", *settings.DiceSides)
	}
	if *settings.TickMS < 1 {
		return fmt.Errorf("tick_ms must be at least 1, got %d", *settings.TickMS)
	}
	if *settings.MoveSpeed <= 0 {
		return fmt.Errorf("move_speed must be positive, got %v", *settings.MoveSpeed)
	}

	driver := strings.ToLower(strings.TrimSpace(*settings.JournalDriver))
	switch driver {
	case config.JournalSQLite, config.JournalNDJSON, config.JournalNone:
		settings.JournalDriver = &driver
	default:
		return fmt.Errorf("unknown journal_driver %q", *settings.JournalDriver)
	}

	level := app.LogLevelFromString(*settings.StderrLevel).String()
	settings.StderrLevel = &level
	return nil
}

// buildAppConfig converts RawSettings to AppConfig
func buildAppConfig(settings *RawSettings, configSource, settingPath string) *config.AppConfig {
	return config.NewAppConfig(
		*settings.Home,
		*settings.BoardSize,
		settings.Players,
		*settings.Dice,
		*settings.DiceSides,
		*settings.Seed,
		*settings.DiceOverride,
		*settings.MaxTurns,
		*settings.MoveSpeed,
		*settings.RollKey,
		*settings.UseFirstCellOnce,
		*settings.TickMS,
		*settings.Definition,
		*settings.RequireShake,
		*settings.SkipThrow,
		*settings.Journal,
		*settings.JournalDriver,
		*settings.StderrLevel,
		configSource,
		settingPath,
	)
}

// CreateDefaultSettings creates a default setting.json content
func CreateDefaultSettings() []byte {
	settings := &RawSettings{}
	applyDefaults(settings)

	data, _ := json.MarshalIndent(settings, "", "  ")
	return data
}

// WriteDefaultSettings writes setting.json into baseDir unless it exists
func WriteDefaultSettings(fsys afero.Fs, baseDir string) (string, error) {
	path := filepath.Join(baseDir, SettingFile)
	exists, err := afero.Exists(fsys, path)
	if err != nil {
		return "", err
	}
	if exists {
		return path, fs.ErrExist
	}
	if err := file.WriteFileAtomic(fsys, path, CreateDefaultSettings(), 0o644); err != nil {
		return "", err
	}
	return path, nil
}
