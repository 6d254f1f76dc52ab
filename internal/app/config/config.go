package config

import (
	"time"

	"github.com/YoshitsuguKoike/deeboard/internal/app"
)

// Journal drivers
const (
	JournalSQLite = "sqlite"
	JournalNDJSON = "ndjson"
	JournalNone   = "none"
)

// Config provides read-only access to application configuration.
// This interface abstracts the configuration source (JSON, ENV, defaults)
// and ensures the app layer doesn't depend on infrastructure details.
type Config interface {
	// Core settings
	Home() string // Base directory for deeboard (DEEBOARD_HOME)

	// Game setup
	BoardSize() int           // Cells per board side (DEEBOARD_BOARD_SIZE)
	Players() []string        // Seat names (DEEBOARD_PLAYERS)
	Dice() int                // Dice thrown per turn (DEEBOARD_DICE)
	DiceSides() int           // Faces per die (DEEBOARD_DICE_SIDES)
	Seed() int64              // Random seed (DEEBOARD_SEED)
	DiceOverride() int        // Fixed roll total, 0 to throw (DEEBOARD_DICE_OVERRIDE)
	MaxTurns() int            // Turns before the game ends, 0 for no limit
	MoveSpeed() float64       // Piece speed in cells per second
	RollKey() string          // Key that throws the dice
	UseFirstCellOnce() bool   // Skip the start cell after the first lap
	Tick() time.Duration      // Simulation step (DEEBOARD_TICK_MS)
	TickMS() int              // Simulation step in milliseconds
	Definition() string       // Board definition file, empty for the built-in board
	RequireShake() bool       // Wait for a shake instead of a key press
	SkipThrow() bool          // Roll instantly without waiting for input
	Flag(name string) bool    // Named feature flag lookup

	// Journal
	Journal() string       // Journal path (DEEBOARD_JOURNAL)
	JournalDriver() string // sqlite, ndjson or none

	// Logging
	StderrLevel() string // Stderr log level (DEEBOARD_STDERR_LEVEL)

	// Metadata
	ConfigSource() string // Source of configuration: "json", "env", or "default"
	SettingPath() string  // Path to setting.json if loaded from file
}

// AppConfig is the concrete implementation of Config interface.
// It holds all configuration values loaded from various sources.
type AppConfig struct {
	home string

	boardSize        int
	players          []string
	dice             int
	diceSides        int
	seed             int64
	diceOverride     int
	maxTurns         int
	moveSpeed        float64
	rollKey          string
	useFirstCellOnce bool
	tickMS           int
	definition       string

	requireShake bool
	skipThrow    bool

	journal       string
	journalDriver string

	stderrLevel string

	configSource string
	settingPath  string
}

// Home returns the base directory for deeboard
func (c *AppConfig) Home() string {
	return c.home
}

// BoardSize returns the number of cells per board side
func (c *AppConfig) BoardSize() int {
	return c.boardSize
}

// Players returns a copy of the seat names
func (c *AppConfig) Players() []string {
	out := make([]string, len(c.players))
	copy(out, c.players)
	return out
}

// Dice returns the number of dice thrown per turn
func (c *AppConfig) Dice() int {
	return c.dice
}

// DiceSides returns the number of faces per die
func (c *AppConfig) DiceSides() int {
	return c.diceSides
}

// Seed returns the random seed
func (c *AppConfig) Seed() int64 {
	return c.seed
}

// DiceOverride returns the fixed roll total
func (c *AppConfig) DiceOverride() int {
	return c.diceOverride
}

// MaxTurns returns the number of turns before the game ends
func (c *AppConfig) MaxTurns() int {
	return c.maxTurns
}

// MoveSpeed returns the piece speed in cells per second
func (c *AppConfig) MoveSpeed() float64 {
	return c.moveSpeed
}

// RollKey returns the key that throws the dice
func (c *AppConfig) RollKey() string {
	return c.rollKey
}

// UseFirstCellOnce returns whether the start cell is skipped after the first lap
func (c *AppConfig) UseFirstCellOnce() bool {
	return c.useFirstCellOnce
}

// TickMS returns the simulation step in milliseconds
func (c *AppConfig) TickMS() int {
	return c.tickMS
}

// Tick returns the simulation step as a Duration
func (c *AppConfig) Tick() time.Duration {
	return time.Duration(c.tickMS) * time.Millisecond
}

// Definition returns the board definition path
func (c *AppConfig) Definition() string {
	return c.definition
}

// RequireShake returns whether a shake throws the dice
func (c *AppConfig) RequireShake() bool {
	return c.requireShake
}

// SkipThrow returns whether dice are rolled without waiting
func (c *AppConfig) SkipThrow() bool {
	return c.skipThrow
}

// Flag implements effect.Flags
func (c *AppConfig) Flag(name string) bool {
	switch name {
	case "require_shake":
		return c.requireShake
	case "skip_throw":
		return c.skipThrow
	case "use_first_cell_once":
		return c.useFirstCellOnce
	}
	return false
}

// Journal returns the journal path. When no path was configured it
// defaults to a file under Home named after the driver.
func (c *AppConfig) Journal() string {
	if c.journal != "" || c.journalDriver == JournalNone {
		return c.journal
	}
	paths := app.ResolvePaths(c.home)
	if c.journalDriver == JournalNDJSON {
		return paths.JournalNDJSON
	}
	return paths.Journal
}

// JournalDriver returns the journal backend name
func (c *AppConfig) JournalDriver() string {
	return c.journalDriver
}

// StderrLevel returns the stderr log level
func (c *AppConfig) StderrLevel() string {
	return c.stderrLevel
}

// ConfigSource returns the source of configuration
func (c *AppConfig) ConfigSource() string {
	return c.configSource
}

// SettingPath returns the path to setting.json if loaded from file
func (c *AppConfig) SettingPath() string {
	return c.settingPath
}

// NewAppConfig creates a new AppConfig with the given values.
// This is typically called by the infrastructure layer after loading and merging configurations.
func NewAppConfig(
	home string,
	boardSize int, players []string,
	dice, diceSides int, seed int64, diceOverride int,
	maxTurns int, moveSpeed float64, rollKey string,
	useFirstCellOnce bool, tickMS int, definition string,
	requireShake, skipThrow bool,
	journal, journalDriver string,
	stderrLevel string,
	configSource, settingPath string,
) *AppConfig {
	ps := make([]string, len(players))
	copy(ps, players)
	return &AppConfig{
		home:             home,
		boardSize:        boardSize,
		players:          ps,
		dice:             dice,
		diceSides:        diceSides,
		seed:             seed,
		diceOverride:     diceOverride,
		maxTurns:         maxTurns,
		moveSpeed:        moveSpeed,
		rollKey:          rollKey,
		useFirstCellOnce: useFirstCellOnce,
		tickMS:           tickMS,
		definition:       definition,
		requireShake:     requireShake,
		skipThrow:        skipThrow,
		journal:          journal,
		journalDriver:    journalDriver,
		stderrLevel:      stderrLevel,
		configSource:     configSource,
		settingPath:      settingPath,
	}
}
