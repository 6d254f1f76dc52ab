package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/YoshitsuguKoike/deeboard/internal/app/config"
	"github.com/YoshitsuguKoike/deeboard/internal/buildinfo"
)

// EffectiveConfig represents the final applied configuration for serialization
type EffectiveConfig struct {
	Meta    EffectiveConfigMeta    `json:"meta" yaml:"meta"`
	Game    EffectiveConfigGame    `json:"game" yaml:"game"`
	Flags   EffectiveConfigFlags   `json:"flags" yaml:"flags"`
	Journal EffectiveConfigJournal `json:"journal" yaml:"journal"`
	Logging EffectiveConfigLogging `json:"logging" yaml:"logging"`
}

// EffectiveConfigMeta contains metadata about the configuration
type EffectiveConfigMeta struct {
	Source         string   `json:"source" yaml:"source"`
	SettingPath    string   `json:"setting_path,omitempty" yaml:"setting_path,omitempty"`
	SourcePriority []string `json:"source_priority" yaml:"source_priority"`
	Home           string   `json:"home" yaml:"home"`
	Version        string   `json:"version" yaml:"version"`
	TsUTC          string   `json:"ts_utc" yaml:"ts_utc"`
}

// EffectiveConfigGame represents the game setup
type EffectiveConfigGame struct {
	Board            string   `json:"board" yaml:"board"`
	BoardSize        int      `json:"board_size" yaml:"board_size"`
	Players          []string `json:"players" yaml:"players"`
	Dice             int      `json:"dice" yaml:"dice"`
	DiceSides        int      `json:"dice_sides" yaml:"dice_sides"`
	DiceOverride     int      `json:"dice_override" yaml:"dice_override"`
	Seed             int64    `json:"seed" yaml:"seed"`
	MaxTurns         int      `json:"max_turns" yaml:"max_turns"`
	MoveSpeed        float64  `json:"move_speed" yaml:"move_speed"`
	RollKey          string   `json:"roll_key" yaml:"roll_key"`
	UseFirstCellOnce bool     `json:"use_first_cell_once" yaml:"use_first_cell_once"`
	TickMS           int      `json:"tick_ms" yaml:"tick_ms"`
}

// EffectiveConfigFlags represents the feature flags
type EffectiveConfigFlags struct {
	RequireShake bool `json:"require_shake" yaml:"require_shake"`
	SkipThrow    bool `json:"skip_throw" yaml:"skip_throw"`
}

// EffectiveConfigJournal represents journal configuration
type EffectiveConfigJournal struct {
	Driver string `json:"driver" yaml:"driver"`
	Path   string `json:"path" yaml:"path"`
}

// EffectiveConfigLogging represents logging configuration
type EffectiveConfigLogging struct {
	StderrLevel string `json:"stderr_level" yaml:"stderr_level"`
}

func newConfigCmd() *cobra.Command {
	var (
		format  string
		compact bool
	)
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printEffectiveConfig(cmd.OutOrStdout(), globalConfig, format, compact)
		},
	}
	cmd.Flags().StringVar(&format, "format", "yaml", "Output format: yaml or json")
	cmd.Flags().BoolVar(&compact, "compact", false, "Compact JSON output")
	return cmd
}

// buildEffectiveConfig converts Config to EffectiveConfig for output
func buildEffectiveConfig(cfg config.Config) *EffectiveConfig {
	board := cfg.Definition()
	if board == "" {
		board = "(built-in)"
	}
	return &EffectiveConfig{
		Meta: EffectiveConfigMeta{
			Source:         cfg.ConfigSource(),
			SettingPath:    cfg.SettingPath(),
			SourcePriority: []string{"env", "json", "defaults"},
			Home:           cfg.Home(),
			Version:        buildinfo.GetVersion(),
			TsUTC:          time.Now().UTC().Format(time.RFC3339Nano),
		},
		Game: EffectiveConfigGame{
			Board:            board,
			BoardSize:        cfg.BoardSize(),
			Players:          cfg.Players(),
			Dice:             cfg.Dice(),
			DiceSides:        cfg.DiceSides(),
			DiceOverride:     cfg.DiceOverride(),
			Seed:             cfg.Seed(),
			MaxTurns:         cfg.MaxTurns(),
			MoveSpeed:        cfg.MoveSpeed(),
			RollKey:          cfg.RollKey(),
			UseFirstCellOnce: cfg.UseFirstCellOnce(),
			TickMS:           cfg.TickMS(),
		},
		Flags: EffectiveConfigFlags{
			RequireShake: cfg.RequireShake(),
			SkipThrow:    cfg.SkipThrow(),
		},
		Journal: EffectiveConfigJournal{
			Driver: cfg.JournalDriver(),
			Path:   cfg.Journal(),
		},
		Logging: EffectiveConfigLogging{
			StderrLevel: cfg.StderrLevel(),
		},
	}
}

func printEffectiveConfig(w io.Writer, cfg config.Config, format string, compact bool) error {
	if cfg == nil {
		return fmt.Errorf("configuration not loaded")
	}
	effective := buildEffectiveConfig(cfg)

	var (
		out []byte
		err error
	)
	switch format {
	case "yaml":
		out, err = yaml.Marshal(effective)
		if err != nil {
			return fmt.Errorf("failed to marshal to YAML: %w", err)
		}
	case "json":
		if compact {
			out, err = json.Marshal(effective)
		} else {
			out, err = json.MarshalIndent(effective, "", "  ")
		}
		if err != nil {
			return fmt.Errorf("failed to marshal to JSON: %w", err)
		}
		// Ensure newline at end
		if !bytes.HasSuffix(out, []byte("\n")) {
			out = append(out, '\n')
		}
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}

	_, err = w.Write(out)
	return err
}
