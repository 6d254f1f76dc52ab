package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/YoshitsuguKoike/deeboard/internal/app"
	"github.com/YoshitsuguKoike/deeboard/internal/app/health"
	"github.com/YoshitsuguKoike/deeboard/internal/app/config"
	"github.com/YoshitsuguKoike/deeboard/internal/application/port/output"
	"github.com/YoshitsuguKoike/deeboard/internal/buildinfo"
	"github.com/YoshitsuguKoike/deeboard/internal/infrastructure/di"
	"github.com/YoshitsuguKoike/deeboard/internal/platform/otel"
)

// PlayConfig holds the command line overrides of a game
type PlayConfig struct {
	Turns     int
	Seed      int64
	Players   []string
	BoardSize int
	Tick      time.Duration
	Board     string
	Quiet     bool
}

// boardConfig replaces the configured board definition
type boardConfig struct {
	config.Config
	board string
}

func (c boardConfig) Definition() string { return c.board }

func newPlayCmd() *cobra.Command {
	var pc PlayConfig
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play a headless game",
		Long: `Play a game with simulated players.

The game runs on the simulation clock: every tick advances animations,
input and tasks by --tick. It ends after --turns turns (0 plays until
interrupted). Every turn is written to the configured journal.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			if !flags.Changed("turns") {
				pc.Turns = -1
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runPlay(ctx, globalConfig, pc, flags.Changed("seed"), cmd.OutOrStdout())
		},
	}
	cmd.Flags().IntVar(&pc.Turns, "turns", 0, "Turns to play, 0 for no limit (default from config)")
	cmd.Flags().Int64Var(&pc.Seed, "seed", 0, "Random seed (default from config)")
	cmd.Flags().StringSliceVar(&pc.Players, "players", nil, "Comma separated player names")
	cmd.Flags().IntVar(&pc.BoardSize, "board-size", 0, "Cells per board side")
	cmd.Flags().DurationVar(&pc.Tick, "tick", 0, "Simulation step (default from config)")
	cmd.Flags().StringVar(&pc.Board, "board", "", "Board definition file")
	cmd.Flags().BoolVarP(&pc.Quiet, "quiet", "q", false, "Only print the summary")
	return cmd
}

// runPlay builds the container and plays until the game ends or ctx is
// cancelled. Interrupting a game is not an error.
func runPlay(ctx context.Context, cfg config.Config, pc PlayConfig, seedSet bool, out io.Writer) error {
	if cfg == nil {
		return errors.New("configuration not loaded")
	}
	if pc.Board != "" {
		cfg = boardConfig{Config: cfg, board: pc.Board}
	}
	logger := app.GetLogger()

	shutdown, err := otel.Setup(ctx, "deeboard", buildinfo.GetVersion())
	if err != nil {
		logger.Warn("tracing disabled: %v", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(sctx); err != nil {
			logger.Warn("failed to flush traces: %v", err)
		}
	}()

	opts := di.SessionOptions(cfg)
	if pc.Turns >= 0 {
		opts.MaxTurns = pc.Turns
	}
	if seedSet {
		opts.Seed = pc.Seed
	}
	if len(pc.Players) > 0 {
		opts.Players = pc.Players
	}
	if pc.BoardSize > 0 {
		opts.Geometry.BoardSize = pc.BoardSize
	}

	announce := out
	if pc.Quiet {
		announce = io.Discard
	}
	fs := afero.NewOsFs()
	healthPath := app.ResolvePaths(cfg.Home()).Health
	c, err := di.NewContainer(ctx, di.Config{
		App:          cfg,
		Fs:           fs,
		OutputWriter: announce,
		Logger:       logger,
		Options:      &opts,
		OnTurn: func(rec output.TurnRecord) {
			if !pc.Quiet {
				printTurn(announce, rec)
			}
			if err := health.WriteHealthAtomic(fs, health.FromTurn(rec), healthPath); err != nil {
				logger.Warn("%v", err)
			}
		},
	})
	if err != nil {
		return err
	}
	defer c.Close()

	s := c.GetSession()
	fmt.Fprintf(out, "session %s: %s, %d cells, %d players, seed %d\n",
		s.ID(), c.GetDefinition().Name(), s.Board().Len(), len(s.Players()), opts.Seed)

	err = c.Run(ctx, pc.Tick)
	interrupted := errors.Is(err, context.Canceled)
	if err != nil && !interrupted {
		return err
	}

	orch := c.GetOrchestrator()
	if interrupted {
		fmt.Fprintf(out, "game interrupted after %d turns\n", orch.Turns())
	} else {
		fmt.Fprintf(out, "game over after %d turns\n", orch.Turns())
	}
	for _, p := range s.Players() {
		fmt.Fprintf(out, "  %-12s cell %d\n", p.Name(), p.Cell())
	}
	return nil
}

func printTurn(w io.Writer, rec output.TurnRecord) {
	line := fmt.Sprintf("turn %3d  %-12s %2d -> %2d  roll %d %v", rec.Turn, rec.Player, rec.From, rec.To, rec.Roll, rec.Faces)
	if rec.ExtraTurn {
		line += "  extra turn"
	}
	if rec.Status != output.TurnFinished {
		line += "  " + rec.Status
	}
	if rec.Error != "" {
		line += ": " + rec.Error
	}
	fmt.Fprintln(w, line)
}
