package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/YoshitsuguKoike/deeboard/internal/app"
	"github.com/YoshitsuguKoike/deeboard/internal/domain/board"
	"github.com/YoshitsuguKoike/deeboard/internal/domain/effect"
	"github.com/YoshitsuguKoike/deeboard/internal/infra/definition"
	"github.com/YoshitsuguKoike/deeboard/internal/infra/persistence/file"
	"github.com/YoshitsuguKoike/deeboard/internal/infra/script"
	"github.com/YoshitsuguKoike/deeboard/internal/infrastructure/di"
)

func newBoardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "board",
		Short: "Inspect board definitions",
	}
	cmd.AddCommand(newBoardShowCmd())
	cmd.AddCommand(newBoardValidateCmd())
	cmd.AddCommand(newBoardExportCmd())
	return cmd
}

func newBoardShowCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "List the cells and decks of a board",
		RunE: func(cmd *cobra.Command, args []string) error {
			fs := afero.NewOsFs()
			var (
				def *board.Definition
				err error
			)
			if path != "" {
				def, err = definition.Load(fs, path)
			} else {
				def, err = di.LoadDefinition(fs, globalConfig)
			}
			if err != nil {
				return err
			}
			printBoard(cmd.OutOrStdout(), def)
			return nil
		},
	}
	cmd.Flags().StringVarP(&path, "file", "f", "", "Board definition file (default: configured board)")
	return cmd
}

func newBoardValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Check a board definition for errors and unknown effects",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := definition.Load(afero.NewOsFs(), args[0])
			if err != nil {
				return err
			}
			return validateBoard(cmd.OutOrStdout(), def)
		},
	}
}

func newBoardExportCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the built-in board as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				_, err := cmd.OutOrStdout().Write(definition.DefaultYAML())
				return err
			}
			if err := file.WriteFileAtomic(afero.NewOsFs(), out, definition.DefaultYAML(), 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", out, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "Output file (default: stdout)")
	return cmd
}

// effectRegistry returns every effect a game can dispatch
func effectRegistry() *effect.Registry {
	reg := effect.NewBuiltinRegistry()
	// Script is not registered by the built-ins
	_ = script.NewEngine(nil, app.GetLogger()).Register(reg)
	return reg
}

func validateBoard(w io.Writer, def *board.Definition) error {
	problems := definition.Check(def, effectRegistry())
	if len(problems) == 0 {
		fmt.Fprintf(w, "OK: %s (%d cells, %d decks)\n", def.Name(), def.Len(), len(def.DeckNames()))
		return nil
	}
	for _, p := range problems {
		fmt.Fprintf(w, "ERROR: %s\n", p)
	}
	return fmt.Errorf("%s: %d unknown effects", def.Name(), len(problems))
}

func printBoard(w io.Writer, def *board.Definition) {
	fmt.Fprintf(w, "Board: %s (%d cells)\n", def.Name(), def.Len())
	if def.UseFirstCellOnce() {
		fmt.Fprintln(w, "Start cell is used once")
	}
	for i := 0; i < def.Len(); i++ {
		c := def.GetCell(i)
		line := fmt.Sprintf("  %3d  %-12s", i, c.Title())
		if enter := c.Enter(); len(enter) > 0 {
			line += "  enter: " + strings.Join(enter, ", ")
		}
		if leave := c.Leave(); len(leave) > 0 {
			line += "  leave: " + strings.Join(leave, ", ")
		}
		fmt.Fprintln(w, strings.TrimRight(line, " "))
	}
	for _, name := range def.DeckNames() {
		cards, _ := def.Deck(name)
		fmt.Fprintf(w, "Deck %s (%d cards)\n", name, len(cards))
		for _, card := range cards {
			fmt.Fprintf(w, "  %-12s %s\n", card.Name(), strings.Join(card.Effects(), ", "))
		}
	}
}
