package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/YoshitsuguKoike/deeboard/internal/app"
	infraConfig "github.com/YoshitsuguKoike/deeboard/internal/infra/config"
	"github.com/YoshitsuguKoike/deeboard/internal/infra/definition"
	"github.com/YoshitsuguKoike/deeboard/internal/infra/persistence/file"
)

func newInitCmd() *cobra.Command {
	var withBoard bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create setting.json and the var directory in $DEEBOARD_HOME",
		RunE: func(c *cobra.Command, _ []string) error {
			return runInit(afero.NewOsFs(), baseDir(), withBoard, c.OutOrStdout())
		},
	}
	cmd.Flags().BoolVar(&withBoard, "board", false, "Also write the built-in board to board.yaml for editing")
	return cmd
}

func runInit(fsys afero.Fs, dir string, withBoard bool, w io.Writer) error {
	paths := app.ResolvePaths(dir)
	if err := fsys.MkdirAll(paths.Var, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", paths.Var, err)
	}

	path, err := infraConfig.WriteDefaultSettings(fsys, dir)
	switch {
	case errors.Is(err, fs.ErrExist):
		fmt.Fprintf(w, "Skipped %s (already exists)\n", path)
	case err != nil:
		return fmt.Errorf("failed to write settings: %w", err)
	default:
		fmt.Fprintf(w, "Created %s\n", path)
	}

	if !withBoard {
		return nil
	}
	boardPath := paths.Board
	exists, err := afero.Exists(fsys, boardPath)
	if err != nil {
		return err
	}
	if exists {
		fmt.Fprintf(w, "Skipped %s (already exists)\n", boardPath)
		return nil
	}
	if err := file.WriteFileAtomic(fsys, boardPath, definition.DefaultYAML(), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", boardPath, err)
	}
	fmt.Fprintf(w, "Created %s\n", boardPath)
	return nil
}
