package cli

import (
	"fmt"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/YoshitsuguKoike/deeboard/internal/app"
	"github.com/YoshitsuguKoike/deeboard/internal/app/config"
	infraConfig "github.com/YoshitsuguKoike/deeboard/internal/infra/config"
	"github.com/YoshitsuguKoike/deeboard/internal/interface/cli/version"
)

// globalConfig holds the loaded configuration for all commands
var globalConfig config.Config

// baseDir returns the directory holding setting.json
func baseDir() string {
	if home := os.Getenv("DEEBOARD_HOME"); home != "" {
		return home
	}
	return ".deeboard"
}

func NewRoot() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "deeboard",
		Short:         "Deeboard board game engine",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load configuration before any command runs
			// Priority: ENV > setting.json > defaults
			cfg, err := infraConfig.LoadSettings(afero.NewOsFs(), baseDir())
			if err != nil {
				return fmt.Errorf("failed to load settings: %w", err)
			}
			globalConfig = cfg
			app.InitGlobalLogger(cfg.StderrLevel())
			app.GetLogger().Debug("config loaded from %s", cfg.ConfigSource())
			return nil
		},
		RunE: func(c *cobra.Command, _ []string) error { return c.Help() },
	}
	cmd.AddCommand(newPlayCmd())
	cmd.AddCommand(newBoardCmd())
	cmd.AddCommand(newJournalCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(version.NewCommand())
	return cmd
}
