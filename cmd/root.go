package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/photoscale/photoscale/cmd/blueprint"
	"github.com/photoscale/photoscale/cmd/coin"
	"github.com/photoscale/photoscale/cmd/config"
	"github.com/photoscale/photoscale/cmd/drone"
	"github.com/photoscale/photoscale/cmd/history"
	"github.com/photoscale/photoscale/cmd/mqtt"
	"github.com/photoscale/photoscale/cmd/serve"
	"github.com/photoscale/photoscale/cmd/telemetry"
	"github.com/photoscale/photoscale/cmd/units"
	"github.com/photoscale/photoscale/cmd/verbal"
	"github.com/photoscale/photoscale/cmd/version"
	"github.com/photoscale/photoscale/internal/buildinfo"
	"github.com/photoscale/photoscale/internal/conf"
	"github.com/photoscale/photoscale/internal/logger"
	unitpkg "github.com/photoscale/photoscale/internal/units"
)

// RootCommand creates and returns the root command
func RootCommand(settings *conf.Settings, build *buildinfo.Context) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "photoscale",
		Short:         "Photo scale calibration",
		Long:          "Calibrate photos for measurement from drone telemetry, a coin, a blueprint span or a map scale.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Set up the global flags for the root command.
	setupFlags(rootCmd, settings)

	versionCmd := version.Command(build)
	configCmd := config.Command(settings)

	subcommands := []*cobra.Command{
		drone.Command(settings, build),
		coin.Command(settings, build),
		blueprint.Command(settings, build),
		verbal.Command(settings, build),
		telemetry.Command(settings, build),
		units.Command(settings),
		history.Command(settings, build),
		serve.Command(settings, build),
		mqtt.Command(settings, build),
		configCmd,
		versionCmd,
	}

	rootCmd.AddCommand(subcommands...)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		// version and config work with a broken configuration
		if cmd == versionCmd || cmd.Parent() == configCmd {
			return nil
		}
		return initialize(settings)
	}

	return rootCmd
}

// initialize validates the global flags and rebuilds the logger from the
// final settings.
func initialize(settings *conf.Settings) error {
	if _, err := unitpkg.ParseSystem(settings.Units.System); err != nil {
		return fmt.Errorf("invalid --system: %w", err)
	}

	if settings.Debug {
		settings.Logging.DefaultLevel = "debug"
		if settings.Logging.Console != nil {
			settings.Logging.Console.Level = "debug"
		}
	}
	central, err := logger.NewCentralLogger(&settings.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	logger.SetGlobal(central)
	return nil
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) {
	rootCmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", settings.Debug, "Enable debug output")
	rootCmd.PersistentFlags().StringVar(&settings.Units.System, "system", settings.Units.System, "Unit system for display: metric or imperial")
	rootCmd.PersistentFlags().StringVar(&settings.Main.DataDir, "datadir", settings.Main.DataDir, "Base directory for the database and audit crops")
}
