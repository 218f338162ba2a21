// Package history provides the history command for browsing stored
// calibrations.
package history

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/photoscale/photoscale/cmd/cmdutil"
	"github.com/photoscale/photoscale/internal/app"
	"github.com/photoscale/photoscale/internal/buildinfo"
	"github.com/photoscale/photoscale/internal/conf"
	"github.com/photoscale/photoscale/internal/units"
)

// Command creates the history command.
func Command(settings *conf.Settings, build *buildinfo.Context) *cobra.Command {
	var (
		limit  int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List stored calibrations, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, settings, build, func(a *app.App) error {
				results, err := a.Store.ListCalibrations(cmd.Context(), limit)
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				if asJSON {
					return cmdutil.WriteJSON(w, results)
				}
				if len(results) == 0 {
					_, err := fmt.Fprintln(w, "no calibrations stored")
					return err
				}
				tw := cmdutil.NewTable(w)
				fmt.Fprintln(tw, "ID\tTYPE\tPX/MM\tUNIT\tCREATED")
				for _, r := range results {
					fmt.Fprintf(tw, "%s\t%s\t%.4f\t%s\t%s\n", r.ID, r.Type, r.PixelsPerMM, r.Unit, r.CreatedAt.Local().Format(time.DateTime))
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of calibrations to list")
	cmdutil.AddJSONFlag(cmd, &asJSON)

	cmd.AddCommand(showCommand(settings, build), deleteCommand(settings, build))
	return cmd
}

func showCommand(settings *conf.Settings, build *buildinfo.Context) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one stored calibration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, settings, build, func(a *app.App) error {
				res, err := a.Store.GetCalibration(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if asJSON {
					return cmdutil.WriteJSON(cmd.OutOrStdout(), res)
				}
				system, _ := units.ParseSystem(settings.Units.System)
				return cmdutil.PrintResult(cmd.OutOrStdout(), res, system)
			})
		},
	}
	cmdutil.AddJSONFlag(cmd, &asJSON)
	return cmd
}

func deleteCommand(settings *conf.Settings, build *buildinfo.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a stored calibration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, settings, build, func(a *app.App) error {
				if err := a.Store.DeleteCalibration(cmd.Context(), args[0]); err != nil {
					return err
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
				return err
			})
		},
	}
}

func withStore(cmd *cobra.Command, settings *conf.Settings, build *buildinfo.Context, fn func(*app.App) error) error {
	a, err := app.New(settings, build, app.WithoutMQTT())
	if err != nil {
		return err
	}
	defer a.Close()
	if a.Store == nil {
		return fmt.Errorf("calibration history is disabled, enable a datastore in the configuration")
	}
	return fn(a)
}
