// Package units provides the units command for converting and formatting
// lengths and areas.
package units

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/photoscale/photoscale/internal/conf"
	"github.com/photoscale/photoscale/internal/units"
)

// Command creates the units command and its subcommands.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "units",
		Short: "Convert and format lengths",
	}
	cmd.AddCommand(convertCommand(), formatCommand(settings))
	return cmd
}

func convertCommand() *cobra.Command {
	var area bool

	cmd := &cobra.Command{
		Use:     "convert <value> <from> <to>",
		Short:   "Convert a length or area between units",
		Example: "  photoscale units convert 12 ft m\n  photoscale units convert 2.5 m ft --area",
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := parseLength(args[0])
			if err != nil {
				return err
			}
			from, err := units.ParseUnit(args[1])
			if err != nil {
				return err
			}
			to, err := units.ParseUnit(args[2])
			if err != nil {
				return err
			}

			result := units.Convert(value, from, to)
			suffix := ""
			if area {
				result = units.ConvertArea(value, from, to)
				suffix = "²"
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s %s%s\n", strconv.FormatFloat(result, 'g', 10, 64), to, suffix)
			return err
		},
	}
	cmd.Flags().BoolVar(&area, "area", false, "Treat the value as an area in squared units")
	return cmd
}

func formatCommand(settings *conf.Settings) *cobra.Command {
	var area bool

	cmd := &cobra.Command{
		Use:   "format <value> [unit]",
		Short: "Render a length the way results are displayed",
		Long: `Picks the display unit for the value in the configured unit system, for
example 1500 mm is shown as 1.50 m. The unit defaults to millimetres.`,
		Example: "  photoscale units format 1500\n  photoscale --system imperial units format 30 cm",
		Args:    cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := parseLength(args[0])
			if err != nil {
				return err
			}
			unit := units.MM
			if len(args) == 2 {
				if unit, err = units.ParseUnit(args[1]); err != nil {
					return err
				}
			}
			system, err := units.ParseSystem(settings.Units.System)
			if err != nil {
				return err
			}

			formatted := units.FormatMeasurement(value, unit, system)
			if area {
				formatted = units.FormatArea(value, unit, system)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), formatted)
			return err
		},
	}
	cmd.Flags().BoolVar(&area, "area", false, "Treat the value as an area in squared units")
	return cmd
}

func parseLength(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", s)
	}
	if err := units.Validate(v); err != nil {
		return 0, err
	}
	return v, nil
}
