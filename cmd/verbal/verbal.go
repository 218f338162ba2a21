// Package verbal provides the verbal command, which calibrates from a map's
// written scale.
package verbal

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/photoscale/photoscale/cmd/cmdutil"
	"github.com/photoscale/photoscale/internal/app"
	"github.com/photoscale/photoscale/internal/buildinfo"
	"github.com/photoscale/photoscale/internal/calibration"
	"github.com/photoscale/photoscale/internal/conf"
	"github.com/photoscale/photoscale/internal/units"
)

type options struct {
	screenDistance float64
	screenUnit     string
	realDistance   float64
	realUnit       string
	pixelsPerUnit  float64
	declination    float64
	json           bool
}

// Command creates the verbal command.
func Command(settings *conf.Settings, build *buildinfo.Context) *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "verbal [scale]",
		Short: "Calibrate from a map scale such as \"1 cm = 2 km\" or \"1:25000\"",
		Long: `Computes the scale of a photographed map from its written scale and the
number of photo pixels spanning one screen unit, usually measured off the
map's scale bar. The scale is given as text or with the --screen-* and
--real-* flags.`,
		Example: `  photoscale verbal "1 cm = 2 km" --pixels-per-unit 118
  photoscale verbal 1:50000 --pixels-per-unit 300 --declination -3.5
  photoscale verbal --screen-distance 1 --screen-unit in --real-distance 1 --real-unit mi --pixels-per-unit 96`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			system, err := units.ParseSystem(settings.Units.System)
			if err != nil {
				return err
			}
			in, err := opts.input(cmd, args, system)
			if err != nil {
				return err
			}
			return run(cmd, settings, build, in, opts.json, system)
		},
	}

	f := cmd.Flags()
	f.Float64Var(&opts.screenDistance, "screen-distance", 0, "Distance on the map")
	f.StringVar(&opts.screenUnit, "screen-unit", "", "Unit of --screen-distance")
	f.Float64Var(&opts.realDistance, "real-distance", 0, "Distance on the ground")
	f.StringVar(&opts.realUnit, "real-unit", "", "Unit of --real-distance")
	f.Float64Var(&opts.pixelsPerUnit, "pixels-per-unit", 0, "Photo pixels spanning one screen unit")
	f.Float64Var(&opts.declination, "declination", 0, "Magnetic declination in degrees, east positive")
	cmdutil.AddJSONFlag(cmd, &opts.json)
	_ = cmd.MarkFlagRequired("pixels-per-unit")
	cmd.MarkFlagsRequiredTogether("screen-distance", "screen-unit", "real-distance", "real-unit")

	return cmd
}

func (o options) input(cmd *cobra.Command, args []string, system units.System) (calibration.VerbalInput, error) {
	var decl *float64
	if cmd.Flags().Changed("declination") {
		d := o.declination
		decl = &d
	}

	if len(args) == 1 {
		if cmd.Flags().Changed("screen-distance") {
			return calibration.VerbalInput{}, fmt.Errorf("give the scale either as text or with --screen-* and --real-* flags, not both")
		}
		text, err := calibration.ParseVerbalScale(args[0], system)
		if err != nil {
			return calibration.VerbalInput{}, err
		}
		return text.Input(o.pixelsPerUnit, decl), nil
	}

	if !cmd.Flags().Changed("screen-distance") {
		return calibration.VerbalInput{}, fmt.Errorf("a scale is required")
	}
	screenUnit, err := units.ParseUnit(o.screenUnit)
	if err != nil {
		return calibration.VerbalInput{}, err
	}
	realUnit, err := units.ParseUnit(o.realUnit)
	if err != nil {
		return calibration.VerbalInput{}, err
	}
	return calibration.VerbalInput{
		ScreenDistance:      o.screenDistance,
		ScreenUnit:          screenUnit,
		RealDistance:        o.realDistance,
		RealUnit:            realUnit,
		ScreenPixelsPerUnit: o.pixelsPerUnit,
		Declination:         decl,
	}, nil
}

func run(cmd *cobra.Command, settings *conf.Settings, build *buildinfo.Context, in calibration.VerbalInput, asJSON bool, system units.System) error {
	a, err := app.New(settings, build)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := cmdutil.SignalContext(cmd)
	defer cancel()

	out, err := a.Manager.Verbal(ctx, in)
	if err != nil {
		return err
	}
	if asJSON {
		return cmdutil.WriteJSON(cmd.OutOrStdout(), out.Result)
	}
	return cmdutil.PrintOutcome(cmd.OutOrStdout(), out, system)
}
