// Package blueprint provides the blueprint command
package blueprint

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
	pixels   float64
	points   []float64
	distance float64
	unit     string
	json     bool
}

// Command creates the blueprint command.
func Command(settings *conf.Settings, build *buildinfo.Context) *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "blueprint",
		Short: "Calibrate from two points a known distance apart",
		Long: `Computes the scale from a span on a plan or photo whose real length is
known, given either as a pixel distance or as two points.`,
		Example: `  photoscale blueprint --points 120,80,920,80 --distance 4 --unit m
  photoscale blueprint --pixels 640 --distance 12 --unit ft`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := opts.input()
			if err != nil {
				return err
			}
			return run(cmd, settings, build, in, opts.json)
		},
	}

	f := cmd.Flags()
	f.Float64Var(&opts.pixels, "pixels", 0, "Span length in photo pixels")
	f.Float64SliceVar(&opts.points, "points", nil, "End points of the span as x1,y1,x2,y2")
	f.Float64Var(&opts.distance, "distance", 0, "Real length of the span")
	f.StringVar(&opts.unit, "unit", "m", "Unit of --distance")
	cmdutil.AddJSONFlag(cmd, &opts.json)
	cmd.MarkFlagsMutuallyExclusive("pixels", "points")
	cmd.MarkFlagsOneRequired("pixels", "points")
	_ = cmd.MarkFlagRequired("distance")

	return cmd
}

func (o options) input() (calibration.BlueprintInput, error) {
	unit, err := units.ParseUnit(o.unit)
	if err != nil {
		return calibration.BlueprintInput{}, err
	}
	in := calibration.BlueprintInput{PixelDistance: o.pixels, Distance: o.distance, Unit: unit}
	if len(o.points) > 0 {
		if len(o.points) != 4 {
			return in, fmt.Errorf("--points needs four values x1,y1,x2,y2, got %d", len(o.points))
		}
		in.Points = []calibration.Point{{X: o.points[0], Y: o.points[1]}, {X: o.points[2], Y: o.points[3]}}
	}
	return in, nil
}

func run(cmd *cobra.Command, settings *conf.Settings, build *buildinfo.Context, in calibration.BlueprintInput, asJSON bool) error {
	a, err := app.New(settings, build)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := cmdutil.SignalContext(cmd)
	defer cancel()

	out, err := a.Manager.Blueprint(ctx, in)
	if err != nil {
		return err
	}
	if asJSON {
		return cmdutil.WriteJSON(cmd.OutOrStdout(), out.Result)
	}
	system, _ := units.ParseSystem(settings.Units.System)
	return cmdutil.PrintOutcome(cmd.OutOrStdout(), out, system)
}
