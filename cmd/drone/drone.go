// Package drone provides the drone command, which calibrates aerial photos
// from their embedded telemetry.
package drone

import (
	"fmt"
	"io"
	"runtime"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/photoscale/photoscale/cmd/cmdutil"
	"github.com/photoscale/photoscale/internal/app"
	"github.com/photoscale/photoscale/internal/buildinfo"
	"github.com/photoscale/photoscale/internal/conf"
	"github.com/photoscale/photoscale/internal/location"
	"github.com/photoscale/photoscale/internal/session"
	"github.com/photoscale/photoscale/internal/units"
)

type options struct {
	latitude    float64
	longitude   float64
	altitude    float64
	hasDevice   bool
	hasAltitude bool
	workers     int
	json        bool
}

// Command creates the drone command.
func Command(settings *conf.Settings, build *buildinfo.Context) *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "drone <photo>...",
		Short: "Calibrate drone photos from their telemetry",
		Long: `Reads altitude, GPS and camera metadata from each photo, establishes the
altitude above ground and derives the ground sample distance. Photos that
cannot be calibrated automatically are reported with the reason.

--lat/--lon give the position of the operator on the ground, used to
validate the photo position and as the ground altitude when --alt is set.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.hasDevice = cmd.Flags().Changed("lat") || cmd.Flags().Changed("lon")
			opts.hasAltitude = cmd.Flags().Changed("alt")
			return run(cmd, settings, build, args, opts)
		},
	}

	cmd.Flags().Float64Var(&opts.latitude, "lat", 0, "Latitude of the operator")
	cmd.Flags().Float64Var(&opts.longitude, "lon", 0, "Longitude of the operator")
	cmd.Flags().Float64Var(&opts.altitude, "alt", 0, "Altitude of the operator above sea level, metres")
	cmd.Flags().IntVarP(&opts.workers, "workers", "w", runtime.NumCPU(), "Photos processed in parallel")
	cmdutil.AddJSONFlag(cmd, &opts.json)
	cmd.MarkFlagsRequiredTogether("lat", "lon")

	return cmd
}

// photoResult pairs a photo with its outcome for output.
type photoResult struct {
	Path    string           `json:"path"`
	Outcome *session.Outcome `json:"outcome,omitempty"`
	Error   string           `json:"error,omitempty"`
}

func run(cmd *cobra.Command, settings *conf.Settings, build *buildinfo.Context, paths []string, opts options) error {
	loc, err := deviceLocation(opts)
	if err != nil {
		return err
	}

	a, err := app.New(settings, build)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := cmdutil.SignalContext(cmd)
	defer cancel()

	results := make([]photoResult, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(opts.workers, 1))
	for i, path := range paths {
		g.Go(func() error {
			out, err := a.Manager.Drone(gctx, session.DroneRequest{Path: path, Location: loc})
			results[i] = photoResult{Path: path, Outcome: out}
			if err != nil {
				results[i].Error = err.Error()
				// only cancellation stops the batch
				if ctx.Err() != nil {
					return err
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if opts.json {
		return cmdutil.WriteJSON(w, results)
	}
	system, _ := units.ParseSystem(settings.Units.System)
	return printResults(w, results, system)
}

// deviceLocation turns the operator flags into a location service. Without
// them the configured device position, if any, is used.
func deviceLocation(opts options) (location.Service, error) {
	if !opts.hasDevice {
		return nil, nil
	}
	pos := location.Position{Latitude: opts.latitude, Longitude: opts.longitude}
	if opts.hasAltitude {
		alt := opts.altitude
		pos.Altitude = &alt
	}
	if err := pos.Validate(); err != nil {
		return nil, err
	}
	return location.NewStaticService(&pos), nil
}

func printResults(w io.Writer, results []photoResult, system units.System) error {
	var failed int
	for i, r := range results {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "== %s\n", r.Path)
		switch {
		case r.Error != "":
			failed++
			fmt.Fprintf(w, "error: %s\n", r.Error)
		case r.Outcome != nil:
			if !r.Outcome.Completed() {
				failed++
			}
			if err := cmdutil.PrintOutcome(w, r.Outcome, system); err != nil {
				return err
			}
		}
	}
	if len(results) > 1 {
		fmt.Fprintf(w, "\n%d of %d photos calibrated\n", len(results)-failed, len(results))
	}
	return nil
}
