// Package cmdutil holds helpers shared by the photoscale subcommands.
package cmdutil

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/photoscale/photoscale/internal/calibration"
	"github.com/photoscale/photoscale/internal/session"
	"github.com/photoscale/photoscale/internal/units"
)

// SignalContext returns the command context cancelled on SIGINT or SIGTERM.
func SignalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// NewTable returns a writer aligning tab separated columns.
func NewTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

// AddJSONFlag registers the shared --json flag.
func AddJSONFlag(cmd *cobra.Command, target *bool) {
	cmd.Flags().BoolVar(target, "json", false, "Print machine readable JSON")
}

// PrintResult prints the human summary of a completed calibration.
func PrintResult(w io.Writer, res *calibration.Result, system units.System) error {
	tw := NewTable(w)
	fmt.Fprintf(tw, "Calibration:\t%s\n", res.Type)
	fmt.Fprintf(tw, "ID:\t%s\n", res.ID)
	fmt.Fprintf(tw, "Scale:\t%.4f px/mm (%.2f px/%s)\n", res.PixelsPerMM, res.PixelsPerUnit(res.Unit), res.Unit)
	fmt.Fprintf(tw, "Reference:\t%s\n", units.FormatMeasurement(res.ReferenceDistance, res.Unit, system))
	fmt.Fprintf(tw, "100 px:\t%s\n", res.FormatDistance(100, system))

	switch src := res.Source.(type) {
	case *calibration.CoinCircle:
		fmt.Fprintf(tw, "Coin:\t%s (%.2f mm)\n", src.CoinName, src.DiameterMM)
		fmt.Fprintf(tw, "Circle:\tcentre %.1f,%.1f radius %.1f px\n", src.CenterX, src.CenterY, src.Radius)
	case *calibration.BlueprintScale:
		fmt.Fprintf(tw, "Span:\t%.1f px = %s\n", src.PixelDistance, units.FormatValue(src.RealDistance, src.RealUnit))
	case *calibration.VerbalScale:
		fmt.Fprintf(tw, "Map scale:\t1:%.0f\n", src.RepresentativeFraction)
		if src.Declination != nil {
			fmt.Fprintf(tw, "Declination:\t%.1f°\n", *src.Declination)
		}
	case *calibration.DroneTelemetry:
		fmt.Fprintf(tw, "Altitude AGL:\t%.1f m (%s)\n", src.AltitudeAGL, src.AltitudeSource)
		fmt.Fprintf(tw, "GSD:\t%.2f cm/px\n", src.GSDCm)
		fmt.Fprintf(tw, "Coverage:\t%.1f x %.1f m\n", src.CoverageWidthM, src.CoverageHeightM)
		if src.Degraded {
			fmt.Fprintf(tw, "Warning:\taltitude is not referenced to the ground\n")
		}
	}
	return tw.Flush()
}

// PrintOutcome prints a result or the reason the attempt stopped.
func PrintOutcome(w io.Writer, out *session.Outcome, system units.System) error {
	if out.Completed() {
		return PrintResult(w, out.Result, system)
	}
	if out.Failure == nil {
		_, err := fmt.Fprintln(w, "no result")
		return err
	}
	tw := NewTable(w)
	fmt.Fprintf(tw, "Status:\t%s\n", out.Failure.Kind)
	fmt.Fprintf(tw, "Reason:\t%s\n", out.Failure.Reason)
	if out.Failure.Remedy != "" {
		fmt.Fprintf(tw, "Remedy:\t%s\n", out.Failure.Remedy)
	}
	return tw.Flush()
}
