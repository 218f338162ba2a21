// Package telemetry provides the telemetry command
package telemetry

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/photoscale/photoscale/cmd/cmdutil"
	"github.com/photoscale/photoscale/internal/app"
	"github.com/photoscale/photoscale/internal/buildinfo"
	"github.com/photoscale/photoscale/internal/conf"
	"github.com/photoscale/photoscale/internal/metadata"
	"github.com/photoscale/photoscale/internal/session"
)

// Command creates the telemetry command.
func Command(settings *conf.Settings, build *buildinfo.Context) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "telemetry <photo>",
		Short: "Show the drone telemetry found in a photo",
		Long:  "Extracts camera, GPS, gimbal and altitude metadata without calibrating.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(settings, build, app.WithoutDatastore(), app.WithoutMQTT())
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, cancel := cmdutil.SignalContext(cmd)
			defer cancel()

			tel, err := a.Manager.Telemetry(ctx, session.DroneRequest{Path: args[0]})
			if err != nil {
				return err
			}
			if asJSON {
				return cmdutil.WriteJSON(cmd.OutOrStdout(), tel)
			}
			return printTelemetry(cmd.OutOrStdout(), tel)
		},
	}
	cmdutil.AddJSONFlag(cmd, &asJSON)

	return cmd
}

func printTelemetry(w io.Writer, tel *metadata.DroneTelemetry) error {
	tw := cmdutil.NewTable(w)
	camera := strings.TrimSpace(tel.Make + " " + tel.Model)
	if camera == "" {
		camera = "unknown"
	}
	fmt.Fprintf(tw, "Camera:\t%s\n", camera)
	fmt.Fprintf(tw, "Drone:\t%t\n", tel.IsDrone)
	fmt.Fprintf(tw, "Overhead:\t%t\n", tel.IsOverhead)
	fmt.Fprintf(tw, "Confidence:\t%s (%s)\n", tel.Confidence, tel.DetectionMethod)
	if tel.ImageWidth > 0 {
		fmt.Fprintf(tw, "Image:\t%d x %d px\n", tel.ImageWidth, tel.ImageHeight)
	}
	if tel.GPS != nil {
		fmt.Fprintf(tw, "GPS:\t%.6f, %.6f\n", tel.GPS.Latitude, tel.GPS.Longitude)
	}
	if asl, ok := tel.DroneAltitudeASL(); ok {
		fmt.Fprintf(tw, "Altitude ASL:\t%.1f m\n", asl)
	}
	if tel.RelativeAltitudeAGL != nil {
		fmt.Fprintf(tw, "Relative altitude:\t%.1f m\n", *tel.RelativeAltitudeAGL)
	}
	if tel.Gimbal != nil {
		fmt.Fprintf(tw, "Gimbal:\tpitch %.1f yaw %.1f roll %.1f\n", tel.Gimbal.Pitch, tel.Gimbal.Yaw, tel.Gimbal.Roll)
	}
	if tel.Specs != nil {
		fmt.Fprintf(tw, "Sensor:\t%.2f x %.2f mm, focal length %.2f mm\n", tel.Specs.SensorWidthMM, tel.Specs.SensorHeightMM, tel.Specs.FocalLengthMM)
	}
	if len(tel.Sources) > 0 {
		fmt.Fprintf(tw, "Sources:\t%s\n", strings.Join(tel.Sources, ", "))
	}
	return tw.Flush()
}
