// Package mqtt provides the mqtt command for checking the broker connection.
package mqtt

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/photoscale/photoscale/cmd/cmdutil"
	"github.com/photoscale/photoscale/internal/buildinfo"
	"github.com/photoscale/photoscale/internal/conf"
	"github.com/photoscale/photoscale/internal/mqtt"
	"github.com/photoscale/photoscale/internal/observability"
)

// Command creates the mqtt command.
func Command(settings *conf.Settings, _ *buildinfo.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mqtt",
		Short: "Calibration event publishing",
	}
	cmd.AddCommand(testCommand(settings))
	return cmd
}

func testCommand(settings *conf.Settings) *cobra.Command {
	var broker string

	cmd := &cobra.Command{
		Use:   "test",
		Short: "Test the broker connection and publish a sample calibration",
		Long: `Runs DNS, TCP, MQTT connect and publish checks against the configured
broker and reports each stage. The sample message goes to <topic>/test.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := mqtt.ConfigFromSettings(settings)
			if broker != "" {
				cfg.Broker = broker
			}
			metrics, err := observability.NewMetrics()
			if err != nil {
				return err
			}
			client, err := mqtt.NewClient(cfg, metrics.MQTT)
			if err != nil {
				return err
			}
			defer client.Disconnect()

			ctx, cancel := cmdutil.SignalContext(cmd)
			defer cancel()

			results := make(chan mqtt.TestResult)
			go func() {
				defer close(results)
				client.TestConnection(ctx, results)
			}()
			return report(cmd.OutOrStdout(), results)
		},
	}
	cmd.Flags().StringVar(&broker, "broker", "", "Broker URL overriding the configured one, e.g. tcp://localhost:1883")
	return cmd
}

// report prints every finished stage and fails when the last one failed.
func report(w io.Writer, results <-chan mqtt.TestResult) error {
	var last *mqtt.TestResult
	for r := range results {
		if r.IsProgress {
			continue
		}
		status := "ok"
		if !r.Success {
			status = "FAILED"
		}
		fmt.Fprintf(w, "%-20s %-6s %s\n", r.Stage, status, r.Message)
		if r.Error != "" {
			fmt.Fprintf(w, "%-20s        %s\n", "", r.Error)
		}
		last = &r
	}
	switch {
	case last == nil:
		return fmt.Errorf("connection test produced no result")
	case !last.Success:
		return fmt.Errorf("mqtt connection test failed at %s", last.Stage)
	}
	return nil
}
