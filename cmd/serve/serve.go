// Package serve provides the serve command, which runs the HTTP API.
package serve

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/photoscale/photoscale/cmd/cmdutil"
	"github.com/photoscale/photoscale/internal/api"
	"github.com/photoscale/photoscale/internal/app"
	"github.com/photoscale/photoscale/internal/buildinfo"
	"github.com/photoscale/photoscale/internal/conf"
	"github.com/photoscale/photoscale/internal/logger"
)

// brokerConnectTimeout bounds the initial MQTT connection attempt at startup.
const brokerConnectTimeout = 10 * time.Second

// Command creates the serve command.
func Command(settings *conf.Settings, build *buildinfo.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the calibration HTTP API",
		Long: `Serves the /api/v1 calibration endpoints, /health and the Prometheus
/metrics endpoint until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := cmdutil.SignalContext(cmd)
			defer cancel()
			return Run(ctx, settings, build)
		},
	}

	cmd.Flags().StringVar(&settings.WebServer.Host, "host", settings.WebServer.Host, "Address to listen on")
	cmd.Flags().StringVarP(&settings.WebServer.Port, "port", "p", settings.WebServer.Port, "Port to listen on")

	return cmd
}

// Run assembles the components and serves until ctx is cancelled.
func Run(ctx context.Context, settings *conf.Settings, build *buildinfo.Context) error {
	log := logger.Global().Module("serve")

	a, err := app.New(settings, build)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Warn("error closing components", logger.Error(err))
		}
	}()

	opts := []api.ServerOption{
		api.WithCalibrator(a.Manager),
		api.WithMetrics(a.Metrics),
	}
	if a.Store != nil {
		opts = append(opts, api.WithDataStore(a.Store))
	}
	server, err := api.New(settings, opts...)
	if err != nil {
		return err
	}

	if a.MQTT != nil {
		// The publisher reconnects on demand, so a broker that is down at
		// startup only costs a warning.
		go func() {
			connectCtx, cancel := context.WithTimeout(ctx, brokerConnectTimeout)
			defer cancel()
			if err := a.MQTT.Connect(connectCtx); err != nil {
				log.Warn("mqtt broker unavailable at startup", logger.Error(err))
			}
		}()
	}

	log.Info("photoscale API starting",
		logger.String("version", build.Version()),
		logger.String("address", server.Config().Address()))
	return server.Run(ctx)
}
