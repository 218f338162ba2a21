// Package coin provides the coin command
package coin

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/photoscale/photoscale/cmd/cmdutil"
	"github.com/photoscale/photoscale/internal/app"
	"github.com/photoscale/photoscale/internal/buildinfo"
	"github.com/photoscale/photoscale/internal/calibration"
	"github.com/photoscale/photoscale/internal/conf"
	"github.com/photoscale/photoscale/internal/units"
)

type options struct {
	input     calibration.CoinInput
	photo     string
	auditCrop bool
	auditDir  string
	list      bool
	country   string
	json      bool
}

// Command creates the coin command.
func Command(settings *conf.Settings, build *buildinfo.Context) *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "coin",
		Short: "Calibrate from a coin placed in the photo",
		Long: `Computes the scale from the on-screen reference circle a coin was fitted
into: the zoom and pan of the photo view and the circle's radius and centre
in screen pixels. The coin defaults to the last one used.

Use --list to print the known coins, --country to limit it to one country.`,
		Example: `  photoscale coin --coin eur-2 --zoom 2.5 --radius 120 --center-x 400 --center-y 300
  photoscale coin --diameter 30 --zoom 1 --radius 90 --photo desk.jpg --audit-crop
  photoscale coin --list --country CA`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.list {
				return listCoins(cmd, opts.country)
			}
			return run(cmd, settings, build, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.input.CoinID, "coin", "", "Coin id, see --list")
	f.Float64Var(&opts.input.DiameterMM, "diameter", 0, "Diameter in millimetres for a coin not in the list")
	f.Float64Var(&opts.input.ZoomScale, "zoom", 1, "Zoom scale of the photo view")
	f.Float64Var(&opts.input.PanX, "pan-x", 0, "Horizontal pan of the photo view, screen pixels")
	f.Float64Var(&opts.input.PanY, "pan-y", 0, "Vertical pan of the photo view, screen pixels")
	f.Float64Var(&opts.input.CircleRadius, "radius", 0, "Radius of the reference circle, screen pixels")
	f.Float64Var(&opts.input.CircleCenterX, "center-x", 0, "Horizontal centre of the reference circle, screen pixels")
	f.Float64Var(&opts.input.CircleCenterY, "center-y", 0, "Vertical centre of the reference circle, screen pixels")
	f.StringVar(&opts.photo, "photo", "", "Photo the coin was fitted on, used for the audit crop")
	f.BoolVar(&opts.auditCrop, "audit-crop", settings.Calibration.AuditCrop.Enabled, "Save a crop of the coin for review")
	f.StringVar(&opts.auditDir, "audit-dir", "", "Directory for audit crops (default from config)")
	f.BoolVar(&opts.list, "list", false, "List known coins instead of calibrating")
	f.StringVar(&opts.country, "country", "", "Country code filter for --list")
	cmdutil.AddJSONFlag(cmd, &opts.json)

	return cmd
}

func run(cmd *cobra.Command, settings *conf.Settings, build *buildinfo.Context, opts options) error {
	if opts.auditCrop && opts.photo == "" {
		return fmt.Errorf("--audit-crop needs --photo")
	}

	a, err := app.New(settings, build)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := cmdutil.SignalContext(cmd)
	defer cancel()

	out, err := a.Manager.Coin(ctx, opts.input)
	if err != nil {
		return err
	}

	var crop string
	if opts.auditCrop {
		if crop, err = a.AuditCoin(out.Result, opts.photo, opts.auditDir); err != nil {
			return err
		}
	}

	w := cmd.OutOrStdout()
	if opts.json {
		return cmdutil.WriteJSON(w, struct {
			*calibration.Result
			AuditCrop string `json:"audit_crop,omitempty"`
		}{out.Result, crop})
	}
	system, _ := units.ParseSystem(settings.Units.System)
	if err := cmdutil.PrintOutcome(w, out, system); err != nil {
		return err
	}
	if crop != "" {
		fmt.Fprintf(w, "Audit crop saved to %s\n", crop)
	}
	return nil
}

func listCoins(cmd *cobra.Command, country string) error {
	coins := calibration.Coins()
	if c := strings.TrimSpace(country); c != "" {
		coins = calibration.CoinsByCountry(c)
		if len(coins) == 0 {
			return fmt.Errorf("no coins known for country %q", c)
		}
	}
	tw := cmdutil.NewTable(cmd.OutOrStdout())
	fmt.Fprintln(tw, "ID\tNAME\tCOUNTRY\tDIAMETER")
	for _, c := range coins {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.2f mm\n", c.ID, c.Name, c.Country, c.DiameterMM)
	}
	return tw.Flush()
}
