// Package version provides the version command
package version

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/photoscale/photoscale/internal/buildinfo"
)

// Command creates the version command.
func Command(build *buildinfo.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "photoscale %s (built %s, %s %s/%s)\n",
				build.Version(), build.BuildDate(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	}
}
