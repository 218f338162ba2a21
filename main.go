package main

import (
	"fmt"
	"os"

	"github.com/photoscale/photoscale/cmd"
	"github.com/photoscale/photoscale/internal/buildinfo"
	"github.com/photoscale/photoscale/internal/conf"
	"github.com/photoscale/photoscale/internal/logger"
)

// Set at build time with -ldflags "-X main.version=... -X main.buildDate=..."
var (
	version   = "dev"
	buildDate = ""
)

func main() {
	os.Exit(run())
}

func run() int {
	build := buildinfo.NewContext(version, buildDate, "")

	settings, err := conf.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		fmt.Fprintln(os.Stderr, "Falling back to built-in defaults; run 'photoscale config init --force' to rewrite the file.")
		settings = conf.Defaults()
	}

	rootCmd := cmd.RootCommand(settings, build)
	execErr := rootCmd.Execute()

	if err := logger.Global().Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Error closing log file: %v\n", err)
	}
	if execErr != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", execErr)
		return 1
	}
	return 0
}
