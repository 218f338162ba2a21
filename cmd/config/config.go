// Package config provides the config command for writing and inspecting
// the configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/photoscale/photoscale/internal/conf"
)

const redacted = "[redacted]"

// Command creates the config command.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}
	cmd.AddCommand(initCommand(), showCommand(settings))
	return cmd
}

func initCommand() *cobra.Command {
	var (
		output string
		force  bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration file",
		Long: `Writes the built-in default config.yaml. Without --output the file in use
is rewritten, or config.yaml in the current directory when there is none.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := output
			if path == "" {
				if found, err := conf.FindConfigFile(); err == nil {
					path = found
				} else {
					path = "config.yaml"
				}
			}
			if err := WriteDefault(path, force); err != nil {
				return err
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return err
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Path of the file to write")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing file")
	return cmd
}

// WriteDefault writes the default configuration to path. An existing file is
// only replaced with force.
func WriteDefault(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists, use --force to overwrite", path)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, conf.DefaultConfig(), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func showCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with secrets redacted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := yaml.Marshal(Redact(settings))
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

// Redact returns a copy of settings with credentials replaced.
func Redact(settings *conf.Settings) *conf.Settings {
	c := *settings
	if c.MQTT.Password != "" {
		c.MQTT.Password = redacted
	}
	if c.Datastore.MySQL.Password != "" {
		c.Datastore.MySQL.Password = redacted
	}
	if c.Sentry.DSN != "" {
		c.Sentry.DSN = redacted
	}
	return &c
}
