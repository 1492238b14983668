package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/bamsammich/copycat/internal/config"
	"github.com/bamsammich/copycat/internal/engine"
)

func newConfigCmd(stdout io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the defaults file",
		Long: `copycat reads optional flag defaults from
$XDG_CONFIG_HOME/copycat/config.toml (~/.config/copycat/config.toml when
XDG_CONFIG_HOME is unset). Flags given on the command line always win.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the location of the defaults file",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			fmt.Fprintln(stdout, config.Path())
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write a defaults file holding the built-in defaults",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			path := config.Path()
			if path == "" {
				return errors.New("cannot determine config directory")
			}
			if err := config.Write(path, builtinDefaults()); err != nil {
				return fmt.Errorf("write %s: %w", path, err)
			}
			fmt.Fprintf(stdout, "wrote %s\n", path)
			return nil
		},
	})

	return cmd
}

func builtinDefaults() config.Config {
	d := engine.DefaultConfig()
	threads := d.Threads
	comparison := d.Comparison.String()
	follow := d.FollowSymlinks
	preserve := d.PreserveMetadata
	sizeAware := d.SizeAware
	window := d.ModTimeWindow.String()
	level := "info"
	verify := d.Verify

	return config.Config{Defaults: config.DefaultsConfig{
		Threads:          &threads,
		Comparison:       &comparison,
		FollowSymlinks:   &follow,
		PreserveMetadata: &preserve,
		SizeAware:        &sizeAware,
		MtimeWindow:      &window,
		Level:            &level,
		Verify:           &verify,
	}}
}
