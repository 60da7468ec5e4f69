package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"stepseq/config"
	"stepseq/debug"
)

type rootOptions struct {
	debug      bool
	configPath string
}

// loadConfig reads the config file named by --config, or the default one
func (o *rootOptions) loadConfig() (*config.Config, string, error) {
	path := o.configPath
	if path == "" {
		p, err := config.ConfigPath()
		if err != nil {
			return nil, "", fmt.Errorf("resolve config path: %w", err)
		}
		path = p
	}
	cfg, err := config.LoadFrom(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "stepseq",
		Short:         "Eight step gate sequencer driven by an internal or MIDI clock",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !opts.debug {
				return nil
			}
			if err := debug.Enable(); err != nil {
				return fmt.Errorf("enable debug log: %w", err)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			debug.Disable()
		},
	}
	root.PersistentFlags().BoolVar(&opts.debug, "debug", false, "Write a debug log to "+debug.DefaultPath())
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "Config file (default ~/.config/stepseq/config.json)")

	root.AddCommand(runCmd(opts))
	root.AddCommand(portsCmd())
	root.AddCommand(presetsCmd(opts))

	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
