package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"stepseq/midi"
)

func portsCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "ports",
		Short: "List MIDI input and output ports",
		RunE: func(cmd *cobra.Command, args []string) error {
			defer midi.CloseDriver()

			ports, err := midi.ListPorts(timeout)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Inputs (%d):\n", len(ports.In))
			for i, name := range ports.In {
				fmt.Fprintf(out, "  %d: %s\n", i, name)
			}
			fmt.Fprintf(out, "Outputs (%d):\n", len(ports.Out))
			for i, name := range ports.Out {
				fmt.Fprintf(out, "  %d: %s\n", i, name)
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 3*time.Second, "Give up if the MIDI driver does not answer")
	return cmd
}
