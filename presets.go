package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"stepseq/preset"
	"stepseq/sequencer"
)

func presetsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "presets",
		Short: "Inspect the preset store",
	}
	cmd.AddCommand(presetsListCmd(opts))
	cmd.AddCommand(presetsShowCmd(opts))
	cmd.AddCommand(presetsExportCmd(opts))
	cmd.AddCommand(presetsDeleteCmd(opts))
	cmd.AddCommand(presetsImportCmd(opts))
	return cmd
}

func openStore(opts *rootOptions) (*preset.Store, error) {
	cfg, _, err := opts.loadConfig()
	if err != nil {
		return nil, err
	}
	path, err := cfg.PresetPath()
	if err != nil {
		return nil, fmt.Errorf("resolve preset path: %w", err)
	}
	return preset.Open(path)
}

// parseSlot reads a 1-based slot argument
func parseSlot(arg string) (int, error) {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 || n > preset.NumSlots {
		return 0, fmt.Errorf("%w: %q (want 1-%d)", preset.ErrInvalidSlot, arg, preset.NumSlots)
	}
	return n - 1, nil
}

func presetsListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(opts)
			if err != nil {
				return err
			}
			defer store.Close()

			presets, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(presets) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No presets stored.")
				return nil
			}

			rows := make([][]string, 0, len(presets))
			for _, p := range presets {
				rows = append(rows, []string{
					strconv.Itoa(p.Slot + 1),
					p.Name,
					p.Settings.SequenceMode.String(),
					strconv.Itoa(p.Settings.TimeDivider),
					p.SavedAt.Format("2006-01-02 15:04"),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), presetTable([]string{"SLOT", "NAME", "MODE", "DIV", "SAVED"}, rows))
			return nil
		},
	}
}

func presetTable(headers []string, rows [][]string) string {
	headerStyle := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)

	return table.New().
		Border(lipgloss.RoundedBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...).
		Rows(rows...).
		String()
}

func presetsShowCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <slot>",
		Short: "Show one preset's step settings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			slot, err := parseSlot(args[0])
			if err != nil {
				return err
			}
			store, err := openStore(opts)
			if err != nil {
				return err
			}
			defer store.Close()

			p, err := store.Load(cmd.Context(), slot)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Preset %d %s\n", p.Slot+1, p.Name)
			fmt.Fprintf(out, "  mode     %s\n", p.Settings.SequenceMode)
			fmt.Fprintf(out, "  divider  %d\n", p.Settings.TimeDivider)

			gates := make([]string, len(p.Settings.GateModes))
			repeats := make([]string, len(p.Settings.StepRepeat))
			for i := range gates {
				gates[i] = fmt.Sprintf("%-9s", p.Settings.GateModes[i])
				repeats[i] = fmt.Sprintf("%-9d", p.Settings.StepRepeat[i])
			}
			fmt.Fprintf(out, "  gates    %s\n", strings.TrimRight(strings.Join(gates, ""), " "))
			fmt.Fprintf(out, "  repeats  %s\n", strings.TrimRight(strings.Join(repeats, ""), " "))
			return nil
		},
	}
}

func presetsExportCmd(opts *rootOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "export <slot>",
		Short: "Print a preset as YAML or JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			slot, err := parseSlot(args[0])
			if err != nil {
				return err
			}
			store, err := openStore(opts)
			if err != nil {
				return err
			}
			defer store.Close()

			p, err := store.Load(cmd.Context(), slot)
			if err != nil {
				return err
			}

			var data []byte
			switch format {
			case "yaml":
				data, err = yaml.Marshal(p)
			case "json":
				data, err = json.MarshalIndent(p, "", "  ")
				data = append(data, '\n')
			default:
				return fmt.Errorf("unknown format %q (want yaml or json)", format)
			}
			if err != nil {
				return fmt.Errorf("encode preset: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	cmd.Flags().StringVar(&format, "format", "yaml", "Output format: yaml or json")
	return cmd
}

func presetsDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <slot>",
		Short: "Empty a preset slot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			slot, err := parseSlot(args[0])
			if err != nil {
				return err
			}
			store, err := openStore(opts)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Delete(cmd.Context(), slot); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted preset %d\n", slot+1)
			return nil
		},
	}
}

// decodePreset reads an exported preset. Files ending in .json are JSON,
// anything else is YAML.
func decodePreset(path string) (preset.Preset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return preset.Preset{}, err
	}

	p := preset.Preset{Settings: sequencer.DefaultSettings()}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, &p)
	} else {
		err = yaml.Unmarshal(data, &p)
	}
	if err != nil {
		return preset.Preset{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return p, nil
}

func presetsImportCmd(opts *rootOptions) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "import <slot> <file>",
		Short: "Store an exported preset file in a slot",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			slot, err := parseSlot(args[0])
			if err != nil {
				return err
			}
			p, err := decodePreset(args[1])
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("name") {
				p.Name = name
			}

			store, err := openStore(opts)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Save(cmd.Context(), slot, p.Name, p.Settings.Clamp()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %s into preset %d\n", args[1], slot+1)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Override the preset name")
	return cmd
}
