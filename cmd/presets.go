package cmd

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/smazurov/sensornode/internal/controls"
	"github.com/smazurov/sensornode/internal/presets"
)

// CreatePresetsCmd creates the presets command group.
func CreatePresetsCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "presets",
		Short: "Inspect the presets file",
	}
	cmd.PersistentFlags().StringVarP(&file, "file", "f", "presets.toml", "Presets file")

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List stored presets",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			f, err := presets.LoadFile(file)
			if err != nil {
				return err
			}
			names := make([]string, 0, len(f.Presets))
			for name := range f.Presets {
				names = append(names, name)
			}
			sort.Strings(names)

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tCONTROLS\tACTIVE\tDESCRIPTION")
			for _, name := range names {
				p := f.Presets[name]
				active := ""
				if name == f.Active {
					active = "*"
				}
				fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", name, len(p.Controls), active, p.Description)
			}
			return w.Flush()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Check that every preset names known controls",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			f, err := presets.LoadFile(file)
			if err != nil {
				return err
			}
			unknown := CheckPresets(f)
			for _, u := range unknown {
				fmt.Println(u)
			}
			if len(unknown) > 0 {
				return fmt.Errorf("%d unknown controls in %s", len(unknown), file)
			}
			fmt.Printf("%s: %d presets OK\n", file, len(f.Presets))
			return nil
		},
	})

	return cmd
}

// CheckPresets returns "preset.control" for every control name no
// sensor control answers to, sorted.
func CheckPresets(f presets.File) []string {
	var unknown []string
	for name, p := range f.Presets {
		for ctrl := range p.Controls {
			if _, ok := controls.ByName(ctrl); !ok {
				unknown = append(unknown, name+"."+ctrl)
			}
		}
	}
	sort.Strings(unknown)
	return unknown
}
