package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/smazurov/sensornode/internal/board"
	"github.com/smazurov/sensornode/internal/logging"
	"github.com/smazurov/sensornode/internal/sensor"
)

// CreateModesCmd creates the modes command. It needs no hardware.
func CreateModesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "modes",
		Short: "List sensor modes and control ranges",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			logging.Initialize(logging.Config{Level: "warn", Format: "text"})

			hw := board.Simulated(board.DefaultAddr)
			s, err := sensor.New(sensor.Config{DeviceName: hw.DeviceName}, sensor.Deps{
				Transport: hw.Transport,
				Board:     hw.Board,
			})
			if err != nil {
				return err
			}
			defer s.Close()

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "CODE\tSIZE\tINTERVAL\tCROP")
			crop := s.CropBounds()
			for _, iv := range s.EnumFrameIntervals() {
				fmt.Fprintf(w, "0x%04x\t%dx%d\t%d/%d\t(%d,%d) %dx%d\n",
					iv.Code, iv.Size.Width, iv.Size.Height,
					iv.Interval.Numerator, iv.Interval.Denominator,
					crop.Left, crop.Top, crop.Width, crop.Height)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Println()

			w = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "CONTROL\tKIND\tMIN\tMAX\tSTEP\tDEFAULT\tFLAGS")
			for _, spec := range s.Controls() {
				var flags []string
				if spec.ReadOnly {
					flags = append(flags, "read-only")
				}
				if len(spec.Menu) > 0 {
					flags = append(flags, fmt.Sprintf("%d entries", len(spec.Menu)))
				}
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\t%s\n",
					spec.Name, spec.Kind, spec.Minimum, spec.Maximum, spec.Step, spec.Default,
					strings.Join(flags, ","))
			}
			return w.Flush()
		},
	}
}
