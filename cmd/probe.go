package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/smazurov/sensornode/internal/logging"
)

// CreateProbeCmd creates the probe command.
func CreateProbeCmd() *cobra.Command {
	var hw hardwareFlags
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Power the sensor and verify its identity",
		Long: `Powers the sensor up, reads its chip id, writes the global register ` +
			`program and powers it down again. Prints the media entity name and bus configuration.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			logging.Initialize(logging.Config{Level: "warn", Format: "text"})

			board, s, err := hw.open()
			if err != nil {
				return err
			}
			defer board.Close()
			defer s.Close()

			if err := s.Attach(); err != nil {
				return fmt.Errorf("probe failed: %w", err)
			}

			info := s.ModuleInfo()
			busCfg := s.BusConfig()
			state := s.State()

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]any{
					"entity_name": s.EntityName(),
					"module":      info,
					"bus":         busCfg,
					"state":       state,
				})
			}

			fmt.Printf("Entity:     %s\n", s.EntityName())
			fmt.Printf("Sensor:     %s\n", info.Sensor)
			fmt.Printf("Module:     %s\n", info.Module)
			fmt.Printf("Lens:       %s\n", info.Lens)
			fmt.Printf("Bus:        %s, %d lanes, %d Hz\n", busCfg.Type, busCfg.Lanes, busCfg.LinkFrequency)
			fmt.Printf("Format:     %dx%d code 0x%04x\n", state.Format.Width, state.Format.Height, state.Format.Code)
			fmt.Printf("Frame len:  %d lines\n", state.VTS)
			return nil
		},
	}

	hw.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")
	return cmd
}
