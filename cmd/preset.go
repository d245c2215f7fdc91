package cmd

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/tank-sim/tank-sim/sim/preset"
)

// resolvePreset picks the standalone file when given, otherwise the named
// preset from the presets file.
func resolvePreset(presetFile, presetsPath, name string) (map[string]any, error) {
	if presetFile != "" {
		return preset.LoadStandalone(presetFile)
	}
	pf, err := preset.LoadFile(presetsPath)
	if err != nil {
		return nil, err
	}
	return pf.Lookup(name)
}

var presetsListPath string

// presetsCmd lists the presets available in a presets file.
var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List the parameter presets in a presets file",
	Run: func(cmd *cobra.Command, args []string) {
		pf, err := preset.LoadFile(presetsListPath)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		for _, name := range pf.Names() {
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%d parameters)\n", name, len(pf.Presets[name]))
		}
	},
}

func init() {
	presetsCmd.Flags().StringVar(&presetsListPath, "presets-path", "presets.yaml", "Path to the presets YAML file")
	rootCmd.AddCommand(presetsCmd)
}
