package main

import (
	"fmt"
	"os"

	"github.com/TIANLI0/LayerStudio/service"
	"github.com/spf13/cobra"
)

var compositeCmd = &cobra.Command{
	Use:   "composite",
	Short: "Composite a layer stack onto the input image",
	RunE:  runComposite,
}

func init() {
	addIOFlags(compositeCmd)
	compositeCmd.Flags().StringP("layers", "l", "", "Layer stack as JSON-like text")
	compositeCmd.Flags().String("layers-file", "", "Read the layer stack from a file")
	rootCmd.AddCommand(compositeCmd)
}

func runComposite(cmd *cobra.Command, args []string) error {
	text, _ := cmd.Flags().GetString("layers")
	file, _ := cmd.Flags().GetString("layers-file")
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("reading layers: %w", err)
		}
		text = string(data)
	}

	src, err := readInput(cmd)
	if err != nil {
		return err
	}

	cfg := loadConfig(cmd)
	layers := service.ParseLayers(text)
	if limit := cfg.Composite.MaxLayers; limit > 0 && len(layers) > limit {
		return fmt.Errorf("too many layers: %d > %d", len(layers), limit)
	}

	out := service.NewCompositor(service.NewToneFilters(), cfg.Composite.MaxPixels).Compose(src, layers)
	fmt.Fprintf(cmd.OutOrStdout(), "Layers: %d\n", len(layers))
	return writeOutput(cmd, out)
}
