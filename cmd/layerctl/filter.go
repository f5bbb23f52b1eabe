package main

import (
	"strconv"

	"github.com/TIANLI0/LayerStudio/service"
	"github.com/spf13/cobra"
)

var filterCmd = &cobra.Command{
	Use:   "filter [brightness|contrast|blur|sharpen|grayscale]",
	Short: "Apply a single tonal filter",
	Args:  cobra.ExactArgs(1),
	RunE:  runFilter,
}

func init() {
	addIOFlags(filterCmd)
	filterCmd.Flags().Float64("level", 0, "Brightness or contrast level")
	filterCmd.Flags().Float64("intensity", 0, "Blur or sharpen intensity")
	rootCmd.AddCommand(filterCmd)
}

func runFilter(cmd *cobra.Command, args []string) error {
	level, _ := cmd.Flags().GetFloat64("level")
	intensity, _ := cmd.Flags().GetFloat64("intensity")

	src, err := readInput(cmd)
	if err != nil {
		return err
	}

	out, err := service.NewToneFilters().Apply(args[0], src, map[string]string{
		"level":     strconv.FormatFloat(level, 'f', -1, 64),
		"intensity": strconv.FormatFloat(intensity, 'f', -1, 64),
	})
	if err != nil {
		return err
	}
	return writeOutput(cmd, out)
}
