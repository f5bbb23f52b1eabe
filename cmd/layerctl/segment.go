package main

import (
	"context"
	"fmt"

	"github.com/TIANLI0/LayerStudio/service"
	"github.com/spf13/cobra"
)

var segmentCmd = &cobra.Command{
	Use:   "segment",
	Short: "Remove the background, keeping the largest foreground region",
	RunE:  runSegment,
}

func init() {
	addIOFlags(segmentCmd)
	segmentCmd.Flags().String("mode", service.ModeManual, "Backend mode: manual, ai or auto")
	segmentCmd.Flags().Int("sensitivity", 0, "Colour distance tolerance, <=0 uses the configured default")
	rootCmd.AddCommand(segmentCmd)
}

func runSegment(cmd *cobra.Command, args []string) error {
	mode, _ := cmd.Flags().GetString("mode")
	sensitivity, _ := cmd.Flags().GetInt("sensitivity")
	cfg := loadConfig(cmd)

	src, err := readInput(cmd)
	if err != nil {
		return err
	}

	var ai service.ImageSegmenter
	var refiner service.MaskRefiner
	switch service.ParseMode(mode) {
	case service.ModeAI, service.ModeAuto:
		if path, ok := service.ProbeAIBackend(&cfg.Segment); ok {
			ai = service.NewCommandSegmenter(path, &cfg.Segment)
		}
		refiner = service.NewGrabCutService(&cfg.Segment)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	res := service.NewBackgroundRemover(&cfg.Segment, ai, refiner).Remove(ctx, src, mode, sensitivity)
	fmt.Fprintf(cmd.OutOrStdout(), "Backend: %s\n", res.Backend)
	return writeOutput(cmd, res.Canvas)
}
