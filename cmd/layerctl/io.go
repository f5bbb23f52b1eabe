package main

import (
	"fmt"
	"os"

	"github.com/TIANLI0/LayerStudio/canvas"
	"github.com/spf13/cobra"
)

func addIOFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("input", "i", "", "Input PNG or JPEG file")
	cmd.Flags().StringP("output", "o", "", "Output PNG file")
	cmd.MarkFlagRequired("input")
	cmd.MarkFlagRequired("output")
}

func readInput(cmd *cobra.Command) (*canvas.Canvas, error) {
	path, _ := cmd.Flags().GetString("input")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}
	img, _, err := canvas.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return img, nil
}

func writeOutput(cmd *cobra.Command, img *canvas.Canvas) error {
	path, _ := cmd.Flags().GetString("output")
	data, err := canvas.Encode(img)
	if err != nil {
		return fmt.Errorf("encoding: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d x %d)\n", path, img.Width, img.Height)
	return nil
}
