package main

import (
	"fmt"
	"os"

	"github.com/TIANLI0/LayerStudio/canvas"
	"github.com/TIANLI0/LayerStudio/utils"
	"github.com/spf13/cobra"
)

var identifyCmd = &cobra.Command{
	Use:   "identify [file]",
	Short: "Print image dimensions and whether it is square",
	Args:  cobra.ExactArgs(1),
	RunE:  runIdentify,
}

func init() {
	rootCmd.AddCommand(identifyCmd)
}

func runIdentify(cmd *cobra.Command, args []string) error {
	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	img, format, err := canvas.Decode(data)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "File:       %s\n", path)
	fmt.Fprintf(out, "Format:     %s\n", format)
	fmt.Fprintf(out, "Dimensions: %d x %d\n", img.Width, img.Height)
	fmt.Fprintf(out, "Square:     %t\n", img.Width == img.Height)
	fmt.Fprintf(out, "MD5:        %s\n", utils.BytesMD5(data))
	return nil
}
