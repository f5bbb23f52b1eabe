package main

import (
	"fmt"

	"github.com/TIANLI0/LayerStudio/service"
	"github.com/spf13/cobra"
)

var rotateCmd = &cobra.Command{
	Use:   "rotate",
	Short: "Rotate by an arbitrary angle, expanding the canvas",
	RunE:  runRotate,
}

var flipCmd = &cobra.Command{
	Use:   "flip",
	Short: "Mirror horizontally or vertically",
	RunE:  runFlip,
}

var zoomCmd = &cobra.Command{
	Use:   "zoom",
	Short: "Scale uniformly with nearest-neighbour sampling",
	RunE:  runZoom,
}

var matrixCmd = &cobra.Command{
	Use:   "matrix",
	Short: "Apply a forward 2x2 matrix [[a,b],[c,d]]",
	RunE:  runMatrix,
}

var cropCmd = &cobra.Command{
	Use:   "crop",
	Short: "Cut out a rectangle, clamped to the image",
	RunE:  runCrop,
}

func init() {
	addIOFlags(rotateCmd)
	rotateCmd.Flags().Float64("angle", 90, "Rotation angle in degrees")
	rootCmd.AddCommand(rotateCmd)

	addIOFlags(flipCmd)
	flipCmd.Flags().String("axis", "horizontal", "Flip axis: horizontal or vertical")
	rootCmd.AddCommand(flipCmd)

	addIOFlags(zoomCmd)
	zoomCmd.Flags().Float64("scale", 1, "Scale factor, must be positive")
	rootCmd.AddCommand(zoomCmd)

	addIOFlags(matrixCmd)
	matrixCmd.Flags().Float64SliceP("matrix", "m", []float64{1, 0, 0, 1}, "Forward matrix a,b,c,d")
	rootCmd.AddCommand(matrixCmd)

	addIOFlags(cropCmd)
	cropCmd.Flags().Int("x", 0, "Left edge")
	cropCmd.Flags().Int("y", 0, "Top edge")
	cropCmd.Flags().Int("w", 1, "Width")
	cropCmd.Flags().Int("h", 1, "Height")
	rootCmd.AddCommand(cropCmd)
}

func runRotate(cmd *cobra.Command, args []string) error {
	angle, _ := cmd.Flags().GetFloat64("angle")
	src, err := readInput(cmd)
	if err != nil {
		return err
	}
	return writeOutput(cmd, service.Transform(src, service.Rotate(src.Width, src.Height, angle)))
}

func runFlip(cmd *cobra.Command, args []string) error {
	axis, _ := cmd.Flags().GetString("axis")
	src, err := readInput(cmd)
	if err != nil {
		return err
	}

	var m service.AffineMatrix
	switch axis {
	case "horizontal", "h":
		m = service.FlipHorizontal(src.Width, src.Height)
	case "vertical", "v":
		m = service.FlipVertical(src.Width, src.Height)
	default:
		return fmt.Errorf("unknown flip axis %q (use horizontal or vertical)", axis)
	}
	return writeOutput(cmd, service.Transform(src, m))
}

func runZoom(cmd *cobra.Command, args []string) error {
	scale, _ := cmd.Flags().GetFloat64("scale")
	if scale <= 0 {
		return fmt.Errorf("scale must be positive, got %g", scale)
	}
	src, err := readInput(cmd)
	if err != nil {
		return err
	}
	return writeOutput(cmd, service.Transform(src, service.Zoom(src.Width, src.Height, scale)))
}

func runMatrix(cmd *cobra.Command, args []string) error {
	v, _ := cmd.Flags().GetFloat64Slice("matrix")
	if len(v) != 4 {
		return fmt.Errorf("matrix needs 4 values, got %d", len(v))
	}
	src, err := readInput(cmd)
	if err != nil {
		return err
	}
	m, err := service.FromForward(v[0], v[1], v[2], v[3], src.Width, src.Height)
	if err != nil {
		return err
	}
	return writeOutput(cmd, service.Transform(src, m))
}

func runCrop(cmd *cobra.Command, args []string) error {
	x, _ := cmd.Flags().GetInt("x")
	y, _ := cmd.Flags().GetInt("y")
	w, _ := cmd.Flags().GetInt("w")
	h, _ := cmd.Flags().GetInt("h")
	src, err := readInput(cmd)
	if err != nil {
		return err
	}
	return writeOutput(cmd, src.Crop(x, y, w, h))
}
