package service

import (
	"gocv.io/x/gocv"
)

// 场景复杂度
const (
	ComplexitySimple  = "simple"
	ComplexityMedium  = "medium"
	ComplexityComplex = "complex"
)

// ComplexityAnalyzer 根据边缘密度和颜色方差估计场景复杂度，用于调整 GrabCut 迭代次数
type ComplexityAnalyzer struct{}

type ComplexityInfo struct {
	Level         string
	EdgeDensity   float64
	ColorVariance float64
}

func NewComplexityAnalyzer() *ComplexityAnalyzer {
	return &ComplexityAnalyzer{}
}

// Analyze 分析图像的复杂度
func (ca *ComplexityAnalyzer) Analyze(img *gocv.Mat) ComplexityInfo {
	edgeDensity := ca.calculateEdgeDensity(img)
	colorVariance := ca.calculateColorVariance(img)

	level := ComplexityMedium
	switch {
	case edgeDensity < 0.05 && colorVariance < 30:
		level = ComplexitySimple
	case edgeDensity > 0.15 || colorVariance > 60:
		level = ComplexityComplex
	}

	return ComplexityInfo{
		Level:         level,
		EdgeDensity:   edgeDensity,
		ColorVariance: colorVariance,
	}
}

// Iterations 简单场景减少迭代，复杂场景增加迭代
func (info ComplexityInfo) Iterations(base int) int {
	switch info.Level {
	case ComplexitySimple:
		return max(1, base-2)
	case ComplexityComplex:
		return base + 2
	default:
		return base
	}
}

// calculateEdgeDensity Canny 边缘像素占比
func (ca *ComplexityAnalyzer) calculateEdgeDensity(img *gocv.Mat) float64 {
	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(*img, &gray, gocv.ColorBGRToGray)

	edges := gocv.NewMat()
	defer edges.Close()
	gocv.Canny(gray, &edges, 50, 150)

	return float64(gocv.CountNonZero(edges)) / float64(img.Rows()*img.Cols())
}

// calculateColorVariance Lab 空间各通道标准差的均值
func (ca *ComplexityAnalyzer) calculateColorVariance(img *gocv.Mat) float64 {
	lab := gocv.NewMat()
	defer lab.Close()
	gocv.CvtColor(*img, &lab, gocv.ColorBGRToLab)

	mean := gocv.NewMat()
	stddev := gocv.NewMat()
	defer mean.Close()
	defer stddev.Close()
	gocv.MeanStdDev(lab, &mean, &stddev)

	variance := 0.0
	for i := 0; i < stddev.Rows(); i++ {
		variance += stddev.GetDoubleAt(i, 0)
	}
	return variance / float64(stddev.Rows())
}
