package service

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/TIANLI0/LayerStudio/canvas"
	"github.com/TIANLI0/LayerStudio/config"
	"github.com/TIANLI0/LayerStudio/utils"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

// GrabCut 处理前的最大边长
const grabCutMaxSize = 1200

// GrabCutService 以内置分割结果为种子，用 GrabCut 细化前景
type GrabCutService struct {
	iterations         int
	borderSize         int
	complexityAnalyzer *ComplexityAnalyzer
	saliencyDetector   *SaliencyDetector
	maskProcessor      *MaskProcessor
}

func NewGrabCutService(cfg *config.SegmentConfig) *GrabCutService {
	return &GrabCutService{
		iterations:         cfg.GrabCutIterations,
		borderSize:         cfg.GrabCutBorder,
		complexityAnalyzer: NewComplexityAnalyzer(),
		saliencyDetector:   NewSaliencyDetector(),
		maskProcessor:      NewMaskProcessor(),
	}
}

// Refine 返回细化后的前景标记，只保留最大连通区域
// 种子在边框内没有前景时改用显著性检测结果作为种子
func (s *GrabCutService) Refine(ctx context.Context, src *canvas.Canvas, seed *ForegroundMask) (*ForegroundMask, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	startTime := time.Now()

	img, err := s.maskProcessor.CanvasToMat(src)
	if err != nil {
		return nil, err
	}
	defer img.Close()

	width, height := src.Width, src.Height
	border := min(s.borderSize, min(width, height)/4)

	if seedInside(seed, border) == 0 {
		saliency := s.saliencyDetector.Detect(&img)
		seed = s.saliencyDetector.Seed(&saliency)
		saliency.Close()
		utils.Logger.Debug("seeding grabcut from saliency", zap.Int("seed_pixels", seed.Count()))
	}
	if seedInside(seed, border) == 0 {
		return nil, fmt.Errorf("no foreground seed inside a %dpx border", border)
	}
	if border == 0 && seed.Count() == len(seed.Keep) {
		return nil, fmt.Errorf("no background seed for grabcut")
	}
	initMask := s.maskProcessor.SeedMask(seed, border)
	defer initMask.Close()

	// 智能缩放
	scaledImg, scale := s.smartResize(&img, grabCutMaxSize)
	defer scaledImg.Close()

	mask := initMask.Clone()
	defer mask.Close()
	if scale != 1.0 {
		gocv.Resize(initMask, &mask, image.Point{X: scaledImg.Cols(), Y: scaledImg.Rows()}, 0, 0, gocv.InterpolationNearestNeighbor)
	}

	complexity := s.complexityAnalyzer.Analyze(&scaledImg)
	iterations := complexity.Iterations(s.iterations)

	bgdModel := gocv.NewMat()
	defer bgdModel.Close()
	fgdModel := gocv.NewMat()
	defer fgdModel.Close()

	gocv.GrabCut(scaledImg, &mask, image.Rectangle{}, &bgdModel, &fgdModel, iterations, gocv.GCInitWithMask)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fgMask := s.maskProcessor.ExtractForeground(&mask)
	defer fgMask.Close()

	kernelSize := 3
	if complexity.Level == ComplexityComplex {
		kernelSize = 5
	}
	optimized := s.maskProcessor.MorphologyOptimize(&fgMask, kernelSize)
	defer optimized.Close()

	// 还原到原始尺寸
	final := optimized.Clone()
	defer final.Close()
	if scale != 1.0 {
		gocv.Resize(optimized, &final, image.Point{X: width, Y: height}, 0, 0, gocv.InterpolationLinear)
		gocv.Threshold(final, &final, 127, 255, gocv.ThresholdBinary)
	}

	refined := s.maskProcessor.ToForeground(&final).KeepLargest()

	utils.Logger.Info("grabcut refinement finished",
		zap.Int("width", width),
		zap.Int("height", height),
		zap.String("complexity", complexity.Level),
		zap.Int("iterations", iterations),
		zap.Int("seed_pixels", seed.Count()),
		zap.Int("refined_pixels", refined.Count()),
		zap.Duration("duration", time.Since(startTime)))

	return refined, nil
}

// seedInside 统计边框以内的种子前景像素
func seedInside(seed *ForegroundMask, border int) int {
	n := 0
	for y := border; y < seed.Height-border; y++ {
		for x := border; x < seed.Width-border; x++ {
			if seed.Keep[y*seed.Width+x] {
				n++
			}
		}
	}
	return n
}

// smartResize 智能缩放图像以适应最大尺寸
func (s *GrabCutService) smartResize(img *gocv.Mat, maxSize int) (gocv.Mat, float64) {
	width := img.Cols()
	height := img.Rows()
	maxDim := max(width, height)
	if maxDim <= maxSize {
		return img.Clone(), 1.0
	}

	scale := float64(maxSize) / float64(maxDim)
	newWidth := max(1, int(float64(width)*scale))
	newHeight := max(1, int(float64(height)*scale))

	resized := gocv.NewMat()
	gocv.Resize(*img, &resized, image.Point{X: newWidth, Y: newHeight}, 0, 0, gocv.InterpolationArea)

	return resized, scale
}
