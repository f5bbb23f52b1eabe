package service

import (
	"image"

	"gocv.io/x/gocv"
)

// SaliencyDetector 基于梯度的显著性检测，背景色分类找不到前景时为 GrabCut 提供种子
type SaliencyDetector struct{}

func NewSaliencyDetector() *SaliencyDetector {
	return &SaliencyDetector{}
}

// Detect 计算图像的显著性图，Otsu 二值化后取值为 0 或 255
func (sd *SaliencyDetector) Detect(img *gocv.Mat) gocv.Mat {
	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(*img, &gray, gocv.ColorBGRToGray)

	gradX := gocv.NewMat()
	gradY := gocv.NewMat()
	defer gradX.Close()
	defer gradY.Close()

	gocv.Sobel(gray, &gradX, gocv.MatTypeCV16S, 1, 0, 3, 1, 0, gocv.BorderDefault)
	gocv.Sobel(gray, &gradY, gocv.MatTypeCV16S, 0, 1, 3, 1, 0, gocv.BorderDefault)

	absGradX := gocv.NewMat()
	absGradY := gocv.NewMat()
	defer absGradX.Close()
	defer absGradY.Close()

	gocv.ConvertScaleAbs(gradX, &absGradX, 1, 0)
	gocv.ConvertScaleAbs(gradY, &absGradY, 1, 0)

	gradient := gocv.NewMat()
	defer gradient.Close()
	gocv.AddWeighted(absGradX, 0.5, absGradY, 0.5, 0, &gradient)

	// 核尺寸随图像大小变化，小图上不至于整张模糊掉
	k := max(3, min(21, min(img.Cols(), img.Rows())/8)|1)
	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gradient, &blurred, image.Point{X: k, Y: k}, 0, 0, gocv.BorderDefault)

	saliency := gocv.NewMat()
	gocv.Threshold(blurred, &saliency, 0, 255, gocv.ThresholdBinary|gocv.ThresholdOtsu)

	return saliency
}

// Seed 膨胀显著区域后取最大连通块作为前景种子
func (sd *SaliencyDetector) Seed(saliency *gocv.Mat) *ForegroundMask {
	kernel := gocv.GetStructuringElement(gocv.MorphEllipse, image.Point{X: 11, Y: 11})
	defer kernel.Close()

	dilated := gocv.NewMat()
	defer dilated.Close()
	gocv.Dilate(*saliency, &dilated, kernel)

	seed := NewForegroundMask(dilated.Cols(), dilated.Rows())
	for y := 0; y < seed.Height; y++ {
		for x := 0; x < seed.Width; x++ {
			seed.Keep[y*seed.Width+x] = dilated.GetUCharAt(y, x) > 128
		}
	}
	return seed.KeepLargest()
}
