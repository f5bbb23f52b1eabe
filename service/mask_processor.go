package service

import (
	"fmt"
	"image"

	"github.com/TIANLI0/LayerStudio/canvas"
	"gocv.io/x/gocv"
)

// GrabCut 掩码取值
const (
	gcBackground         = 0
	gcForeground         = 1
	gcProbableBackground = 2
	gcProbableForeground = 3
)

// MaskProcessor 负责画布、前景标记与 OpenCV 矩阵之间的转换和形态学处理
type MaskProcessor struct{}

func NewMaskProcessor() *MaskProcessor {
	return &MaskProcessor{}
}

// CanvasToMat 画布转为 BGR 三通道矩阵，丢弃 alpha
func (mp *MaskProcessor) CanvasToMat(c *canvas.Canvas) (gocv.Mat, error) {
	data := make([]byte, 0, len(c.Pix)*3)
	for _, p := range c.Pix {
		_, r, g, b := canvas.Unpack(p)
		data = append(data, b, g, r)
	}
	mat, err := gocv.NewMatFromBytes(c.Height, c.Width, gocv.MatTypeCV8UC3, data)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("failed to build image matrix: %w", err)
	}
	return mat, nil
}

// SeedMask 由前景标记生成 GrabCut 初始掩码
// 前景标为可能前景，其余为可能背景，距边缘 border 以内强制为背景
func (mp *MaskProcessor) SeedMask(seed *ForegroundMask, border int) gocv.Mat {
	mask := gocv.NewMatWithSize(seed.Height, seed.Width, gocv.MatTypeCV8U)
	for y := 0; y < seed.Height; y++ {
		for x := 0; x < seed.Width; x++ {
			v := uint8(gcProbableBackground)
			if seed.Keep[y*seed.Width+x] {
				v = uint8(gcProbableForeground)
			}
			if x < border || y < border || x >= seed.Width-border || y >= seed.Height-border {
				v = uint8(gcBackground)
			}
			mask.SetUCharAt(y, x, v)
		}
	}
	return mask
}

// ExtractForeground 取出 GrabCut 结果中的确定前景和可能前景
func (mp *MaskProcessor) ExtractForeground(mask *gocv.Mat) gocv.Mat {
	fgMask := gocv.NewMat()
	tmp1 := gocv.NewMatFromScalar(gocv.Scalar{Val1: gcForeground}, gocv.MatTypeCV8U)
	defer tmp1.Close()
	gocv.Compare(*mask, tmp1, &fgMask, gocv.CompareEQ)

	fgMaskPr := gocv.NewMat()
	defer fgMaskPr.Close()
	tmp2 := gocv.NewMatFromScalar(gocv.Scalar{Val1: gcProbableForeground}, gocv.MatTypeCV8U)
	defer tmp2.Close()
	gocv.Compare(*mask, tmp2, &fgMaskPr, gocv.CompareEQ)

	combined := gocv.NewMat()
	gocv.BitwiseOr(fgMask, fgMaskPr, &combined)
	fgMask.Close()

	return combined
}

// MorphologyOptimize 先开后闭，去掉细小噪点并填补小孔
func (mp *MaskProcessor) MorphologyOptimize(mask *gocv.Mat, kernelSize int) gocv.Mat {
	kernel := gocv.GetStructuringElement(gocv.MorphEllipse, image.Point{X: kernelSize, Y: kernelSize})
	defer kernel.Close()

	opened := gocv.NewMat()
	gocv.MorphologyEx(*mask, &opened, gocv.MorphOpen, kernel)

	closed := gocv.NewMat()
	gocv.MorphologyEx(opened, &closed, gocv.MorphClose, kernel)
	opened.Close()

	return closed
}

// ToForeground 二值矩阵转为前景标记，大于127视为前景
func (mp *MaskProcessor) ToForeground(mask *gocv.Mat) *ForegroundMask {
	out := NewForegroundMask(mask.Cols(), mask.Rows())
	for y := 0; y < out.Height; y++ {
		for x := 0; x < out.Width; x++ {
			out.Keep[y*out.Width+x] = mask.GetUCharAt(y, x) > 127
		}
	}
	return out
}
