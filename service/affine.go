package service

import (
	"errors"
	"math"

	"github.com/TIANLI0/LayerStudio/canvas"
	"gonum.org/v1/gonum/mat"
)

// ErrSingularMatrix 正向矩阵不可逆
var ErrSingularMatrix = errors.New("matrix is singular")

// 浮点误差容忍度，避免 90° 等角度下 ceil 多出一行
const sizeEpsilon = 1e-9

// AffineMatrix 目标坐标到源坐标的逆映射矩阵，并携带目标画布尺寸
type AffineMatrix struct {
	M00, M01 float64
	M10, M11 float64
	DestW    int
	DestH    int
}

// Transform 按逆映射矩阵重采样，越界像素填充不透明白色
func Transform(src *canvas.Canvas, m AffineMatrix) *canvas.Canvas {
	out := canvas.New(m.DestW, m.DestH)

	srcCx := float64(src.Width) / 2
	srcCy := float64(src.Height) / 2
	destCx := float64(out.Width) / 2
	destCy := float64(out.Height) / 2

	for y := 0; y < out.Height; y++ {
		// 以像素中心计算偏移
		dy := float64(y) + 0.5 - destCy
		for x := 0; x < out.Width; x++ {
			dx := float64(x) + 0.5 - destCx

			srcX := m.M00*dx + m.M01*dy + srcCx
			srcY := m.M10*dx + m.M11*dy + srcCy

			ix := int(math.Floor(srcX))
			iy := int(math.Floor(srcY))

			if ix >= 0 && ix < src.Width && iy >= 0 && iy < src.Height {
				out.Pix[y*out.Width+x] = src.Pix[iy*src.Width+ix]
			} else {
				out.Pix[y*out.Width+x] = canvas.White
			}
		}
	}
	return out
}

// FlipHorizontal 水平翻转
func FlipHorizontal(w, h int) AffineMatrix {
	return AffineMatrix{M00: -1, M01: 0, M10: 0, M11: 1, DestW: w, DestH: h}
}

// FlipVertical 垂直翻转
func FlipVertical(w, h int) AffineMatrix {
	return AffineMatrix{M00: 1, M01: 0, M10: 0, M11: -1, DestW: w, DestH: h}
}

// Rotate 旋转任意角度，目标尺寸为旋转后的包围盒
func Rotate(w, h int, degrees float64) AffineMatrix {
	rad := degrees * math.Pi / 180
	sin, cos := math.Sincos(rad)
	absSin, absCos := math.Abs(sin), math.Abs(cos)

	newW := int(math.Ceil(float64(w)*absCos + float64(h)*absSin - sizeEpsilon))
	newH := int(math.Ceil(float64(h)*absCos + float64(w)*absSin - sizeEpsilon))

	return AffineMatrix{
		M00: cos, M01: sin,
		M10: -sin, M11: cos,
		DestW: max(1, newW),
		DestH: max(1, newH),
	}
}

// Zoom 等比缩放，scale 必须为正
func Zoom(w, h int, scale float64) AffineMatrix {
	if scale <= 0 || math.IsNaN(scale) || math.IsInf(scale, 0) {
		scale = 1
	}
	return AffineMatrix{
		M00: 1 / scale, M01: 0,
		M10: 0, M11: 1 / scale,
		DestW: max(1, int(math.Round(float64(w)*scale))),
		DestH: max(1, int(math.Round(float64(h)*scale))),
	}
}

// FromForward 由正向矩阵 [[a,b],[c,d]] 求逆映射，目标尺寸取源画布四角变换后的包围盒
func FromForward(a, b, c, d float64, w, h int) (AffineMatrix, error) {
	fwd := mat.NewDense(2, 2, []float64{a, b, c, d})

	var inv mat.Dense
	if err := inv.Inverse(fwd); err != nil {
		return AffineMatrix{}, ErrSingularMatrix
	}

	hw, hh := float64(w)/2, float64(h)/2
	corners := mat.NewDense(2, 4, []float64{
		-hw, hw, -hw, hw,
		-hh, -hh, hh, hh,
	})
	var mapped mat.Dense
	mapped.Mul(fwd, corners)

	xs := mat.Row(nil, 0, &mapped)
	ys := mat.Row(nil, 1, &mapped)
	width := spread(xs)
	height := spread(ys)

	return AffineMatrix{
		M00: inv.At(0, 0), M01: inv.At(0, 1),
		M10: inv.At(1, 0), M11: inv.At(1, 1),
		DestW: max(1, int(math.Ceil(width-sizeEpsilon))),
		DestH: max(1, int(math.Ceil(height-sizeEpsilon))),
	}, nil
}

func spread(v []float64) float64 {
	lo, hi := v[0], v[0]
	for _, f := range v[1:] {
		lo = math.Min(lo, f)
		hi = math.Max(hi, f)
	}
	return hi - lo
}
