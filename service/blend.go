package service

import (
	"math"

	"github.com/TIANLI0/LayerStudio/canvas"
)

// Blend 非预乘 alpha 的 Porter-Duff source-over 合成，overlay 的 alpha 先乘以 opacity
// 两个画布尺寸必须一致
func Blend(base, overlay *canvas.Canvas, opacity float64) *canvas.Canvas {
	opacity = clampUnit(opacity)
	out := canvas.New(base.Width, base.Height)

	for i, b := range base.Pix {
		out.Pix[i] = sourceOver(b, overlay.Pix[i], opacity)
	}
	return out
}

func sourceOver(base, over uint32, opacity float64) uint32 {
	bA, bR, bG, bB := unit(base)
	oA, oR, oG, oB := unit(over)

	oA *= opacity
	outA := oA + bA*(1-oA)
	if outA <= 0 {
		return canvas.Transparent
	}

	keep := bA * (1 - oA)
	r := (oR*oA + bR*keep) / outA
	g := (oG*oA + bG*keep) / outA
	b := (oB*oA + bB*keep) / outA

	return canvas.Pack(to8(outA), to8(r), to8(g), to8(b))
}

func unit(p uint32) (a, r, g, b float64) {
	pa, pr, pg, pb := canvas.Unpack(p)
	return float64(pa) / 255, float64(pr) / 255, float64(pg) / 255, float64(pb) / 255
}

func to8(v float64) uint8 {
	return uint8(math.Round(clampUnit(v) * 255))
}

func clampUnit(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Min(1, math.Max(0, v))
}
