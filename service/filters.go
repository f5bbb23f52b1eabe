package service

import (
	"errors"
	"fmt"
	"image/color"
	"math"

	"github.com/TIANLI0/LayerStudio/canvas"
	"github.com/TIANLI0/LayerStudio/model"
	"github.com/disintegration/imaging"
)

// ErrUnknownFilter 不支持的滤镜类型
var ErrUnknownFilter = errors.New("unknown filter type")

// 滤镜类型
const (
	FilterBrightness = "brightness"
	FilterContrast   = "contrast"
	FilterBlur       = "blur"
	FilterSharpen    = "sharpen"
	FilterGrayscale  = "grayscale"
)

// FilterApplier 逐像素色调滤镜，必须无副作用且结果确定
type FilterApplier interface {
	Apply(kind string, c *canvas.Canvas, params map[string]string) (*canvas.Canvas, error)
}

// ToneFilters 基于 imaging 的滤镜实现
type ToneFilters struct{}

func NewToneFilters() *ToneFilters {
	return &ToneFilters{}
}

// Apply 对画布副本应用滤镜
func (f *ToneFilters) Apply(kind string, c *canvas.Canvas, params map[string]string) (*canvas.Canvas, error) {
	img := c.NRGBA()

	switch kind {
	case FilterBrightness:
		level := int(model.ParamValue(params, "level"))
		return canvas.FromImage(imaging.AdjustFunc(img, func(p color.NRGBA) color.NRGBA {
			return color.NRGBA{
				R: clamp8(int(p.R) + level),
				G: clamp8(int(p.G) + level),
				B: clamp8(int(p.B) + level),
				A: p.A,
			}
		})), nil

	case FilterContrast:
		level := math.Max(-255, math.Min(258, model.ParamValue(params, "level")))
		factor := (259 * (level + 255)) / (255 * (259 - level))
		return canvas.FromImage(imaging.AdjustFunc(img, func(p color.NRGBA) color.NRGBA {
			return color.NRGBA{
				R: clamp8(int(factor*(float64(p.R)-128) + 128)),
				G: clamp8(int(factor*(float64(p.G)-128) + 128)),
				B: clamp8(int(factor*(float64(p.B)-128) + 128)),
				A: p.A,
			}
		})), nil

	case FilterBlur:
		sigma := math.Max(1, model.ParamValue(params, "intensity"))
		return canvas.FromImage(imaging.Blur(img, sigma)), nil

	case FilterSharpen:
		center := 5 + model.ParamValue(params, "intensity")
		kernel := [9]float64{
			0, -1, 0,
			-1, center, -1,
			0, -1, 0,
		}
		return canvas.FromImage(imaging.Convolve3x3(img, kernel, nil)), nil

	case FilterGrayscale:
		return canvas.FromImage(imaging.Grayscale(img)), nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFilter, kind)
	}
}

func clamp8(v int) uint8 {
	return uint8(min(255, max(0, v)))
}
