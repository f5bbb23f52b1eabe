package service

import (
	"encoding/base64"
	"fmt"
	"image"
	"math"
	"strings"

	"github.com/TIANLI0/LayerStudio/canvas"
	"github.com/TIANLI0/LayerStudio/model"
	"github.com/TIANLI0/LayerStudio/utils"
	"github.com/lucasb-eyer/go-colorful"
	"go.uber.org/zap"
	xdraw "golang.org/x/image/draw"
)

// Compositor 自底向上依次合成图层
type Compositor struct {
	filters   FilterApplier
	maxPixels int
}

// NewCompositor maxPixels 限制图片图层解码前声明的像素数，<=0 不限制
func NewCompositor(filters FilterApplier, maxPixels int) *Compositor {
	return &Compositor{filters: filters, maxPixels: maxPixels}
}

// Compose 将图层栈依次叠加到 base 的副本上，输出尺寸与 base 相同
func (c *Compositor) Compose(base *canvas.Canvas, layers []model.LayerDescriptor) *canvas.Canvas {
	current := base.Clone()

	for i, layer := range layers {
		if !layer.Visible {
			utils.Logger.Debug("skipping hidden layer", zap.Int("index", i))
			continue
		}

		overlay, err := c.renderOverlay(current, layer)
		if err != nil {
			utils.Logger.Warn("layer ignored",
				zap.Int("index", i),
				zap.String("type", string(layer.Kind)),
				zap.Error(err))
			continue
		}

		utils.Logger.Debug("blending layer",
			zap.Int("index", i),
			zap.String("type", string(layer.Kind)),
			zap.Float64("opacity", layer.Opacity))
		current = Blend(current, overlay, layer.Opacity)
	}
	return current
}

// renderOverlay 生成与当前画布同尺寸的图层内容
func (c *Compositor) renderOverlay(current *canvas.Canvas, layer model.LayerDescriptor) (*canvas.Canvas, error) {
	w, h := current.Width, current.Height

	switch layer.Kind {
	case model.KindColor:
		return canvas.Filled(w, h, opaque(ParseHexColor(layer.Color))), nil

	case model.KindGradient:
		return LinearGradient(w, h, ParseHexColor(layer.GradientStart), ParseHexColor(layer.GradientEnd), layer.GradientAngle), nil

	case model.KindImage:
		img, err := DecodeImageData(layer.ImageData, c.maxPixels)
		if err != nil {
			return nil, err
		}
		return ResampleNearest(img, w, h), nil

	case model.KindFilter:
		if c.filters == nil {
			return nil, fmt.Errorf("no filter backend configured")
		}
		out, err := c.filters.Apply(layer.FilterType, current.Clone(), layer.Params)
		if err != nil {
			return nil, err
		}
		if out == nil {
			return nil, fmt.Errorf("filter %q returned no image", layer.FilterType)
		}
		if !out.SameSize(current) {
			utils.Logger.Debug("resampling filter output",
				zap.String("filter", layer.FilterType),
				zap.Int("width", out.Width),
				zap.Int("height", out.Height))
			out = ResampleNearest(out, w, h)
		}
		return out, nil

	default:
		return nil, fmt.Errorf("unsupported layer type")
	}
}

// ParseHexColor 解析 6 位十六进制颜色，# 可省略，无法解析时返回黑色
func ParseHexColor(hex string) colorful.Color {
	hex = strings.TrimPrefix(strings.TrimSpace(hex), "#")
	if len(hex) != 6 {
		return colorful.Color{}
	}
	col, err := colorful.Hex("#" + hex)
	if err != nil {
		return colorful.Color{}
	}
	return col
}

func opaque(col colorful.Color) uint32 {
	r, g, b := col.Clamped().RGB255()
	return canvas.Pack(255, r, g, b)
}

// LinearGradient 沿角度方向的线性渐变，端点取中心两侧半对角线长度以覆盖整个画布
func LinearGradient(w, h int, start, end colorful.Color, angleDegrees int) *canvas.Canvas {
	out := canvas.New(w, h)

	rad := float64(angleDegrees) * math.Pi / 180
	dirY, dirX := math.Sincos(rad)
	half := math.Hypot(float64(w), float64(h)) / 2

	cx, cy := float64(w)/2, float64(h)/2
	x0, y0 := cx-half*dirX, cy-half*dirY
	length := 2 * half

	for y := 0; y < h; y++ {
		py := float64(y) + 0.5
		for x := 0; x < w; x++ {
			px := float64(x) + 0.5
			t := ((px-x0)*dirX + (py-y0)*dirY) / length
			t = math.Min(1, math.Max(0, t))
			out.Pix[y*w+x] = opaque(start.BlendRgb(end, t))
		}
	}
	return out
}

// DecodeImageData 解码 base64 图片，自动去掉 data URL 头，maxPixels<=0 不限制尺寸
func DecodeImageData(data string, maxPixels int) (*canvas.Canvas, error) {
	payload := strings.TrimSpace(data)
	if strings.HasPrefix(payload, "data:") {
		if i := strings.Index(payload, ","); i >= 0 {
			payload = payload[i+1:]
		}
	}
	payload = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\n', '\r', '\t':
			return -1
		}
		return r
	}, payload)
	if payload == "" {
		return nil, fmt.Errorf("empty image data")
	}

	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		raw, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
	}
	if err != nil {
		return nil, fmt.Errorf("invalid base64 image data: %w", err)
	}

	img, _, err := canvas.DecodeLimited(raw, maxPixels)
	if err != nil {
		return nil, err
	}
	return img, nil
}

// ResampleNearest 最近邻缩放到指定尺寸
func ResampleNearest(src *canvas.Canvas, w, h int) *canvas.Canvas {
	if src.Width == w && src.Height == h {
		return src.Clone()
	}
	img := src.NRGBA()
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	xdraw.NearestNeighbor.Scale(dst, dst.Bounds(), img, img.Bounds(), xdraw.Src, nil)
	return canvas.FromImage(dst)
}
