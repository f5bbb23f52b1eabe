package canvas

import (
	"image"
	"image/color"
)

// 常用像素值
const (
	White       uint32 = 0xFFFFFFFF
	Transparent uint32 = 0x00000000
)

// Canvas 行优先的 ARGB 像素缓冲区，alpha 未预乘
type Canvas struct {
	Width  int
	Height int
	Pix    []uint32
}

// New 创建全透明画布，宽高小于1时按1处理
func New(width, height int) *Canvas {
	width = max(1, width)
	height = max(1, height)
	return &Canvas{
		Width:  width,
		Height: height,
		Pix:    make([]uint32, width*height),
	}
}

// Filled 创建纯色画布
func Filled(width, height int, argb uint32) *Canvas {
	c := New(width, height)
	for i := range c.Pix {
		c.Pix[i] = argb
	}
	return c
}

func (c *Canvas) At(x, y int) uint32 {
	return c.Pix[y*c.Width+x]
}

func (c *Canvas) Set(x, y int, argb uint32) {
	c.Pix[y*c.Width+x] = argb
}

// Clone 深拷贝
func (c *Canvas) Clone() *Canvas {
	out := &Canvas{Width: c.Width, Height: c.Height, Pix: make([]uint32, len(c.Pix))}
	copy(out.Pix, c.Pix)
	return out
}

// SameSize 判断两个画布尺寸是否一致
func (c *Canvas) SameSize(o *Canvas) bool {
	return c.Width == o.Width && c.Height == o.Height
}

// Crop 截取子矩阵，越界部分会被裁掉
func (c *Canvas) Crop(x, y, w, h int) *Canvas {
	x = clamp(x, 0, c.Width-1)
	y = clamp(y, 0, c.Height-1)
	w = clamp(w, 1, c.Width-x)
	h = clamp(h, 1, c.Height-y)

	out := New(w, h)
	for row := 0; row < h; row++ {
		src := (y+row)*c.Width + x
		copy(out.Pix[row*w:(row+1)*w], c.Pix[src:src+w])
	}
	return out
}

// Linear 返回像素矩阵的线性展开，前端直接按 ARGB 整数渲染
func (c *Canvas) Linear() []uint32 {
	out := make([]uint32, len(c.Pix))
	copy(out, c.Pix)
	return out
}

// NRGBA 转换为标准库图像
func (c *Canvas) NRGBA() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, c.Width, c.Height))
	for i, p := range c.Pix {
		a, r, g, b := Unpack(p)
		j := i * 4
		img.Pix[j] = r
		img.Pix[j+1] = g
		img.Pix[j+2] = b
		img.Pix[j+3] = a
	}
	return img
}

// FromImage 从任意 image.Image 构建画布
func FromImage(img image.Image) *Canvas {
	b := img.Bounds()
	c := New(b.Dx(), b.Dy())

	if nrgba, ok := img.(*image.NRGBA); ok {
		for y := 0; y < c.Height; y++ {
			row := nrgba.Pix[(y+b.Min.Y-nrgba.Rect.Min.Y)*nrgba.Stride:]
			for x := 0; x < c.Width; x++ {
				j := (x + b.Min.X - nrgba.Rect.Min.X) * 4
				c.Pix[y*c.Width+x] = Pack(row[j+3], row[j], row[j+1], row[j+2])
			}
		}
		return c
	}

	for y := 0; y < c.Height; y++ {
		for x := 0; x < c.Width; x++ {
			n := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			c.Pix[y*c.Width+x] = Pack(n.A, n.R, n.G, n.B)
		}
	}
	return c
}

// Pack 组装 ARGB 像素
func Pack(a, r, g, b uint8) uint32 {
	return uint32(a)<<24 | uint32(r)<<16 | uint32(g)<<8 | uint32(b)
}

// Unpack 拆分 ARGB 像素
func Unpack(p uint32) (a, r, g, b uint8) {
	return uint8(p >> 24), uint8(p >> 16), uint8(p >> 8), uint8(p)
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	return min(max(v, lo), hi)
}
