package service

import (
	"image"
	"math"

	"github.com/TIANLI0/LayerStudio/canvas"
)

// 分类阈值在灵敏度之上额外放宽的距离
const classificationSlack = 20

// ForegroundMask 与画布同尺寸的前景标记
type ForegroundMask struct {
	Width  int
	Height int
	Keep   []bool
}

func NewForegroundMask(w, h int) *ForegroundMask {
	return &ForegroundMask{Width: w, Height: h, Keep: make([]bool, w*h)}
}

// Count 前景像素数量
func (m *ForegroundMask) Count() int {
	n := 0
	for _, k := range m.Keep {
		if k {
			n++
		}
	}
	return n
}

// Bounds 前景像素的外接矩形，没有前景时返回空矩形
func (m *ForegroundMask) Bounds() image.Rectangle {
	var r image.Rectangle
	found := false
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			if !m.Keep[y*m.Width+x] {
				continue
			}
			p := image.Rect(x, y, x+1, y+1)
			if !found {
				r, found = p, true
			} else {
				r = r.Union(p)
			}
		}
	}
	return r
}

// KeepLargest 只保留最大的4连通区域，面积相同时保留按行扫描先遇到的区域
func (m *ForegroundMask) KeepLargest() *ForegroundMask {
	w, h := m.Width, m.Height
	labels := make([]int32, w*h)
	queue := make([]int, 0, 64)

	var label, bestLabel int32
	bestSize := 0

	for start, keep := range m.Keep {
		if !keep || labels[start] != 0 {
			continue
		}
		label++
		labels[start] = label
		queue = append(queue[:0], start)
		size := 0

		for len(queue) > 0 {
			i := queue[0]
			queue = queue[1:]
			size++

			x, y := i%w, i/w
			for _, n := range [4][2]int{{x - 1, y}, {x + 1, y}, {x, y - 1}, {x, y + 1}} {
				nx, ny := n[0], n[1]
				if nx < 0 || ny < 0 || nx >= w || ny >= h {
					continue
				}
				j := ny*w + nx
				if m.Keep[j] && labels[j] == 0 {
					labels[j] = label
					queue = append(queue, j)
				}
			}
		}

		if size > bestSize {
			bestSize, bestLabel = size, label
		}
	}

	out := NewForegroundMask(w, h)
	if bestLabel == 0 {
		return out
	}
	for i, l := range labels {
		out.Keep[i] = l == bestLabel
	}
	return out
}

// Apply 保留前景像素的颜色并设为不透明，其余像素完全透明
func (m *ForegroundMask) Apply(src *canvas.Canvas) *canvas.Canvas {
	out := canvas.New(src.Width, src.Height)
	for i, keep := range m.Keep {
		if !keep {
			out.Pix[i] = canvas.Transparent
			continue
		}
		out.Pix[i] = src.Pix[i] | 0xFF000000
	}
	return out
}

// SampleBackground 以上下两行按步长采样的平均色作为背景参考色
func SampleBackground(src *canvas.Canvas) (r, g, b int) {
	stride := max(1, src.Width/20)
	var sumR, sumG, sumB, n int

	for _, y := range []int{0, src.Height - 1} {
		for x := 0; x < src.Width; x += stride {
			_, pr, pg, pb := canvas.Unpack(src.At(x, y))
			sumR += int(pr)
			sumG += int(pg)
			sumB += int(pb)
			n++
		}
	}
	return sumR / n, sumG / n, sumB / n
}

// ClassifyForeground 与参考色距离超过 sensitivity+20 的像素视为前景
func ClassifyForeground(src *canvas.Canvas, sensitivity int) *ForegroundMask {
	refR, refG, refB := SampleBackground(src)
	threshold := float64(sensitivity + classificationSlack)

	mask := NewForegroundMask(src.Width, src.Height)
	for i, p := range src.Pix {
		_, r, g, b := canvas.Unpack(p)
		dr := float64(int(r) - refR)
		dg := float64(int(g) - refG)
		db := float64(int(b) - refB)
		mask.Keep[i] = math.Sqrt(dr*dr+dg*dg+db*db) > threshold
	}
	return mask
}

// Segment 内置抠图：背景色分类后只保留最大前景连通区域
func Segment(src *canvas.Canvas, sensitivity int) *canvas.Canvas {
	return ClassifyForeground(src, sensitivity).KeepLargest().Apply(src)
}
