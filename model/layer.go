package model

import (
	"math"
	"strconv"
	"strings"
)

// LayerKind 图层类型
type LayerKind string

const (
	KindColor    LayerKind = "color"
	KindGradient LayerKind = "gradient"
	KindImage    LayerKind = "image"
	KindFilter   LayerKind = "filter"
	KindUnknown  LayerKind = "unknown"
)

// 图层字段默认值
const (
	DefaultOpacity       = 1.0
	DefaultGradientAngle = 90
)

// LayerDescriptor 合成栈中的单个图层描述
type LayerDescriptor struct {
	Kind    LayerKind `json:"type"`
	Visible bool      `json:"visible"`
	Opacity float64   `json:"opacity"`

	Color string `json:"color,omitempty"`

	GradientStart string `json:"gradientStart,omitempty"`
	GradientEnd   string `json:"gradientEnd,omitempty"`
	GradientAngle int    `json:"gradientAngle,omitempty"`

	ImageData string `json:"imageData,omitempty"`

	FilterType string            `json:"filterType,omitempty"`
	Params     map[string]string `json:"params,omitempty"`
}

// NewLayerDescriptor 返回全部字段为默认值的描述
func NewLayerDescriptor() LayerDescriptor {
	return LayerDescriptor{
		Kind:          KindUnknown,
		Visible:       true,
		Opacity:       DefaultOpacity,
		GradientAngle: DefaultGradientAngle,
		Params:        map[string]string{},
	}
}

// ParseLayerKind 未识别的类型统一归为 KindUnknown
func ParseLayerKind(s string) LayerKind {
	switch k := LayerKind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindColor, KindGradient, KindImage, KindFilter:
		return k
	default:
		return KindUnknown
	}
}

// Param 读取数值参数，缺失或无法解析时返回0
func (l LayerDescriptor) Param(key string) float64 {
	return ParamValue(l.Params, key)
}

// ParamValue 从字符串参数表中读取数值，缺失或无法解析时返回0
func ParamValue(params map[string]string, key string) float64 {
	v, ok := params[key]
	if !ok {
		return 0
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}
