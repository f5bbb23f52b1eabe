package service

import (
	"errors"
	"testing"

	"github.com/TIANLI0/LayerStudio/canvas"
)

func TestToneFilters(t *testing.T) {
	f := NewToneFilters()
	gray := canvas.Pack(200, 100, 100, 100)

	tests := []struct {
		name   string
		kind   string
		params map[string]string
		want   uint32
	}{
		{"brightness up", FilterBrightness, map[string]string{"level": "40"}, canvas.Pack(200, 140, 140, 140)},
		{"brightness clamps", FilterBrightness, map[string]string{"level": "400"}, canvas.Pack(200, 255, 255, 255)},
		{"brightness bad level", FilterBrightness, map[string]string{"level": "x"}, gray},
		{"contrast zero", FilterContrast, map[string]string{"level": "0"}, gray},
		{"contrast max", FilterContrast, map[string]string{"level": "258"}, canvas.Pack(200, 0, 0, 0)},
		{"blur uniform", FilterBlur, map[string]string{"intensity": "3"}, gray},
		{"sharpen uniform", FilterSharpen, nil, gray},
		{"grayscale gray", FilterGrayscale, nil, gray},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := canvas.Filled(5, 5, gray)
			out, err := f.Apply(tt.kind, src, tt.params)
			if err != nil {
				t.Fatalf("Apply: %v", err)
			}
			if got := out.At(2, 2); got != tt.want {
				t.Errorf("pixel = %#08x, want %#08x", got, tt.want)
			}
			uniform(t, src, gray)
		})
	}
}

func TestToneFiltersUnknown(t *testing.T) {
	_, err := NewToneFilters().Apply("posterize", canvas.New(2, 2), nil)
	if !errors.Is(err, ErrUnknownFilter) {
		t.Errorf("err = %v, want ErrUnknownFilter", err)
	}
}

func TestSharpenIncreasesEdgeContrast(t *testing.T) {
	src := canvas.Filled(6, 6, canvas.Pack(255, 100, 100, 100))
	for y := 0; y < 6; y++ {
		for x := 3; x < 6; x++ {
			src.Set(x, y, canvas.Pack(255, 150, 150, 150))
		}
	}

	out, err := NewToneFilters().Apply(FilterSharpen, src, map[string]string{"intensity": "0"})
	if err != nil {
		t.Fatal(err)
	}
	_, dark, _, _ := canvas.Unpack(out.At(2, 3))
	_, light, _, _ := canvas.Unpack(out.At(3, 3))
	if dark >= 100 || light <= 150 {
		t.Errorf("edge = %d/%d, want overshoot on both sides", dark, light)
	}
}
