package service

import (
	"context"
	"testing"

	"github.com/TIANLI0/LayerStudio/canvas"
	"github.com/TIANLI0/LayerStudio/config"
)

func newTestGrabCut() *GrabCutService {
	cfg := config.Default().Segment
	cfg.GrabCutIterations = 3
	cfg.GrabCutBorder = 4
	return NewGrabCutService(&cfg)
}

func TestGrabCutRefineSquare(t *testing.T) {
	src := scene(60, 60, [5]int{20, 20, 20, 20, red})
	seed := ClassifyForeground(src, 30).KeepLargest()

	refined, err := newTestGrabCut().Refine(context.Background(), src, seed)
	if err != nil {
		t.Fatalf("Refine: %v", err)
	}
	if refined.Width != 60 || refined.Height != 60 {
		t.Fatalf("mask size = %dx%d", refined.Width, refined.Height)
	}
	if !refined.Keep[30*60+30] {
		t.Error("center of the square should be foreground")
	}
	if refined.Keep[0] || refined.Keep[59*60+59] {
		t.Error("corners should be background")
	}
}

func TestGrabCutRefineNoSeed(t *testing.T) {
	src := canvas.Filled(30, 30, canvas.White)
	seed := NewForegroundMask(30, 30)
	if _, err := newTestGrabCut().Refine(context.Background(), src, seed); err == nil {
		t.Error("uniform image without seed should fail")
	}
}

func TestGrabCutRefineCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := scene(30, 30, [5]int{10, 10, 10, 10, red})
	if _, err := newTestGrabCut().Refine(ctx, src, ClassifyForeground(src, 30)); err == nil {
		t.Error("canceled context should fail")
	}
}

func TestSeedInside(t *testing.T) {
	seed := NewForegroundMask(10, 10)
	seed.Keep[0] = true
	if n := seedInside(seed, 2); n != 0 {
		t.Errorf("border pixel counted: %d", n)
	}
	seed.Keep[5*10+5] = true
	if n := seedInside(seed, 2); n != 1 {
		t.Errorf("seedInside = %d, want 1", n)
	}
}

func TestComplexityIterations(t *testing.T) {
	tests := []struct {
		level string
		base  int
		want  int
	}{
		{ComplexitySimple, 5, 3},
		{ComplexitySimple, 2, 1},
		{ComplexityMedium, 5, 5},
		{ComplexityComplex, 5, 7},
	}
	for _, tt := range tests {
		if got := (ComplexityInfo{Level: tt.level}).Iterations(tt.base); got != tt.want {
			t.Errorf("%s(%d) = %d, want %d", tt.level, tt.base, got, tt.want)
		}
	}
}
