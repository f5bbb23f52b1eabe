package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/TIANLI0/LayerStudio/canvas"
	"github.com/TIANLI0/LayerStudio/config"
	"github.com/TIANLI0/LayerStudio/utils"
	"go.uber.org/zap"
)

// 抠图模式
const (
	ModeManual = "manual"
	ModeAI     = "ai"
	ModeAuto   = "auto"
)

// 实际产生结果的后端
const (
	BackendBuiltin = "builtin"
	BackendAI      = "ai"
	BackendGrabCut = "grabcut"
)

var ErrBackendUnavailable = errors.New("segmentation backend unavailable")

var (
	aiProbeOnce sync.Once
	aiProbePath string
)

// ProbeAIBackend 探测外部抠图命令是否可用，整个进程只探测一次
func ProbeAIBackend(cfg *config.SegmentConfig) (string, bool) {
	aiProbeOnce.Do(func() {
		path, err := exec.LookPath(cfg.AICommand)
		if err != nil {
			utils.Logger.Info("ai segmentation backend not found",
				zap.String("command", cfg.AICommand),
				zap.Error(err))
			return
		}
		aiProbePath = path
		utils.Logger.Info("ai segmentation backend detected", zap.String("path", path))
	})
	return aiProbePath, aiProbePath != ""
}

// ParseMode 未识别的模式按 manual 处理
func ParseMode(s string) string {
	switch m := strings.ToLower(strings.TrimSpace(s)); m {
	case ModeAI, ModeAuto:
		return m
	default:
		return ModeManual
	}
}

// ImageSegmenter 直接产出抠图结果的外部后端
type ImageSegmenter interface {
	Segment(ctx context.Context, src *canvas.Canvas) (*canvas.Canvas, error)
}

// MaskRefiner 在内置分割结果的基础上细化前景
type MaskRefiner interface {
	Refine(ctx context.Context, src *canvas.Canvas, seed *ForegroundMask) (*ForegroundMask, error)
}

// CommandSegmenter 通过外部命令抠图，参数中的 {input} 和 {output} 替换为临时文件路径
type CommandSegmenter struct {
	path    string
	args    []string
	timeout time.Duration
}

func NewCommandSegmenter(path string, cfg *config.SegmentConfig) *CommandSegmenter {
	return &CommandSegmenter{
		path:    path,
		args:    cfg.AIArgs,
		timeout: cfg.AITimeout,
	}
}

func (s *CommandSegmenter) Segment(ctx context.Context, src *canvas.Canvas) (*canvas.Canvas, error) {
	if s.path == "" {
		return nil, ErrBackendUnavailable
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	dir, err := os.MkdirTemp("", "layerstudio-seg-")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	input := filepath.Join(dir, "input.png")
	output := filepath.Join(dir, "output.png")

	data, err := canvas.Encode(src)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(input, data, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write input: %w", err)
	}

	args := make([]string, len(s.args))
	for i, a := range s.args {
		a = strings.ReplaceAll(a, "{input}", input)
		args[i] = strings.ReplaceAll(a, "{output}", output)
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, s.path, args...)
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("ai backend did not finish: %w", ctx.Err())
		}
		return nil, fmt.Errorf("ai backend failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	raw, err := os.ReadFile(output)
	if err != nil {
		return nil, fmt.Errorf("ai backend produced no output: %w", err)
	}
	result, _, err := canvas.Decode(raw)
	if err != nil {
		return nil, err
	}
	if !result.SameSize(src) {
		return nil, fmt.Errorf("ai backend returned %dx%d for a %dx%d image",
			result.Width, result.Height, src.Width, src.Height)
	}
	return result, nil
}

// SegmentResult 抠图结果及产生结果的后端
type SegmentResult struct {
	Canvas  *canvas.Canvas
	Backend string
}

// BackgroundRemover 按模式选择抠图后端，外部后端失败时回退到内置算法
type BackgroundRemover struct {
	defaultSensitivity int
	ai                 ImageSegmenter
	refiner            MaskRefiner
	semaphore          chan struct{}
	queueTimeout       time.Duration
}

// NewBackgroundRemover ai 或 refiner 为 nil 表示对应后端不可用
func NewBackgroundRemover(cfg *config.SegmentConfig, ai ImageSegmenter, refiner MaskRefiner) *BackgroundRemover {
	return &BackgroundRemover{
		defaultSensitivity: cfg.DefaultSensitivity,
		ai:                 ai,
		refiner:            refiner,
		semaphore:          make(chan struct{}, max(1, cfg.MaxConcurrent)),
		queueTimeout:       cfg.QueueTimeout,
	}
}

// Remove 不会失败，所有外部后端的问题都以内置算法结果兜底
func (r *BackgroundRemover) Remove(ctx context.Context, src *canvas.Canvas, mode string, sensitivity int) *SegmentResult {
	if sensitivity <= 0 {
		sensitivity = r.defaultSensitivity
	}
	mode = ParseMode(mode)

	if mode == ModeAI || (mode == ModeAuto && r.ai != nil) {
		out, err := r.runAI(ctx, src)
		if err == nil {
			return &SegmentResult{Canvas: out, Backend: BackendAI}
		}
		utils.Logger.Warn("ai segmentation failed, falling back",
			zap.String("mode", mode),
			zap.Error(err))
	}

	seed := ClassifyForeground(src, sensitivity).KeepLargest()
	utils.Logger.Debug("builtin segmentation",
		zap.Int("sensitivity", sensitivity),
		zap.Int("foreground_pixels", seed.Count()),
		zap.Stringer("bounds", seed.Bounds()))

	if mode == ModeAuto {
		refined, err := r.runRefiner(ctx, src, seed)
		if err == nil {
			return &SegmentResult{Canvas: refined.Apply(src), Backend: BackendGrabCut}
		}
		utils.Logger.Warn("grabcut refinement failed, falling back",
			zap.Error(err))
	}

	return &SegmentResult{Canvas: seed.Apply(src), Backend: BackendBuiltin}
}

func (r *BackgroundRemover) runAI(ctx context.Context, src *canvas.Canvas) (*canvas.Canvas, error) {
	if r.ai == nil {
		return nil, ErrBackendUnavailable
	}
	release, err := r.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()
	return r.ai.Segment(ctx, src)
}

func (r *BackgroundRemover) runRefiner(ctx context.Context, src *canvas.Canvas, seed *ForegroundMask) (*ForegroundMask, error) {
	if r.refiner == nil {
		return nil, ErrBackendUnavailable
	}
	release, err := r.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()
	return r.refiner.Refine(ctx, src, seed)
}

// acquire 外部后端并发控制，排队超时返回错误
func (r *BackgroundRemover) acquire(ctx context.Context) (func(), error) {
	if r.queueTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.queueTimeout)
		defer cancel()
	}

	select {
	case r.semaphore <- struct{}{}:
		return func() { <-r.semaphore }, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("处理队列已满，请稍后重试: %w", ctx.Err())
	}
}
