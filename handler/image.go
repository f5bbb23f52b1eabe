package handler

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/TIANLI0/LayerStudio/canvas"
	"github.com/TIANLI0/LayerStudio/config"
	"github.com/TIANLI0/LayerStudio/model"
	"github.com/TIANLI0/LayerStudio/service"
	"github.com/TIANLI0/LayerStudio/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// errTooLarge 输出尺寸超过 composite.max_pixels
var errTooLarge = errors.New("output image too large")

// output 一次处理的结果
type output struct {
	canvas  *canvas.Canvas
	backend string
	layers  int
}

type renderFunc func(ctx context.Context, src *canvas.Canvas) (*output, error)

type ImageHandler struct {
	cfg        *config.Config
	cache      *service.RedisService
	remover    *service.BackgroundRemover
	filters    service.FilterApplier
	compositor *service.Compositor
}

// NewImageHandler cache 为 nil 时不使用缓存
func NewImageHandler(cfg *config.Config, cache *service.RedisService, remover *service.BackgroundRemover, filters service.FilterApplier) *ImageHandler {
	return &ImageHandler{
		cfg:        cfg,
		cache:      cache,
		remover:    remover,
		filters:    filters,
		compositor: service.NewCompositor(filters, cfg.Composite.MaxPixels),
	}
}

// Register 挂载图片处理路由
func (h *ImageHandler) Register(g *gin.RouterGroup) {
	g.POST("/rotate", h.Rotate)
	g.POST("/flip/horizontal", h.FlipHorizontal)
	g.POST("/flip/vertical", h.FlipVertical)
	g.POST("/zoom", h.Zoom)
	g.POST("/matrix", h.Matrix)
	g.POST("/crop", h.Crop)
	g.POST("/is-square", h.IsSquare)
	g.POST("/filter/:kind", h.Filter)
	g.POST("/remove-background", h.RemoveBackground)
	g.POST("/composite-layers", h.CompositeLayers)
}

// Rotate 按角度旋转，画布扩展到能容纳旋转后的图像
func (h *ImageHandler) Rotate(c *gin.Context) {
	h.render(c, "rotate", []string{"angle"}, func(ctx context.Context, src *canvas.Canvas) (*output, error) {
		angle := formFloat(c, "angle", 0)
		return h.transform(src, service.Rotate(src.Width, src.Height, angle))
	})
}

func (h *ImageHandler) FlipHorizontal(c *gin.Context) {
	h.render(c, "flip-horizontal", nil, func(ctx context.Context, src *canvas.Canvas) (*output, error) {
		return h.transform(src, service.FlipHorizontal(src.Width, src.Height))
	})
}

func (h *ImageHandler) FlipVertical(c *gin.Context) {
	h.render(c, "flip-vertical", nil, func(ctx context.Context, src *canvas.Canvas) (*output, error) {
		return h.transform(src, service.FlipVertical(src.Width, src.Height))
	})
}

// Zoom 等比缩放，scale 非法时按 1 处理
func (h *ImageHandler) Zoom(c *gin.Context) {
	h.render(c, "zoom", []string{"scale"}, func(ctx context.Context, src *canvas.Canvas) (*output, error) {
		scale := formFloat(c, "scale", 1)
		return h.transform(src, service.Zoom(src.Width, src.Height, scale))
	})
}

// Matrix 任意 2x2 正向变换矩阵，默认单位矩阵
func (h *ImageHandler) Matrix(c *gin.Context) {
	h.render(c, "matrix", []string{"m00", "m01", "m10", "m11"}, func(ctx context.Context, src *canvas.Canvas) (*output, error) {
		m, err := service.FromForward(
			formFloat(c, "m00", 1), formFloat(c, "m01", 0),
			formFloat(c, "m10", 0), formFloat(c, "m11", 1),
			src.Width, src.Height)
		if err != nil {
			return nil, err
		}
		return h.transform(src, m)
	})
}

// Crop 裁剪区域会被限制在图像范围内
func (h *ImageHandler) Crop(c *gin.Context) {
	h.render(c, "crop", []string{"x", "y", "w", "h"}, func(ctx context.Context, src *canvas.Canvas) (*output, error) {
		x := formInt(c, "x", 0)
		y := formInt(c, "y", 0)
		w := formInt(c, "w", src.Width)
		hgt := formInt(c, "h", src.Height)
		return &output{canvas: src.Crop(x, y, w, hgt)}, nil
	})
}

// IsSquare 判断图片宽高是否相等
func (h *ImageHandler) IsSquare(c *gin.Context) {
	up, ok := readUpload(c, &h.cfg.Upload, h.cfg.Composite.MaxPixels)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, model.SquareResponse{
		Success: true,
		Square:  up.canvas.Width == up.canvas.Height,
		Width:   up.canvas.Width,
		Height:  up.canvas.Height,
	})
}

// Filter 单独应用一个色调滤镜
func (h *ImageHandler) Filter(c *gin.Context) {
	kind := strings.ToLower(c.Param("kind"))
	h.render(c, "filter-"+kind, []string{"level", "intensity"}, func(ctx context.Context, src *canvas.Canvas) (*output, error) {
		params := map[string]string{
			"level":     c.PostForm("level"),
			"intensity": c.PostForm("intensity"),
		}
		out, err := h.filters.Apply(kind, src, params)
		if err != nil {
			return nil, err
		}
		return &output{canvas: out}, nil
	})
}

// RemoveBackground 抠图，mode 为 manual/ai/auto，sensitivity<=0 使用默认值
func (h *ImageHandler) RemoveBackground(c *gin.Context) {
	h.render(c, "remove-background", []string{"mode", "sensitivity"}, func(ctx context.Context, src *canvas.Canvas) (*output, error) {
		mode := c.DefaultPostForm("mode", service.ModeManual)
		sensitivity := formInt(c, "sensitivity", 0)
		res := h.remover.Remove(ctx, src, mode, sensitivity)
		return &output{canvas: res.Canvas, backend: res.Backend}, nil
	})
}

// CompositeLayers 将 layers 描述的图层栈合成到上传图片上
func (h *ImageHandler) CompositeLayers(c *gin.Context) {
	h.render(c, "composite-layers", []string{"layers"}, func(ctx context.Context, src *canvas.Canvas) (*output, error) {
		layers := service.ParseLayers(c.PostForm("layers"))
		if limit := h.cfg.Composite.MaxLayers; limit > 0 && len(layers) > limit {
			return nil, fmt.Errorf("too many layers: %d > %d", len(layers), limit)
		}
		if err := h.checkPixels(src.Width, src.Height); err != nil {
			return nil, err
		}
		return &output{canvas: h.compositor.Compose(src, layers), layers: len(layers)}, nil
	})
}

// transform 检查输出尺寸后执行仿射变换
func (h *ImageHandler) transform(src *canvas.Canvas, m service.AffineMatrix) (*output, error) {
	if err := h.checkPixels(m.DestW, m.DestH); err != nil {
		return nil, err
	}
	return &output{canvas: service.Transform(src, m)}, nil
}

func (h *ImageHandler) checkPixels(w, hgt int) error {
	limit := h.cfg.Composite.MaxPixels
	if limit > 0 && w*hgt > limit {
		return fmt.Errorf("%w: %dx%d exceeds %d pixels", errTooLarge, w, hgt, limit)
	}
	return nil
}

// render 读取上传、查缓存、处理并返回结果，keys 中的表单值参与缓存键计算
func (h *ImageHandler) render(c *gin.Context, op string, keys []string, fn renderFunc) {
	up, ok := readUpload(c, &h.cfg.Upload, h.cfg.Composite.MaxPixels)
	if !ok {
		return
	}

	grayscale := formBool(c, "grayscale")
	linear := formBool(c, "linear")
	parts := []string{op, strconv.FormatBool(grayscale), strconv.FormatBool(linear)}
	for _, k := range keys {
		parts = append(parts, k+"="+c.PostForm(k))
	}
	cacheKey := utils.RequestKey(up.data, parts...)
	ctx := c.Request.Context()

	if h.cache != nil {
		cached, err := h.cache.GetResult(ctx, cacheKey)
		if err != nil {
			utils.Logger.Warn("failed to get cache", zap.Error(err))
		}
		if cached != nil {
			utils.Logger.Info("cache hit", zap.String("op", op), zap.String("cache_key", cacheKey))
			c.JSON(http.StatusOK, model.ImageResponse{
				Success: true,
				Message: "处理成功（来自缓存）",
				Data:    cached,
			})
			return
		}
	}

	src := up.canvas
	if grayscale {
		gray, err := h.filters.Apply(service.FilterGrayscale, src, nil)
		if err != nil {
			utils.Logger.Warn("grayscale pre-pass failed", zap.Error(err))
		} else {
			src = gray
		}
	}

	startTime := time.Now()
	out, err := fn(ctx, src)
	if err != nil {
		utils.Logger.Warn("image operation rejected",
			zap.String("op", op),
			zap.String("md5", up.md5),
			zap.Error(err))
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Success: false,
			Message: "图片处理失败",
			Error:   err.Error(),
		})
		return
	}

	encoded, err := canvas.Encode(out.canvas)
	if err != nil {
		utils.Logger.Error("failed to encode result", zap.Error(err))
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Success: false,
			Message: "图片编码失败",
			Error:   err.Error(),
		})
		return
	}

	result := &model.ImageResult{
		MD5:       up.md5,
		Width:     out.canvas.Width,
		Height:    out.canvas.Height,
		Image:     base64.StdEncoding.EncodeToString(encoded),
		Backend:   out.backend,
		Layers:    out.layers,
		Timestamp: time.Now().Unix(),
	}
	if linear {
		result.Linear = out.canvas.Linear()
	}

	utils.Logger.Info("image processed successfully",
		zap.String("op", op),
		zap.String("md5", up.md5),
		zap.Int("width", result.Width),
		zap.Int("height", result.Height),
		zap.String("backend", out.backend),
		zap.Duration("duration", time.Since(startTime)))

	if h.cache != nil {
		if err := h.cache.SetResult(ctx, cacheKey, result); err != nil {
			utils.Logger.Warn("failed to set cache", zap.Error(err))
		}
	}

	c.JSON(http.StatusOK, model.ImageResponse{
		Success: true,
		Message: "处理成功",
		Data:    result,
	})
}

// formFloat 表单数值，缺失或无法解析时返回默认值
func formFloat(c *gin.Context, key string, def float64) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(c.PostForm(key)), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return def
	}
	return v
}

func formInt(c *gin.Context, key string, def int) int {
	v, err := strconv.Atoi(strings.TrimSpace(c.PostForm(key)))
	if err != nil {
		return def
	}
	return v
}

func formBool(c *gin.Context, key string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(c.PostForm(key)))
	return err == nil && v
}
