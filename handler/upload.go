package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/TIANLI0/LayerStudio/canvas"
	"github.com/TIANLI0/LayerStudio/config"
	"github.com/TIANLI0/LayerStudio/model"
	"github.com/TIANLI0/LayerStudio/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// upload 已校验并解码的上传图片
type upload struct {
	data   []byte
	canvas *canvas.Canvas
	md5    string
}

// readUpload 读取表单中的 image 字段，失败时已写出错误响应
// 图片头声明的像素数超过 maxPixels 时不解码
func readUpload(c *gin.Context, cfg *config.UploadConfig, maxPixels int) (*upload, bool) {
	file, err := c.FormFile("image")
	if err != nil {
		utils.Logger.Error("failed to get uploaded file", zap.Error(err))
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Success: false,
			Message: "请上传图片文件",
			Error:   err.Error(),
		})
		return nil, false
	}

	// 验证文件大小
	if cfg.MaxSize > 0 && file.Size > cfg.MaxSize {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Success: false,
			Message: fmt.Sprintf("文件大小超过限制 (%d MB)", cfg.MaxSize/(1024*1024)),
		})
		return nil, false
	}

	// 验证文件类型
	contentType := file.Header.Get("Content-Type")
	if !isAllowedType(cfg.AllowedTypes, contentType) {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Success: false,
			Message: "不支持的文件类型，仅支持 JPEG/PNG",
		})
		return nil, false
	}

	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Success: false,
			Message: "读取文件失败",
			Error:   err.Error(),
		})
		return nil, false
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Success: false,
			Message: "读取文件失败",
			Error:   err.Error(),
		})
		return nil, false
	}

	img, format, err := canvas.DecodeLimited(data, maxPixels)
	if err != nil {
		utils.Logger.Warn("failed to decode upload",
			zap.String("filename", file.Filename),
			zap.Error(err))
		msg := "无法解析图片"
		if errors.Is(err, canvas.ErrTooLarge) {
			msg = "图片尺寸超过限制"
		}
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Success: false,
			Message: msg,
			Error:   err.Error(),
		})
		return nil, false
	}

	md5 := utils.BytesMD5(data)
	utils.Logger.Info("file uploaded",
		zap.String("filename", file.Filename),
		zap.String("md5", md5),
		zap.String("format", format),
		zap.Int64("size", file.Size),
		zap.Int("width", img.Width),
		zap.Int("height", img.Height))

	return &upload{data: data, canvas: img, md5: md5}, true
}

// isAllowedType 未配置时不限制类型
func isAllowedType(allowed []string, contentType string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if strings.EqualFold(contentType, a) {
			return true
		}
	}
	return false
}
