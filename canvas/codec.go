package canvas

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
)

// ErrDecode 图片无法解码
var ErrDecode = errors.New("failed to decode image")

// ErrTooLarge 图片头声明的像素数超过限制
var ErrTooLarge = errors.New("image too large")

// Decode 解码 PNG/JPEG 字节为画布
func Decode(data []byte) (*Canvas, string, error) {
	if len(data) == 0 {
		return nil, "", fmt.Errorf("%w: empty payload", ErrDecode)
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if b := img.Bounds(); b.Dx() < 1 || b.Dy() < 1 {
		return nil, format, fmt.Errorf("%w: empty bounds", ErrDecode)
	}
	return FromImage(img), format, nil
}

// DecodeLimited 先读取图片头，像素数超过 maxPixels 时不解码，maxPixels<=0 不限制
func DecodeLimited(data []byte, maxPixels int) (*Canvas, string, error) {
	if maxPixels > 0 && len(data) > 0 {
		cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			return nil, "", fmt.Errorf("%w: %v", ErrDecode, err)
		}
		if int64(cfg.Width)*int64(cfg.Height) > int64(maxPixels) {
			return nil, format, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrTooLarge, cfg.Width, cfg.Height, maxPixels)
		}
	}
	return Decode(data)
}

// Encode 编码为 PNG
func Encode(c *Canvas) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, c.NRGBA()); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}
