package service

import (
	"math"
	"strconv"
	"strings"

	"github.com/TIANLI0/LayerStudio/model"
)

// rawValue 对象中的一个值，嵌套对象保留在 Object 中
type rawValue struct {
	Text   string
	Object map[string]rawValue
}

// ParseLayers 解析图层数组文本，不依赖 JSON 库，任何输入都不会报错
// 顺序与输入一致，下标0为最底层
func ParseLayers(text string) []model.LayerDescriptor {
	body := strings.TrimSpace(text)
	body = strings.TrimPrefix(body, "[")
	body = strings.TrimSuffix(body, "]")

	var layers []model.LayerDescriptor
	for _, record := range splitRecords(body) {
		layers = append(layers, buildLayer(parseObject(record)))
	}
	return layers
}

// splitRecords 按花括号深度切出顶层 {...}，返回去掉外层括号的内容
func splitRecords(s string) []string {
	var records []string
	depth, start := 0, -1
	inQuote, escaped := false, false

	for i := 0; i < len(s); i++ {
		c := s[i]
		if inQuote {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inQuote = false
			}
			continue
		}

		switch c {
		case '"':
			inQuote = true
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 && start >= 0 {
				records = append(records, s[start+1:i])
				start = -1
			}
		}
	}
	return records
}

// parseObject 解析对象内容（不含外层括号），嵌套对象递归解析
func parseObject(body string) map[string]rawValue {
	fields := make(map[string]rawValue)
	for _, pair := range splitTopLevel(body, ',') {
		parts := splitTopLevel(pair, ':')
		if len(parts) < 2 {
			continue
		}
		key := unquote(parts[0])
		if key == "" {
			continue
		}
		// 值中可能含有冒号（如 data URL），重新拼回
		value := strings.TrimSpace(strings.Join(parts[1:], ":"))

		if strings.HasPrefix(value, "{") && strings.HasSuffix(value, "}") {
			fields[key] = rawValue{Object: parseObject(value[1 : len(value)-1])}
			continue
		}
		fields[key] = rawValue{Text: unquote(value)}
	}
	return fields
}

// splitTopLevel 只在深度为0且不在引号内时按 sep 切分
func splitTopLevel(s string, sep byte) []string {
	var parts []string
	depth, start := 0, 0
	inQuote, escaped := false, false

	for i := 0; i < len(s); i++ {
		c := s[i]
		if inQuote {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inQuote = false
			}
			continue
		}

		switch c {
		case '"':
			inQuote = true
		case '{', '[':
			depth++
		case '}', ']':
			if depth > 0 {
				depth--
			}
		case sep:
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	if start < len(s) {
		parts = append(parts, s[start:])
	}
	return parts
}

// unquote 去掉两端空白和引号，并还原常见转义
func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	if !strings.ContainsRune(s, '\\') {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
			switch s[i] {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			default:
				b.WriteByte(s[i])
			}
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func buildLayer(fields map[string]rawValue) model.LayerDescriptor {
	layer := model.NewLayerDescriptor()

	for key, v := range fields {
		switch key {
		case "type":
			layer.Kind = model.ParseLayerKind(v.Text)
		case "visible":
			if b, err := strconv.ParseBool(strings.ToLower(v.Text)); err == nil {
				layer.Visible = b
			}
		case "opacity":
			if f, err := strconv.ParseFloat(v.Text, 64); err == nil && !math.IsNaN(f) {
				layer.Opacity = math.Min(1, math.Max(0, f))
			}
		case "color":
			layer.Color = v.Text
		case "gradientStart":
			layer.GradientStart = v.Text
		case "gradientEnd":
			layer.GradientEnd = v.Text
		case "gradientAngle":
			// 只接受 32 位整数，小数或越界保持默认值
			if n, err := strconv.ParseInt(v.Text, 10, 32); err == nil {
				layer.GradientAngle = int(n)
			}
		case "imageData":
			layer.ImageData = v.Text
		case "filterType":
			layer.FilterType = strings.ToLower(v.Text)
		case "params":
			for pk, pv := range v.Object {
				if pv.Object == nil {
					layer.Params[pk] = pv.Text
				}
			}
		}
	}
	return layer
}
