package model

// ImageResult 处理结果
type ImageResult struct {
	MD5       string   `json:"md5"`
	Width     int      `json:"width"`
	Height    int      `json:"height"`
	Image     string   `json:"image"` // base64编码的PNG
	Linear    []uint32 `json:"linear,omitempty"`
	Backend   string   `json:"backend,omitempty"`
	Layers    int      `json:"layers,omitempty"`
	Timestamp int64    `json:"timestamp"`
}

// ImageResponse 处理响应
type ImageResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Data    *ImageResult `json:"data,omitempty"`
}

// SquareResponse 正方形检测响应
type SquareResponse struct {
	Success bool `json:"success"`
	Square  bool `json:"square"`
	Width   int  `json:"width"`
	Height  int  `json:"height"`
}

// ErrorResponse 错误响应
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}
