package handler

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/TIANLI0/LayerStudio/canvas"
	"github.com/TIANLI0/LayerStudio/config"
	"github.com/TIANLI0/LayerStudio/model"
	"github.com/TIANLI0/LayerStudio/service"
	"github.com/gin-gonic/gin"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Default()
	cfg.Composite.MaxLayers = 3
	cfg.Composite.MaxPixels = 10_000

	remover := service.NewBackgroundRemover(&cfg.Segment, nil, nil)
	h := NewImageHandler(cfg, nil, remover, service.NewToneFilters())

	r := gin.New()
	h.Register(r.Group("/api/v1/image"))
	return r
}

func pngBytes(t *testing.T, c *canvas.Canvas) []byte {
	t.Helper()
	data, err := canvas.Encode(c)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

// post 发送 multipart 请求，image 为 nil 时不附带文件
func post(t *testing.T, r *gin.Engine, path string, image []byte, contentType string, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	if image != nil {
		hdr := make(textproto.MIMEHeader)
		hdr.Set("Content-Disposition", `form-data; name="image"; filename="in.png"`)
		hdr.Set("Content-Type", contentType)
		part, err := mw.CreatePart(hdr)
		if err != nil {
			t.Fatal(err)
		}
		part.Write(image)
	}
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeResult(t *testing.T, w *httptest.ResponseRecorder) (*model.ImageResult, *canvas.Canvas) {
	t.Helper()
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp model.ImageResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Success || resp.Data == nil {
		t.Fatalf("response = %+v", resp)
	}
	raw, err := base64.StdEncoding.DecodeString(resp.Data.Image)
	if err != nil {
		t.Fatal(err)
	}
	img, _, err := canvas.Decode(raw)
	if err != nil {
		t.Fatal(err)
	}
	return resp.Data, img
}

func checker(w, h int) *canvas.Canvas {
	c := canvas.New(w, h)
	for i := range c.Pix {
		c.Pix[i] = canvas.Pack(255, uint8(i*10), uint8(255-i*10), 7)
	}
	return c
}

func TestRotateEndpoint(t *testing.T) {
	r := newTestRouter(t)
	src := pngBytes(t, checker(4, 2))

	res, img := decodeResult(t, post(t, r, "/api/v1/image/rotate", src, "image/png", map[string]string{"angle": "90"}))
	if res.Width != 2 || res.Height != 4 || img.Width != 2 || img.Height != 4 {
		t.Errorf("size = %dx%d", res.Width, res.Height)
	}
	if res.MD5 == "" || res.Timestamp == 0 {
		t.Errorf("metadata missing: %+v", res)
	}
}

func TestFlipEndpoints(t *testing.T) {
	r := newTestRouter(t)
	src := checker(3, 2)
	data := pngBytes(t, src)

	_, img := decodeResult(t, post(t, r, "/api/v1/image/flip/horizontal", data, "image/png", nil))
	if img.At(0, 0) != src.At(2, 0) {
		t.Errorf("horizontal flip (0,0) = %#08x, want %#08x", img.At(0, 0), src.At(2, 0))
	}

	_, img = decodeResult(t, post(t, r, "/api/v1/image/flip/vertical", data, "image/png", nil))
	if img.At(1, 0) != src.At(1, 1) {
		t.Errorf("vertical flip (1,0) = %#08x, want %#08x", img.At(1, 0), src.At(1, 1))
	}
}

func TestZoomAndLinear(t *testing.T) {
	r := newTestRouter(t)
	data := pngBytes(t, checker(3, 2))

	res, _ := decodeResult(t, post(t, r, "/api/v1/image/zoom", data, "image/png", map[string]string{"scale": "2", "linear": "true"}))
	if res.Width != 6 || res.Height != 4 {
		t.Errorf("size = %dx%d", res.Width, res.Height)
	}
	if len(res.Linear) != 24 {
		t.Errorf("linear has %d entries, want 24", len(res.Linear))
	}

	res, _ = decodeResult(t, post(t, r, "/api/v1/image/zoom", data, "image/png", map[string]string{"scale": "abc"}))
	if res.Width != 3 || res.Height != 2 || res.Linear != nil {
		t.Errorf("invalid scale result = %+v", res)
	}
}

func TestOutputSizeLimit(t *testing.T) {
	r := newTestRouter(t)
	w := post(t, r, "/api/v1/image/zoom", pngBytes(t, checker(10, 10)), "image/png", map[string]string{"scale": "50"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestMatrixEndpoint(t *testing.T) {
	r := newTestRouter(t)
	data := pngBytes(t, checker(4, 2))

	res, _ := decodeResult(t, post(t, r, "/api/v1/image/matrix", data, "image/png", map[string]string{"m00": "2", "m11": "2"}))
	if res.Width != 8 || res.Height != 4 {
		t.Errorf("size = %dx%d", res.Width, res.Height)
	}

	w := post(t, r, "/api/v1/image/matrix", data, "image/png", map[string]string{"m00": "1", "m01": "2", "m10": "2", "m11": "4"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("singular matrix status = %d", w.Code)
	}
}

func TestCropEndpoint(t *testing.T) {
	r := newTestRouter(t)
	src := checker(5, 5)

	_, img := decodeResult(t, post(t, r, "/api/v1/image/crop", pngBytes(t, src), "image/png",
		map[string]string{"x": "1", "y": "2", "w": "10", "h": "2"}))
	if img.Width != 4 || img.Height != 2 || img.At(0, 0) != src.At(1, 2) {
		t.Errorf("crop = %dx%d first %#08x", img.Width, img.Height, img.At(0, 0))
	}

	_, img = decodeResult(t, post(t, r, "/api/v1/image/crop", pngBytes(t, checker(8, 8)), "image/png",
		map[string]string{"x": "1", "y": "1", "w": "3", "h": "2"}))
	if img.Width != 3 || img.Height != 2 {
		t.Errorf("crop w=3,h=2 = %dx%d", img.Width, img.Height)
	}
}

func TestIsSquareEndpoint(t *testing.T) {
	r := newTestRouter(t)
	for _, tt := range []struct {
		w, h int
		want bool
	}{{3, 3, true}, {3, 2, false}} {
		w := post(t, r, "/api/v1/image/is-square", pngBytes(t, checker(tt.w, tt.h)), "image/png", nil)
		var resp model.SquareResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatal(err)
		}
		if !resp.Success || resp.Square != tt.want || resp.Width != tt.w {
			t.Errorf("%dx%d: %+v", tt.w, tt.h, resp)
		}
	}
}

func TestFilterEndpoint(t *testing.T) {
	r := newTestRouter(t)
	data := pngBytes(t, canvas.Filled(2, 2, canvas.Pack(255, 100, 100, 100)))

	_, img := decodeResult(t, post(t, r, "/api/v1/image/filter/brightness", data, "image/png", map[string]string{"level": "50"}))
	if img.At(0, 0) != canvas.Pack(255, 150, 150, 150) {
		t.Errorf("pixel = %#08x", img.At(0, 0))
	}

	w := post(t, r, "/api/v1/image/filter/posterize", data, "image/png", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("unknown filter status = %d", w.Code)
	}
}

func TestGrayscaleToggle(t *testing.T) {
	r := newTestRouter(t)
	data := pngBytes(t, canvas.Filled(2, 2, canvas.Pack(255, 255, 0, 0)))

	_, img := decodeResult(t, post(t, r, "/api/v1/image/flip/horizontal", data, "image/png", map[string]string{"grayscale": "true"}))
	_, rr, g, b := canvas.Unpack(img.At(0, 0))
	if rr != g || g != b {
		t.Errorf("pixel = %d,%d,%d, want gray", rr, g, b)
	}
}

func TestRemoveBackgroundEndpoint(t *testing.T) {
	r := newTestRouter(t)
	src := canvas.Filled(20, 20, canvas.White)
	for y := 5; y < 15; y++ {
		for x := 5; x < 15; x++ {
			src.Set(x, y, canvas.Pack(255, 255, 0, 0))
		}
	}

	res, img := decodeResult(t, post(t, r, "/api/v1/image/remove-background", pngBytes(t, src), "image/png",
		map[string]string{"mode": "ai", "sensitivity": "0"}))
	if res.Backend != service.BackendBuiltin {
		t.Errorf("backend = %q, want builtin fallback", res.Backend)
	}
	if img.At(0, 0) != canvas.Transparent || img.At(10, 10) != canvas.Pack(255, 255, 0, 0) {
		t.Errorf("mask = %#08x %#08x", img.At(0, 0), img.At(10, 10))
	}
}

func TestCompositeLayersEndpoint(t *testing.T) {
	r := newTestRouter(t)
	data := pngBytes(t, canvas.Filled(4, 4, canvas.Pack(255, 0, 0, 0)))

	res, img := decodeResult(t, post(t, r, "/api/v1/image/composite-layers", data, "image/png", map[string]string{
		"layers": `[{"type":"color","color":"#FFFFFF","opacity":0.5},{"type":"bogus"}]`,
	}))
	if res.Layers != 2 {
		t.Errorf("layers = %d", res.Layers)
	}
	if img.At(2, 2) != canvas.Pack(255, 128, 128, 128) {
		t.Errorf("pixel = %#08x", img.At(2, 2))
	}

	w := post(t, r, "/api/v1/image/composite-layers", data, "image/png", map[string]string{
		"layers": `[{"type":"color"},{"type":"color"},{"type":"color"},{"type":"color"}]`,
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("too many layers status = %d", w.Code)
	}
}

func TestUploadErrors(t *testing.T) {
	r := newTestRouter(t)

	tests := []struct {
		name        string
		image       []byte
		contentType string
	}{
		{"missing file", nil, ""},
		{"undecodable", []byte("definitely not an image"), "image/png"},
		{"wrong type", pngBytes(t, checker(2, 2)), "image/gif"},
		{"too many pixels", pngBytes(t, canvas.Filled(101, 100, canvas.White)), "image/png"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := post(t, r, "/api/v1/image/rotate", tt.image, tt.contentType, nil)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", w.Code)
			}
			var resp model.ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatal(err)
			}
			if resp.Success || resp.Message == "" {
				t.Errorf("response = %+v", resp)
			}
		})
	}
}
