package service

import (
	"testing"

	"github.com/TIANLI0/LayerStudio/model"
)

func TestParseLayersTolerance(t *testing.T) {
	text := `[{"type":"color","color":"#FF0000"},{"type":"filter","filterType":"blur","params":{"intensity":"abc"}}]`

	layers := ParseLayers(text)
	if len(layers) != 2 {
		t.Fatalf("len = %d, want 2", len(layers))
	}
	if layers[0].Kind != model.KindColor || layers[0].Color != "#FF0000" {
		t.Errorf("layer 0 = %+v", layers[0])
	}
	if layers[1].Kind != model.KindFilter || layers[1].FilterType != "blur" {
		t.Errorf("layer 1 = %+v", layers[1])
	}
	if got := layers[1].Param("intensity"); got != 0 {
		t.Errorf("intensity = %v, want 0", got)
	}
}

func TestParseLayersDefaults(t *testing.T) {
	layers := ParseLayers(`[{"type":"gradient"}]`)
	if len(layers) != 1 {
		t.Fatalf("len = %d", len(layers))
	}
	l := layers[0]
	if !l.Visible || l.Opacity != 1 || l.GradientAngle != 90 {
		t.Errorf("defaults not applied: %+v", l)
	}
}

func TestParseLayersFields(t *testing.T) {
	text := `
	[
	  {
	    "opacity" : 0.25 ,
	    "gradientAngle": 45,
	    "visible": false,
	    "gradientEnd": "#0000ff",
	    "type": "gradient",
	    "gradientStart": "#ff0000",
	    "unknown": {"nested": {"deep": 1}},
	    "name": "sky, with comma"
	  },
	  {"type":"image","imageData":"data:image/png;base64,iVBORw0KGgo="},
	  {"type":"filter","filterType":"Brightness","params":{"level":"-40", "extra" : "7"}}
	]`

	layers := ParseLayers(text)
	if len(layers) != 3 {
		t.Fatalf("len = %d, want 3", len(layers))
	}

	g := layers[0]
	if g.Kind != model.KindGradient || g.Visible || g.Opacity != 0.25 || g.GradientAngle != 45 {
		t.Errorf("gradient = %+v", g)
	}
	if g.GradientStart != "#ff0000" || g.GradientEnd != "#0000ff" {
		t.Errorf("gradient colors = %q %q", g.GradientStart, g.GradientEnd)
	}

	if layers[1].ImageData != "data:image/png;base64,iVBORw0KGgo=" {
		t.Errorf("imageData = %q", layers[1].ImageData)
	}

	f := layers[2]
	if f.FilterType != "brightness" || f.Param("level") != -40 || f.Param("extra") != 7 {
		t.Errorf("filter = %+v", f)
	}
	if f.Param("missing") != 0 {
		t.Error("missing param should default to 0")
	}
}

func TestParseLayersMalformedNumbers(t *testing.T) {
	layers := ParseLayers(`[{"type":"color","opacity":"abc","gradientAngle":"wide","visible":"maybe"}]`)
	if len(layers) != 1 {
		t.Fatalf("len = %d", len(layers))
	}
	l := layers[0]
	if l.Opacity != 1 || l.GradientAngle != 90 || !l.Visible {
		t.Errorf("malformed fields should fall back to defaults: %+v", l)
	}
}

func TestParseLayersGradientAngleIntegerOnly(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"45", 45},
		{"-30", -30},
		{"45.5", 90},
		{"1e300", 90},
		{"99999999999", 90},
	}
	for _, tt := range tests {
		layers := ParseLayers(`[{"type":"gradient","gradientAngle":` + tt.in + `}]`)
		if len(layers) != 1 || layers[0].GradientAngle != tt.want {
			t.Errorf("gradientAngle %s = %+v, want %d", tt.in, layers, tt.want)
		}
	}
}

func TestParseLayersClampsOpacity(t *testing.T) {
	layers := ParseLayers(`[{"type":"color","opacity":3},{"type":"color","opacity":-1}]`)
	if layers[0].Opacity != 1 || layers[1].Opacity != 0 {
		t.Errorf("opacity = %v, %v", layers[0].Opacity, layers[1].Opacity)
	}
}

func TestParseLayersQuotedBraces(t *testing.T) {
	layers := ParseLayers(`[{"type":"color","color":"#00FF00","name":"odd } name {"},{"type":"unknown-kind"}]`)
	if len(layers) != 2 {
		t.Fatalf("len = %d, want 2", len(layers))
	}
	if layers[0].Color != "#00FF00" {
		t.Errorf("color = %q", layers[0].Color)
	}
	if layers[1].Kind != model.KindUnknown {
		t.Errorf("kind = %q", layers[1].Kind)
	}
}

func TestParseLayersEscapedQuote(t *testing.T) {
	layers := ParseLayers(`[{"name":"say \"hi\", ok","type":"color","color":"#123456"}]`)
	if len(layers) != 1 || layers[0].Color != "#123456" || layers[0].Kind != model.KindColor {
		t.Fatalf("layers = %+v", layers)
	}
}

func TestParseLayersGarbage(t *testing.T) {
	for _, in := range []string{"", "[]", "   ", "not json", "[{", "}{", `[{"type":}]`} {
		layers := ParseLayers(in)
		for _, l := range layers {
			if l.Kind != model.KindUnknown {
				t.Errorf("ParseLayers(%q) produced kind %q", in, l.Kind)
			}
		}
	}
	if got := ParseLayers("[]"); len(got) != 0 {
		t.Errorf("empty array gave %d layers", len(got))
	}
}
