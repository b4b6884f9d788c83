package imaging

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func squareOutline(id int, cx, cy, half float64) TagOutline {
	return TagOutline{
		ID:     id,
		Center: [2]float64{cx, cy},
		Corners: [4][2]float64{
			{cx - half, cy + half},
			{cx + half, cy + half},
			{cx + half, cy - half},
			{cx - half, cy - half},
		},
	}
}

func TestTagColor_StableAndDistinct(t *testing.T) {
	if TagColor(7) != TagColor(7) {
		t.Error("TagColor must be deterministic")
	}
	if TagColor(1) == TagColor(2) {
		t.Error("neighbouring IDs should get different colours")
	}
	if c := TagColor(3); c.A != 255 {
		t.Errorf("alpha: got %d, want 255", c.A)
	}
}

func TestDrawOverlay_Edges(t *testing.T) {
	img := solid(60, 60, color.Black)
	tag := squareOutline(4, 30, 30, 10)
	out := DrawOverlay(img, []TagOutline{tag})

	// First edge (corner 0 -> 1) runs along y=40 in white.
	if got := out.RGBAAt(30, 40); got != (color.RGBA{255, 255, 255, 255}) {
		t.Errorf("first edge pixel: got %v, want white", got)
	}
	// Right edge (corner 1 -> 2) along x=40 uses the tag colour.
	if got, want := out.RGBAAt(40, 35), TagColor(4); got != want {
		t.Errorf("side edge pixel: got %v, want %v", got, want)
	}
	// Inside the tag but away from the label and center mark stays untouched.
	if got := out.RGBAAt(22, 36); got != (color.RGBA{0, 0, 0, 255}) {
		t.Errorf("interior pixel changed: %v", got)
	}
	// The source image is not modified.
	if img.RGBAAt(30, 40) != (color.RGBA{0, 0, 0, 255}) {
		t.Error("DrawOverlay modified its input")
	}
}

func TestDrawOverlay_ClipsOutside(t *testing.T) {
	img := solid(20, 20, color.Black)
	tag := squareOutline(1, 18, 18, 10)
	out := DrawOverlay(img, []TagOutline{tag})
	if out.Bounds() != img.Bounds() {
		t.Errorf("bounds: got %v, want %v", out.Bounds(), img.Bounds())
	}
}

func TestOverlay_EncodesPNG(t *testing.T) {
	img := solid(32, 24, color.Gray{100})
	res, err := Overlay(img, []TagOutline{squareOutline(0, 16, 12, 6), squareOutline(9, 5, 5, 2)})
	if err != nil {
		t.Fatalf("Overlay failed: %v", err)
	}
	if res.Width != 32 || res.Height != 24 || res.Tags != 2 || res.MimeType != "image/png" {
		t.Errorf("unexpected result header: %+v", res)
	}

	data, err := base64.StdEncoding.DecodeString(res.ImageBase64)
	if err != nil {
		t.Fatalf("invalid base64: %v", err)
	}
	decoded, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("invalid png: %v", err)
	}
	if decoded.Bounds() != image.Rect(0, 0, 32, 24) {
		t.Errorf("decoded bounds: got %v", decoded.Bounds())
	}
}

func TestDrawLine_Diagonal(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 10, 10))
	red := color.RGBA{255, 0, 0, 255}
	drawLine(img, 0, 0, 9, 9, red)
	for i := 0; i < 10; i++ {
		if img.RGBAAt(i, i) != red {
			t.Errorf("pixel (%d,%d) not drawn", i, i)
		}
	}
}
