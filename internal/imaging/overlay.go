package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"strconv"

	colorful "github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// TagOutline is the geometry of one detected tag in image coordinates.
type TagOutline struct {
	ID      int           `json:"id"`
	Center  [2]float64    `json:"center"`
	Corners [4][2]float64 `json:"corners"`
}

// OverlayResult contains the image with tag outlines drawn on it.
type OverlayResult struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
	Tags        int    `json:"tags"`
}

// TagColor returns a stable, saturated colour for a tag ID. Consecutive IDs
// are spread around the hue circle by the golden angle.
func TagColor(id int) color.RGBA {
	hue := math.Mod(float64(id)*137.508, 360)
	r, g, b := colorful.Hsv(hue, 0.85, 1.0).RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

// DrawOverlay draws each tag's outline, the edge between its first two
// corners in white (the tag's bottom edge in tag frame), a center mark and
// the tag ID.
func DrawOverlay(img image.Image, tags []TagOutline) *image.RGBA {
	bounds := img.Bounds()
	result := image.NewRGBA(bounds)
	draw.Draw(result, bounds, img, bounds.Min, draw.Src)

	white := color.RGBA{255, 255, 255, 255}
	for _, tag := range tags {
		c := TagColor(tag.ID)
		for i := 0; i < 4; i++ {
			a, b := tag.Corners[i], tag.Corners[(i+1)%4]
			edge := c
			if i == 0 {
				edge = white
			}
			drawLine(result, a[0], a[1], b[0], b[1], edge)
		}
		cx, cy := int(math.Round(tag.Center[0])), int(math.Round(tag.Center[1]))
		for d := -2; d <= 2; d++ {
			setClipped(result, cx+d, cy, c)
			setClipped(result, cx, cy+d, c)
		}
		drawLabel(result, cx+4, cy-4, strconv.Itoa(tag.ID), c)
	}
	return result
}

// Overlay draws tags on img and returns the result as base64-encoded PNG.
func Overlay(img image.Image, tags []TagOutline) (*OverlayResult, error) {
	result := DrawOverlay(img, tags)

	var buf bytes.Buffer
	if err := png.Encode(&buf, result); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	return &OverlayResult{
		Width:       result.Bounds().Dx(),
		Height:      result.Bounds().Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
		Tags:        len(tags),
	}, nil
}

// drawLine rasterizes a segment with Bresenham's algorithm, clipping to the image.
func drawLine(img *image.RGBA, x0f, y0f, x1f, y1f float64, c color.RGBA) {
	x0, y0 := int(math.Round(x0f)), int(math.Round(y0f))
	x1, y1 := int(math.Round(x1f)), int(math.Round(y1f))

	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	for {
		setClipped(img, x0, y0, c)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

func setClipped(img *image.RGBA, x, y int, c color.RGBA) {
	if image.Pt(x, y).In(img.Bounds()) {
		img.SetRGBA(x, y, c)
	}
}

// drawLabel writes text with its baseline at y on a dark backing box.
func drawLabel(img *image.RGBA, x, y int, text string, fg color.RGBA) {
	face := basicfont.Face7x13
	bg := image.NewUniform(color.RGBA{0, 0, 0, 180})
	box := image.Rect(x-1, y-face.Ascent-1, x+len(text)*face.Advance+1, y+face.Descent+1)
	draw.Draw(img, box.Intersect(img.Bounds()), bg, image.Point{}, draw.Over)

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(fg),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
