package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"math"

	"github.com/disintegration/imaging"
)

// CropResult contains a cropped tag region.
type CropResult struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	X1          int    `json:"x1"`
	Y1          int    `json:"y1"`
	X2          int    `json:"x2"`
	Y2          int    `json:"y2"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// TagBounds returns the axis-aligned box around corners, grown by padding
// pixels on each side and clipped to bounds.
func TagBounds(corners [4][2]float64, padding int, bounds image.Rectangle) (image.Rectangle, error) {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range corners {
		minX, maxX = math.Min(minX, p[0]), math.Max(maxX, p[0])
		minY, maxY = math.Min(minY, p[1]), math.Max(maxY, p[1])
	}

	r := image.Rect(
		int(math.Floor(minX))-padding,
		int(math.Floor(minY))-padding,
		int(math.Ceil(maxX))+padding+1,
		int(math.Ceil(maxY))+padding+1,
	).Intersect(bounds)
	if r.Empty() {
		return image.Rectangle{}, fmt.Errorf("tag region (%.1f,%.1f)-(%.1f,%.1f) outside image bounds (%d,%d)-(%d,%d)",
			minX, minY, maxX, maxY, bounds.Min.X, bounds.Min.Y, bounds.Max.X, bounds.Max.Y)
	}
	return r, nil
}

// CropTag extracts the region around a tag, optionally scaled, as base64 PNG.
//
// Parameters:
//   - img: The source image.
//   - corners: Tag corners in image coordinates.
//   - padding: Extra pixels kept on every side of the tag.
//   - scale: Resize factor; 1.0 keeps the original size.
func CropTag(img image.Image, corners [4][2]float64, padding int, scale float64) (*CropResult, error) {
	if padding < 0 {
		return nil, fmt.Errorf("padding must be >= 0, got %d", padding)
	}
	r, err := TagBounds(corners, padding, img.Bounds())
	if err != nil {
		return nil, err
	}

	cropped := imaging.Crop(img, r)

	if scale != 1.0 && scale > 0 {
		newWidth := int(float64(cropped.Bounds().Dx()) * scale)
		newHeight := int(float64(cropped.Bounds().Dy()) * scale)
		cropped = imaging.Resize(cropped, newWidth, newHeight, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, cropped); err != nil {
		return nil, fmt.Errorf("failed to encode cropped image: %w", err)
	}

	return &CropResult{
		Width:       cropped.Bounds().Dx(),
		Height:      cropped.Bounds().Dy(),
		X1:          r.Min.X,
		Y1:          r.Min.Y,
		X2:          r.Max.X,
		Y2:          r.Max.Y,
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
	}, nil
}
