package apriltag

import (
	"errors"
	"fmt"
	"image"
	"slices"
	"unsafe"

	"github.com/ironsheep/apriltag-mcp/internal/sys"
	"github.com/ironsheep/apriltag-mcp/internal/zarray"
)

// Families returns the tag family names NewDetector accepts.
func Families() []string {
	return slices.Clone(sys.Families)
}

// Detector owns a native detector configured for one tag family.
type Detector struct {
	*detector
}

type detector struct {
	engine sys.Engine
	rec    *sys.DetectorRecord
}

// NewDetector creates a detector for family. Unknown families return an
// error wrapping sys.ErrUnknownFamily.
func NewDetector(engine sys.Engine, family string, opts sys.DetectorOptions) (*Detector, error) {
	if engine == nil {
		return nil, sys.ErrUnavailable
	}
	rec, err := engine.DetectorCreate(family, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create detector: %w", err)
	}
	return &Detector{&detector{engine: engine, rec: rec}}, nil
}

func (d *Detector) record() *sys.DetectorRecord {
	if d.detector == nil || d.rec == nil {
		panic("apriltag: use of closed Detector")
	}
	return d.rec
}

// Family returns the tag family the detector decodes.
func (d *Detector) Family() string {
	return d.record().FamilyName
}

// Detect finds tags in a grayscale image. The caller owns the returned
// detections and must close them, for example with CloseAll.
func (d *Detector) Detect(img *image.Gray) ([]*Detection, error) {
	td := d.record()

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return nil, errors.New("empty image")
	}

	// The engine reads pixels from its own heap.
	buf := d.engine.Malloc(uintptr(w * h))
	if buf == nil {
		return nil, errors.New("failed to allocate image buffer")
	}
	defer d.engine.Free(buf)

	pixels := unsafe.Slice((*byte)(buf), w*h)
	for y := 0; y < h; y++ {
		off := img.PixOffset(b.Min.X, b.Min.Y+y)
		copy(pixels[y*w:(y+1)*w], img.Pix[off:off+w])
	}

	im := sys.ImageU8{
		Width:  int32(w),
		Height: int32(h),
		Stride: int32(w),
		Buf:    buf,
	}
	raw := d.engine.DetectorDetect(td, &im)
	if raw == nil {
		return nil, errors.New("detector returned no result")
	}

	arr := zarray.Adopt[*sys.DetectionRecord](d.engine, raw)
	defer arr.Close()

	dets := make([]*Detection, 0, arr.Len())
	for _, rec := range arr.All() {
		dets = append(dets, Adopt(d.engine, *rec))
	}
	return dets, nil
}

// Close destroys the native detector. Calling Close again is a no-op.
func (d *Detector) Close() {
	if d.detector == nil || d.rec == nil {
		return
	}
	rec := d.rec
	d.rec = nil
	d.engine.DetectorDestroy(rec)
}
