package sys

import (
	"unsafe"
)

// ArrayRecord mirrors zarray_t, the engine's growable array of fixed-size elements.
type ArrayRecord struct {
	ElSz  uintptr        // size of one element in bytes
	Size  int32          // number of elements in use
	Alloc int32          // number of elements allocated
	Data  unsafe.Pointer // element storage, nil when Alloc is 0
}

// MatdHeaderSize is the offset of the first element of a matd_t.
const MatdHeaderSize = unsafe.Sizeof(MatdRecord{})

// MatdRecord mirrors the header of matd_t. The NRows*NCols float64 values
// follow the header in row-major order.
type MatdRecord struct {
	NRows uint32
	NCols uint32
}

// Data returns the matrix elements as a slice over engine memory.
func (m *MatdRecord) Data() []float64 {
	n := int(m.NRows) * int(m.NCols)
	if n == 0 {
		return nil
	}
	return unsafe.Slice((*float64)(unsafe.Add(unsafe.Pointer(m), MatdHeaderSize)), n)
}

// NewMatd allocates a rows x cols matrix on heap and fills it from values in
// row-major order. values may be shorter than rows*cols; the rest stays zero.
func NewMatd(heap Heap, rows, cols int, values ...float64) *MatdRecord {
	n := rows * cols
	if len(values) > n {
		panic("sys: too many values for matrix")
	}
	p := heap.Calloc(1, MatdHeaderSize+uintptr(n)*unsafe.Sizeof(float64(0)))
	m := (*MatdRecord)(p)
	m.NRows = uint32(rows)
	m.NCols = uint32(cols)
	copy(m.Data(), values)
	return m
}

// DetectionRecord mirrors apriltag_detection_t.
type DetectionRecord struct {
	Family         unsafe.Pointer // apriltag_family_t*, owned by the detector
	ID             int32
	Hamming        int32
	DecisionMargin float32
	H              *MatdRecord   // 3x3 homography, owned by the detection
	C              [2]float64    // center
	P              [4][2]float64 // corners, counter-clockwise around the tag
}

// PoseRecord mirrors apriltag_pose_t. A nil R marks a failed estimate.
type PoseRecord struct {
	R *MatdRecord // 3x3 rotation
	T *MatdRecord // 3x1 translation
}

// Valid reports whether the engine produced a rotation for this pose.
func (p *PoseRecord) Valid() bool {
	return p.R != nil
}

// DetectionInfo mirrors apriltag_detection_info_t, the input of the pose solvers.
type DetectionInfo struct {
	Det     *DetectionRecord
	TagSize float64
	Fx      float64
	Fy      float64
	Cx      float64
	Cy      float64
}

// ImageU8 mirrors image_u8_t. Buf must point at heap memory of Stride*Height bytes.
type ImageU8 struct {
	Width  int32
	Height int32
	Stride int32
	Buf    unsafe.Pointer
}

// DetectorRecord is the Go-side record of a native detector and its tag family.
type DetectorRecord struct {
	Native     unsafe.Pointer // apriltag_detector_t*
	Family     unsafe.Pointer // apriltag_family_t*
	FamilyName string
}

// DetectorOptions are the tunables of apriltag_detector_t.
type DetectorOptions struct {
	Threads          int     `json:"threads"`
	QuadDecimate     float32 `json:"quad_decimate"`
	QuadSigma        float32 `json:"quad_sigma"`
	RefineEdges      bool    `json:"refine_edges"`
	DecodeSharpening float64 `json:"decode_sharpening"`
	Debug            bool    `json:"debug"`
}

// DefaultDetectorOptions returns the values apriltag_detector_create uses.
func DefaultDetectorOptions() DetectorOptions {
	return DetectorOptions{
		Threads:          1,
		QuadDecimate:     2.0,
		QuadSigma:        0.0,
		RefineEdges:      true,
		DecodeSharpening: 0.25,
	}
}
