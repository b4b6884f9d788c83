// Package enginetest provides a scriptable sys.Engine for tests.
//
// The fake allocates every record from a sys.TrackingHeap, so tests can check
// that handles free what they own exactly once and leak nothing.
package enginetest

import (
	"fmt"
	"unsafe"

	"github.com/ironsheep/apriltag-mcp/internal/sys"
)

// Tag describes a detection the fake engine should produce.
type Tag struct {
	ID             int
	Hamming        int
	DecisionMargin float32
	Center         [2]float64
	Corners        [4][2]float64
	Homography     [9]float64
}

// PoseResult scripts one pose slot.
type PoseResult struct {
	Valid       bool
	Rotation    [9]float64
	Translation [3]float64
	Error       float64

	// StrayTranslation fills T even when the slot is invalid.
	StrayTranslation bool
}

// Engine is a fake sys.Engine.
type Engine struct {
	*sys.TrackingHeap

	// Single is returned by EstimateTagPose.
	Single PoseResult
	// First and Second are returned by EstimateTagPoseOrthogonalIteration.
	First, Second PoseResult

	// Frame is the set of tags DetectorDetect reports.
	Frame []Tag
	// FailDetect makes DetectorDetect return nil.
	FailDetect bool

	// Calls recorded for assertions.
	Infos       []sys.DetectionInfo
	Iterations  []int
	Destroyed   map[*sys.DetectionRecord]int
	LastImage   []byte
	LastOptions sys.DetectorOptions
	Detectors   int
}

// New returns a fake engine with an empty heap.
func New() *Engine {
	return &Engine{
		TrackingHeap: sys.NewTrackingHeap(),
		Destroyed:    make(map[*sys.DetectionRecord]int),
	}
}

// NewDetection allocates a detection record as the native detector would.
func (e *Engine) NewDetection(tag Tag) *sys.DetectionRecord {
	det := (*sys.DetectionRecord)(e.Calloc(1, unsafe.Sizeof(sys.DetectionRecord{})))
	det.ID = int32(tag.ID)
	det.Hamming = int32(tag.Hamming)
	det.DecisionMargin = tag.DecisionMargin
	det.C = tag.Center
	det.P = tag.Corners
	det.H = sys.NewMatd(e, 3, 3, tag.Homography[:]...)
	return det
}

func (e *Engine) fill(pose *sys.PoseRecord, r PoseResult) {
	*pose = sys.PoseRecord{}
	if r.Valid {
		pose.R = sys.NewMatd(e, 3, 3, r.Rotation[:]...)
	}
	if r.Valid || r.StrayTranslation {
		pose.T = sys.NewMatd(e, 3, 1, r.Translation[:]...)
	}
}

// EstimateTagPose implements sys.Engine.
func (e *Engine) EstimateTagPose(info *sys.DetectionInfo, pose *sys.PoseRecord) float64 {
	e.Infos = append(e.Infos, *info)
	e.fill(pose, e.Single)
	return e.Single.Error
}

// EstimateTagPoseOrthogonalIteration implements sys.Engine.
func (e *Engine) EstimateTagPoseOrthogonalIteration(info *sys.DetectionInfo, err1 *float64, pose1 *sys.PoseRecord, err2 *float64, pose2 *sys.PoseRecord, nIters int) {
	e.Infos = append(e.Infos, *info)
	e.Iterations = append(e.Iterations, nIters)
	e.fill(pose1, e.First)
	*err1 = e.First.Error
	e.fill(pose2, e.Second)
	*err2 = e.Second.Error
}

// DetectionDestroy implements sys.Engine.
func (e *Engine) DetectionDestroy(det *sys.DetectionRecord) {
	e.Destroyed[det]++
	e.Free(unsafe.Pointer(det.H))
	e.Free(unsafe.Pointer(det))
}

// MatdDestroy implements sys.Engine.
func (e *Engine) MatdDestroy(m *sys.MatdRecord) {
	e.Free(unsafe.Pointer(m))
}

// DetectorCreate implements sys.Engine.
func (e *Engine) DetectorCreate(family string, opts sys.DetectorOptions) (*sys.DetectorRecord, error) {
	if !sys.KnownFamily(family) {
		return nil, fmt.Errorf("%w: %s", sys.ErrUnknownFamily, family)
	}
	e.LastOptions = opts
	e.Detectors++
	return &sys.DetectorRecord{
		Native:     e.Calloc(1, 8),
		Family:     e.Calloc(1, 8),
		FamilyName: family,
	}, nil
}

// DetectorDetect implements sys.Engine.
func (e *Engine) DetectorDetect(td *sys.DetectorRecord, img *sys.ImageU8) *sys.ArrayRecord {
	if !e.Owns(td.Native) {
		panic("enginetest: detect on a destroyed detector")
	}
	e.LastImage = append([]byte(nil), unsafe.Slice((*byte)(img.Buf), int(img.Stride*img.Height))...)
	if e.FailDetect {
		return nil
	}

	rec := (*sys.ArrayRecord)(e.Calloc(1, unsafe.Sizeof(sys.ArrayRecord{})))
	rec.ElSz = unsafe.Sizeof((*sys.DetectionRecord)(nil))
	if len(e.Frame) == 0 {
		return rec
	}
	rec.Size = int32(len(e.Frame))
	rec.Alloc = int32(len(e.Frame))
	rec.Data = e.Malloc(uintptr(len(e.Frame)) * rec.ElSz)
	slots := unsafe.Slice((**sys.DetectionRecord)(rec.Data), len(e.Frame))
	for i, tag := range e.Frame {
		det := e.NewDetection(tag)
		det.Family = td.Family
		slots[i] = det
	}
	return rec
}

// DetectorDestroy implements sys.Engine.
func (e *Engine) DetectorDestroy(td *sys.DetectorRecord) {
	e.Free(td.Native)
	e.Free(td.Family)
}

// Version implements sys.Engine.
func (e *Engine) Version() string {
	return "enginetest"
}

// Square returns a tag whose corners form a square of side 2*half around center.
func Square(id int, center [2]float64, half float64) Tag {
	cx, cy := center[0], center[1]
	return Tag{
		ID:             id,
		DecisionMargin: 50,
		Center:         center,
		Corners: [4][2]float64{
			{cx - half, cy + half},
			{cx + half, cy + half},
			{cx + half, cy - half},
			{cx - half, cy - half},
		},
		Homography: [9]float64{half, 0, cx, 0, half, cy, 0, 0, 1},
	}
}

// Identity is a valid pose slot with identity rotation.
func Identity(tz, reprojErr float64) PoseResult {
	return PoseResult{
		Valid:       true,
		Rotation:    [9]float64{1, 0, 0, 0, 1, 0, 0, 0, 1},
		Translation: [3]float64{0, 0, tz},
		Error:       reprojErr,
	}
}
