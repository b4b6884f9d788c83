package sys

import (
	"errors"
	"slices"
)

var (
	// ErrUnavailable is returned by Open when the binary was built without
	// the native engine.
	ErrUnavailable = errors.New("apriltag engine not available in this build")

	// ErrUnknownFamily is returned when a tag family name is not supported.
	ErrUnknownFamily = errors.New("unknown tag family")
)

// Families lists the tag family names the engine can decode.
var Families = []string{
	"tag36h11",
	"tag25h9",
	"tag16h5",
	"tagCircle21h7",
	"tagCircle49h12",
	"tagStandard41h12",
	"tagStandard52h13",
	"tagCustom48h12",
}

// KnownFamily reports whether name is one of Families.
func KnownFamily(name string) bool {
	for _, f := range Families {
		if f == name {
			return true
		}
	}
	return false
}

// Engine is the set of native calls made by the binding.
//
// Memory passed in and out follows the engine's ownership rules: records
// returned by DetectorDetect and written into PoseRecords belong to the
// caller and must be released with DetectionDestroy, MatdDestroy or the Heap.
type Engine interface {
	Heap

	// EstimateTagPose runs the single-hypothesis solver and returns its
	// reprojection error. pose.R is nil when no pose was found.
	EstimateTagPose(info *DetectionInfo, pose *PoseRecord) float64

	// EstimateTagPoseOrthogonalIteration runs the dual-hypothesis solver
	// with nIters refinement steps and fills both candidate slots.
	EstimateTagPoseOrthogonalIteration(info *DetectionInfo, err1 *float64, pose1 *PoseRecord, err2 *float64, pose2 *PoseRecord, nIters int)

	// DetectionDestroy frees a detection and its homography.
	DetectionDestroy(det *DetectionRecord)

	// MatdDestroy frees a matrix.
	MatdDestroy(m *MatdRecord)

	// DetectorCreate builds a native detector decoding one tag family.
	DetectorCreate(family string, opts DetectorOptions) (*DetectorRecord, error)

	// DetectorDetect runs detection and returns a zarray of
	// *DetectionRecord. It returns nil only on allocation failure.
	DetectorDetect(td *DetectorRecord, img *ImageU8) *ArrayRecord

	// DetectorDestroy frees a detector and its tag family.
	DetectorDestroy(td *DetectorRecord)

	// Version describes the engine backend.
	Version() string
}

// Info describes the availability of the native engine.
type Info struct {
	Available bool     `json:"available"`
	Version   string   `json:"version,omitempty"`
	Error     string   `json:"error,omitempty"`
	Families  []string `json:"families"`
}

// InfoFor describes engine. A nil engine is reported as unavailable.
func InfoFor(engine Engine) Info {
	info := Info{Families: slices.Clone(Families)}
	if engine == nil {
		info.Error = ErrUnavailable.Error()
		return info
	}
	info.Available = true
	info.Version = engine.Version()
	return info
}
