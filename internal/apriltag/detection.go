package apriltag

import (
	"fmt"
	"runtime"

	"github.com/ironsheep/apriltag-mcp/internal/sys"
)

// Detection owns one engine detection record. Copies of a Detection value
// share the same owner state, so closing any copy closes all of them.
type Detection struct {
	*detection
}

type detection struct {
	engine sys.Engine
	rec    *sys.DetectionRecord
}

// Adopt takes ownership of a detection record allocated by engine. The record
// is destroyed by Close. Adopt panics if rec is nil.
func Adopt(engine sys.Engine, rec *sys.DetectionRecord) *Detection {
	if rec == nil {
		panic("apriltag: adopt of nil detection")
	}
	return &Detection{&detection{engine: engine, rec: rec}}
}

func (d *Detection) open() bool {
	return d.detection != nil && d.rec != nil
}

func (d *Detection) checkOpen() {
	if !d.open() {
		panic("apriltag: use of closed Detection")
	}
}

func (d *Detection) record() *sys.DetectionRecord {
	d.checkOpen()
	return d.rec
}

// ID returns the decoded tag ID.
func (d *Detection) ID() int {
	return int(d.record().ID)
}

// Hamming returns the number of bits corrected to reach a valid code.
func (d *Detection) Hamming() int {
	return int(d.record().Hamming)
}

// DecisionMargin measures the quality of the decode; higher is better.
func (d *Detection) DecisionMargin() float32 {
	return d.record().DecisionMargin
}

// Center returns the tag center as [x, y] in pixels.
func (d *Detection) Center() [2]float64 {
	return d.record().C
}

// Corners returns the four corners as [x, y] pairs, wrapping counter-clockwise
// around the tag.
func (d *Detection) Corners() [4][2]float64 {
	return d.record().P
}

// Homography returns the 3x3 tag-to-image homography. The view is valid
// until the Detection is closed.
func (d *Detection) Homography() MatrixView {
	return MatrixView{owner: d, m: d.record().H}
}

// EstimatePose estimates the tag pose with the single-hypothesis solver.
// ok is false when the solver found no pose.
func (d *Detection) EstimatePose(params TagParams) (est PoseEstimation, ok bool) {
	info := params.bind(d.record())

	var rec sys.PoseRecord
	perr := d.engine.EstimateTagPose(&info, &rec)
	runtime.KeepAlive(&info)

	if !rec.Valid() {
		discardPose(d.engine, &rec)
		return PoseEstimation{}, false
	}
	return PoseEstimation{Pose: newPose(d.engine, rec), Error: perr}, true
}

// EstimatePoseOrthogonalIteration runs the dual-hypothesis solver for the
// given number of iterations. It returns the valid candidates, first slot
// before second; the result has zero, one or two entries.
func (d *Detection) EstimatePoseOrthogonalIteration(params TagParams, iterations int) []PoseEstimation {
	info := params.bind(d.record())

	var (
		pose1, pose2 sys.PoseRecord
		err1, err2   float64
	)
	d.engine.EstimateTagPoseOrthogonalIteration(&info, &err1, &pose1, &err2, &pose2, iterations)
	runtime.KeepAlive(&info)

	out := make([]PoseEstimation, 0, 2)
	for _, slot := range []struct {
		rec *sys.PoseRecord
		err float64
	}{{&pose1, err1}, {&pose2, err2}} {
		if !slot.rec.Valid() {
			discardPose(d.engine, slot.rec)
			continue
		}
		out = append(out, PoseEstimation{Pose: newPose(d.engine, *slot.rec), Error: slot.err})
	}
	return out
}

// Close destroys the detection record. Calling Close again is a no-op.
func (d *Detection) Close() {
	if !d.open() {
		return
	}
	rec := d.rec
	d.rec = nil
	d.engine.DetectionDestroy(rec)
}

// Release gives up ownership and returns the raw record. The handle behaves
// as closed afterwards and will not destroy the record.
func (d *Detection) Release() *sys.DetectionRecord {
	rec := d.record()
	d.rec = nil
	return rec
}

// String implements fmt.Stringer.
func (d *Detection) String() string {
	if !d.open() {
		return "Detection{closed}"
	}
	return fmt.Sprintf("Detection{id: %d, hamming: %d, decision_margin: %g, center: %v, corners: %v}",
		d.ID(), d.Hamming(), d.DecisionMargin(), d.Center(), d.Corners())
}

// CloseAll closes every detection in dets.
func CloseAll(dets []*Detection) {
	for _, d := range dets {
		if d != nil {
			d.Close()
		}
	}
}
