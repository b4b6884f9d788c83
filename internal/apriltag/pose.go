package apriltag

import (
	"gonum.org/v1/gonum/mat"

	"github.com/ironsheep/apriltag-mcp/internal/sys"
)

// TagParams holds the tag size and camera intrinsics used for pose estimation.
// Units follow the engine: TagSize sets the unit of the translation, the focal
// lengths and principal point are in pixels.
type TagParams struct {
	TagSize float64 `json:"tag_size" toml:"tag_size"`
	Fx      float64 `json:"fx" toml:"fx"`
	Fy      float64 `json:"fy" toml:"fy"`
	Cx      float64 `json:"cx" toml:"cx"`
	Cy      float64 `json:"cy" toml:"cy"`
}

func (p TagParams) bind(det *sys.DetectionRecord) sys.DetectionInfo {
	return sys.DetectionInfo{
		Det:     det,
		TagSize: p.TagSize,
		Fx:      p.Fx,
		Fy:      p.Fy,
		Cx:      p.Cx,
		Cy:      p.Cy,
	}
}

// Pose is a rigid transform owned by value: a 3x3 rotation and a 3x1
// translation from tag frame to camera frame. Copies of a Pose value share
// one owner.
type Pose struct {
	*pose
}

type pose struct {
	engine sys.Engine
	rec    sys.PoseRecord
	closed bool
}

// PoseEstimation pairs a pose with its reprojection error.
type PoseEstimation struct {
	Pose  *Pose
	Error float64
}

// newPose takes ownership of a valid pose record.
func newPose(engine sys.Engine, rec sys.PoseRecord) *Pose {
	if !rec.Valid() {
		panic("apriltag: pose without rotation")
	}
	return &Pose{&pose{engine: engine, rec: rec}}
}

// discardPose frees whatever an invalid slot carries.
func discardPose(engine sys.Engine, rec *sys.PoseRecord) {
	if rec.R != nil {
		engine.MatdDestroy(rec.R)
	}
	if rec.T != nil {
		engine.MatdDestroy(rec.T)
	}
	*rec = sys.PoseRecord{}
}

func (p *Pose) open() bool {
	return p.pose != nil && !p.closed
}

func (p *Pose) checkOpen() {
	if !p.open() {
		panic("apriltag: use of closed Pose")
	}
}

// Rotation returns the 3x3 rotation matrix.
func (p *Pose) Rotation() MatrixView {
	p.checkOpen()
	return MatrixView{owner: p, m: p.rec.R}
}

// Translation returns the 3x1 translation vector. It panics if the engine
// produced no translation.
func (p *Pose) Translation() MatrixView {
	p.checkOpen()
	if p.rec.T == nil {
		panic("apriltag: pose without translation")
	}
	return MatrixView{owner: p, m: p.rec.T}
}

// Dense returns the pose as a 4x4 homogeneous transform owned by the caller.
func (p *Pose) Dense() *mat.Dense {
	out := mat.NewDense(4, 4, nil)
	out.Slice(0, 3, 0, 3).(*mat.Dense).Copy(p.Rotation())
	if p.rec.T != nil {
		out.Slice(0, 3, 3, 4).(*mat.Dense).Copy(p.Translation())
	}
	out.Set(3, 3, 1)
	return out
}

// Close frees the pose matrices.
func (p *Pose) Close() {
	if !p.open() {
		return
	}
	p.closed = true
	discardPose(p.engine, &p.rec)
}

// Release gives up ownership of the matrices and returns the raw record.
func (p *Pose) Release() sys.PoseRecord {
	p.checkOpen()
	p.closed = true
	rec := p.rec
	p.rec = sys.PoseRecord{}
	return rec
}

// Close frees the estimated pose.
func (e PoseEstimation) Close() {
	if e.Pose != nil {
		e.Pose.Close()
	}
}
