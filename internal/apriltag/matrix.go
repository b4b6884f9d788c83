package apriltag

import (
	"gonum.org/v1/gonum/mat"

	"github.com/ironsheep/apriltag-mcp/internal/sys"
)

// owner is a handle that keeps engine matrices alive.
type owner interface {
	checkOpen()
}

// MatrixView is a read-only view of a matrix owned by a Detection or a Pose.
// It never allocates or frees engine memory.
type MatrixView struct {
	owner owner
	m     *sys.MatdRecord
}

var _ mat.Matrix = MatrixView{}

func (v MatrixView) record() *sys.MatdRecord {
	if v.owner == nil || v.m == nil {
		panic("apriltag: use of zero MatrixView")
	}
	v.owner.checkOpen()
	return v.m
}

// Dims returns the number of rows and columns.
func (v MatrixView) Dims() (r, c int) {
	m := v.record()
	return int(m.NRows), int(m.NCols)
}

// At returns the element at row i, column j. It panics with
// mat.ErrIndexOutOfRange outside the matrix.
func (v MatrixView) At(i, j int) float64 {
	m := v.record()
	if i < 0 || i >= int(m.NRows) || j < 0 || j >= int(m.NCols) {
		panic(mat.ErrIndexOutOfRange)
	}
	return m.Data()[i*int(m.NCols)+j]
}

// T returns the transpose of the view.
func (v MatrixView) T() mat.Matrix {
	return mat.Transpose{Matrix: v}
}

// Data returns the elements in row-major order. The slice aliases engine
// memory and is only valid while the owner is open.
func (v MatrixView) Data() []float64 {
	return v.record().Data()
}

// Rows copies the matrix into a slice of rows.
func (v MatrixView) Rows() [][]float64 {
	r, c := v.Dims()
	data := v.Data()
	rows := make([][]float64, r)
	for i := range rows {
		rows[i] = append([]float64(nil), data[i*c:(i+1)*c]...)
	}
	return rows
}
