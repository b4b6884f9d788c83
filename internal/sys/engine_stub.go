//go:build !(cgo && apriltag)

package sys

// Open reports ErrUnavailable: this build does not link libapriltag.
// Rebuild with CGO_ENABLED=1 and -tags apriltag to enable the engine.
func Open() (Engine, error) {
	return nil, ErrUnavailable
}
