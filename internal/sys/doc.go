// Package sys is the boundary between Go and the native AprilTag engine.
//
// Everything on the far side of this package is memory the engine allocates,
// lays out and frees. The package provides three things:
//
//   - Record types that mirror the engine's C structs byte for byte
//     (zarray_t, matd_t, apriltag_detection_t, apriltag_pose_t,
//     apriltag_detection_info_t, image_u8_t).
//   - The Heap interface, the allocator that owns engine memory, and
//     TrackingHeap, a Go-side heap that records every block it hands out.
//   - The Engine interface, the set of native calls the binding makes.
//
// # Native Binding
//
// Building with cgo and the "apriltag" build tag links libapriltag through
// pkg-config:
//
//	go build -tags apriltag ./...
//
// Without the tag, Open returns ErrUnavailable and tools report the engine as
// missing instead of failing at startup.
//
// # Memory Rules
//
// Records returned by the engine are owned by exactly one Go handle (see the
// apriltag and zarray packages). Blocks obtained from a Heap must only be
// released through the same Heap. Heap memory must never store Go pointers to
// Go-managed objects; it may store pointers to other blocks of the same heap.
//
// Nothing in this package is safe for concurrent use except TrackingHeap.
package sys
