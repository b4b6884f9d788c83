//go:build cgo && apriltag

package sys

/*
#cgo pkg-config: apriltag

#include <stdlib.h>
#include <string.h>
#include <apriltag/apriltag.h>
#include <apriltag/apriltag_pose.h>
#include <apriltag/tag36h11.h>
#include <apriltag/tag25h9.h>
#include <apriltag/tag16h5.h>
#include <apriltag/tagCircle21h7.h>
#include <apriltag/tagCircle49h12.h>
#include <apriltag/tagStandard41h12.h>
#include <apriltag/tagStandard52h13.h>
#include <apriltag/tagCustom48h12.h>

static apriltag_family_t *family_create(const char *name) {
	if (strcmp(name, "tag36h11") == 0) return tag36h11_create();
	if (strcmp(name, "tag25h9") == 0) return tag25h9_create();
	if (strcmp(name, "tag16h5") == 0) return tag16h5_create();
	if (strcmp(name, "tagCircle21h7") == 0) return tagCircle21h7_create();
	if (strcmp(name, "tagCircle49h12") == 0) return tagCircle49h12_create();
	if (strcmp(name, "tagStandard41h12") == 0) return tagStandard41h12_create();
	if (strcmp(name, "tagStandard52h13") == 0) return tagStandard52h13_create();
	if (strcmp(name, "tagCustom48h12") == 0) return tagCustom48h12_create();
	return NULL;
}

static void family_destroy(const char *name, apriltag_family_t *tf) {
	if (strcmp(name, "tag36h11") == 0) tag36h11_destroy(tf);
	else if (strcmp(name, "tag25h9") == 0) tag25h9_destroy(tf);
	else if (strcmp(name, "tag16h5") == 0) tag16h5_destroy(tf);
	else if (strcmp(name, "tagCircle21h7") == 0) tagCircle21h7_destroy(tf);
	else if (strcmp(name, "tagCircle49h12") == 0) tagCircle49h12_destroy(tf);
	else if (strcmp(name, "tagStandard41h12") == 0) tagStandard41h12_destroy(tf);
	else if (strcmp(name, "tagStandard52h13") == 0) tagStandard52h13_destroy(tf);
	else if (strcmp(name, "tagCustom48h12") == 0) tagCustom48h12_destroy(tf);
}

static void detector_configure(apriltag_detector_t *td, int nthreads, float decimate,
		float sigma, int refine, double sharpening, int debug) {
	td->nthreads = nthreads;
	td->quad_decimate = decimate;
	td->quad_sigma = sigma;
	td->refine_edges = refine;
	td->decode_sharpening = sharpening;
	td->debug = debug;
}
*/
import "C"

import (
	"fmt"
	"unsafe"
)

// The Go mirrors must match the C layouts exactly.
var (
	_ = [1]struct{}{}[unsafe.Sizeof(ArrayRecord{})-unsafe.Sizeof(C.zarray_t{})]
	_ = [1]struct{}{}[unsafe.Sizeof(DetectionRecord{})-unsafe.Sizeof(C.apriltag_detection_t{})]
	_ = [1]struct{}{}[unsafe.Sizeof(PoseRecord{})-unsafe.Sizeof(C.apriltag_pose_t{})]
	_ = [1]struct{}{}[unsafe.Sizeof(DetectionInfo{})-unsafe.Sizeof(C.apriltag_detection_info_t{})]
	_ = [1]struct{}{}[unsafe.Sizeof(ImageU8{})-unsafe.Sizeof(C.image_u8_t{})]
	_ = [1]struct{}{}[MatdHeaderSize-unsafe.Sizeof(C.matd_t{})]
)

// native calls libapriltag through cgo. All memory comes from the C allocator.
type native struct{}

// Open returns the libapriltag engine.
func Open() (Engine, error) {
	return native{}, nil
}

func (native) Calloc(n, size uintptr) unsafe.Pointer {
	return C.calloc(C.size_t(n), C.size_t(size))
}

func (native) Malloc(size uintptr) unsafe.Pointer {
	return C.malloc(C.size_t(size))
}

func (native) Free(p unsafe.Pointer) {
	C.free(p)
}

func (native) EstimateTagPose(info *DetectionInfo, pose *PoseRecord) float64 {
	return float64(C.estimate_tag_pose(
		(*C.apriltag_detection_info_t)(unsafe.Pointer(info)),
		(*C.apriltag_pose_t)(unsafe.Pointer(pose)),
	))
}

func (native) EstimateTagPoseOrthogonalIteration(info *DetectionInfo, err1 *float64, pose1 *PoseRecord, err2 *float64, pose2 *PoseRecord, nIters int) {
	C.estimate_tag_pose_orthogonal_iteration(
		(*C.apriltag_detection_info_t)(unsafe.Pointer(info)),
		(*C.double)(unsafe.Pointer(err1)),
		(*C.apriltag_pose_t)(unsafe.Pointer(pose1)),
		(*C.double)(unsafe.Pointer(err2)),
		(*C.apriltag_pose_t)(unsafe.Pointer(pose2)),
		C.int(nIters),
	)
}

func (native) DetectionDestroy(det *DetectionRecord) {
	C.apriltag_detection_destroy((*C.apriltag_detection_t)(unsafe.Pointer(det)))
}

func (native) MatdDestroy(m *MatdRecord) {
	C.matd_destroy((*C.matd_t)(unsafe.Pointer(m)))
}

func (native) DetectorCreate(family string, opts DetectorOptions) (*DetectorRecord, error) {
	if !KnownFamily(family) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFamily, family)
	}

	cName := C.CString(family)
	defer C.free(unsafe.Pointer(cName))

	tf := C.family_create(cName)
	if tf == nil {
		return nil, fmt.Errorf("failed to create tag family %s", family)
	}

	td := C.apriltag_detector_create()
	if td == nil {
		C.family_destroy(cName, tf)
		return nil, fmt.Errorf("failed to create detector")
	}
	C.apriltag_detector_add_family_bits(td, tf, 2)
	C.detector_configure(td,
		C.int(opts.Threads),
		C.float(opts.QuadDecimate),
		C.float(opts.QuadSigma),
		cBool(opts.RefineEdges),
		C.double(opts.DecodeSharpening),
		cBool(opts.Debug),
	)

	return &DetectorRecord{
		Native:     unsafe.Pointer(td),
		Family:     unsafe.Pointer(tf),
		FamilyName: family,
	}, nil
}

func (native) DetectorDetect(td *DetectorRecord, img *ImageU8) *ArrayRecord {
	za := C.apriltag_detector_detect(
		(*C.apriltag_detector_t)(td.Native),
		(*C.image_u8_t)(unsafe.Pointer(img)),
	)
	return (*ArrayRecord)(unsafe.Pointer(za))
}

func (native) DetectorDestroy(td *DetectorRecord) {
	C.apriltag_detector_destroy((*C.apriltag_detector_t)(td.Native))

	cName := C.CString(td.FamilyName)
	defer C.free(unsafe.Pointer(cName))
	C.family_destroy(cName, (*C.apriltag_family_t)(td.Family))
}

func (native) Version() string {
	return "libapriltag (cgo)"
}

func cBool(b bool) C.int {
	if b {
		return 1
	}
	return 0
}
