// Package apriltag exposes AprilTag detections and pose estimates as
// ownership-checked handles over engine memory.
//
// # Ownership
//
// Every engine record is owned by exactly one handle:
//
//   - Detection owns one apriltag_detection_t and its homography.
//   - Pose owns the rotation and translation matrices of one estimate.
//   - Detector owns a native detector and its tag family.
//
// Handles are released with Close. Close is idempotent; every other method
// panics once the handle is closed, so a use after free surfaces as a panic
// at the call site instead of a read of freed memory. Release hands the raw
// record back to the caller and turns the handle into a closed one without
// freeing anything.
//
// # Borrowed Views
//
// MatrixView reads a matrix the owner keeps alive. A view checks its owner on
// every access and panics once the owner is closed. Views implement gonum's
// mat.Matrix; copy them with mat.DenseCopyOf to keep values past the owner.
//
// # Pose Estimation
//
// EstimatePose runs the single-hypothesis solver and reports absence with a
// false second return value. EstimatePoseOrthogonalIteration runs the
// dual-hypothesis solver and returns the valid candidates in solver order.
// Planar tags are ambiguous at some viewing angles, so neither candidate is
// preferred; rank them by Error if needed.
//
// # Example
//
//	det, err := apriltag.NewDetector(engine, "tag36h11", sys.DefaultDetectorOptions())
//	if err != nil {
//	    return err
//	}
//	defer det.Close()
//
//	tags, err := det.Detect(gray)
//	if err != nil {
//	    return err
//	}
//	defer apriltag.CloseAll(tags)
//
//	for _, tag := range tags {
//	    if est, ok := tag.EstimatePose(params); ok {
//	        fmt.Println(tag.ID(), est.Error)
//	        est.Pose.Close()
//	    }
//	}
//
// None of the types in this package are safe for concurrent use.
package apriltag
