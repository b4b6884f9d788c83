// Package imaging prepares images for tag detection and renders detection
// results back onto them.
//
// Images are loaded through ImageCache, which decodes PNG, JPEG and GIF files
// and keeps both the decoded image and its grayscale conversions. ToGray
// produces the 8-bit, zero-origin *image.Gray the detector consumes, with
// optional blur and contrast preprocessing.
//
// # Coordinate System
//
// Pixel coordinates are 0-based with (0,0) at the top-left corner, X growing
// rightward and Y growing downward. This matches the detector's corner and
// center coordinates, so detection geometry can be passed to Overlay and
// CropTag unchanged.
//
// # Thread Safety
//
// ImageCache is safe for concurrent use. Cached images are shared and must
// not be modified by callers; DrawOverlay always draws onto a copy.
package imaging
