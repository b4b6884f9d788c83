package imaging

import (
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"os"
	"sync"
)

// ImageCache caches decoded images and their grayscale conversions.
//
// Decoded images are keyed by path. Grayscale images are keyed by path and
// preprocessing settings, since detection on the same file is often repeated
// with different pose parameters but the same pixels.
//
// ImageCache is safe for concurrent use by multiple goroutines.
//
// # Example Usage
//
//	cache := imaging.NewImageCache()
//	gray, err := cache.LoadGray("/path/to/frame.png", imaging.Preprocess{})
//	if err != nil {
//	    return err
//	}
//	tags, err := detector.Detect(gray)
type ImageCache struct {
	mu     sync.RWMutex
	images map[string]image.Image
	grays  map[grayKey]*image.Gray
}

type grayKey struct {
	path string
	pre  Preprocess
}

// NewImageCache creates and initializes a new empty image cache.
func NewImageCache() *ImageCache {
	return &ImageCache{
		images: make(map[string]image.Image),
		grays:  make(map[grayKey]*image.Gray),
	}
}

// Load retrieves an image from the cache or loads it from disk if not cached.
//
// Parameters:
//   - path: File path to the image. Supported formats are PNG, JPEG, and GIF.
//
// Returns:
//   - image.Image: The decoded image.
//   - error: Non-nil if the file cannot be opened or decoded.
func (c *ImageCache) Load(path string) (image.Image, error) {
	c.mu.RLock()
	if img, ok := c.images[path]; ok {
		c.mu.RUnlock()
		return img, nil
	}
	c.mu.RUnlock()

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	c.mu.Lock()
	c.images[path] = img
	c.mu.Unlock()

	return img, nil
}

// LoadGray loads an image and returns its preprocessed grayscale version,
// the input format of the tag detector.
func (c *ImageCache) LoadGray(path string, pre Preprocess) (*image.Gray, error) {
	key := grayKey{path: path, pre: pre}

	c.mu.RLock()
	if g, ok := c.grays[key]; ok {
		c.mu.RUnlock()
		return g, nil
	}
	c.mu.RUnlock()

	img, err := c.Load(path)
	if err != nil {
		return nil, err
	}
	g := ToGray(img, pre)

	c.mu.Lock()
	c.grays[key] = g
	c.mu.Unlock()

	return g, nil
}

// Clear removes all images from the cache.
func (c *ImageCache) Clear() {
	c.mu.Lock()
	c.images = make(map[string]image.Image)
	c.grays = make(map[grayKey]*image.Gray)
	c.mu.Unlock()
}

// Evict removes an image and all its grayscale variants from the cache.
func (c *ImageCache) Evict(path string) {
	c.mu.Lock()
	delete(c.images, path)
	for k := range c.grays {
		if k.path == path {
			delete(c.grays, k)
		}
	}
	c.mu.Unlock()
}

// Len returns the number of decoded images held.
func (c *ImageCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.images)
}
