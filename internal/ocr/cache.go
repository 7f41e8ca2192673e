package ocr

import (
	"context"
	"crypto/sha256"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CachedDetector memoizes detections by image content hash. Detection is a
// pure function of the image, so repeated runs over one dataset (for example
// several strategies in a row) reuse earlier results.
type CachedDetector struct {
	inner Detector
	cache *lru.Cache[[sha256.Size]byte, []Detection]
}

// NewCachedDetector wraps inner with an LRU of the given size.
func NewCachedDetector(inner Detector, size int) (*CachedDetector, error) {
	cache, err := lru.New[[sha256.Size]byte, []Detection](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create detection cache: %w", err)
	}
	return &CachedDetector{inner: inner, cache: cache}, nil
}

// Name returns the wrapped detector's name.
func (d *CachedDetector) Name() string {
	return d.inner.Name()
}

// Detect returns cached detections or calls the wrapped detector.
// Failures are not cached.
func (d *CachedDetector) Detect(ctx context.Context, image []byte) ([]Detection, error) {
	key := sha256.Sum256(image)
	if hit, ok := d.cache.Get(key); ok {
		return hit, nil
	}
	detections, err := d.inner.Detect(ctx, image)
	if err != nil {
		return nil, err
	}
	d.cache.Add(key, detections)
	return detections, nil
}

// Len returns the number of cached images.
func (d *CachedDetector) Len() int {
	return d.cache.Len()
}

var _ Detector = (*CachedDetector)(nil)
