package ocr

import (
	"context"
	"fmt"
	"sync/atomic"
)

const MockDetectorName = "mock"

// MockDetector is a Detector for testing.
type MockDetector struct {
	Detections []Detection
	ShouldFail bool
	Err        error // returned when ShouldFail is set; defaults to a generic failure

	requestCount atomic.Int64
}

// Name returns the detector identifier.
func (d *MockDetector) Name() string {
	return MockDetectorName
}

// Detect returns the configured detections.
func (d *MockDetector) Detect(ctx context.Context, image []byte) ([]Detection, error) {
	d.requestCount.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if d.ShouldFail {
		if d.Err != nil {
			return nil, d.Err
		}
		return nil, fmt.Errorf("mock detector configured to fail")
	}
	out := make([]Detection, len(d.Detections))
	copy(out, d.Detections)
	return out, nil
}

// RequestCount returns the number of Detect calls.
func (d *MockDetector) RequestCount() int64 {
	return d.requestCount.Load()
}

var _ Detector = (*MockDetector)(nil)
