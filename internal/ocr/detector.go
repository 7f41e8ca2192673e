package ocr

import (
	"fmt"
	"time"
)

const TesseractName = "tesseract"

// TesseractConfig configures the local tesseract detector.
type TesseractConfig struct {
	Languages []string
}

// DetectorConfig selects and configures one detector backend.
type DetectorConfig struct {
	Type      string // "tesseract", "google-vision", "paddle", "none"
	APIKey    string
	Endpoint  string
	Languages []string
	Timeout   time.Duration
	CacheSize int // 0 disables caching
}

// NewDetector builds the configured detector, wrapped in a cache when
// CacheSize is positive. Type "none" returns nil, which the pipeline treats
// as a detector that never finds text.
//
// A detector that could never succeed (tesseract missing from the build, no
// vision key, no paddle endpoint) is an error here rather than an empty
// result on every image.
func NewDetector(cfg DetectorConfig) (Detector, error) {
	var d Detector
	switch cfg.Type {
	case "", TesseractName:
		t, err := newTesseract(TesseractConfig{Languages: cfg.Languages})
		if err != nil {
			return nil, err
		}
		d = t
	case VisionName:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("%w: %s needs ocr.api_key", ErrDetectionUnavailable, VisionName)
		}
		d = NewVisionDetector(VisionConfig{APIKey: cfg.APIKey, BaseURL: cfg.Endpoint, Timeout: cfg.Timeout})
	case PaddleName:
		if cfg.Endpoint == "" {
			return nil, fmt.Errorf("%w: %s needs ocr.endpoint", ErrDetectionUnavailable, PaddleName)
		}
		d = NewPaddleDetector(PaddleConfig{Endpoint: cfg.Endpoint, Timeout: cfg.Timeout})
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown detector type: %s", cfg.Type)
	}

	if cfg.CacheSize > 0 {
		cached, err := NewCachedDetector(d, cfg.CacheSize)
		if err != nil {
			return nil, err
		}
		return cached, nil
	}
	return d, nil
}
