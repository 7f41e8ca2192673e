//go:build !tesseract

package ocr

import "fmt"

// Builds without the tesseract tag do not link gosseract.
func newTesseract(TesseractConfig) (Detector, error) {
	return nil, fmt.Errorf("%w: tesseract support not compiled in; rebuild with -tags tesseract or set ocr.detector to paddle, google-vision or none",
		ErrDetectionUnavailable)
}
