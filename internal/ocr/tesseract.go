//go:build tesseract

package ocr

import (
	"context"
	"fmt"

	"github.com/otiai10/gosseract/v2"

	"github.com/jackzampolin/reportcheck/internal/geometry"
)

// TesseractDetector runs the local tesseract engine through gosseract.
type TesseractDetector struct {
	languages []string
}

// NewTesseractDetector creates a local tesseract detector.
func NewTesseractDetector(cfg TesseractConfig) *TesseractDetector {
	langs := cfg.Languages
	if len(langs) == 0 {
		langs = []string{"eng"}
	}
	return &TesseractDetector{languages: langs}
}

func newTesseract(cfg TesseractConfig) (Detector, error) {
	return NewTesseractDetector(cfg), nil
}

// Name returns the detector identifier.
func (d *TesseractDetector) Name() string {
	return TesseractName
}

// Detect returns word-level boxes. Tesseract confidences (0..100) are scaled to 0..1.
func (d *TesseractDetector) Detect(ctx context.Context, image []byte) ([]Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(d.languages...); err != nil {
		return nil, fmt.Errorf("failed to set language: %w", err)
	}
	if err := client.SetImageFromBytes(image); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, fmt.Errorf("tesseract detection failed: %w", err)
	}

	out := make([]Detection, 0, len(boxes))
	for _, b := range boxes {
		r := b.Box
		out = append(out, Detection{
			Points: []geometry.Point{
				{X: float64(r.Min.X), Y: float64(r.Min.Y)},
				{X: float64(r.Max.X), Y: float64(r.Max.Y)},
			},
			Content:    b.Word,
			Confidence: b.Confidence / 100,
		})
	}
	return out, nil
}

var _ Detector = (*TesseractDetector)(nil)
