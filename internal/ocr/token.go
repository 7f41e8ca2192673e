// Package ocr turns raw text detections from a screenshot into the short
// list of readable strings the consistency judgments compare against.
package ocr

import (
	"context"
	"errors"
	"strings"

	"github.com/jackzampolin/reportcheck/internal/geometry"
)

// ErrDetectionUnavailable is returned by detectors that cannot run at all
// (missing engine, unreachable endpoint). The pipeline treats it as "no text".
var ErrDetectionUnavailable = errors.New("text detection unavailable")

// Detection is one fragment reported by a text detector.
type Detection struct {
	Points     []geometry.Point `json:"points"`
	Content    string           `json:"content"`
	Confidence float64          `json:"confidence"` // 0..1
}

// Detector finds text fragments in an encoded image.
type Detector interface {
	Name() string
	Detect(ctx context.Context, image []byte) ([]Detection, error)
}

// Token is a piece of recognized text with its bounding box.
type Token struct {
	ID      int          `json:"id"`
	Content string       `json:"content"`
	Box     geometry.Box `json:"box"`
}

// Height of the token box.
func (t Token) Height() float64 { return t.Box.Height() }

// Width of the token box.
func (t Token) Width() float64 { return t.Box.Width() }

// WordWidth is the average width of one word in the token.
func (t Token) WordWidth() float64 {
	n := len(strings.Fields(t.Content))
	if n < 1 {
		n = 1
	}
	return t.Width() / float64(n)
}

// absorb folds o into t. The receiver's text stays first.
func (t *Token) absorb(o Token) {
	t.Box = t.Box.Union(o.Box)
	t.Content = t.Content + " " + o.Content
}
