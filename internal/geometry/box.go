// Package geometry holds the axis-aligned box predicates used to decide
// whether two OCR fragments belong together.
package geometry

import "math"

// Axis selects the reading direction for SameLine.
type Axis int

const (
	Horizontal Axis = iota
	Vertical
)

func (a Axis) String() string {
	if a == Vertical {
		return "vertical"
	}
	return "horizontal"
}

// Point is a single vertex reported by a text detector.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Box is an axis-aligned rectangle in image coordinates (y grows downwards).
type Box struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
}

// Width returns the horizontal extent of the box.
func (b Box) Width() float64 { return b.Right - b.Left }

// Height returns the vertical extent of the box.
func (b Box) Height() float64 { return b.Bottom - b.Top }

// CenterX returns the horizontal midpoint.
func (b Box) CenterX() float64 { return (b.Left + b.Right) / 2 }

// CenterY returns the vertical midpoint.
func (b Box) CenterY() float64 { return (b.Top + b.Bottom) / 2 }

// Union returns the smallest box enclosing both b and o.
func (b Box) Union(o Box) Box {
	return Box{
		Left:   math.Min(b.Left, o.Left),
		Top:    math.Min(b.Top, o.Top),
		Right:  math.Max(b.Right, o.Right),
		Bottom: math.Max(b.Bottom, o.Bottom),
	}
}

// Scale multiplies every coordinate by f.
func (b Box) Scale(f float64) Box {
	return Box{Left: b.Left * f, Top: b.Top * f, Right: b.Right * f, Bottom: b.Bottom * f}
}

// Bound returns the tightest box enclosing pts. ok is false when pts is empty.
func Bound(pts []Point) (box Box, ok bool) {
	if len(pts) == 0 {
		return Box{}, false
	}
	box = Box{Left: pts[0].X, Top: pts[0].Y, Right: pts[0].X, Bottom: pts[0].Y}
	for _, p := range pts[1:] {
		box.Left = math.Min(box.Left, p.X)
		box.Top = math.Min(box.Top, p.Y)
		box.Right = math.Max(box.Right, p.X)
		box.Bottom = math.Max(box.Bottom, p.Y)
	}
	return box, true
}

// SameLine reports whether a and b sit on one reading line along axis.
//
// For Horizontal, the vertical centres must differ by at most biasJustify
// and the horizontal gap between the facing edges must not exceed biasGap.
// Overlapping boxes have a negative gap. Vertical is the transposed rule.
func SameLine(a, b Box, axis Axis, biasJustify, biasGap float64) bool {
	var drift, gap float64
	switch axis {
	case Vertical:
		drift = math.Abs(a.CenterX() - b.CenterX())
		gap = math.Max(a.Top, b.Top) - math.Min(a.Bottom, b.Bottom)
	default:
		drift = math.Abs(a.CenterY() - b.CenterY())
		gap = math.Max(a.Left, b.Left) - math.Min(a.Right, b.Right)
	}
	return drift <= biasJustify && gap <= biasGap
}

// Intersects reports whether a and b overlap once each is grown by bias on
// every side. Touching edges count as overlap.
func Intersects(a, b Box, bias float64) bool {
	return a.Left-bias <= b.Right+bias &&
		b.Left-bias <= a.Right+bias &&
		a.Top-bias <= b.Bottom+bias &&
		b.Top-bias <= a.Bottom+bias
}
