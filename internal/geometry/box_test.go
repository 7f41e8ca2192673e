package geometry

import "testing"

func TestBound(t *testing.T) {
	box, ok := Bound([]Point{{X: 5, Y: 7}, {X: 1, Y: 9}, {X: 3, Y: 2}, {X: 4, Y: 4}})
	if !ok {
		t.Fatal("Bound returned ok=false for non-empty points")
	}
	want := Box{Left: 1, Top: 2, Right: 5, Bottom: 9}
	if box != want {
		t.Errorf("Bound = %+v, want %+v", box, want)
	}

	if _, ok := Bound(nil); ok {
		t.Error("Bound(nil) should report ok=false")
	}
}

func TestUnion(t *testing.T) {
	a := Box{Left: 0, Top: 0, Right: 10, Bottom: 10}
	b := Box{Left: 12, Top: 1, Right: 30, Bottom: 11}
	want := Box{Left: 0, Top: 0, Right: 30, Bottom: 11}
	if got := a.Union(b); got != want {
		t.Errorf("Union = %+v, want %+v", got, want)
	}
}

func TestSameLine(t *testing.T) {
	hello := Box{Left: 0, Top: 0, Right: 10, Bottom: 10}
	world := Box{Left: 12, Top: 1, Right: 30, Bottom: 11}
	below := Box{Left: 0, Top: 40, Right: 10, Bottom: 50}
	farRight := Box{Left: 200, Top: 0, Right: 210, Bottom: 10}

	tests := []struct {
		name    string
		a, b    Box
		axis    Axis
		justify float64
		gap     float64
		want    bool
	}{
		{"adjacent words", hello, world, Horizontal, 2, 36, true},
		{"different rows", hello, below, Horizontal, 2, 36, false},
		{"gap too wide", hello, farRight, Horizontal, 2, 36, false},
		{"overlapping boxes", hello, Box{Left: 5, Top: 0, Right: 15, Bottom: 10}, Horizontal, 2, 0, true},
		{"vertical column", hello, below, Vertical, 2, 36, true},
		{"vertical misaligned", hello, farRight, Vertical, 2, 36, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SameLine(tt.a, tt.b, tt.axis, tt.justify, tt.gap); got != tt.want {
				t.Errorf("SameLine(a, b) = %v, want %v", got, tt.want)
			}
			if got := SameLine(tt.b, tt.a, tt.axis, tt.justify, tt.gap); got != tt.want {
				t.Errorf("SameLine(b, a) = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIntersects(t *testing.T) {
	a := Box{Left: 0, Top: 0, Right: 10, Bottom: 10}

	tests := []struct {
		name string
		b    Box
		bias float64
		want bool
	}{
		{"overlap", Box{Left: 5, Top: 5, Right: 15, Bottom: 15}, 0, true},
		{"touching", Box{Left: 10, Top: 0, Right: 20, Bottom: 10}, 0, true},
		{"within bias", Box{Left: 13, Top: 0, Right: 20, Bottom: 10}, 2, true},
		{"beyond bias", Box{Left: 15, Top: 0, Right: 20, Bottom: 10}, 2, false},
		{"separated vertically", Box{Left: 0, Top: 20, Right: 10, Bottom: 30}, 2, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Intersects(a, tt.b, tt.bias); got != tt.want {
				t.Errorf("Intersects(a, b) = %v, want %v", got, tt.want)
			}
			if got := Intersects(tt.b, a, tt.bias); got != tt.want {
				t.Errorf("Intersects(b, a) = %v, want %v", got, tt.want)
			}
		})
	}
}
