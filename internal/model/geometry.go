package model

import "math"

// Rect is an axis-aligned bounding box in CSS pixels, page coordinates.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Empty reports whether the box has no area.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Right returns the x coordinate of the right edge.
func (r Rect) Right() float64 {
	return r.X + r.Width
}

// Bottom returns the y coordinate of the bottom edge.
func (r Rect) Bottom() float64 {
	return r.Y + r.Height
}

// Union returns the smallest box containing both r and o.
// An empty operand is ignored.
func (r Rect) Union(o Rect) Rect {
	if r.Empty() {
		return o
	}
	if o.Empty() {
		return r
	}
	x := math.Min(r.X, o.X)
	y := math.Min(r.Y, o.Y)
	return Rect{
		X:      x,
		Y:      y,
		Width:  math.Max(r.Right(), o.Right()) - x,
		Height: math.Max(r.Bottom(), o.Bottom()) - y,
	}
}

// Distance returns the shortest gap between the edges of two boxes.
// Overlapping or touching boxes are at distance zero.
func (r Rect) Distance(o Rect) float64 {
	dx := math.Max(0, math.Max(o.X-r.Right(), r.X-o.Right()))
	dy := math.Max(0, math.Max(o.Y-r.Bottom(), r.Y-o.Bottom()))
	return math.Hypot(dx, dy)
}
