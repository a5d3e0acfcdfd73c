package track

import "math"

// Point is a 2D position in normalized image space.
// (0,0) is the top-left corner, (1,1) the bottom-right. Values are not
// strictly clamped: a feature drifting off frame keeps its extrapolated
// position.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func NewPoint(x, y float64) Point {
	return Point{
		X: x,
		Y: y,
	}
}

// ToPixels converts the normalized point to pixel coordinates.
func (p Point) ToPixels(width, height int) (float64, float64) {
	return p.X * float64(width), p.Y * float64(height)
}

// Region is an axis-aligned rectangle in normalized image space,
// used for a track's pattern and search areas.
type Region struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// NewRegionAround builds a square region of the given size centered on p.
func NewRegionAround(p Point, size float64) Region {
	return Region{
		X:      p.X - size/2.0,
		Y:      p.Y - size/2.0,
		Width:  size,
		Height: size,
	}
}

// Center returns the region's center point.
func (r Region) Center() Point {
	return Point{
		X: r.X + r.Width/2.0,
		Y: r.Y + r.Height/2.0,
	}
}

// Contains reports whether p lies inside the region.
func (r Region) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.X+r.Width && p.Y >= r.Y && p.Y <= r.Y+r.Height
}

func euclideanDistance(p1, p2 Point) float64 {
	return math.Sqrt(math.Pow(p1.X-p2.X, 2) + math.Pow(p1.Y-p2.Y, 2))
}

// Distance returns the Euclidean distance between two normalized points.
func Distance(p1, p2 Point) float64 {
	return euclideanDistance(p1, p2)
}
