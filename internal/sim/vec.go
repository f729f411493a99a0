package sim

import "math"

// Vec2 is a 2-D vector in world space (pixels).
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (v Vec2) Add(o Vec2) Vec2 { return Vec2{v.X + o.X, v.Y + o.Y} }

func (v Vec2) Sub(o Vec2) Vec2 { return Vec2{v.X - o.X, v.Y - o.Y} }

func (v Vec2) Scale(k float64) Vec2 { return Vec2{v.X * k, v.Y * k} }

// Len returns the Euclidean length.
func (v Vec2) Len() float64 { return math.Sqrt(v.X*v.X + v.Y*v.Y) }

// ChunkCoord addresses one chunk of the coarse grid.
type ChunkCoord struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// inGrid reports whether c lies inside a cols×rows grid.
func (c ChunkCoord) inGrid(cols, rows int) bool {
	return c.X >= 0 && c.X < cols && c.Y >= 0 && c.Y < rows
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
