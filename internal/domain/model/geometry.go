package model

import "math"

// Vec is a point or displacement on the board plane
type Vec struct {
	X, Y float64
}

// Add returns v+o
func (v Vec) Add(o Vec) Vec { return Vec{v.X + o.X, v.Y + o.Y} }

// Sub returns v-o
func (v Vec) Sub(o Vec) Vec { return Vec{v.X - o.X, v.Y - o.Y} }

// Scale returns v*k
func (v Vec) Scale(k float64) Vec { return Vec{v.X * k, v.Y * k} }

// Len returns the Euclidean length
func (v Vec) Len() float64 { return math.Hypot(v.X, v.Y) }

// Dist returns the distance between two points
func (v Vec) Dist(o Vec) float64 { return v.Sub(o).Len() }

// Lerp interpolates from v toward o by t in [0,1]
func (v Vec) Lerp(o Vec, t float64) Vec {
	return Vec{v.X + (o.X-v.X)*t, v.Y + (o.Y-v.Y)*t}
}

// Rect is an axis-aligned region. Min is inclusive, Max is exclusive.
type Rect struct {
	Min, Max Vec
}

// RectAround returns a rect of the given size centred on c
func RectAround(c Vec, w, h float64) Rect {
	return Rect{
		Min: Vec{c.X - w/2, c.Y - h/2},
		Max: Vec{c.X + w/2, c.Y + h/2},
	}
}

// Center returns the centre point
func (r Rect) Center() Vec {
	return Vec{(r.Min.X + r.Max.X) / 2, (r.Min.Y + r.Max.Y) / 2}
}

// Size returns width and height
func (r Rect) Size() (float64, float64) {
	return r.Max.X - r.Min.X, r.Max.Y - r.Min.Y
}

// Empty reports whether the rect has no area
func (r Rect) Empty() bool {
	w, h := r.Size()
	return w <= 0 && h <= 0
}

// Union returns the smallest rect containing both
func (r Rect) Union(o Rect) Rect {
	return Rect{
		Min: Vec{math.Min(r.Min.X, o.Min.X), math.Min(r.Min.Y, o.Min.Y)},
		Max: Vec{math.Max(r.Max.X, o.Max.X), math.Max(r.Max.Y, o.Max.Y)},
	}
}

// Contains reports whether p lies within the rect
func (r Rect) Contains(p Vec) bool {
	return p.X >= r.Min.X && p.X < r.Max.X && p.Y >= r.Min.Y && p.Y < r.Max.Y
}
