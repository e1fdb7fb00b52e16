package model

import "math"

// Bounds is an axis-aligned cuboid. Min holds the smallest coordinate on every
// axis, Max the largest; both faces are inside.
type Bounds struct {
	MinX, MinY, MinZ float64
	MaxX, MaxY, MaxZ float64
}

// NewBounds builds Bounds from two arbitrary corner points.
func NewBounds(x1, y1, z1, x2, y2, z2 float64) Bounds {
	return Bounds{
		MinX: math.Min(x1, x2), MinY: math.Min(y1, y2), MinZ: math.Min(z1, z2),
		MaxX: math.Max(x1, x2), MaxY: math.Max(y1, y2), MaxZ: math.Max(z1, z2),
	}
}

// Contains checks if point (x, y, z) lies inside the cuboid.
func (b Bounds) Contains(x, y, z float64) bool {
	return x >= b.MinX && x <= b.MaxX &&
		y >= b.MinY && y <= b.MaxY &&
		z >= b.MinZ && z <= b.MaxZ
}

// Volume returns the cuboid volume.
func (b Bounds) Volume() float64 {
	return (b.MaxX - b.MinX) * (b.MaxY - b.MinY) * (b.MaxZ - b.MinZ)
}

// Center returns the cuboid center.
func (b Bounds) Center() (x, y, z float64) {
	return (b.MinX + b.MaxX) / 2, (b.MinY + b.MaxY) / 2, (b.MinZ + b.MaxZ) / 2
}
