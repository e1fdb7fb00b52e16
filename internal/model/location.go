package model

import "math"

// Location is a point in a named world.
// Value type, passed by value (immutable).
type Location struct {
	World string
	X     float64
	Y     float64
	Z     float64
}

// NewLocation creates a Location in world at the given coordinates.
func NewLocation(world string, x, y, z float64) Location {
	return Location{World: world, X: x, Y: y, Z: z}
}

// WithCoordinates returns a copy of the location moved to (x, y, z) in the same world.
func (l Location) WithCoordinates(x, y, z float64) Location {
	l.X = x
	l.Y = y
	l.Z = z
	return l
}

// IsValid reports whether the location names a world and has finite coordinates.
func (l Location) IsValid() bool {
	if l.World == "" {
		return false
	}
	for _, v := range [3]float64{l.X, l.Y, l.Z} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// DistanceSquared returns the squared distance to other (no sqrt).
// Locations in different worlds are infinitely far apart.
func (l Location) DistanceSquared(other Location) float64 {
	if l.World != other.World {
		return math.Inf(1)
	}
	dx := l.X - other.X
	dy := l.Y - other.Y
	dz := l.Z - other.Z
	return dx*dx + dy*dy + dz*dz
}
