// Package game defines the point-in-time snapshots the bridge hands to tasks
// every tick. All types are plain values; nothing here talks to the client.
package game

import "math"

// Unreachable is the distance between points on different planes.
const Unreachable = math.MaxInt32

type Point struct {
	X     int `json:"x" yaml:"x"`
	Y     int `json:"y" yaml:"y"`
	Plane int `json:"plane" yaml:"plane"`
}

// DistanceTo is the Chebyshev tile distance.
func (p Point) DistanceTo(o Point) int {
	if p.Plane != o.Plane {
		return Unreachable
	}
	return max(abs(p.X-o.X), abs(p.Y-o.Y))
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
