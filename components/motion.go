package components

import "github.com/yohamta/donburi"

// OrbitData drives a locally owned entity around a circle in the XZ plane.
type OrbitData struct {
	Radius float64
	Speed  float64 // radians per second
	Angle  float64
}

var Orbit = donburi.NewComponentType[OrbitData]()
