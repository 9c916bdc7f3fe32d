package systems

import (
	"math"

	"github.com/automoto/nafsync/components"
	"github.com/automoto/nafsync/shared/gamemath"
	"github.com/yohamta/donburi"
)

// UpdateOrbit moves every orbiting entity around the origin in the XZ plane
// and turns it to face along its path.
func UpdateOrbit(world donburi.World, dt float64) {
	components.Orbit.Each(world, func(entry *donburi.Entry) {
		orbit := components.Orbit.Get(entry)
		orbit.Angle = math.Mod(orbit.Angle+orbit.Speed*dt, 2*math.Pi)

		transform := components.Transform.Get(entry)
		transform.Position = gamemath.Vec3{
			X: orbit.Radius * math.Cos(orbit.Angle),
			Y: transform.Position.Y,
			Z: orbit.Radius * math.Sin(orbit.Angle),
		}
		heading := -orbit.Angle * 180 / math.Pi
		if orbit.Speed < 0 {
			heading += 180
		}
		transform.Rotation = gamemath.Euler(0, heading, 0)
	})
}
