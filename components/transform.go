package components

import (
	"github.com/automoto/nafsync/shared/gamemath"
	"github.com/yohamta/donburi"
)

// TransformData is the host-owned pose of an entity. Sync code reads and
// writes it through netentity.Object; nothing else moves remote entities.
type TransformData struct {
	Position gamemath.Vec3
	Rotation gamemath.Quat
}

var Transform = donburi.NewComponentType[TransformData]()
