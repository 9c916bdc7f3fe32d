package tags

import "github.com/yohamta/donburi"

var (
	// Networked marks entities spawned through the sync host.
	Networked = donburi.NewTag().SetName("Networked")
	// Local marks entities this client owns and broadcasts.
	Local = donburi.NewTag().SetName("Local")
)
