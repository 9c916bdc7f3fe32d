package archetypes

import (
	"github.com/automoto/nafsync/components"
	"github.com/automoto/nafsync/tags"
	"github.com/yohamta/donburi"
)

var (
	// Networked is an entity spawned for a sync record.
	Networked = newArchetype(
		tags.Networked,
		components.Transform,
		components.Template,
		components.Tint,
	)
)

type archetype struct {
	components []donburi.IComponentType
}

func newArchetype(cs ...donburi.IComponentType) *archetype {
	return &archetype{
		components: cs,
	}
}

func (a *archetype) Spawn(world donburi.World, cs ...donburi.IComponentType) *donburi.Entry {
	all := make([]donburi.IComponentType, 0, len(a.components)+len(cs))
	all = append(all, a.components...)
	all = append(all, cs...)
	return world.Entry(world.Create(all...))
}
