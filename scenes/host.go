package scenes

import (
	"github.com/automoto/nafsync/archetypes"
	"github.com/automoto/nafsync/components"
	"github.com/automoto/nafsync/netentity"
	"github.com/automoto/nafsync/shared/gamemath"
	"github.com/automoto/nafsync/tags"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/rs/zerolog"
	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/filter"
)

var networkedQuery = donburi.NewQuery(filter.Contains(tags.Networked))

// WorldHost spawns networked entities into a donburi world. It stands in for
// the rendering host: it owns every transform, and sync code reaches them only
// through the netentity.Object it hands out.
type WorldHost struct {
	world donburi.World
	log   zerolog.Logger
}

func NewWorldHost(world donburi.World, log zerolog.Logger) *WorldHost {
	return &WorldHost{
		world: world,
		log:   log.With().Str("component", "host").Logger(),
	}
}

func (h *WorldHost) Spawn(templateID string, pos gamemath.Vec3, rot gamemath.Quat) (netentity.Object, error) {
	entry := archetypes.Networked.Spawn(h.world)

	components.Transform.Set(entry, &components.TransformData{Position: pos, Rotation: rot})
	components.Template.Set(entry, &components.TemplateData{ID: templateID})
	components.Tint.Set(entry, &components.TintData{Color: colorful.Color{R: 1, G: 1, B: 1}})

	h.log.Debug().Str("template", templateID).Interface("position", pos).Msg("spawned")
	return &EntityObject{world: h.world, entity: entry.Entity()}, nil
}

func (h *WorldHost) Destroy(obj netentity.Object) {
	o, ok := obj.(*EntityObject)
	if !ok || !h.world.Valid(o.entity) {
		return
	}
	h.world.Remove(o.entity)
}

// Count returns the number of live networked entities.
func (h *WorldHost) Count() int {
	return networkedQuery.Count(h.world)
}

// EntityObject is a donburi entity seen as a netentity.Object.
type EntityObject struct {
	world  donburi.World
	entity donburi.Entity
}

func (o *EntityObject) Entity() donburi.Entity {
	return o.entity
}

// Entry returns the live entry, or nil once the entity is removed.
func (o *EntityObject) Entry() *donburi.Entry {
	if !o.world.Valid(o.entity) {
		return nil
	}
	return o.world.Entry(o.entity)
}

func (o *EntityObject) Position() gamemath.Vec3 {
	if e := o.Entry(); e != nil {
		return components.Transform.Get(e).Position
	}
	return gamemath.Vec3{}
}

func (o *EntityObject) SetPosition(p gamemath.Vec3) {
	if e := o.Entry(); e != nil {
		components.Transform.Get(e).Position = p
	}
}

func (o *EntityObject) Rotation() gamemath.Quat {
	if e := o.Entry(); e != nil {
		return components.Transform.Get(e).Rotation
	}
	return gamemath.QuatIdentity
}

func (o *EntityObject) SetRotation(q gamemath.Quat) {
	if e := o.Entry(); e != nil {
		components.Transform.Get(e).Rotation = q
	}
}

func (o *EntityObject) Tint() colorful.Color {
	if e := o.Entry(); e != nil {
		return components.Tint.Get(e).Color
	}
	return colorful.Color{}
}

func (o *EntityObject) SetTint(c colorful.Color) {
	if e := o.Entry(); e != nil {
		components.Tint.Get(e).Color = c
	}
}
