package netentity

import (
	"strconv"

	"github.com/automoto/nafsync/shared/gamemath"
	"github.com/goccy/go-json"
)

// Object is the host-side visual representation of an entity. The host owns
// the transform; records only read and write it.
type Object interface {
	Position() gamemath.Vec3
	SetPosition(gamemath.Vec3)
	Rotation() gamemath.Quat
	SetRotation(gamemath.Quat)
}

// Host spawns and destroys visual objects for entities.
type Host interface {
	Spawn(templateID string, pos gamemath.Vec3, rot gamemath.Quat) (Object, error)
	Destroy(obj Object)
}

// CustomComponent synchronizes one non-transform piece of entity state.
//
// Decode applies a value received from the owner. Encode produces the value
// to broadcast for a locally owned entity and must not change the
// component's state, since the send can still fail. IsDirty reports whether
// the local value needs to be sent again; the scheduler treats it as an
// opaque predicate.
type CustomComponent interface {
	Decode(raw json.RawMessage) error
	Encode() (any, error)
	IsDirty() bool
}

// Committer is implemented by components that track what was last sent.
// Committed is called with the encoded value once the snapshot carrying it
// has been handed off to the transport.
type Committer interface {
	Committed(raw json.RawMessage)
}

// ComponentFactory builds the component instance bound to one spawned object.
type ComponentFactory func(obj Object) CustomComponent

// ComponentRegistration declares a custom component at a wire index.
type ComponentRegistration struct {
	Index int
	New   ComponentFactory
}

// boundComponent is a component instance attached to a record.
type boundComponent struct {
	index int
	impl  CustomComponent
}

// indexKey is the wire key of a custom component index.
func indexKey(index int) string {
	return strconv.Itoa(index)
}
