package netentity

import (
	"sort"
	"strconv"
	"time"

	"github.com/automoto/nafsync/network"
	"github.com/automoto/nafsync/shared/gamemath"
	"github.com/automoto/nafsync/shared/messages"
	"github.com/automoto/nafsync/shared/netconfig"
	"github.com/goccy/go-json"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

// Record is the per-entity sync state. A record is either Local (this client
// is the source and broadcasts it) or Remote (it follows inbound snapshots);
// that never changes after construction.
type Record struct {
	networkID  string
	owner      string
	creator    string
	persistent bool
	templateID string
	local      bool

	lastOwnerTime float64

	object     Object
	interp     *network.Interpolator
	components []boundComponent

	// Outbound caches for dirty diffing (local records only).
	sentPosition gamemath.Vec3
	sentRotation gamemath.Quat
	lastSent     map[int]json.RawMessage
	nextSync     time.Time

	log zerolog.Logger
}

func newRecord(networkID string, tmpl *Template, obj Object, local bool, log zerolog.Logger) *Record {
	return &Record{
		networkID:     networkID,
		templateID:    tmpl.ID(),
		local:         local,
		lastOwnerTime: -1,
		object:        obj,
		interp:        network.NewInterpolator(),
		components:    tmpl.instantiate(obj),
		lastSent:      make(map[int]json.RawMessage),
		log:           log.With().Str("networkId", networkID).Logger(),
	}
}

// newRemoteRecord builds a record for an entity first seen in data.
func newRemoteRecord(data messages.EntityData, tmpl *Template, obj Object, log zerolog.Logger) *Record {
	r := newRecord(data.NetworkID, tmpl, obj, false, log)
	r.owner = data.Owner
	r.creator = data.Creator
	r.persistent = data.Persistent
	return r
}

// NewLocalRecord builds a record for an entity this client spawned. It has no
// owner until the session connects.
func NewLocalRecord(networkID string, tmpl *Template, obj Object, persistent bool, log zerolog.Logger) *Record {
	r := newRecord(networkID, tmpl, obj, true, log)
	r.persistent = persistent
	r.sentPosition = obj.Position()
	r.sentRotation = obj.Rotation()
	return r
}

func (r *Record) NetworkID() string      { return r.networkID }
func (r *Record) Owner() string          { return r.owner }
func (r *Record) Creator() string        { return r.creator }
func (r *Record) Persistent() bool       { return r.persistent }
func (r *Record) TemplateID() string     { return r.templateID }
func (r *Record) IsLocal() bool          { return r.local }
func (r *Record) LastOwnerTime() float64 { return r.lastOwnerTime }
func (r *Record) Object() Object         { return r.object }

// Interpolator exposes the snapshot interpolation state of a remote record.
func (r *Record) Interpolator() *network.Interpolator {
	return r.interp
}

// LastSent returns the last value broadcast for a custom component index.
func (r *Record) LastSent(index int) (json.RawMessage, bool) {
	v, ok := r.lastSent[index]
	return v, ok
}

// ApplyUpdate applies an inbound snapshot. Stale and foreign snapshots are
// rejected with ErrStaleUpdate / ErrOwnerMismatch and leave the record
// untouched, as does a snapshot naming a component index the template
// declares twice.
func (r *Record) ApplyUpdate(data messages.EntityData, serverTime float64) error {
	if data.LastOwnerTime < r.lastOwnerTime {
		return eris.Wrapf(ErrStaleUpdate, "entity %s: lastOwnerTime %v < %v",
			r.networkID, data.LastOwnerTime, r.lastOwnerTime)
	}
	if data.Owner != r.owner {
		// TODO: ownership transfer once the relay forwards owner changes
		return eris.Wrapf(ErrOwnerMismatch, "entity %s: owner %q, update from %q",
			r.networkID, r.owner, data.Owner)
	}

	keys := make([]string, 0, len(data.Components))
	for key := range data.Components {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var (
		pos    *gamemath.Vec3
		rot    *gamemath.Quat
		custom = make(map[string]CustomComponent)
	)
	for _, key := range keys {
		raw := data.Components[key]
		switch netconfig.SchemaForKey(key) {
		case netconfig.SchemaPosition:
			p, err := messages.DecodeVec3(raw)
			if err != nil {
				r.log.Warn().Err(err).Str("key", key).Msg("dropping malformed position")
				continue
			}
			pos = &p
		case netconfig.SchemaRotation:
			q, err := messages.DecodeEuler(raw)
			if err != nil {
				r.log.Warn().Err(err).Str("key", key).Msg("dropping malformed rotation")
				continue
			}
			rot = &q
		case netconfig.SchemaScale:
			// scale is accepted but not interpolated
		default:
			impl, err := r.resolveComponent(key)
			if err != nil {
				return err
			}
			if impl != nil {
				custom[key] = impl
			}
		}
	}

	r.lastOwnerTime = data.LastOwnerTime

	// The time sample is only stored alongside a pose sample, so speeds are
	// always derived from the gap between two stored poses.
	if pos != nil || rot != nil {
		r.interp.PushTime(serverTime)
	}
	if pos != nil {
		r.interp.PushPosition(*pos)
	}
	if rot != nil {
		r.interp.PushRotation(*rot)
	}

	for _, key := range keys {
		if netconfig.SchemaForKey(key) != netconfig.SchemaNone {
			continue
		}
		impl, ok := custom[key]
		if !ok {
			r.log.Debug().Str("template", r.templateID).Str("index", key).
				Msg("no custom component registered for index")
			continue
		}
		if err := impl.Decode(data.Components[key]); err != nil {
			r.log.Warn().Err(err).Str("index", key).Msg("custom component rejected value")
		}
	}
	return nil
}

// resolveComponent finds the single component bound at key. It returns nil
// without error when nothing is registered there.
func (r *Record) resolveComponent(key string) (CustomComponent, error) {
	index, err := strconv.Atoi(key)
	if err != nil {
		return nil, nil
	}

	var found CustomComponent
	for _, c := range r.components {
		if c.index != index {
			continue
		}
		if found != nil {
			return nil, eris.Wrapf(ErrDuplicateComponentIndex, "template %s index %d", r.templateID, index)
		}
		found = c.impl
	}
	return found, nil
}

// Interpolate moves the host object of a remote record toward its latest
// snapshot. Local records are driven by the host and are left alone.
func (r *Record) Interpolate(dt float64) {
	if r.local || r.object == nil {
		return
	}
	pos, rot := r.object.Position(), r.object.Rotation()
	nextPos, nextRot := r.interp.Step(pos, rot, dt)
	if nextPos != pos {
		r.object.SetPosition(nextPos)
	}
	if nextRot != rot {
		r.object.SetRotation(nextRot)
	}
}
