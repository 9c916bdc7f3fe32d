package netentity

import (
	"time"

	"github.com/automoto/nafsync/shared/gamemath"
	"github.com/automoto/nafsync/shared/messages"
	"github.com/automoto/nafsync/shared/netconfig"
	"github.com/goccy/go-json"
	"github.com/rotisserie/eris"
)

// Outbound is a snapshot of a local record ready to be sent. The record's
// last-sent caches only move once Commit is called, so a failed send is
// retried on the next due tick.
type Outbound struct {
	Data messages.EntityData

	position *gamemath.Vec3
	rotation *gamemath.Quat
	custom   map[int]json.RawMessage
}

// Empty reports whether the snapshot carries no components.
func (o Outbound) Empty() bool {
	return len(o.Data.Components) == 0
}

// AcquireOwner makes clientID the owner of a local record. The creator is
// set once and kept across later ownership changes.
func (r *Record) AcquireOwner(clientID string, ownerTime float64) {
	r.owner = clientID
	if r.creator == "" {
		r.creator = clientID
	}
	r.lastOwnerTime = ownerTime
}

// SyncDue reports whether the rate limiter allows a send at now.
func (r *Record) SyncDue(now time.Time) bool {
	return !now.Before(r.nextSync)
}

// FullSnapshot encodes every declared component regardless of change.
func (r *Record) FullSnapshot() (Outbound, error) {
	out := r.newOutbound(true, false)

	pos, rot := r.object.Position(), r.object.Rotation()
	if err := out.setPosition(pos); err != nil {
		return Outbound{}, err
	}
	if err := out.setRotation(rot); err != nil {
		return Outbound{}, err
	}
	for _, c := range r.components {
		if err := out.setCustom(c); err != nil {
			return Outbound{}, eris.Wrapf(err, "entity %s", r.networkID)
		}
	}
	return out, nil
}

// DirtySnapshot encodes only what changed since the last commit. Position and
// rotation compare exactly against the cached last-sent values; custom
// components decide for themselves through IsDirty.
func (r *Record) DirtySnapshot(mode netconfig.SyncMode) (Outbound, error) {
	out := r.newOutbound(mode != netconfig.SyncModeDelta, mode == netconfig.SyncModeDelta)

	if pos := r.object.Position(); pos != r.sentPosition {
		if err := out.setPosition(pos); err != nil {
			return Outbound{}, err
		}
	}
	if rot := r.object.Rotation(); rot != r.sentRotation {
		if err := out.setRotation(rot); err != nil {
			return Outbound{}, err
		}
	}
	for _, c := range r.components {
		if !c.impl.IsDirty() {
			continue
		}
		if err := out.setCustom(c); err != nil {
			return Outbound{}, eris.Wrapf(err, "entity %s", r.networkID)
		}
	}
	return out, nil
}

// ScheduleNext holds dirty sends back until next.
func (r *Record) ScheduleNext(next time.Time) {
	r.nextSync = next
}

// Commit records out as sent and tells custom components which values went
// out.
func (r *Record) Commit(out Outbound) {
	if out.position != nil {
		r.sentPosition = *out.position
	}
	if out.rotation != nil {
		r.sentRotation = *out.rotation
	}
	for index, raw := range out.custom {
		r.lastSent[index] = raw
	}
	for _, c := range r.components {
		raw, ok := out.custom[c.index]
		if !ok {
			continue
		}
		if committer, ok := c.impl.(Committer); ok {
			committer.Committed(raw)
		}
	}
}

func (r *Record) newOutbound(firstSync, delta bool) Outbound {
	return Outbound{
		Data: messages.EntityData{
			NetworkID:     r.networkID,
			Owner:         r.owner,
			Creator:       r.creator,
			LastOwnerTime: r.lastOwnerTime,
			Template:      messages.TemplateRef(r.templateID),
			Persistent:    r.persistent,
			Components:    make(map[string]json.RawMessage),
			IsFirstSync:   firstSync,
			IsDelta:       delta,
		},
		custom: make(map[int]json.RawMessage),
	}
}

func (o *Outbound) setPosition(pos gamemath.Vec3) error {
	raw, err := messages.EncodeVec3(pos)
	if err != nil {
		return err
	}
	o.Data.Components[netconfig.ComponentKeyPosition] = raw
	o.position = &pos
	return nil
}

func (o *Outbound) setRotation(rot gamemath.Quat) error {
	raw, err := messages.EncodeEuler(rot)
	if err != nil {
		return err
	}
	o.Data.Components[netconfig.ComponentKeyRotation] = raw
	o.rotation = &rot
	return nil
}

func (o *Outbound) setCustom(c boundComponent) error {
	v, err := c.impl.Encode()
	if err != nil {
		return eris.Wrapf(err, "encode component %d", c.index)
	}
	raw, err := messages.Encode(v)
	if err != nil {
		return eris.Wrapf(err, "encode component %d", c.index)
	}
	o.Data.Components[indexKey(c.index)] = raw
	o.custom[c.index] = raw
	return nil
}
