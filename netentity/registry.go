package netentity

import (
	"sort"

	"github.com/automoto/nafsync/network"
	"github.com/automoto/nafsync/shared/gamemath"
	"github.com/automoto/nafsync/shared/messages"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

// Registry maps network ids to entity records and owns their lifecycle.
//
// A Registry is not safe for concurrent use. It is driven from a single tick
// timeline: inbound messages are queued by the transport and drained between
// ticks, never applied from the read goroutine.
type Registry struct {
	catalog *Catalog
	host    Host
	records map[string]*Record
	metrics *Metrics
	log     zerolog.Logger
}

type RegistryOption func(*Registry)

// WithMetrics records lifecycle counters into m.
func WithMetrics(m *Metrics) RegistryOption {
	return func(r *Registry) {
		r.metrics = m
	}
}

func NewRegistry(catalog *Catalog, host Host, log zerolog.Logger, opts ...RegistryOption) *Registry {
	r := &Registry{
		catalog: catalog,
		host:    host,
		records: make(map[string]*Record),
		log:     log.With().Str("component", "registry").Logger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Update routes an inbound snapshot to its record, creating the record on a
// non-persistent first sync. Stale, foreign and unknown-entity snapshots are
// logged and dropped; they return nil. Errors are reserved for configuration
// problems and unimplemented paths.
func (r *Registry) Update(data messages.EntityData, serverTime float64) error {
	if rec, ok := r.records[data.NetworkID]; ok {
		return r.apply(rec, data, serverTime)
	}

	if !data.IsFirstSync {
		r.metrics.rejected("unknown_entity")
		r.log.Warn().Str("networkId", data.NetworkID).Str("owner", data.Owner).
			Msg("update for unknown entity")
		return nil
	}
	if data.Persistent {
		return eris.Wrapf(ErrPersistentNotImplemented, "entity %s", data.NetworkID)
	}

	rec, err := r.createRemote(data, serverTime)
	if err != nil {
		return err
	}
	return r.apply(rec, data, serverTime)
}

func (r *Registry) apply(rec *Record, data messages.EntityData, serverTime float64) error {
	err := rec.ApplyUpdate(data, serverTime)
	switch {
	case err == nil:
		return nil
	case eris.Is(err, ErrStaleUpdate):
		r.metrics.rejected("stale")
		r.log.Warn().Err(err).Msg("dropping stale update")
		return nil
	case eris.Is(err, ErrOwnerMismatch):
		r.metrics.rejected("owner_mismatch")
		r.log.Warn().Err(err).Msg("dropping update from non-owner")
		return nil
	default:
		r.metrics.rejected("invalid")
		return err
	}
}

// createRemote spawns the host object for a first-seen entity at its
// snapshot pose and registers the record.
func (r *Registry) createRemote(data messages.EntityData, serverTime float64) (*Record, error) {
	tmpl, err := r.catalog.Resolve(data.Template)
	if err != nil {
		return nil, eris.Wrapf(err, "entity %s", data.NetworkID)
	}

	pos, err := data.Position()
	if err != nil {
		r.log.Debug().Err(err).Msg("spawning at origin")
		pos = gamemath.Vec3{}
	}
	rot, err := data.Rotation()
	if err != nil {
		r.log.Debug().Err(err).Msg("spawning with identity rotation")
		rot = gamemath.QuatIdentity
	}

	obj, err := r.host.Spawn(tmpl.ID(), pos, rot)
	if err != nil {
		return nil, eris.Wrapf(err, "spawn %s for entity %s", tmpl.ID(), data.NetworkID)
	}

	rec := newRemoteRecord(data, tmpl, obj, r.log)
	r.records[rec.networkID] = rec
	r.metrics.created(len(r.records))
	r.log.Debug().Str("networkId", rec.networkID).Str("template", tmpl.ID()).
		Str("owner", rec.owner).Float64("serverTime", serverTime).Msg("created remote entity")
	return rec, nil
}

// AddLocal registers a record built with NewLocalRecord.
func (r *Registry) AddLocal(rec *Record) error {
	if rec == nil || !rec.local {
		return eris.New("AddLocal requires a local record")
	}
	if _, ok := r.records[rec.networkID]; ok {
		return eris.Wrapf(ErrEntityExists, "entity %s", rec.networkID)
	}
	r.records[rec.networkID] = rec
	r.metrics.created(len(r.records))
	return nil
}

// SpawnLocal spawns a host object from a template and registers it as a
// local record under a fresh network id.
func (r *Registry) SpawnLocal(templateRef string, pos gamemath.Vec3, rot gamemath.Quat, persistent bool) (*Record, error) {
	tmpl, err := r.catalog.Resolve(templateRef)
	if err != nil {
		return nil, err
	}
	obj, err := r.host.Spawn(tmpl.ID(), pos, rot)
	if err != nil {
		return nil, eris.Wrapf(err, "spawn %s", tmpl.ID())
	}

	id := network.CreateNetworkID()
	for r.records[id] != nil {
		id = network.CreateNetworkID()
	}
	rec := NewLocalRecord(id, tmpl, obj, persistent, r.log)
	if err := r.AddLocal(rec); err != nil {
		r.host.Destroy(obj)
		return nil, err
	}
	r.log.Debug().Str("networkId", id).Str("template", tmpl.ID()).Msg("spawned local entity")
	return rec, nil
}

// RemoveByOwnerOrCreator removes every record created by clientID, and every
// record without a creator that clientID owns. It returns the removed ids.
func (r *Registry) RemoveByOwnerOrCreator(clientID string) []string {
	var removed []string
	for id, rec := range r.records {
		if rec.creator == clientID || (rec.creator == "" && rec.owner == clientID) {
			removed = append(removed, id)
		}
	}
	sort.Strings(removed)
	for _, id := range removed {
		r.remove(id)
	}
	if len(removed) > 0 {
		r.metrics.removed(len(removed), len(r.records))
		r.log.Info().Str("clientId", clientID).Strs("entities", removed).Msg("removed entities of departed client")
	}
	return removed
}

// RemoveByID removes one record. A missing id is logged, not an error.
func (r *Registry) RemoveByID(networkID string) bool {
	if _, ok := r.records[networkID]; !ok {
		r.log.Warn().Str("networkId", networkID).Msg("remove of unknown entity")
		return false
	}
	r.remove(networkID)
	r.metrics.removed(1, len(r.records))
	return true
}

func (r *Registry) remove(networkID string) {
	rec := r.records[networkID]
	delete(r.records, networkID)
	if rec.object != nil {
		r.host.Destroy(rec.object)
	}
}

func (r *Registry) Get(networkID string) (*Record, bool) {
	rec, ok := r.records[networkID]
	return rec, ok
}

func (r *Registry) Len() int {
	return len(r.records)
}

// Each calls fn for every record in network id order.
func (r *Registry) Each(fn func(*Record)) {
	ids := make([]string, 0, len(r.records))
	for id := range r.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		fn(r.records[id])
	}
}

// Interpolate advances every remote record by dt seconds.
func (r *Registry) Interpolate(dt float64) {
	for _, rec := range r.records {
		rec.Interpolate(dt)
	}
}
