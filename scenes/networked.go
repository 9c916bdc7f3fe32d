package scenes

import (
	"time"

	"github.com/automoto/nafsync/components"
	"github.com/automoto/nafsync/netentity"
	"github.com/automoto/nafsync/netsync"
	"github.com/automoto/nafsync/shared/gamemath"
	"github.com/automoto/nafsync/shared/messages"
	"github.com/automoto/nafsync/systems"
	"github.com/automoto/nafsync/tags"
	"github.com/rs/zerolog"
	"github.com/yohamta/donburi"
	"go.uber.org/multierr"
)

// Transport is what the scene needs from the signaling client.
type Transport interface {
	netsync.Sender
	// Drain returns the envelopes received since the last call.
	Drain() []messages.Envelope
	// ClientID is empty until the room is joined.
	ClientID() string
}

// NetworkedScene owns one sync session and drives it from Update. Everything
// that touches the registry happens inside Update, so the registry has a
// single writer no matter which goroutine the transport reads on.
type NetworkedScene struct {
	world     donburi.World
	host      *WorldHost
	transport Transport

	session    *netsync.Session
	registry   *netentity.Registry
	dispatcher *netsync.Dispatcher
	localSync  *netsync.LocalSync

	log zerolog.Logger
}

type SceneOptions struct {
	Catalog         *netentity.Catalog
	RegistryMetrics *netentity.Metrics
	SyncMetrics     *netsync.Metrics
}

func NewNetworkedScene(session *netsync.Session, transport Transport, opts SceneOptions) (*NetworkedScene, error) {
	catalog := opts.Catalog
	if catalog == nil {
		var err error
		if catalog, err = DefaultCatalog(); err != nil {
			return nil, err
		}
	}

	world := donburi.NewWorld()
	host := NewWorldHost(world, session.Log)
	registry := netentity.NewRegistry(catalog, host, session.Log, netentity.WithMetrics(opts.RegistryMetrics))

	return &NetworkedScene{
		world:      world,
		host:       host,
		transport:  transport,
		session:    session,
		registry:   registry,
		dispatcher: netsync.NewDispatcher(session, registry, opts.SyncMetrics),
		localSync:  netsync.NewLocalSync(session, registry, transport, opts.SyncMetrics),
		log:        session.Log.With().Str("component", "scene").Logger(),
	}, nil
}

// Update runs one tick: take ownership once the room is joined, apply queued
// envelopes in arrival order, move local entities, interpolate remote ones
// and broadcast what changed. Errors are collected; the tick always runs to
// the end.
func (ns *NetworkedScene) Update(now time.Time, dt float64) error {
	var errs error

	if !ns.session.Connected() {
		if id := ns.transport.ClientID(); id != "" {
			errs = multierr.Append(errs, ns.localSync.Connected(id))
		}
	}

	for _, env := range ns.transport.Drain() {
		if err := ns.dispatcher.Dispatch(env); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	systems.UpdateOrbit(ns.world, dt)
	ns.registry.Interpolate(dt)

	if ns.session.Connected() {
		errs = multierr.Append(errs, ns.localSync.Tick(now))
	}
	return errs
}

// SpawnLocal creates a locally owned entity. When the session is already
// connected it is owned and full-synced immediately; otherwise that happens
// on connect.
func (ns *NetworkedScene) SpawnLocal(template string, pos gamemath.Vec3, rot gamemath.Quat) (*netentity.Record, error) {
	rec, err := ns.registry.SpawnLocal(template, pos, rot, false)
	if err != nil {
		return nil, err
	}
	if obj, ok := rec.Object().(*EntityObject); ok {
		if entry := obj.Entry(); entry != nil {
			entry.AddComponent(tags.Local)
		}
	}
	if ns.session.Connected() {
		if err := ns.localSync.Own(rec); err != nil {
			return rec, err
		}
	}
	return rec, nil
}

// Orbit makes a local entity circle the origin.
func (ns *NetworkedScene) Orbit(rec *netentity.Record, radius, speed float64) {
	obj, ok := rec.Object().(*EntityObject)
	if !ok {
		return
	}
	entry := obj.Entry()
	if entry == nil {
		return
	}
	if !entry.HasComponent(components.Orbit) {
		entry.AddComponent(components.Orbit)
	}
	components.Orbit.Set(entry, &components.OrbitData{Radius: radius, Speed: speed})
}

// Despawn removes a record and its host object.
func (ns *NetworkedScene) Despawn(networkID string) bool {
	return ns.registry.RemoveByID(networkID)
}

func (ns *NetworkedScene) Registry() *netentity.Registry {
	return ns.registry
}

func (ns *NetworkedScene) Host() *WorldHost {
	return ns.host
}

func (ns *NetworkedScene) Session() *netsync.Session {
	return ns.session
}
