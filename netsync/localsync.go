package netsync

import (
	"time"

	"github.com/automoto/nafsync/netentity"
	"github.com/automoto/nafsync/shared/messages"
	"github.com/automoto/nafsync/shared/netconfig"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"go.uber.org/multierr"
)

// Sender is the outbound half of the signaling transport.
type Sender interface {
	// BroadcastData sends to the joined room; delivery may be dropped.
	BroadcastData(kind netconfig.MsgKind, data any) error
	// BroadcastDataGuaranteed sends to the joined room over the reliable path.
	BroadcastDataGuaranteed(kind netconfig.MsgKind, data any) error
}

// LocalSync broadcasts locally owned records. Each record is sent at most
// once per sync interval and only when something changed since its last send.
type LocalSync struct {
	session  *Session
	registry *netentity.Registry
	sender   Sender
	metrics  *Metrics
	log      zerolog.Logger
}

func NewLocalSync(session *Session, registry *netentity.Registry, sender Sender, metrics *Metrics) *LocalSync {
	return &LocalSync{
		session:  session,
		registry: registry,
		sender:   sender,
		metrics:  metrics,
		log:      session.Log.With().Str("component", "localsync").Logger(),
	}
}

// Connected records the relay-assigned client id on the session, takes
// ownership of every unowned local record and full-syncs each of them.
func (ls *LocalSync) Connected(clientID string) error {
	if clientID == "" {
		return eris.New("empty client id")
	}
	ls.session.ClientID = clientID
	ls.log.Info().Str("clientId", clientID).Str("room", ls.session.Room).Msg("session connected")

	var errs error
	ls.registry.Each(func(rec *netentity.Record) {
		if !rec.IsLocal() || rec.Owner() != "" {
			return
		}
		errs = multierr.Append(errs, ls.Own(rec))
	})
	return errs
}

// Own gives the session's client ownership of rec and sends its full
// snapshot. Use it for local records spawned after the session connected.
func (ls *LocalSync) Own(rec *netentity.Record) error {
	if !ls.session.Connected() {
		return ErrNotConnected
	}
	rec.AcquireOwner(ls.session.ClientID, ls.session.OwnerTime())
	return ls.FullSync(rec)
}

// FullSync sends every declared component of rec over the guaranteed path.
func (ls *LocalSync) FullSync(rec *netentity.Record) error {
	out, err := rec.FullSnapshot()
	if err != nil {
		return err
	}
	if err := ls.sender.BroadcastDataGuaranteed(netconfig.KindUpdate, out.Data); err != nil {
		ls.metrics.sendFailed()
		return eris.Wrapf(err, "full sync %s", rec.NetworkID())
	}
	rec.Commit(out)
	ls.metrics.sent("full")
	ls.log.Debug().Str("networkId", rec.NetworkID()).Int("components", len(out.Data.Components)).
		Msg("full sync")
	return nil
}

// Tick sends dirty snapshots of every owned local record that is due. Send
// failures are collected; the failed record is retried on the next tick.
func (ls *LocalSync) Tick(now time.Time) error {
	var errs error
	ls.registry.Each(func(rec *netentity.Record) {
		if !rec.IsLocal() || rec.Owner() == "" || !rec.SyncDue(now) {
			return
		}
		errs = multierr.Append(errs, ls.syncDirty(rec, now))
	})
	return errs
}

func (ls *LocalSync) syncDirty(rec *netentity.Record, now time.Time) error {
	out, err := rec.DirtySnapshot(ls.session.SyncMode)
	if err != nil {
		return err
	}
	if out.Empty() {
		return nil
	}

	batch := messages.UpdateMultiData{Entities: []messages.EntityData{out.Data}}
	if err := ls.sender.BroadcastData(netconfig.KindUpdateMulti, batch); err != nil {
		ls.metrics.sendFailed()
		return eris.Wrapf(err, "dirty sync %s", rec.NetworkID())
	}
	rec.Commit(out)
	rec.ScheduleNext(now.Add(ls.session.SyncInterval()))
	ls.metrics.sent("dirty")
	return nil
}
