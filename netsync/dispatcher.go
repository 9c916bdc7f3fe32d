package netsync

import (
	"github.com/automoto/nafsync/netentity"
	"github.com/automoto/nafsync/shared/messages"
	"github.com/automoto/nafsync/shared/netconfig"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"go.uber.org/multierr"
)

// Dispatcher routes inbound envelopes to the registry by message kind. It is
// called from the tick timeline, one envelope at a time, in arrival order.
type Dispatcher struct {
	session  *Session
	registry *netentity.Registry
	metrics  *Metrics
	log      zerolog.Logger
}

func NewDispatcher(session *Session, registry *netentity.Registry, metrics *Metrics) *Dispatcher {
	return &Dispatcher{
		session:  session,
		registry: registry,
		metrics:  metrics,
		log:      session.Log.With().Str("component", "dispatcher").Logger(),
	}
}

// Dispatch applies one envelope. Target and room mismatches are logged and
// processing continues; an unknown kind is returned as ErrUnknownMessageKind.
func (d *Dispatcher) Dispatch(env messages.Envelope) error {
	switch env.MsgType {
	case netconfig.KindUpdate:
		d.metrics.dispatched(env.MsgType.String())
		return d.handleUpdate(env)
	case netconfig.KindUpdateMulti:
		d.metrics.dispatched(env.MsgType.String())
		return d.handleUpdateMulti(env)
	case netconfig.KindRoomData:
		d.metrics.dispatched(env.MsgType.String())
		return d.handleRoomData(env)
	default:
		d.log.Error().Str("msgType", env.MsgType.String()).Str("sender", env.SenderID).
			Msg("unknown message kind")
		return eris.Wrapf(ErrUnknownMessageKind, "msgType %q", env.MsgType)
	}
}

func (d *Dispatcher) handleUpdate(env messages.Envelope) error {
	data, err := messages.Decode[messages.EntityData](env.MsgData)
	if err != nil {
		return eris.Wrapf(ErrMalformedPayload, "u from %s: %v", env.SenderID, err)
	}

	return d.update(data, env.TargetClientID, env.ServerTime)
}

// update is the single-entity path shared by "u" and each element of "um".
func (d *Dispatcher) update(data messages.EntityData, target string, serverTime float64) error {
	if target != d.session.ClientID {
		d.metrics.warn("target_mismatch")
		d.log.Warn().Str("target", target).Str("clientId", d.session.ClientID).
			Str("networkId", data.NetworkID).Msg("update targeted at another client")
	}
	return d.registry.Update(data, serverTime)
}

func (d *Dispatcher) handleUpdateMulti(env messages.Envelope) error {
	batch, err := messages.Decode[messages.UpdateMultiData](env.MsgData)
	if err != nil {
		return eris.Wrapf(ErrMalformedPayload, "um from %s: %v", env.SenderID, err)
	}

	if env.TargetRoom != d.session.Room {
		d.metrics.warn("room_mismatch")
		d.log.Warn().Str("targetRoom", env.TargetRoom).Str("room", d.session.Room).
			Msg("batch update for another room")
	}

	var errs error
	for _, data := range batch.Entities {
		// Batch elements carry no target of their own.
		if err := d.update(data, d.session.ClientID, env.ServerTime); err != nil {
			errs = multierr.Append(errs, eris.Wrapf(err, "entity %s", data.NetworkID))
		}
	}
	return errs
}

func (d *Dispatcher) handleRoomData(env messages.Envelope) error {
	msg, err := messages.Decode[messages.RoomDataMsg](env.MsgData)
	if err != nil {
		return eris.Wrapf(ErrMalformedPayload, "roomData: %v", err)
	}

	room, ok := msg.RoomData[d.session.Room]
	if !ok {
		d.metrics.warn("room_missing")
		d.log.Warn().Str("room", d.session.Room).Msg("roomData without joined room")
		return nil
	}

	delta := room.ClientListDelta
	if delta == nil {
		d.metrics.warn("roomdata_unimplemented")
		d.log.Warn().Str("room", d.session.Room).Str("roomStatus", room.RoomStatus).
			Msg("unimplemented roomData: no clientListDelta")
		return nil
	}
	if len(delta.UpdateClient) > 0 {
		d.metrics.warn("roomdata_unimplemented")
		d.log.Warn().Int("clients", len(delta.UpdateClient)).
			Msg("unimplemented roomData: updateClient")
	}

	for clientID := range delta.RemoveClient {
		removed := d.registry.RemoveByOwnerOrCreator(clientID)
		d.log.Debug().Str("clientId", clientID).Int("entities", len(removed)).Msg("client left room")
	}
	return nil
}
