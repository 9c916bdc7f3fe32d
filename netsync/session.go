// Package netsync drives entity synchronization for one joined room: it
// dispatches inbound envelopes into the registry and broadcasts locally owned
// entities at a fixed rate.
package netsync

import (
	"time"

	"github.com/automoto/nafsync/shared/netconfig"
	"github.com/rs/zerolog"
)

// Session is the context shared by the dispatcher and the local sync
// scheduler. It replaces any process-wide "current room" state; a process can
// run several sessions side by side.
type Session struct {
	// ClientID is the id the relay assigned this client. Empty until the
	// handshake completes.
	ClientID string
	Room     string

	UpdatesPerSecond int
	SyncMode         netconfig.SyncMode

	Log zerolog.Logger

	// Now is the session clock. Defaults to time.Now.
	Now func() time.Time
}

func NewSession(room string, updatesPerSecond int, mode netconfig.SyncMode, log zerolog.Logger) *Session {
	if updatesPerSecond <= 0 {
		updatesPerSecond = netconfig.DefaultUpdatesPerSecond
	}
	if !mode.Valid() {
		mode = netconfig.SyncModeLegacy
	}
	return &Session{
		Room:             room,
		UpdatesPerSecond: updatesPerSecond,
		SyncMode:         mode,
		Log:              log,
		Now:              time.Now,
	}
}

func (s *Session) Connected() bool {
	return s.ClientID != ""
}

// SyncInterval is the minimum time between two dirty sends of one entity.
func (s *Session) SyncInterval() time.Duration {
	return netconfig.SyncInterval(s.UpdatesPerSecond)
}

func (s *Session) clock() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

// OwnerTime returns the session clock in Unix milliseconds, the unit of
// lastOwnerTime.
func (s *Session) OwnerTime() float64 {
	return float64(s.clock().UnixMilli())
}
