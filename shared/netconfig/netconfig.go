// Package netconfig defines lightweight constants shared between the sync
// client and the relay. It must stay free of host and transport dependencies
// so the relay binary does not pull in the client stack.
package netconfig

import "time"

// MsgKind is the msgType tag carried by every envelope.
type MsgKind string

const (
	KindUpdate      MsgKind = "u"
	KindUpdateMulti MsgKind = "um"
	KindRoomData    MsgKind = "roomData"

	// Handshake kinds, consumed by the transport and never dispatched.
	KindAuthenticate MsgKind = "authenticate"
	KindToken        MsgKind = "token"
	KindError        MsgKind = "error"
)

func (k MsgKind) String() string {
	return string(k)
}

// UpdateMultiKey is the key under which an "um" payload carries its entities.
const UpdateMultiKey = "d"

// TemplateMarker prefixes template ids on the wire ("#avatar").
const TemplateMarker = '#'

// Schema names a built-in component.
type Schema string

const (
	SchemaNone     Schema = ""
	SchemaPosition Schema = "position"
	SchemaRotation Schema = "rotation"
	SchemaScale    Schema = "scale"
)

// Reserved component keys.
const (
	ComponentKeyPosition = "0"
	ComponentKeyRotation = "1"
)

// componentSchemas maps reserved and named component keys to their schema.
var componentSchemas = map[string]Schema{
	ComponentKeyPosition: SchemaPosition,
	ComponentKeyRotation: SchemaRotation,
	"position":           SchemaPosition,
	"rotation":           SchemaRotation,
	"scale":              SchemaScale,
}

// SchemaForKey returns the built-in schema for a component key, or SchemaNone
// when the key is a custom component index.
func SchemaForKey(key string) Schema {
	return componentSchemas[key]
}

// SyncMode controls how steady-state dirty updates are flagged on the wire.
type SyncMode string

const (
	// SyncModeLegacy marks every outbound snapshot isFirstSync=true.
	SyncModeLegacy SyncMode = "legacy"
	// SyncModeDelta marks dirty updates isFirstSync=false, isDelta=true.
	SyncModeDelta SyncMode = "delta"
)

func (m SyncMode) Valid() bool {
	return m == SyncModeLegacy || m == SyncModeDelta
}

const (
	DefaultUpdatesPerSecond = 15
	DefaultTickRate         = 60
	DefaultRoom             = "dev"
	DefaultAppName          = "default"
	DefaultServerURL        = "ws://localhost:8080/ws"
	DefaultRelayPort        = 8080
	APIVersion              = "1.1.1-beta"

	// Interpolation speeds used until two timestamped samples exist.
	DefaultLinearSpeed  = 1.0   // units per second
	DefaultAngularSpeed = 180.0 // degrees per second
)

// SyncInterval returns the minimum time between two dirty sends.
func SyncInterval(updatesPerSecond int) time.Duration {
	if updatesPerSecond <= 0 {
		updatesPerSecond = DefaultUpdatesPerSecond
	}
	return time.Second / time.Duration(updatesPerSecond)
}
