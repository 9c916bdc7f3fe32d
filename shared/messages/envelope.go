package messages

import (
	"github.com/automoto/nafsync/shared/netconfig"
	"github.com/goccy/go-json"
	"github.com/rotisserie/eris"
)

// Envelope is one signaling message. Field names follow the EasyRTC wire
// format so the client can talk to stock relays.
type Envelope struct {
	MsgType        netconfig.MsgKind `json:"msgType"`
	MsgData        json.RawMessage   `json:"msgData,omitempty"`
	SenderID       string            `json:"senderEasyrtcid,omitempty"`
	ClientID       string            `json:"easyrtcid,omitempty"`
	TargetClientID string            `json:"targetEasyrtcid,omitempty"`
	TargetRoom     string            `json:"targetRoom,omitempty"`
	ServerTime     float64           `json:"serverTime,omitempty"`
}

// NewEnvelope encodes data as the msgData of a kind envelope.
func NewEnvelope(kind netconfig.MsgKind, data any) (Envelope, error) {
	raw, err := Encode(data)
	if err != nil {
		return Envelope{}, eris.Wrapf(err, "encode %s payload", kind)
	}
	return Envelope{MsgType: kind, MsgData: raw}, nil
}

// UpdateMultiData is the msgData of an "um" envelope.
type UpdateMultiData struct {
	Entities []EntityData `json:"d"`
}

// RoomDataMsg is the msgData of a "roomData" envelope.
type RoomDataMsg struct {
	RoomData map[string]RoomDataInfo `json:"roomData"`
}

type RoomDataInfo struct {
	RoomName        string                `json:"roomName"`
	RoomStatus      string                `json:"roomStatus,omitempty"`
	ClientList      map[string]ClientInfo `json:"clientList,omitempty"`
	ClientListDelta *ClientListDelta      `json:"clientListDelta,omitempty"`
}

// ClientListDelta carries membership changes. Markers are kept raw since
// relays disagree on what they put there ({} or a ClientInfo).
type ClientListDelta struct {
	UpdateClient map[string]json.RawMessage `json:"updateClient,omitempty"`
	RemoveClient map[string]json.RawMessage `json:"removeClient,omitempty"`
}

type ClientInfo struct {
	ClientID     string  `json:"easyrtcid"`
	RoomJoinTime float64 `json:"roomJoinTime,omitempty"`
}

// Room status values.
const (
	RoomStatusJoin   = "join"
	RoomStatusLeave  = "leave"
	RoomStatusUpdate = "update"
)
