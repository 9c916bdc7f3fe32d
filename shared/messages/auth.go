package messages

// AuthRequest is the msgData of the "authenticate" handshake message.
type AuthRequest struct {
	APIVersion      string              `json:"apiVersion"`
	ApplicationName string              `json:"applicationName"`
	RoomJoin        map[string]RoomJoin `json:"roomJoin"`
}

type RoomJoin struct {
	RoomName string `json:"roomName"`
}

// TokenData is the msgData of a successful handshake response.
type TokenData struct {
	ClientID    string                  `json:"easyrtcid"`
	RoomData    map[string]RoomDataInfo `json:"roomData,omitempty"`
	Application *Application            `json:"application,omitempty"`
	ServerTime  float64                 `json:"serverTime"`
}

type Application struct {
	ApplicationName string `json:"applicationName"`
}

// ErrorData is the msgData of an "error" response.
type ErrorData struct {
	ErrorCode string `json:"errorCode"`
	ErrorText string `json:"errorText"`
}
