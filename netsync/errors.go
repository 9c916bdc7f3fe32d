package netsync

import "github.com/rotisserie/eris"

var (
	// ErrUnknownMessageKind is returned for an envelope whose msgType the
	// dispatcher does not handle. Nothing from it reaches the registry.
	ErrUnknownMessageKind = eris.New("unknown message kind")

	// ErrMalformedPayload is returned when msgData does not decode as the
	// payload its kind requires.
	ErrMalformedPayload = eris.New("malformed message payload")

	ErrNotConnected = eris.New("session is not connected")
)
