package network

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/automoto/nafsync/shared/messages"
	"github.com/automoto/nafsync/shared/netconfig"
	"github.com/coder/websocket"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

type ClientState int

const (
	StateDisconnected ClientState = iota
	StateConnecting
	StateConnected
	StateJoinedRoom
	StateError
)

func (s ClientState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateJoinedRoom:
		return "joined"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

var (
	ErrNotConnected = eris.New("not connected")
	ErrHandshake    = eris.New("handshake rejected")
	ErrSendQueued   = eris.New("send queue full")
)

const (
	defaultInboxSize    = 256
	defaultOutboxSize   = 64
	defaultWriteTimeout = 5 * time.Second
	readLimit           = 1 << 20
)

type ClientConfig struct {
	URL     string
	Room    string
	AppName string

	// InboxSize bounds the envelopes queued between two Drain calls.
	InboxSize  int
	OutboxSize int
	// WriteTimeout bounds one socket write and the wait of a guaranteed
	// send for queue space.
	WriteTimeout time.Duration
}

// Client is the signaling transport: a WebSocket connection to the relay
// that performs the authenticate/token handshake, queues inbound envelopes
// for the tick loop, and broadcasts outbound ones to the joined room.
// All shared fields are protected by mu (the read loop runs on its own
// goroutine).
type Client struct {
	cfg ClientConfig
	log zerolog.Logger

	mu         sync.RWMutex
	state      ClientState
	lastError  error
	clientID   string
	serverTime float64
	conn       *websocket.Conn

	inbox  chan messages.Envelope
	outbox chan []byte
}

func NewClient(cfg ClientConfig, log zerolog.Logger) *Client {
	if cfg.InboxSize <= 0 {
		cfg.InboxSize = defaultInboxSize
	}
	if cfg.OutboxSize <= 0 {
		cfg.OutboxSize = defaultOutboxSize
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}
	if cfg.AppName == "" {
		cfg.AppName = netconfig.DefaultAppName
	}
	return &Client{
		cfg:    cfg,
		log:    log.With().Str("component", "client").Logger(),
		state:  StateDisconnected,
		inbox:  make(chan messages.Envelope, cfg.InboxSize),
		outbox: make(chan []byte, cfg.OutboxSize),
	}
}

// Run dials the relay, joins the configured room and reads until ctx is done
// or the connection fails. Envelopes are queued for Drain; a full queue
// blocks the reader rather than dropping entity state.
func (c *Client) Run(ctx context.Context) error {
	c.setState(StateConnecting)

	conn, _, err := websocket.Dial(ctx, c.cfg.URL, nil)
	if err != nil {
		return c.fail(eris.Wrapf(err, "dial %s", c.cfg.URL))
	}
	conn.SetReadLimit(readLimit)
	defer conn.CloseNow()

	c.mu.Lock()
	c.conn = conn
	c.state = StateConnected
	c.mu.Unlock()
	c.log.Info().Str("url", c.cfg.URL).Msg("connected to relay")

	if err := c.handshake(ctx, conn); err != nil {
		return c.fail(err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.readLoop(gctx, conn) })
	g.Go(func() error { return c.writeLoop(gctx, conn) })
	err = g.Wait()

	c.mu.Lock()
	closed := c.conn == nil
	c.conn = nil
	c.mu.Unlock()

	if ctx.Err() != nil || closed {
		c.setState(StateDisconnected)
		_ = conn.Close(websocket.StatusNormalClosure, "")
		return nil
	}
	return c.fail(err)
}

func (c *Client) handshake(ctx context.Context, conn *websocket.Conn) error {
	auth := messages.AuthRequest{
		APIVersion:      netconfig.APIVersion,
		ApplicationName: c.cfg.AppName,
		RoomJoin:        map[string]messages.RoomJoin{c.cfg.Room: {RoomName: c.cfg.Room}},
	}
	env, err := messages.NewEnvelope(netconfig.KindAuthenticate, auth)
	if err != nil {
		return err
	}
	if err := c.write(ctx, conn, env, c.cfg.WriteTimeout); err != nil {
		return eris.Wrap(err, "send authenticate")
	}

	reply, err := readEnvelope(ctx, conn)
	if err != nil {
		return eris.Wrap(err, "read handshake reply")
	}

	switch reply.MsgType {
	case netconfig.KindToken:
		token, err := messages.Decode[messages.TokenData](reply.MsgData)
		if err != nil {
			return eris.Wrap(err, "decode token")
		}
		if token.ClientID == "" {
			return eris.Wrap(ErrHandshake, "token without client id")
		}
		c.mu.Lock()
		c.clientID = token.ClientID
		c.serverTime = token.ServerTime
		c.state = StateJoinedRoom
		c.mu.Unlock()
		c.log.Info().Str("clientId", token.ClientID).Str("room", c.cfg.Room).Msg("joined room")
		return nil
	case netconfig.KindError:
		e, err := messages.Decode[messages.ErrorData](reply.MsgData)
		if err != nil {
			return eris.Wrap(err, "decode error reply")
		}
		return eris.Wrapf(ErrHandshake, "%s: %s", e.ErrorCode, e.ErrorText)
	default:
		return eris.Wrapf(ErrHandshake, "unexpected reply %q", reply.MsgType)
	}
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		env, err := readEnvelope(ctx, conn)
		if err != nil {
			var decodeErr *decodeError
			if errors.As(err, &decodeErr) {
				c.log.Warn().Err(err).Msg("dropping undecodable message")
				continue
			}
			return err
		}
		select {
		case c.inbox <- env:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *Client) writeLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case payload := <-c.outbox:
			wctx, cancel := context.WithTimeout(ctx, c.cfg.WriteTimeout)
			err := conn.Write(wctx, websocket.MessageText, payload)
			cancel()
			if err != nil {
				return eris.Wrap(err, "write")
			}
		}
	}
}

type decodeError struct {
	err error
}

func (e *decodeError) Error() string { return "decode envelope: " + e.err.Error() }
func (e *decodeError) Unwrap() error { return e.err }

func readEnvelope(ctx context.Context, conn *websocket.Conn) (messages.Envelope, error) {
	_, data, err := conn.Read(ctx)
	if err != nil {
		return messages.Envelope{}, eris.Wrap(err, "read")
	}
	env, err := messages.Decode[messages.Envelope](data)
	if err != nil {
		return messages.Envelope{}, &decodeError{err: err}
	}
	return env, nil
}

// Drain returns every queued inbound envelope in arrival order. It never
// blocks; call it once per tick.
func (c *Client) Drain() []messages.Envelope {
	return drainChan(c.inbox)
}

// BroadcastData queues a room message. It fails with ErrSendQueued instead
// of waiting when the outbound queue is full.
func (c *Client) BroadcastData(kind netconfig.MsgKind, data any) error {
	payload, err := c.roomPayload(kind, data)
	if err != nil {
		return err
	}
	select {
	case c.outbox <- payload:
		return nil
	default:
		return ErrSendQueued
	}
}

// BroadcastDataGuaranteed queues a room message, waiting up to the write
// timeout for queue space.
func (c *Client) BroadcastDataGuaranteed(kind netconfig.MsgKind, data any) error {
	payload, err := c.roomPayload(kind, data)
	if err != nil {
		return err
	}
	timer := time.NewTimer(c.cfg.WriteTimeout)
	defer timer.Stop()
	select {
	case c.outbox <- payload:
		return nil
	case <-timer.C:
		return eris.Wrapf(ErrSendQueued, "%s after %s", kind, c.cfg.WriteTimeout)
	}
}

func (c *Client) roomPayload(kind netconfig.MsgKind, data any) ([]byte, error) {
	c.mu.RLock()
	joined := c.conn != nil && c.state == StateJoinedRoom
	c.mu.RUnlock()
	if !joined {
		return nil, ErrNotConnected
	}

	env, err := messages.NewEnvelope(kind, data)
	if err != nil {
		return nil, err
	}
	env.TargetRoom = c.cfg.Room
	payload, err := messages.Encode(env)
	if err != nil {
		return nil, eris.Wrapf(err, "encode %s envelope", kind)
	}
	return payload, nil
}

func (c *Client) write(ctx context.Context, conn *websocket.Conn, env messages.Envelope, timeout time.Duration) error {
	payload, err := messages.Encode(env)
	if err != nil {
		return eris.Wrapf(err, "encode %s envelope", env.MsgType)
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := conn.Write(ctx, websocket.MessageText, payload); err != nil {
		return eris.Wrapf(err, "write %s", env.MsgType)
	}
	return nil
}

// Disconnect closes the connection; Run returns once its reader notices.
func (c *Client) Disconnect() {
	c.mu.Lock()
	conn := c.conn
	c.state = StateDisconnected
	c.conn = nil
	c.mu.Unlock()

	if conn != nil {
		_ = conn.Close(websocket.StatusNormalClosure, "")
	}
}

func (c *Client) State() ClientState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Client) LastError() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastError
}

// ClientID is the relay-assigned id, empty until the room is joined.
func (c *Client) ClientID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.clientID
}

// ServerTime is the relay clock (ms) reported in the handshake token.
func (c *Client) ServerTime() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.serverTime
}

func (c *Client) Room() string {
	return c.cfg.Room
}

func (c *Client) setState(s ClientState) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *Client) fail(err error) error {
	c.mu.Lock()
	c.state = StateError
	c.lastError = err
	c.mu.Unlock()
	c.log.Error().Err(err).Msg("connection failed")
	return err
}

func drainChan[T any](ch chan T) []T {
	var out []T
	for {
		select {
		case v := <-ch:
			out = append(out, v)
		default:
			return out
		}
	}
}
