package core

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/automoto/nafsync/config"
	"github.com/automoto/nafsync/shared/messages"
	"github.com/automoto/nafsync/shared/netconfig"
	"github.com/coder/websocket"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startRelay(t *testing.T, cfg config.RelayConfig) (*Server, string) {
	t.Helper()
	s := NewServer(cfg, zerolog.Nop(), NewMetrics(prometheus.NewRegistry()))
	s.now = func() time.Time { return time.UnixMilli(5000) }
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return s, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func dial(t *testing.T, ctx context.Context, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.CloseNow() })
	return conn
}

func send(t *testing.T, ctx context.Context, conn *websocket.Conn, kind netconfig.MsgKind, data any) {
	t.Helper()
	env, err := messages.NewEnvelope(kind, data)
	require.NoError(t, err)
	require.NoError(t, writeEnvelope(ctx, conn, env))
}

func read(t *testing.T, ctx context.Context, conn *websocket.Conn) messages.Envelope {
	t.Helper()
	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	env, err := messages.Decode[messages.Envelope](data)
	require.NoError(t, err)
	return env
}

func authenticate(t *testing.T, ctx context.Context, conn *websocket.Conn, app, room string) messages.Envelope {
	t.Helper()
	send(t, ctx, conn, netconfig.KindAuthenticate, messages.AuthRequest{
		APIVersion:      netconfig.APIVersion,
		ApplicationName: app,
		RoomJoin:        map[string]messages.RoomJoin{room: {RoomName: room}},
	})
	return read(t, ctx, conn)
}

func join(t *testing.T, ctx context.Context, s *Server, url, room string) (*websocket.Conn, messages.TokenData) {
	t.Helper()
	before := s.PeerCount()
	conn := dial(t, ctx, url)
	reply := authenticate(t, ctx, conn, "default", room)
	require.Equal(t, netconfig.KindToken, reply.MsgType)
	token, err := messages.Decode[messages.TokenData](reply.MsgData)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return s.PeerCount() == before+1 }, 2*time.Second, 5*time.Millisecond)
	return conn, token
}

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestHandshakeIssuesToken(t *testing.T) {
	ctx := testContext(t)
	s, url := startRelay(t, config.DefaultRelayConfig())

	_, first := join(t, ctx, s, url, "dev")
	assert.NotEmpty(t, first.ClientID)
	assert.Equal(t, float64(5000), first.ServerTime)
	require.Contains(t, first.RoomData, "dev")
	assert.Empty(t, first.RoomData["dev"].ClientList)

	_, second := join(t, ctx, s, url, "dev")
	assert.NotEqual(t, first.ClientID, second.ClientID)
	assert.Contains(t, second.RoomData["dev"].ClientList, first.ClientID)
	assert.Equal(t, 1, s.RoomCount())
}

func TestHandshakeRejections(t *testing.T) {
	ctx := testContext(t)
	cfg := config.DefaultRelayConfig()
	cfg.AppName = "demo"
	s, url := startRelay(t, cfg)

	conn := dial(t, ctx, url)
	reply := authenticate(t, ctx, conn, "other", "dev")
	require.Equal(t, netconfig.KindError, reply.MsgType)
	e, err := messages.Decode[messages.ErrorData](reply.MsgData)
	require.NoError(t, err)
	assert.Equal(t, ErrCodeBadApp, e.ErrorCode)

	conn = dial(t, ctx, url)
	send(t, ctx, conn, netconfig.KindUpdate, map[string]string{})
	reply = read(t, ctx, conn)
	e, err = messages.Decode[messages.ErrorData](reply.MsgData)
	require.NoError(t, err)
	assert.Equal(t, ErrCodeBadAuth, e.ErrorCode)

	conn = dial(t, ctx, url)
	send(t, ctx, conn, netconfig.KindAuthenticate, messages.AuthRequest{ApplicationName: "demo"})
	reply = read(t, ctx, conn)
	e, err = messages.Decode[messages.ErrorData](reply.MsgData)
	require.NoError(t, err)
	assert.Equal(t, ErrCodeNoRoom, e.ErrorCode)

	assert.Zero(t, s.PeerCount())
	assert.Equal(t, 3.0, testutil.ToFloat64(s.metrics.Handshake.WithLabelValues("rejected")))
}

func TestRelayStampsAndFansOut(t *testing.T) {
	ctx := testContext(t)
	s, url := startRelay(t, config.DefaultRelayConfig())

	a, tokenA := join(t, ctx, s, url, "dev")
	b, tokenB := join(t, ctx, s, url, "dev")
	_, _ = join(t, ctx, s, url, "elsewhere")

	// a hears about b joining first.
	joined := read(t, ctx, a)
	require.Equal(t, netconfig.KindRoomData, joined.MsgType)

	payload := messages.EntityData{NetworkID: "abc1234", Owner: tokenA.ClientID, Components: map[string]json.RawMessage{}}
	env, err := messages.NewEnvelope(netconfig.KindUpdate, payload)
	require.NoError(t, err)
	env.SenderID = "spoofed"
	require.NoError(t, writeEnvelope(ctx, a, env))

	got := read(t, ctx, b)
	assert.Equal(t, netconfig.KindUpdate, got.MsgType)
	assert.Equal(t, tokenA.ClientID, got.SenderID)
	assert.Equal(t, tokenB.ClientID, got.TargetClientID)
	assert.Equal(t, "dev", got.TargetRoom)
	assert.Equal(t, float64(5000), got.ServerTime)

	data, err := messages.Decode[messages.EntityData](got.MsgData)
	require.NoError(t, err)
	assert.Equal(t, "abc1234", data.NetworkID)

	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.Relayed.WithLabelValues("u")))
}

func TestRelayAnnouncesDeparture(t *testing.T) {
	ctx := testContext(t)
	s, url := startRelay(t, config.DefaultRelayConfig())

	a, tokenA := join(t, ctx, s, url, "dev")
	b, _ := join(t, ctx, s, url, "dev")
	read(t, ctx, a) // b joined

	require.NoError(t, a.Close(websocket.StatusNormalClosure, ""))

	got := read(t, ctx, b)
	require.Equal(t, netconfig.KindRoomData, got.MsgType)
	msg, err := messages.Decode[messages.RoomDataMsg](got.MsgData)
	require.NoError(t, err)
	require.Contains(t, msg.RoomData, "dev")
	delta := msg.RoomData["dev"].ClientListDelta
	require.NotNil(t, delta)
	assert.Contains(t, delta.RemoveClient, tokenA.ClientID)

	require.Eventually(t, func() bool { return s.PeerCount() == 1 }, 2*time.Second, 5*time.Millisecond)
}

func TestRelayIgnoresControlMessages(t *testing.T) {
	ctx := testContext(t)
	s, url := startRelay(t, config.DefaultRelayConfig())

	a, _ := join(t, ctx, s, url, "dev")
	b, _ := join(t, ctx, s, url, "dev")
	read(t, ctx, a)

	send(t, ctx, a, netconfig.KindToken, messages.TokenData{ClientID: "fake"})
	send(t, ctx, a, netconfig.KindUpdateMulti, messages.UpdateMultiData{})

	got := read(t, ctx, b)
	assert.Equal(t, netconfig.KindUpdateMulti, got.MsgType, "the token was not relayed")
}

func TestRoomToJoin(t *testing.T) {
	assert.Empty(t, roomToJoin(messages.AuthRequest{}))
	assert.Equal(t, "dev", roomToJoin(messages.AuthRequest{
		RoomJoin: map[string]messages.RoomJoin{"dev": {}},
	}))
	assert.Equal(t, "alpha", roomToJoin(messages.AuthRequest{
		RoomJoin: map[string]messages.RoomJoin{"zeta": {RoomName: "zeta"}, "x": {RoomName: "alpha"}},
	}))
}
