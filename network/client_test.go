package network

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/automoto/nafsync/config"
	"github.com/automoto/nafsync/server/core"
	"github.com/automoto/nafsync/shared/messages"
	"github.com/automoto/nafsync/shared/netconfig"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startRelay(t *testing.T, cfg config.RelayConfig) (*core.Server, string) {
	t.Helper()
	relay := core.NewServer(cfg, zerolog.Nop(), nil)
	srv := httptest.NewServer(relay.Handler())
	t.Cleanup(srv.Close)
	return relay, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

// runClient starts c and returns a channel with Run's result.
func runClient(t *testing.T, ctx context.Context, c *Client) <-chan error {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()
	return done
}

func waitJoined(t *testing.T, c *Client) {
	t.Helper()
	require.Eventually(t, func() bool { return c.State() == StateJoinedRoom }, 2*time.Second, 5*time.Millisecond)
}

// drainUntil polls c until an envelope of kind arrives.
func drainUntil(t *testing.T, c *Client, kind netconfig.MsgKind) messages.Envelope {
	t.Helper()
	var found messages.Envelope
	require.Eventually(t, func() bool {
		for _, env := range c.Drain() {
			if env.MsgType == kind {
				found = env
				return true
			}
		}
		return false
	}, 2*time.Second, 5*time.Millisecond)
	return found
}

func TestClientJoinsAndExchangesUpdates(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	relay, url := startRelay(t, config.DefaultRelayConfig())

	a := NewClient(ClientConfig{URL: url, Room: "dev"}, zerolog.Nop())
	b := NewClient(ClientConfig{URL: url, Room: "dev"}, zerolog.Nop())
	doneA := runClient(t, ctx, a)
	runClient(t, ctx, b)
	waitJoined(t, a)
	waitJoined(t, b)
	require.Eventually(t, func() bool { return relay.PeerCount() == 2 }, 2*time.Second, 5*time.Millisecond)

	assert.NotEmpty(t, a.ClientID())
	assert.NotEqual(t, a.ClientID(), b.ClientID())
	assert.Positive(t, a.ServerTime())

	data := messages.EntityData{
		NetworkID:   "abc1234",
		Owner:       a.ClientID(),
		Template:    "#avatar",
		IsFirstSync: true,
		Components:  map[string]json.RawMessage{"0": json.RawMessage(`{"x":1,"y":0,"z":0}`)},
	}
	require.NoError(t, a.BroadcastDataGuaranteed(netconfig.KindUpdate, data))

	env := drainUntil(t, b, netconfig.KindUpdate)
	assert.Equal(t, a.ClientID(), env.SenderID)
	assert.Equal(t, b.ClientID(), env.TargetClientID)
	assert.Equal(t, "dev", env.TargetRoom)
	got, err := messages.Decode[messages.EntityData](env.MsgData)
	require.NoError(t, err)
	assert.JSONEq(t, `{"x":1,"y":0,"z":0}`, string(got.Components["0"]))

	a.Disconnect()
	select {
	case err := <-doneA:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Disconnect")
	}
	assert.Equal(t, StateDisconnected, a.State())

	left := drainUntil(t, b, netconfig.KindRoomData)
	msg, err := messages.Decode[messages.RoomDataMsg](left.MsgData)
	require.NoError(t, err)
	require.NotNil(t, msg.RoomData["dev"].ClientListDelta)
	assert.Contains(t, msg.RoomData["dev"].ClientListDelta.RemoveClient, a.ClientID())
}

func TestClientHandshakeRejected(t *testing.T) {
	cfg := config.DefaultRelayConfig()
	cfg.AppName = "demo"
	_, url := startRelay(t, cfg)

	c := NewClient(ClientConfig{URL: url, Room: "dev", AppName: "other"}, zerolog.Nop())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := c.Run(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrHandshake)
	assert.Contains(t, err.Error(), core.ErrCodeBadApp)
	assert.Equal(t, StateError, c.State())
	assert.Equal(t, err, c.LastError())
	assert.Empty(t, c.ClientID())
}

func TestClientSendBeforeJoin(t *testing.T) {
	c := NewClient(ClientConfig{URL: "ws://127.0.0.1:1/ws", Room: "dev"}, zerolog.Nop())
	assert.ErrorIs(t, c.BroadcastData(netconfig.KindUpdateMulti, messages.UpdateMultiData{}), ErrNotConnected)
	assert.ErrorIs(t, c.BroadcastDataGuaranteed(netconfig.KindUpdate, messages.EntityData{}), ErrNotConnected)
	assert.Empty(t, c.Drain())
}

func TestClientDialFailure(t *testing.T) {
	c := NewClient(ClientConfig{URL: "ws://127.0.0.1:1/ws", Room: "dev"}, zerolog.Nop())
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	assert.Error(t, c.Run(ctx))
	assert.Equal(t, StateError, c.State())
}

func TestClientStopsOnContextCancel(t *testing.T) {
	_, url := startRelay(t, config.DefaultRelayConfig())
	ctx, cancel := context.WithCancel(context.Background())

	c := NewClient(ClientConfig{URL: url, Room: "dev"}, zerolog.Nop())
	done := runClient(t, ctx, c)
	waitJoined(t, c)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Equal(t, StateDisconnected, c.State())
}

func TestDrainChanPreservesOrder(t *testing.T) {
	ch := make(chan int, 4)
	ch <- 1
	ch <- 2
	ch <- 3
	assert.Equal(t, []int{1, 2, 3}, drainChan(ch))
	assert.Nil(t, drainChan(ch))
}

func TestClientStateString(t *testing.T) {
	assert.Equal(t, "joined", StateJoinedRoom.String())
	assert.Equal(t, "unknown", ClientState(42).String())
}
