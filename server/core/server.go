package core

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/automoto/nafsync/config"
	"github.com/automoto/nafsync/shared/messages"
	"github.com/automoto/nafsync/shared/netconfig"
	"github.com/coder/websocket"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	handshakeTimeout = 10 * time.Second
	writeTimeout     = 5 * time.Second
	readLimit        = 1 << 20
)

// Error codes sent in handshake "error" replies.
const (
	ErrCodeBadAuth  = "BAD_AUTH"
	ErrCodeBadApp   = "BAD_APP"
	ErrCodeNoRoom   = "NO_ROOM"
	ErrCodeBadFrame = "BAD_FRAME"
)

// Server relays room messages between WebSocket clients. It stamps sender
// and server time on everything it forwards and announces departures with a
// roomData removeClient delta. It keeps no entity state.
type Server struct {
	cfg     config.RelayConfig
	log     zerolog.Logger
	metrics *Metrics
	now     func() time.Time

	mu    sync.RWMutex
	rooms map[string]map[string]*peer
}

func NewServer(cfg config.RelayConfig, log zerolog.Logger, metrics *Metrics) *Server {
	if cfg.SendQueue <= 0 {
		cfg.SendQueue = config.DefaultRelayConfig().SendQueue
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Server{
		cfg:     cfg,
		log:     log.With().Str("component", "relay").Logger(),
		metrics: metrics,
		now:     time.Now,
		rooms:   make(map[string]map[string]*peer),
	}
}

// Handler serves the WebSocket endpoint and /health.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(s.path(), s.ServeWS)
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]int{
			"peers": s.PeerCount(),
			"rooms": s.RoomCount(),
		})
	})
	return mux
}

func (s *Server) path() string {
	if s.cfg.Path == "" {
		return "/ws"
	}
	return s.cfg.Path
}

func (s *Server) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.log.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("websocket accept failed")
		return
	}
	conn.SetReadLimit(readLimit)
	defer conn.CloseNow()

	ctx := r.Context()
	p, err := s.handshake(ctx, conn)
	if err != nil {
		s.metrics.Handshake.WithLabelValues("rejected").Inc()
		s.log.Info().Err(err).Str("remote", r.RemoteAddr).Msg("handshake rejected")
		_ = conn.Close(websocket.StatusPolicyViolation, "handshake rejected")
		return
	}
	s.metrics.Handshake.WithLabelValues("ok").Inc()

	s.join(p)
	defer s.leave(p)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.readLoop(gctx, p) })
	g.Go(func() error { return p.writeLoop(gctx, writeTimeout) })
	if err := g.Wait(); err != nil && websocket.CloseStatus(err) == -1 && ctx.Err() == nil {
		s.log.Debug().Err(err).Str("clientId", p.id).Msg("peer connection ended")
	}
}

// handshake reads the authenticate message and answers with a token (joined)
// or an error (rejected).
func (s *Server) handshake(ctx context.Context, conn *websocket.Conn) (*peer, error) {
	hctx, cancel := context.WithTimeout(ctx, handshakeTimeout)
	defer cancel()

	_, data, err := conn.Read(hctx)
	if err != nil {
		return nil, eris.Wrap(err, "read authenticate")
	}
	env, err := messages.Decode[messages.Envelope](data)
	if err != nil {
		return nil, s.reject(hctx, conn, ErrCodeBadFrame, "malformed message")
	}
	if env.MsgType != netconfig.KindAuthenticate {
		return nil, s.reject(hctx, conn, ErrCodeBadAuth, "expected authenticate")
	}
	auth, err := messages.Decode[messages.AuthRequest](env.MsgData)
	if err != nil {
		return nil, s.reject(hctx, conn, ErrCodeBadAuth, "malformed authenticate")
	}
	if s.cfg.AppName != "" && auth.ApplicationName != s.cfg.AppName {
		return nil, s.reject(hctx, conn, ErrCodeBadApp, "unknown application "+auth.ApplicationName)
	}
	room := roomToJoin(auth)
	if room == "" {
		return nil, s.reject(hctx, conn, ErrCodeNoRoom, "no room to join")
	}

	now := s.serverTime()
	p := newPeer(uuid.NewString(), room, now, conn, s.cfg.SendQueue)

	token := messages.TokenData{
		ClientID:    p.id,
		Application: &messages.Application{ApplicationName: auth.ApplicationName},
		ServerTime:  now,
		RoomData: map[string]messages.RoomDataInfo{
			room: {
				RoomName:   room,
				RoomStatus: messages.RoomStatusJoin,
				ClientList: s.clientList(room),
			},
		},
	}
	reply, err := messages.NewEnvelope(netconfig.KindToken, token)
	if err != nil {
		return nil, err
	}
	reply.ClientID = p.id
	reply.ServerTime = now
	if err := writeEnvelope(hctx, conn, reply); err != nil {
		return nil, eris.Wrap(err, "send token")
	}
	return p, nil
}

// roomToJoin picks the room named in the handshake. Only one room per
// connection is supported; with several, the lowest name wins.
func roomToJoin(auth messages.AuthRequest) string {
	names := make([]string, 0, len(auth.RoomJoin))
	for key, join := range auth.RoomJoin {
		name := join.RoomName
		if name == "" {
			name = key
		}
		if name != "" {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return ""
	}
	sort.Strings(names)
	return names[0]
}

func (s *Server) reject(ctx context.Context, conn *websocket.Conn, code, text string) error {
	env, err := messages.NewEnvelope(netconfig.KindError, messages.ErrorData{ErrorCode: code, ErrorText: text})
	if err == nil {
		_ = writeEnvelope(ctx, conn, env)
	}
	return eris.Errorf("%s: %s", code, text)
}

func (s *Server) readLoop(ctx context.Context, p *peer) error {
	for {
		_, data, err := p.conn.Read(ctx)
		if err != nil {
			return err
		}
		env, err := messages.Decode[messages.Envelope](data)
		if err != nil {
			s.log.Warn().Err(err).Str("clientId", p.id).Msg("dropping malformed message")
			continue
		}
		s.relay(p, env)
	}
}

// relay fans env out to every other peer in the sender's room.
func (s *Server) relay(from *peer, env messages.Envelope) {
	switch env.MsgType {
	case netconfig.KindAuthenticate, netconfig.KindToken, netconfig.KindError, "":
		s.log.Warn().Str("clientId", from.id).Str("msgType", env.MsgType.String()).
			Msg("ignoring control message after handshake")
		return
	}
	if env.TargetRoom != "" && env.TargetRoom != from.room {
		s.log.Warn().Str("clientId", from.id).Str("targetRoom", env.TargetRoom).
			Msg("peer sent to a room it has not joined")
		return
	}

	env.SenderID = from.id
	env.TargetRoom = from.room
	env.ServerTime = s.serverTime()

	for _, to := range s.roomPeers(from.room, from.id) {
		out := env
		out.ClientID = to.id
		out.TargetClientID = to.id
		s.deliver(to, out)
	}
	s.metrics.Relayed.WithLabelValues(env.MsgType.String()).Inc()
}

func (s *Server) deliver(to *peer, env messages.Envelope) {
	payload, err := messages.Encode(env)
	if err != nil {
		s.log.Error().Err(err).Msg("encode relayed message")
		return
	}
	if !to.enqueue(payload) {
		s.metrics.Dropped.Inc()
		s.log.Warn().Str("clientId", to.id).Msg("send queue full, dropping peer")
		to.close()
		_ = to.conn.CloseNow()
	}
}

func (s *Server) join(p *peer) {
	s.mu.Lock()
	room, ok := s.rooms[p.room]
	if !ok {
		room = make(map[string]*peer)
		s.rooms[p.room] = room
	}
	room[p.id] = p
	s.updateGauges()
	s.mu.Unlock()

	s.log.Info().Str("clientId", p.id).Str("room", p.room).Msg("peer joined")

	info, _ := messages.Encode(messages.ClientInfo{ClientID: p.id, RoomJoinTime: p.joinTime})
	s.announce(p, messages.RoomStatusUpdate, &messages.ClientListDelta{
		UpdateClient: map[string]json.RawMessage{p.id: info},
	})
}

func (s *Server) leave(p *peer) {
	p.close()

	s.mu.Lock()
	if room, ok := s.rooms[p.room]; ok {
		delete(room, p.id)
		if len(room) == 0 {
			delete(s.rooms, p.room)
		}
	}
	s.updateGauges()
	s.mu.Unlock()

	s.log.Info().Str("clientId", p.id).Str("room", p.room).Msg("peer left")

	s.announce(p, messages.RoomStatusUpdate, &messages.ClientListDelta{
		RemoveClient: map[string]json.RawMessage{p.id: json.RawMessage("{}")},
	})
}

// announce sends a roomData delta about p to the rest of its room.
func (s *Server) announce(p *peer, status string, delta *messages.ClientListDelta) {
	msg := messages.RoomDataMsg{RoomData: map[string]messages.RoomDataInfo{
		p.room: {
			RoomName:        p.room,
			RoomStatus:      status,
			ClientListDelta: delta,
		},
	}}
	env, err := messages.NewEnvelope(netconfig.KindRoomData, msg)
	if err != nil {
		s.log.Error().Err(err).Msg("encode roomData")
		return
	}
	env.ServerTime = s.serverTime()
	for _, to := range s.roomPeers(p.room, p.id) {
		out := env
		out.ClientID = to.id
		s.deliver(to, out)
	}
}

func (s *Server) roomPeers(room, except string) []*peer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*peer, 0, len(s.rooms[room]))
	for id, p := range s.rooms[room] {
		if id != except {
			out = append(out, p)
		}
	}
	return out
}

func (s *Server) clientList(room string) map[string]messages.ClientInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := make(map[string]messages.ClientInfo, len(s.rooms[room]))
	for id, p := range s.rooms[room] {
		list[id] = messages.ClientInfo{ClientID: id, RoomJoinTime: p.joinTime}
	}
	return list
}

// updateGauges must be called with mu held.
func (s *Server) updateGauges() {
	peers := 0
	for _, room := range s.rooms {
		peers += len(room)
	}
	s.metrics.Peers.Set(float64(peers))
	s.metrics.Rooms.Set(float64(len(s.rooms)))
}

func (s *Server) serverTime() float64 {
	return float64(s.now().UnixMilli())
}

// PeerCount returns the number of joined peers across all rooms.
func (s *Server) PeerCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, room := range s.rooms {
		n += len(room)
	}
	return n
}

func (s *Server) RoomCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms)
}

func writeEnvelope(ctx context.Context, conn *websocket.Conn, env messages.Envelope) error {
	payload, err := messages.Encode(env)
	if err != nil {
		return err
	}
	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return conn.Write(wctx, websocket.MessageText, payload)
}
