package netsync

import (
	"sync"
	"time"

	"github.com/automoto/nafsync/netentity"
	"github.com/automoto/nafsync/shared/gamemath"
	"github.com/automoto/nafsync/shared/messages"
	"github.com/automoto/nafsync/shared/netconfig"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

type testObject struct {
	pos   gamemath.Vec3
	rot   gamemath.Quat
	score int
}

func (o *testObject) Position() gamemath.Vec3     { return o.pos }
func (o *testObject) SetPosition(p gamemath.Vec3) { o.pos = p }
func (o *testObject) Rotation() gamemath.Quat     { return o.rot }
func (o *testObject) SetRotation(q gamemath.Quat) { o.rot = q }

const scoreIndex = 2

// scoreComponent syncs testObject.score and remembers the last committed value.
type scoreComponent struct {
	obj  *testObject
	sent int
}

func newScore(obj netentity.Object) netentity.CustomComponent {
	o, _ := obj.(*testObject)
	return &scoreComponent{obj: o}
}

func (c *scoreComponent) Decode(raw json.RawMessage) error {
	return json.Unmarshal(raw, &c.obj.score)
}

func (c *scoreComponent) Encode() (any, error) { return c.obj.score, nil }

func (c *scoreComponent) IsDirty() bool { return c.obj.score != c.sent }

func (c *scoreComponent) Committed(raw json.RawMessage) {
	_ = json.Unmarshal(raw, &c.sent)
}

type testHost struct {
	objects []*testObject
}

func (h *testHost) Spawn(_ string, pos gamemath.Vec3, rot gamemath.Quat) (netentity.Object, error) {
	obj := &testObject{pos: pos, rot: rot}
	h.objects = append(h.objects, obj)
	return obj, nil
}

func (h *testHost) Destroy(netentity.Object) {}

type sentMsg struct {
	kind       netconfig.MsgKind
	data       json.RawMessage
	guaranteed bool
}

// recordingSender keeps every broadcast; fail makes the next sends error.
type recordingSender struct {
	mu   sync.Mutex
	sent []sentMsg
	fail error
}

func (s *recordingSender) record(kind netconfig.MsgKind, data any, guaranteed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	raw, err := messages.Encode(data)
	if err != nil {
		return err
	}
	s.sent = append(s.sent, sentMsg{kind: kind, data: raw, guaranteed: guaranteed})
	return nil
}

func (s *recordingSender) BroadcastData(kind netconfig.MsgKind, data any) error {
	return s.record(kind, data, false)
}

func (s *recordingSender) BroadcastDataGuaranteed(kind netconfig.MsgKind, data any) error {
	return s.record(kind, data, true)
}

func (s *recordingSender) take() []sentMsg {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.sent
	s.sent = nil
	return out
}

func testCatalog() *netentity.Catalog {
	c, err := netentity.NewCatalog(
		netentity.MustTemplate("#avatar"),
		netentity.MustTemplate("#scored", netentity.ComponentRegistration{Index: scoreIndex, New: newScore}),
	)
	if err != nil {
		panic(err)
	}
	return c
}

type fixture struct {
	session  *Session
	registry *netentity.Registry
	host     *testHost
	sender   *recordingSender
	disp     *Dispatcher
	local    *LocalSync
	now      time.Time
}

func newFixture(mode netconfig.SyncMode) *fixture {
	f := &fixture{
		host:   &testHost{},
		sender: &recordingSender{},
		now:    time.Unix(1_700_000_000, 0),
	}
	f.session = NewSession("room1", 15, mode, zerolog.Nop())
	f.session.Now = func() time.Time { return f.now }
	f.registry = netentity.NewRegistry(testCatalog(), f.host, zerolog.Nop())
	f.disp = NewDispatcher(f.session, f.registry, nil)
	f.local = NewLocalSync(f.session, f.registry, f.sender, nil)
	return f
}

func entity(id, owner string, lastOwnerTime float64, firstSync bool, pos string) messages.EntityData {
	data := messages.EntityData{
		NetworkID:     id,
		Owner:         owner,
		Creator:       owner,
		LastOwnerTime: lastOwnerTime,
		Template:      "#avatar",
		IsFirstSync:   firstSync,
		Components:    map[string]json.RawMessage{},
	}
	if pos != "" {
		data.Components["0"] = json.RawMessage(pos)
	}
	return data
}

func envelope(kind netconfig.MsgKind, data any) messages.Envelope {
	env, err := messages.NewEnvelope(kind, data)
	if err != nil {
		panic(err)
	}
	return env
}

func nopLog() zerolog.Logger {
	return zerolog.Nop()
}
