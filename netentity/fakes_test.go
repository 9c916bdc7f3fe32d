package netentity

import (
	"github.com/automoto/nafsync/shared/gamemath"
	"github.com/automoto/nafsync/shared/messages"
	"github.com/goccy/go-json"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

type fakeObject struct {
	templateID string
	pos        gamemath.Vec3
	rot        gamemath.Quat
	label      *labelComponent
}

func (o *fakeObject) Position() gamemath.Vec3     { return o.pos }
func (o *fakeObject) SetPosition(p gamemath.Vec3) { o.pos = p }
func (o *fakeObject) Rotation() gamemath.Quat     { return o.rot }
func (o *fakeObject) SetRotation(q gamemath.Quat) { o.rot = q }

type fakeHost struct {
	spawned   []*fakeObject
	destroyed []*fakeObject
	spawnErr  error
}

func (h *fakeHost) Spawn(templateID string, pos gamemath.Vec3, rot gamemath.Quat) (Object, error) {
	if h.spawnErr != nil {
		return nil, h.spawnErr
	}
	obj := &fakeObject{templateID: templateID, pos: pos, rot: rot}
	h.spawned = append(h.spawned, obj)
	return obj, nil
}

func (h *fakeHost) Destroy(obj Object) {
	h.destroyed = append(h.destroyed, obj.(*fakeObject))
}

// labelComponent syncs a string; "bad" is refused on decode.
type labelComponent struct {
	value string
	sent  string
}

func newLabel(obj Object) CustomComponent {
	c := &labelComponent{}
	if o, ok := obj.(*fakeObject); ok {
		o.label = c
	}
	return c
}

func (c *labelComponent) Decode(raw json.RawMessage) error {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return err
	}
	if s == "bad" {
		return eris.New("bad label")
	}
	c.value = s
	return nil
}

func (c *labelComponent) Encode() (any, error) {
	return c.value, nil
}

func (c *labelComponent) Committed(raw json.RawMessage) {
	_ = json.Unmarshal(raw, &c.sent)
}

func (c *labelComponent) IsDirty() bool {
	return c.value != c.sent
}

const labelIndex = 2

func testCatalog() *Catalog {
	avatar := MustTemplate("#avatar", ComponentRegistration{Index: labelIndex, New: newLabel})
	c, err := NewCatalog(avatar, MustTemplate("marker"))
	if err != nil {
		panic(err)
	}
	return c
}

func newTestRegistry() (*Registry, *fakeHost) {
	host := &fakeHost{}
	return NewRegistry(testCatalog(), host, zerolog.Nop()), host
}

func rawJSON(s string) json.RawMessage {
	return json.RawMessage(s)
}

func snapshot(id, owner string, lastOwnerTime float64, firstSync bool, components map[string]string) messages.EntityData {
	data := messages.EntityData{
		NetworkID:     id,
		Owner:         owner,
		Creator:       owner,
		LastOwnerTime: lastOwnerTime,
		Template:      "#avatar",
		IsFirstSync:   firstSync,
		Components:    make(map[string]json.RawMessage, len(components)),
	}
	for k, v := range components {
		data.Components[k] = rawJSON(v)
	}
	return data
}

func zeroLog() zerolog.Logger {
	return zerolog.Nop()
}
