package scenes

import (
	"github.com/automoto/nafsync/netentity"
	"github.com/goccy/go-json"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/rotisserie/eris"
)

// ColorComponentIndex is the wire index of the tint component on templates
// that carry one.
const ColorComponentIndex = 2

// Tinted is implemented by host objects with a colour.
type Tinted interface {
	Tint() colorful.Color
	SetTint(colorful.Color)
}

// colorSync synchronizes an object's tint as a "#rrggbb" string.
type colorSync struct {
	target Tinted
	sent   string
}

// NewColorComponent is the netentity.ComponentFactory for the tint component.
func NewColorComponent(obj netentity.Object) netentity.CustomComponent {
	t, _ := obj.(Tinted)
	return &colorSync{target: t}
}

func (c *colorSync) Decode(raw json.RawMessage) error {
	if c.target == nil {
		return eris.New("object has no tint")
	}
	var hex string
	if err := json.Unmarshal(raw, &hex); err != nil {
		return eris.Wrap(err, "color must be a string")
	}
	col, err := colorful.Hex(hex)
	if err != nil {
		return eris.Wrapf(err, "parse color %q", hex)
	}
	c.target.SetTint(col)
	return nil
}

func (c *colorSync) Encode() (any, error) {
	if c.target == nil {
		return nil, eris.New("object has no tint")
	}
	return c.target.Tint().Hex(), nil
}

func (c *colorSync) Committed(raw json.RawMessage) {
	var hex string
	if err := json.Unmarshal(raw, &hex); err == nil {
		c.sent = hex
	}
}

func (c *colorSync) IsDirty() bool {
	return c.target != nil && c.target.Tint().Hex() != c.sent
}
