package messages

import (
	"strings"

	"github.com/automoto/nafsync/shared/gamemath"
	"github.com/automoto/nafsync/shared/netconfig"
	"github.com/goccy/go-json"
	"github.com/rotisserie/eris"
)

// EntityData is the wire snapshot of one networked entity. Component values
// stay raw so a snapshot survives decode/encode byte for byte.
type EntityData struct {
	NetworkID     string                     `json:"networkId"`
	Owner         string                     `json:"owner"`
	Creator       string                     `json:"creator"`
	LastOwnerTime float64                    `json:"lastOwnerTime"`
	Template      string                     `json:"template"`
	Persistent    bool                       `json:"persistent"`
	Components    map[string]json.RawMessage `json:"components"`
	IsFirstSync   bool                       `json:"isFirstSync"`
	IsDelta       bool                       `json:"isDelta,omitempty"`
}

// Vector3Data is the {x,y,z} shape used for both position and Euler rotation.
type Vector3Data struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func (v Vector3Data) Vec3() gamemath.Vec3 {
	return gamemath.Vec3{X: v.X, Y: v.Y, Z: v.Z}
}

func NewVector3Data(v gamemath.Vec3) Vector3Data {
	return Vector3Data{X: v.X, Y: v.Y, Z: v.Z}
}

// TemplateID returns the template with its leading marker removed.
func (d EntityData) TemplateID() string {
	return StripTemplateMarker(d.Template)
}

// StripTemplateMarker removes every leading '#' from a template reference.
func StripTemplateMarker(ref string) string {
	return strings.TrimLeft(ref, string(netconfig.TemplateMarker))
}

// TemplateRef returns the wire form of a template id.
func TemplateRef(id string) string {
	return string(netconfig.TemplateMarker) + StripTemplateMarker(id)
}

// Position decodes the position component, preferring the named key over the
// reserved index the way older senders expect.
func (d EntityData) Position() (gamemath.Vec3, error) {
	raw, ok := d.lookup(string(netconfig.SchemaPosition), netconfig.ComponentKeyPosition)
	if !ok {
		return gamemath.Vec3{}, eris.Errorf("entity %s has no position component", d.NetworkID)
	}
	v, err := DecodeVec3(raw)
	if err != nil {
		return gamemath.Vec3{}, eris.Wrapf(err, "entity %s position", d.NetworkID)
	}
	return v, nil
}

// Rotation decodes the rotation component (Euler degrees).
func (d EntityData) Rotation() (gamemath.Quat, error) {
	raw, ok := d.lookup(string(netconfig.SchemaRotation), netconfig.ComponentKeyRotation)
	if !ok {
		return gamemath.QuatIdentity, eris.Errorf("entity %s has no rotation component", d.NetworkID)
	}
	q, err := DecodeEuler(raw)
	if err != nil {
		return gamemath.QuatIdentity, eris.Wrapf(err, "entity %s rotation", d.NetworkID)
	}
	return q, nil
}

func (d EntityData) lookup(keys ...string) (json.RawMessage, bool) {
	for _, k := range keys {
		if raw, ok := d.Components[k]; ok {
			return raw, true
		}
	}
	return nil, false
}

// DecodeVec3 parses an {x,y,z} component value.
func DecodeVec3(raw json.RawMessage) (gamemath.Vec3, error) {
	var v Vector3Data
	if err := json.Unmarshal(raw, &v); err != nil {
		return gamemath.Vec3{}, eris.Wrap(err, "decode vector3")
	}
	return v.Vec3(), nil
}

// DecodeEuler parses an {x,y,z} Euler-degree component value.
func DecodeEuler(raw json.RawMessage) (gamemath.Quat, error) {
	v, err := DecodeVec3(raw)
	if err != nil {
		return gamemath.QuatIdentity, err
	}
	return gamemath.EulerVec(v), nil
}

// EncodeVec3 renders v as an {x,y,z} component value.
func EncodeVec3(v gamemath.Vec3) (json.RawMessage, error) {
	return Encode(NewVector3Data(v))
}

// EncodeEuler renders an orientation as {x,y,z} Euler degrees.
func EncodeEuler(q gamemath.Quat) (json.RawMessage, error) {
	return EncodeVec3(q.EulerAngles())
}
