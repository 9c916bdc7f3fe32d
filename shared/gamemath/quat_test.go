package gamemath

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func assertSameRotation(t *testing.T, want, got Quat) {
	t.Helper()
	assert.InDelta(t, 0, Angle(want, got), 1e-6, "want %+v, got %+v", want, got)
}

func TestEulerRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		in   Vec3
	}{
		{name: "identity", in: Vec3{}},
		{name: "yaw", in: Vec3{Y: 90}},
		{name: "pitch", in: Vec3{X: 30}},
		{name: "roll", in: Vec3{Z: 45}},
		{name: "combined", in: Vec3{X: 20, Y: 135, Z: 300}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := EulerVec(tt.in)
			angles := q.EulerAngles()
			assertSameRotation(t, q, EulerVec(angles))

			assert.GreaterOrEqual(t, angles.X, 0.0)
			assert.Less(t, angles.X, 360.0)
			assert.GreaterOrEqual(t, angles.Y, 0.0)
			assert.Less(t, angles.Y, 360.0)
		})
	}
}

func TestEulerAnglesNormalised(t *testing.T) {
	angles := Euler(0, -90, 0).EulerAngles()
	assert.InDelta(t, 270, angles.Y, 1e-6)
	assert.InDelta(t, 0, angles.X, 1e-6)
	assert.InDelta(t, 0, angles.Z, 1e-6)
}

func TestAngle(t *testing.T) {
	assert.InDelta(t, 90, Angle(QuatIdentity, Euler(0, 90, 0)), 1e-9)
	assert.InDelta(t, 0, Angle(Euler(0, 45, 0), Euler(0, 45, 0)), 1e-9)
	// q and -q are the same orientation
	q := Euler(10, 20, 30)
	assert.InDelta(t, 0, Angle(q, Quat{-q.W, -q.X, -q.Y, -q.Z}), 1e-9)
	// shortest arc, not the long way round
	assert.InDelta(t, 20, Angle(Euler(0, 350, 0), Euler(0, 10, 0)), 1e-6)
}

func TestRotateTowards(t *testing.T) {
	from := QuatIdentity
	to := Euler(0, 90, 0)

	step := RotateTowards(from, to, 30)
	assertSameRotation(t, Euler(0, 30, 0), step)

	assert.Equal(t, to, RotateTowards(from, to, 91))
	assert.Equal(t, to, RotateTowards(from, to, 500))
	assert.Equal(t, from, RotateTowards(from, to, 0))
}

func TestRotateTowardsNeverOvershoots(t *testing.T) {
	from := Euler(10, 0, 0)
	to := Euler(0, 170, 25)

	q := from
	for i := 0; i < 50; i++ {
		before := Angle(q, to)
		q = RotateTowards(q, to, 7)
		after := Angle(q, to)
		assert.LessOrEqual(t, after, before+1e-9)
	}
	assert.Equal(t, to, q)
}
