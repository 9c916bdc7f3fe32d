package network

import (
	"github.com/automoto/nafsync/shared/gamemath"
	"github.com/automoto/nafsync/shared/netconfig"
)

// sample is an optional value; the zero value means "never received".
type sample[T any] struct {
	value T
	ok    bool
}

// pair holds the two most recent samples of one stream.
type pair[T any] struct {
	prev, cur sample[T]
}

func (p *pair[T]) push(v T) {
	p.prev = p.cur
	p.cur = sample[T]{value: v, ok: true}
}

func (p *pair[T]) both() bool {
	return p.prev.ok && p.cur.ok
}

// Interpolator turns sparse timestamped position/rotation snapshots into a
// continuously moving pose. Each stream keeps its two most recent samples;
// the derived speeds are what a rendered pose moves at toward the latest
// sample. It never moves past the latest sample.
type Interpolator struct {
	times     pair[float64] // server time, ms
	positions pair[gamemath.Vec3]
	rotations pair[gamemath.Quat]

	speed        float64 // units per second
	angularSpeed float64 // degrees per second
}

func NewInterpolator() *Interpolator {
	return &Interpolator{
		speed:        netconfig.DefaultLinearSpeed,
		angularSpeed: netconfig.DefaultAngularSpeed,
	}
}

// PushTime records the server time of the snapshot being applied. It must be
// called before the snapshot's position and rotation are pushed.
func (ip *Interpolator) PushTime(serverTime float64) {
	ip.times.push(serverTime)
}

// PushPosition records a position sample and re-derives the linear speed
// when two samples with a positive time gap exist.
func (ip *Interpolator) PushPosition(p gamemath.Vec3) {
	ip.positions.push(p)
	if dt, ok := ip.sampleGap(); ok && ip.positions.both() {
		ip.speed = gamemath.Distance(ip.positions.cur.value, ip.positions.prev.value) / dt
	}
}

// PushRotation records a rotation sample and re-derives the angular speed
// from the shortest arc between the two samples.
func (ip *Interpolator) PushRotation(q gamemath.Quat) {
	ip.rotations.push(q)
	if dt, ok := ip.sampleGap(); ok && ip.rotations.both() {
		ip.angularSpeed = gamemath.Angle(ip.rotations.prev.value, ip.rotations.cur.value) / dt
	}
}

// sampleGap returns the seconds between the two most recent snapshots.
func (ip *Interpolator) sampleGap() (float64, bool) {
	if !ip.times.both() {
		return 0, false
	}
	dt := (ip.times.cur.value - ip.times.prev.value) / 1000
	return dt, dt > 0
}

func (ip *Interpolator) Speed() float64 {
	return ip.speed
}

func (ip *Interpolator) AngularSpeed() float64 {
	return ip.angularSpeed
}

// TargetPosition returns the most recent position sample.
func (ip *Interpolator) TargetPosition() (gamemath.Vec3, bool) {
	return ip.positions.cur.value, ip.positions.cur.ok
}

// TargetRotation returns the most recent rotation sample.
func (ip *Interpolator) TargetRotation() (gamemath.Quat, bool) {
	return ip.rotations.cur.value, ip.rotations.cur.ok
}

// Step advances a rendered pose by dt seconds toward the latest samples.
func (ip *Interpolator) Step(pos gamemath.Vec3, rot gamemath.Quat, dt float64) (gamemath.Vec3, gamemath.Quat) {
	if target, ok := ip.TargetPosition(); ok && target != pos {
		pos = gamemath.MoveTowards(pos, target, ip.speed*dt)
	}
	if target, ok := ip.TargetRotation(); ok && target != rot {
		rot = gamemath.RotateTowards(rot, target, ip.angularSpeed*dt)
	}
	return pos, rot
}
