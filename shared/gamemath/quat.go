package gamemath

import "math"

const (
	deg2Rad = math.Pi / 180
	rad2Deg = 180 / math.Pi
)

// Quat is a unit quaternion representing an orientation.
type Quat struct {
	W, X, Y, Z float64
}

// QuatIdentity is the orientation with no rotation.
var QuatIdentity = Quat{W: 1}

// AxisAngle returns the rotation of deg degrees about a unit axis.
func AxisAngle(axis Vec3, deg float64) Quat {
	half := deg * deg2Rad / 2
	s := math.Sin(half)
	return Quat{W: math.Cos(half), X: axis.X * s, Y: axis.Y * s, Z: axis.Z * s}
}

// Euler builds an orientation from Euler angles in degrees. Rotations are
// applied around Z, then X, then Y, so the result matches the eulerAngles
// convention of the hosts we interoperate with.
func Euler(x, y, z float64) Quat {
	qx := AxisAngle(Vec3{X: 1}, x)
	qy := AxisAngle(Vec3{Y: 1}, y)
	qz := AxisAngle(Vec3{Z: 1}, z)
	return qy.Mul(qx).Mul(qz)
}

// EulerVec is Euler with the angles packed in a Vec3.
func EulerVec(v Vec3) Quat {
	return Euler(v.X, v.Y, v.Z)
}

// Mul returns the Hamilton product q*o (apply o first, then q).
func (q Quat) Mul(o Quat) Quat {
	return Quat{
		W: q.W*o.W - q.X*o.X - q.Y*o.Y - q.Z*o.Z,
		X: q.W*o.X + q.X*o.W + q.Y*o.Z - q.Z*o.Y,
		Y: q.W*o.Y - q.X*o.Z + q.Y*o.W + q.Z*o.X,
		Z: q.W*o.Z + q.X*o.Y - q.Y*o.X + q.Z*o.W,
	}
}

func (q Quat) Dot(o Quat) float64 {
	return q.W*o.W + q.X*o.X + q.Y*o.Y + q.Z*o.Z
}

func (q Quat) Normalize() Quat {
	n := math.Sqrt(q.Dot(q))
	if n == 0 {
		return QuatIdentity
	}
	return Quat{q.W / n, q.X / n, q.Y / n, q.Z / n}
}

// EulerAngles converts q back to Euler degrees (Z, X, Y application order),
// each normalised to [0, 360).
func (q Quat) EulerAngles() Vec3 {
	q = q.Normalize()

	sinX := 2 * (q.W*q.X - q.Y*q.Z)
	sinX = math.Max(-1, math.Min(1, sinX))
	x := math.Asin(sinX)

	var y, z float64
	if math.Abs(sinX) < 0.9999999 {
		y = math.Atan2(2*(q.X*q.Z+q.W*q.Y), 1-2*(q.X*q.X+q.Y*q.Y))
		z = math.Atan2(2*(q.X*q.Y+q.W*q.Z), 1-2*(q.X*q.X+q.Z*q.Z))
	} else {
		// gimbal lock: fold the roll into yaw
		y = math.Atan2(-2*(q.X*q.Z-q.W*q.Y), 1-2*(q.Y*q.Y+q.Z*q.Z))
		z = 0
	}

	return Vec3{
		X: wrapDegrees(x * rad2Deg),
		Y: wrapDegrees(y * rad2Deg),
		Z: wrapDegrees(z * rad2Deg),
	}
}

func wrapDegrees(d float64) float64 {
	d = math.Mod(d, 360)
	if d < 0 {
		d += 360
	}
	// -0 and values that round to 360 both land on 0
	if d >= 360-1e-9 || d == 0 {
		return 0
	}
	return d
}

// Angle returns the shortest-arc angle in degrees between two orientations.
func Angle(a, b Quat) float64 {
	dot := math.Abs(a.Normalize().Dot(b.Normalize()))
	if dot >= 1 {
		return 0
	}
	return 2 * math.Acos(dot) * rad2Deg
}

// Slerp interpolates along the shortest arc from a to b. t is clamped to [0, 1].
func Slerp(a, b Quat, t float64) Quat {
	t = math.Max(0, math.Min(1, t))
	a = a.Normalize()
	b = b.Normalize()

	dot := a.Dot(b)
	if dot < 0 {
		b = Quat{-b.W, -b.X, -b.Y, -b.Z}
		dot = -dot
	}

	if dot > 0.9995 {
		return Quat{
			W: a.W + (b.W-a.W)*t,
			X: a.X + (b.X-a.X)*t,
			Y: a.Y + (b.Y-a.Y)*t,
			Z: a.Z + (b.Z-a.Z)*t,
		}.Normalize()
	}

	theta := math.Acos(dot)
	sinTheta := math.Sin(theta)
	wa := math.Sin((1-t)*theta) / sinTheta
	wb := math.Sin(t*theta) / sinTheta
	return Quat{
		W: a.W*wa + b.W*wb,
		X: a.X*wa + b.X*wb,
		Y: a.Y*wa + b.Y*wb,
		Z: a.Z*wa + b.Z*wb,
	}
}

// RotateTowards rotates from toward to by at most maxDeg degrees and never
// past to.
func RotateTowards(from, to Quat, maxDeg float64) Quat {
	angle := Angle(from, to)
	if angle == 0 || angle <= maxDeg {
		return to
	}
	if maxDeg <= 0 {
		return from
	}
	return Slerp(from, to, maxDeg/angle)
}
