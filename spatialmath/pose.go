// Package spatialmath defines the spatial math used to move point measurements
// between reference frames.
package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/dualquat"
	"gonum.org/v1/gonum/num/quat"
)

// Pose is a rigid transform between two reference frames: a rotation followed
// by a translation. It is represented internally as a unit dual quaternion
// with the translation encoded in the dual part as 0.5 * t * r.
type Pose struct {
	dq dualquat.Number
}

// NewZeroPose returns the identity pose.
func NewZeroPose() Pose {
	return Pose{dualquat.Number{Real: quat.Number{Real: 1}}}
}

// NewPoseFromPoint returns a pure translation pose.
func NewPoseFromPoint(pt r3.Vector) Pose {
	return NewPose(pt, quat.Number{Real: 1})
}

// NewPose returns the pose that rotates by the given unit quaternion and then
// translates by the given vector. A non-unit rotation is normalized first.
func NewPose(pt r3.Vector, rot quat.Number) Pose {
	rot = normalize(rot)
	tq := quat.Number{Imag: pt.X / 2, Jmag: pt.Y / 2, Kmag: pt.Z / 2}
	return Pose{dualquat.Number{
		Real: rot,
		Dual: quat.Mul(tq, rot),
	}}
}

// Point returns the translation component of the pose.
func (p Pose) Point() r3.Vector {
	// t/2 = Dual * conj(Real) for a unit dual quaternion
	tq := quat.Mul(p.dq.Dual, quat.Conj(p.dq.Real))
	return r3.Vector{X: 2 * tq.Imag, Y: 2 * tq.Jmag, Z: 2 * tq.Kmag}
}

// Rotation returns the rotation component of the pose as a unit quaternion.
func (p Pose) Rotation() quat.Number {
	return p.dq.Real
}

// TransformPoint rotates and translates a point by the pose.
func (p Pose) TransformPoint(pt r3.Vector) r3.Vector {
	pq := quat.Number{Imag: pt.X, Jmag: pt.Y, Kmag: pt.Z}
	rotated := quat.Mul(quat.Mul(p.dq.Real, pq), quat.Conj(p.dq.Real))
	return r3.Vector{X: rotated.Imag, Y: rotated.Jmag, Z: rotated.Kmag}.Add(p.Point())
}

// Compose returns the pose equivalent to applying b first and then a.
func Compose(a, b Pose) Pose {
	return Pose{dualquat.Mul(a.dq, b.dq)}
}

// Invert returns the pose that undoes this one.
func (p Pose) Invert() Pose {
	rInv := quat.Conj(p.dq.Real)
	t := p.Point()
	tInv := quat.Mul(quat.Mul(rInv, quat.Number{Imag: -t.X, Jmag: -t.Y, Kmag: -t.Z}), p.dq.Real)
	return NewPose(r3.Vector{X: tInv.Imag, Y: tInv.Jmag, Z: tInv.Kmag}, rInv)
}

// PoseAlmostEqual reports whether two poses agree within epsilon on both
// translation and rotation. A quaternion and its negation represent the same
// rotation and compare equal.
func PoseAlmostEqual(a, b Pose, epsilon float64) bool {
	at, bt := a.Point(), b.Point()
	if at.Sub(bt).Norm() > epsilon {
		return false
	}
	ar, br := a.Rotation(), b.Rotation()
	direct := quatDist(ar, br)
	flipped := quatDist(ar, quat.Scale(-1, br))
	return math.Min(direct, flipped) <= epsilon
}

func quatDist(a, b quat.Number) float64 {
	d := quat.Sub(a, b)
	return math.Sqrt(d.Real*d.Real + d.Imag*d.Imag + d.Jmag*d.Jmag + d.Kmag*d.Kmag)
}

func normalize(q quat.Number) quat.Number {
	n := math.Sqrt(q.Real*q.Real + q.Imag*q.Imag + q.Jmag*q.Jmag + q.Kmag*q.Kmag)
	if n == 0 {
		return quat.Number{Real: 1}
	}
	return quat.Scale(1/n, q)
}
