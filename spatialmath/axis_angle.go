package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// NewPoseFromAxisAngle returns the pose that rotates by theta radians around
// the given axis and then translates. A zero axis yields a pure translation.
func NewPoseFromAxisAngle(pt, axis r3.Vector, theta float64) Pose {
	if axis.Norm() == 0 {
		return NewPoseFromPoint(pt)
	}
	axis = axis.Normalize()
	s := math.Sin(theta / 2)
	rot := quat.Number{
		Real: math.Cos(theta / 2),
		Imag: axis.X * s,
		Jmag: axis.Y * s,
		Kmag: axis.Z * s,
	}
	return NewPose(pt, rot)
}
