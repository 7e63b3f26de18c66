package spatialmath

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestZeroPose(t *testing.T) {
	p := NewZeroPose()
	pt := r3.Vector{X: 1, Y: -2, Z: 3}
	test.That(t, p.TransformPoint(pt), test.ShouldResemble, pt)
	test.That(t, p.Point(), test.ShouldResemble, r3.Vector{})
}

func TestPureTranslation(t *testing.T) {
	p := NewPoseFromPoint(r3.Vector{X: 1, Y: 2, Z: 3})
	got := p.TransformPoint(r3.Vector{X: 10, Y: 0, Z: -1})
	test.That(t, got.X, test.ShouldAlmostEqual, 11)
	test.That(t, got.Y, test.ShouldAlmostEqual, 2)
	test.That(t, got.Z, test.ShouldAlmostEqual, 2)
}

func TestRotationThenTranslation(t *testing.T) {
	// 90 degrees about +Z takes +X to +Y
	p := NewPoseFromAxisAngle(r3.Vector{X: 0, Y: 0, Z: 5}, r3.Vector{Z: 1}, math.Pi/2)
	got := p.TransformPoint(r3.Vector{X: 1, Y: 0, Z: 0})
	test.That(t, got.X, test.ShouldAlmostEqual, 0, 1e-12)
	test.That(t, got.Y, test.ShouldAlmostEqual, 1, 1e-12)
	test.That(t, got.Z, test.ShouldAlmostEqual, 5, 1e-12)
}

func TestCompose(t *testing.T) {
	a := NewPoseFromAxisAngle(r3.Vector{X: 1}, r3.Vector{Z: 1}, math.Pi/2)
	b := NewPoseFromPoint(r3.Vector{Y: 2})
	ab := Compose(a, b)

	pt := r3.Vector{X: 3, Y: 0, Z: 0}
	want := a.TransformPoint(b.TransformPoint(pt))
	got := ab.TransformPoint(pt)
	test.That(t, got.X, test.ShouldAlmostEqual, want.X, 1e-12)
	test.That(t, got.Y, test.ShouldAlmostEqual, want.Y, 1e-12)
	test.That(t, got.Z, test.ShouldAlmostEqual, want.Z, 1e-12)
}

func TestInvert(t *testing.T) {
	p := NewPoseFromAxisAngle(r3.Vector{X: 1, Y: -2, Z: 3}, r3.Vector{X: 1, Y: 1, Z: 0}, 1.2)
	roundTrip := Compose(p.Invert(), p)
	test.That(t, PoseAlmostEqual(roundTrip, NewZeroPose(), 1e-10), test.ShouldBeTrue)

	pt := r3.Vector{X: 0.5, Y: 7, Z: -2}
	back := p.Invert().TransformPoint(p.TransformPoint(pt))
	test.That(t, back.X, test.ShouldAlmostEqual, pt.X, 1e-10)
	test.That(t, back.Y, test.ShouldAlmostEqual, pt.Y, 1e-10)
	test.That(t, back.Z, test.ShouldAlmostEqual, pt.Z, 1e-10)
}

func TestTransformPreservesDistance(t *testing.T) {
	p := NewPoseFromAxisAngle(r3.Vector{X: -4, Y: 0.1, Z: 2}, r3.Vector{X: 0, Y: 1, Z: 1}, 0.7)
	a := r3.Vector{X: 1, Y: 2, Z: 3}
	b := r3.Vector{X: -2, Y: 0, Z: 5}
	da := p.TransformPoint(a)
	db := p.TransformPoint(b)
	test.That(t, da.Sub(db).Norm(), test.ShouldAlmostEqual, a.Sub(b).Norm(), 1e-10)
}
