package pointcloud

import (
	"math"
	"testing"
	"time"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/subtvision/lidar2depth/spatialmath"
)

var captureTime = time.Date(2021, 5, 26, 10, 30, 0, 0, time.UTC)

func TestCloudBasic(t *testing.T) {
	pc := New("velodyne", captureTime)
	test.That(t, pc.Size(), test.ShouldEqual, 0)
	test.That(t, pc.FrameID(), test.ShouldEqual, "velodyne")
	test.That(t, pc.Captured(), test.ShouldEqual, captureTime)

	pc.Add(r3.Vector{X: 1, Y: 2, Z: 3})
	pc.Add(r3.Vector{X: -1, Y: 0, Z: 4})
	test.That(t, pc.Size(), test.ShouldEqual, 2)
	test.That(t, pc.At(0), test.ShouldResemble, r3.Vector{X: 1, Y: 2, Z: 3})
	test.That(t, pc.At(1), test.ShouldResemble, r3.Vector{X: -1, Y: 0, Z: 4})

	count := 0
	pc.Iterate(func(p r3.Vector) bool {
		count++
		return true
	})
	test.That(t, count, test.ShouldEqual, 2)

	count = 0
	pc.Iterate(func(p r3.Vector) bool {
		count++
		return false
	})
	test.That(t, count, test.ShouldEqual, 1)
}

func TestWithFrame(t *testing.T) {
	pc := New("velodyne", captureTime)
	pc.Add(r3.Vector{X: 1})
	renamed := pc.WithFrame("camera", captureTime)
	test.That(t, renamed.FrameID(), test.ShouldEqual, "camera")
	test.That(t, renamed.Size(), test.ShouldEqual, 1)
	test.That(t, renamed.At(0), test.ShouldResemble, pc.At(0))
}

func TestApplyPose(t *testing.T) {
	pc := New("velodyne", captureTime)
	pc.Add(r3.Vector{X: 1, Y: 0, Z: 0})
	pc.Add(r3.Vector{X: 0, Y: 1, Z: 0})

	pose := spatialmath.NewPoseFromAxisAngle(r3.Vector{Z: 2}, r3.Vector{Z: 1}, math.Pi/2)
	out := ApplyPose(pc, pose, "camera")

	test.That(t, out.FrameID(), test.ShouldEqual, "camera")
	test.That(t, out.Captured(), test.ShouldEqual, captureTime)
	test.That(t, out.Size(), test.ShouldEqual, 2)
	test.That(t, out.At(0).Y, test.ShouldAlmostEqual, 1, 1e-12)
	test.That(t, out.At(0).Z, test.ShouldAlmostEqual, 2, 1e-12)
	test.That(t, out.At(1).X, test.ShouldAlmostEqual, -1, 1e-12)

	// input untouched
	test.That(t, pc.At(0), test.ShouldResemble, r3.Vector{X: 1, Y: 0, Z: 0})
}

func TestFilterPreservesOrderAndInput(t *testing.T) {
	pc := New("camera", captureTime)
	for _, x := range []float64{5, -1, 3, 7, 2} {
		pc.Add(r3.Vector{X: x})
	}
	out := Filter(pc, func(p r3.Vector) bool { return p.X > 0 && p.X < 6 })
	test.That(t, out.Size(), test.ShouldEqual, 3)
	test.That(t, out.At(0).X, test.ShouldEqual, 5)
	test.That(t, out.At(1).X, test.ShouldEqual, 3)
	test.That(t, out.At(2).X, test.ShouldEqual, 2)
	test.That(t, pc.Size(), test.ShouldEqual, 5)
}

func TestChainedFiltersDoNotAlias(t *testing.T) {
	pc := New("camera", captureTime)
	for i := 0; i < 100; i++ {
		pc.Add(r3.Vector{X: float64(i % 10), Y: float64(i % 7), Z: 1})
	}
	first := Filter(pc, func(p r3.Vector) bool { return p.X >= 2 })
	second := Filter(first, func(p r3.Vector) bool { return p.Y >= 3 })

	want := 0
	pc.Iterate(func(p r3.Vector) bool {
		if p.X >= 2 && p.Y >= 3 {
			want++
		}
		return true
	})
	test.That(t, second.Size(), test.ShouldEqual, want)
	second.Iterate(func(p r3.Vector) bool {
		test.That(t, p.X, test.ShouldBeGreaterThanOrEqualTo, 2)
		test.That(t, p.Y, test.ShouldBeGreaterThanOrEqualTo, 3)
		return true
	})
}
