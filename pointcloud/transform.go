package pointcloud

import (
	"github.com/golang/geo/r3"

	"github.com/subtvision/lidar2depth/spatialmath"
)

// ApplyPose returns a new cloud with every point of c rotated and translated
// by pose, in the same order, expressed in targetFrame. The capture timestamp
// is preserved; the input cloud is not modified.
func ApplyPose(c *Cloud, pose spatialmath.Pose, targetFrame string) *Cloud {
	out := NewWithPrealloc(targetFrame, c.Captured(), c.Size())
	c.Iterate(func(p r3.Vector) bool {
		out.Add(pose.TransformPoint(p))
		return true
	})
	return out
}

// Filter returns a new cloud holding the points of c for which keep returns
// true, in their original order. The output is always a fresh cloud so that
// successive filter passes never alias each other's storage.
func Filter(c *Cloud, keep func(p r3.Vector) bool) *Cloud {
	out := New(c.FrameID(), c.Captured())
	c.Iterate(func(p r3.Vector) bool {
		if keep(p) {
			out.Add(p)
		}
		return true
	})
	return out
}
