// Package pointcloud defines an ordered container of 3D range measurements
// tagged with the reference frame and capture time of the sensor that
// produced them.
package pointcloud

import (
	"time"

	"github.com/golang/geo/r3"
)

// Cloud is an ordered set of points in a single named reference frame.
// Points keep the order they were appended in; every derived cloud
// (transformed, filtered) preserves that order.
type Cloud struct {
	frameID  string
	captured time.Time
	points   []r3.Vector
}

// New returns an empty cloud in the given frame.
func New(frameID string, captured time.Time) *Cloud {
	return NewWithPrealloc(frameID, captured, 0)
}

// NewWithPrealloc returns an empty cloud with capacity for size points.
func NewWithPrealloc(frameID string, captured time.Time, size int) *Cloud {
	return &Cloud{
		frameID:  frameID,
		captured: captured,
		points:   make([]r3.Vector, 0, size),
	}
}

// FrameID returns the name of the reference frame the points are expressed in.
func (c *Cloud) FrameID() string {
	return c.frameID
}

// Captured returns the capture timestamp of the sensor sample.
func (c *Cloud) Captured() time.Time {
	return c.captured
}

// Size returns the number of points in the cloud.
func (c *Cloud) Size() int {
	return len(c.points)
}

// At returns the i-th point.
func (c *Cloud) At(i int) r3.Vector {
	return c.points[i]
}

// Add appends a point to the cloud.
func (c *Cloud) Add(p r3.Vector) {
	c.points = append(c.points, p)
}

// Iterate calls fn for each point in order. If fn returns false, iteration
// stops.
func (c *Cloud) Iterate(fn func(p r3.Vector) bool) {
	for _, p := range c.points {
		if !fn(p) {
			return
		}
	}
}

// WithFrame returns a cloud sharing this cloud's points but carrying a
// different frame ID and timestamp.
func (c *Cloud) WithFrame(frameID string, captured time.Time) *Cloud {
	return &Cloud{frameID: frameID, captured: captured, points: c.points}
}
