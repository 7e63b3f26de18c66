// Package rimage defines the fixed-point depth image produced by the
// projection pipeline.
//
// Depth values follow the KITTI depth-map convention: each pixel is a uint16
// holding round(meters * 256), with 0 reserved for "no measurement". A pixel
// decodes back to meters as float64(value) / 256.0.
package rimage

import (
	"image"
	"image/color"

	"github.com/pkg/errors"
)

// Depth is the depth of a single pixel in fixed-point meters*256.
type Depth uint16

// MaxDepth is the largest representable depth (about 255.996 m).
const MaxDepth = Depth(65535)

// DepthMap is a row-major grid of depth values sized to a camera image.
// A pixel is addressed as (x, y) where x is the column and y is the row.
type DepthMap struct {
	width  int
	height int

	data []Depth
}

// NewEmptyDepthMap returns a depth map of the given size with every pixel
// set to the no-measurement sentinel.
func NewEmptyDepthMap(width, height int) *DepthMap {
	return &DepthMap{
		width:  width,
		height: height,
		data:   make([]Depth, width*height),
	}
}

func (dm *DepthMap) kxy(x, y int) int {
	return y*dm.width + x
}

// Width returns the width (columns) of the depth map.
func (dm *DepthMap) Width() int {
	return dm.width
}

// Height returns the height (rows) of the depth map.
func (dm *DepthMap) Height() int {
	return dm.height
}

// Contains reports whether the pixel (x, y) lies inside the map.
func (dm *DepthMap) Contains(x, y int) bool {
	return x >= 0 && x < dm.width && y >= 0 && y < dm.height
}

// GetDepth returns the depth at column x, row y.
func (dm *DepthMap) GetDepth(x, y int) Depth {
	return dm.data[dm.kxy(x, y)]
}

// Set writes the depth at column x, row y.
func (dm *DepthMap) Set(x, y int, val Depth) {
	dm.data[dm.kxy(x, y)] = val
}

// Bounds returns the image bounds of the map.
func (dm *DepthMap) Bounds() image.Rectangle {
	return image.Rect(0, 0, dm.width, dm.height)
}

// MinMax returns the smallest nonzero depth and the largest depth in the
// map. If no pixel holds a measurement, both returns are zero.
func (dm *DepthMap) MinMax() (Depth, Depth) {
	min, max := MaxDepth, Depth(0)
	found := false
	for _, z := range dm.data {
		if z == 0 {
			continue
		}
		found = true
		if z < min {
			min = z
		}
		if z > max {
			max = z
		}
	}
	if !found {
		return 0, 0
	}
	return min, max
}

// ToGray16Picture converts the depth map to a 16-bit grayscale image
// suitable for mono16 PNG encoding.
func (dm *DepthMap) ToGray16Picture() *image.Gray16 {
	grayScaleOut := image.NewGray16(dm.Bounds())
	for y := 0; y < dm.height; y++ {
		for x := 0; x < dm.width; x++ {
			grayScaleOut.SetGray16(x, y, color.Gray16{Y: uint16(dm.GetDepth(x, y))})
		}
	}
	return grayScaleOut
}

// NewDepthMapFromGray16 converts a 16-bit grayscale image back into a depth
// map.
func NewDepthMapFromGray16(img *image.Gray16) (*DepthMap, error) {
	if img == nil {
		return nil, errors.New("input Gray16 is nil")
	}
	bounds := img.Bounds()
	dm := NewEmptyDepthMap(bounds.Dx(), bounds.Dy())
	for y := 0; y < dm.height; y++ {
		for x := 0; x < dm.width; x++ {
			dm.Set(x, y, Depth(img.Gray16At(bounds.Min.X+x, bounds.Min.Y+y).Y))
		}
	}
	return dm, nil
}
