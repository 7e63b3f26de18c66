package rimage

import (
	"testing"

	"go.viam.com/test"
)

func TestNewEmptyDepthMap(t *testing.T) {
	dm := NewEmptyDepthMap(640, 480)
	test.That(t, dm.Width(), test.ShouldEqual, 640)
	test.That(t, dm.Height(), test.ShouldEqual, 480)
	for _, xy := range [][2]int{{0, 0}, {639, 479}, {320, 240}} {
		test.That(t, dm.GetDepth(xy[0], xy[1]), test.ShouldEqual, Depth(0))
	}
}

func TestSetGetConvention(t *testing.T) {
	// an off-center pixel must land untransposed: x is the column, y the row
	dm := NewEmptyDepthMap(8, 4)
	dm.Set(6, 1, 512)
	test.That(t, dm.GetDepth(6, 1), test.ShouldEqual, Depth(512))
	test.That(t, dm.GetDepth(1, 3), test.ShouldEqual, Depth(0))
	test.That(t, dm.data[1*8+6], test.ShouldEqual, Depth(512))
}

func TestContains(t *testing.T) {
	dm := NewEmptyDepthMap(10, 5)
	test.That(t, dm.Contains(0, 0), test.ShouldBeTrue)
	test.That(t, dm.Contains(9, 4), test.ShouldBeTrue)
	test.That(t, dm.Contains(10, 0), test.ShouldBeFalse)
	test.That(t, dm.Contains(0, 5), test.ShouldBeFalse)
	test.That(t, dm.Contains(-1, 2), test.ShouldBeFalse)
}

func TestMinMax(t *testing.T) {
	dm := NewEmptyDepthMap(4, 4)
	min, max := dm.MinMax()
	test.That(t, min, test.ShouldEqual, Depth(0))
	test.That(t, max, test.ShouldEqual, Depth(0))

	dm.Set(1, 1, 300)
	dm.Set(2, 3, 64000)
	dm.Set(0, 2, 12)
	min, max = dm.MinMax()
	test.That(t, min, test.ShouldEqual, Depth(12))
	test.That(t, max, test.ShouldEqual, Depth(64000))
}

func TestGray16RoundTrip(t *testing.T) {
	dm := NewEmptyDepthMap(16, 8)
	dm.Set(3, 2, 2560)
	dm.Set(15, 7, MaxDepth)
	dm.Set(0, 0, 1)

	img := dm.ToGray16Picture()
	test.That(t, img.Bounds().Dx(), test.ShouldEqual, 16)
	test.That(t, img.Bounds().Dy(), test.ShouldEqual, 8)

	back, err := NewDepthMapFromGray16(img)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, back.GetDepth(3, 2), test.ShouldEqual, Depth(2560))
	test.That(t, back.GetDepth(15, 7), test.ShouldEqual, MaxDepth)
	test.That(t, back.GetDepth(0, 0), test.ShouldEqual, Depth(1))
	test.That(t, back.GetDepth(5, 5), test.ShouldEqual, Depth(0))
}
