package transform

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"
)

var testIntrinsics = PinholeCameraIntrinsics{
	Width:  640,
	Height: 480,
	Fx:     500,
	Fy:     500,
	Ppx:    320,
	Ppy:    240,
}

func TestCheckValid(t *testing.T) {
	params := testIntrinsics
	test.That(t, params.CheckValid(), test.ShouldBeNil)

	var nilParams *PinholeCameraIntrinsics
	test.That(t, nilParams.CheckValid(), test.ShouldNotBeNil)

	for _, tc := range []struct {
		name   string
		mutate func(*PinholeCameraIntrinsics)
	}{
		{"zero width", func(p *PinholeCameraIntrinsics) { p.Width = 0 }},
		{"zero height", func(p *PinholeCameraIntrinsics) { p.Height = 0 }},
		{"negative fx", func(p *PinholeCameraIntrinsics) { p.Fx = -1 }},
		{"zero fy", func(p *PinholeCameraIntrinsics) { p.Fy = 0 }},
		{"negative ppx", func(p *PinholeCameraIntrinsics) { p.Ppx = -0.5 }},
		{"negative ppy", func(p *PinholeCameraIntrinsics) { p.Ppy = -3 }},
	} {
		t.Run(tc.name, func(t *testing.T) {
			bad := testIntrinsics
			tc.mutate(&bad)
			err := bad.CheckValid()
			test.That(t, err, test.ShouldNotBeNil)
			test.That(t, errors.Is(err, ErrNoIntrinsics), test.ShouldBeTrue)
		})
	}
}

func TestPointToPixelOnAxis(t *testing.T) {
	params := testIntrinsics
	u, v := params.PointToPixel(0, 0, 10)
	test.That(t, u, test.ShouldEqual, 320)
	test.That(t, v, test.ShouldEqual, 240)
}

func TestPointToPixelOffCenter(t *testing.T) {
	params := testIntrinsics
	// x right, y down: a point right of and below the optical axis lands in
	// the lower-right quadrant, not transposed
	u, v := params.PointToPixel(1, 0.5, 5)
	test.That(t, u, test.ShouldEqual, 420)
	test.That(t, v, test.ShouldEqual, 290)
}

func TestPointToPixelBehindCamera(t *testing.T) {
	params := testIntrinsics
	for _, z := range []float64{0, -0.001, -50} {
		u, v := params.PointToPixel(1, 1, z)
		test.That(t, u, test.ShouldBeLessThan, 0)
		test.That(t, v, test.ShouldBeLessThan, 0)
	}
}

func TestPixelToPointRoundTrip(t *testing.T) {
	params := testIntrinsics
	x, y, z := 0.7, -0.3, 4.0
	u, v := params.PointToPixel(x, y, z)
	gotX, gotY, gotZ := params.PixelToPoint(u, v, z)
	// rounding to integer pixels costs at most half a pixel of reprojection
	test.That(t, gotX, test.ShouldAlmostEqual, x, z/params.Fx)
	test.That(t, gotY, test.ShouldAlmostEqual, y, z/params.Fy)
	test.That(t, gotZ, test.ShouldEqual, z)
}

func TestIntrinsicsFromJSONFile(t *testing.T) {
	dir := t.TempDir()
	fn := filepath.Join(dir, "intrinsics.json")
	data, err := json.Marshal(testIntrinsics)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, os.WriteFile(fn, data, 0o600), test.ShouldBeNil)

	got, err := NewPinholeCameraIntrinsicsFromJSONFile(fn)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, *got, test.ShouldResemble, testIntrinsics)

	_, err = NewPinholeCameraIntrinsicsFromJSONFile(filepath.Join(dir, "missing.json"))
	test.That(t, err, test.ShouldNotBeNil)
}
