// Package depth converts sparse range-sensor point clouds into dense
// fixed-point depth images aligned with a camera's image plane.
//
// Each conversion is an independent, synchronous pass over one
// time-synchronized (point cloud, camera intrinsics) pair: the cloud is
// transformed into the camera frame, cropped to the usable viewing volume,
// projected through the pinhole model, and accumulated into a uint16 depth
// map with nearest-point-wins collision resolution.
package depth

import (
	"context"
	"math"
	"time"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/subtvision/lidar2depth/pointcloud"
	"github.com/subtvision/lidar2depth/referenceframe"
	"github.com/subtvision/lidar2depth/rimage"
	"github.com/subtvision/lidar2depth/rimage/transform"
)

// Image is one assembled depth map plus the header of the point cloud it was
// built from.
type Image struct {
	*rimage.DepthMap
	FrameID  string
	Captured time.Time
}

// Publisher receives one completed depth image per successful conversion.
type Publisher interface {
	Publish(ctx context.Context, img *Image) error
}

// Config crops the camera-frame cloud to the volume worth projecting.
// In the camera optical frame +Z points forward out of the lens and +X
// right, so the forward bounds apply to Z and the lateral bounds to X.
type Config struct {
	// TargetFrame is the camera optical frame the cloud is transformed into.
	TargetFrame string `json:"target_frame"`
	// ForwardMin and ForwardMax bound Z in meters. ForwardMin must be
	// positive: it is what keeps points behind the image plane out of the
	// projection.
	ForwardMin float64 `json:"forward_min_m"`
	ForwardMax float64 `json:"forward_max_m"`
	// LateralMin and LateralMax bound X in meters.
	LateralMin float64 `json:"lateral_min_m"`
	LateralMax float64 `json:"lateral_max_m"`
}

// Validate checks the config once at startup; a bad config is fatal to
// initialization, never a per-conversion error.
func (conf *Config) Validate() error {
	if conf.TargetFrame == "" {
		return errors.New("target_frame cannot be empty")
	}
	if conf.ForwardMin <= 0 {
		return errors.Errorf("forward_min_m must be positive, got %v", conf.ForwardMin)
	}
	if conf.ForwardMax <= conf.ForwardMin {
		return errors.Errorf("forward bounds inverted: [%v, %v]", conf.ForwardMin, conf.ForwardMax)
	}
	if conf.LateralMax <= conf.LateralMin {
		return errors.Errorf("lateral bounds inverted: [%v, %v]", conf.LateralMin, conf.LateralMax)
	}
	return nil
}

// Converter runs the projection pipeline. It holds no per-conversion state,
// so a single Converter may serve overlapping conversions as long as its
// transform provider allows concurrent lookups.
type Converter struct {
	conf     Config
	provider referenceframe.Provider
	logger   golog.Logger
}

// NewConverter validates the config and returns a ready Converter.
func NewConverter(conf Config, provider referenceframe.Provider, logger golog.Logger) (*Converter, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	if provider == nil {
		return nil, errors.New("transform provider cannot be nil")
	}
	return &Converter{conf: conf, provider: provider, logger: logger}, nil
}

// Convert turns one synchronized (cloud, intrinsics) pair into a depth
// image. The image header is copied from the input cloud. A cloud whose
// every point is filtered out still yields a complete all-invalid image so
// downstream consumers keep their cadence. Lookup failure surfaces as
// referenceframe.ErrTransformUnavailable with no partial output.
func (c *Converter) Convert(
	cloud *pointcloud.Cloud,
	intrinsics *transform.PinholeCameraIntrinsics,
) (*Image, error) {
	if err := intrinsics.CheckValid(); err != nil {
		return nil, err
	}
	c.logger.Debugw("converting cloud",
		"points", cloud.Size(),
		"cloud_frame", cloud.FrameID(),
		"camera", c.conf.TargetFrame,
		"width", intrinsics.Width,
		"height", intrinsics.Height,
	)

	pose, err := c.provider.Transform(cloud.FrameID(), c.conf.TargetFrame, cloud.Captured())
	if err != nil {
		return nil, err
	}
	camCloud := pointcloud.ApplyPose(cloud, pose, c.conf.TargetFrame)

	// two pure passes; each returns a fresh cloud so the second never reads
	// storage the first is writing
	forward := pointcloud.Filter(camCloud, func(p r3.Vector) bool {
		return p.Z >= c.conf.ForwardMin && p.Z <= c.conf.ForwardMax
	})
	inView := pointcloud.Filter(forward, func(p r3.Vector) bool {
		return p.X >= c.conf.LateralMin && p.X <= c.conf.LateralMax
	})
	if inView.Size() == 0 {
		c.logger.Debugw("no points in view, publishing empty depth image", "cloud_frame", cloud.FrameID())
	}

	dm := assemble(inView, intrinsics)
	minDepth, maxDepth := dm.MinMax()
	c.logger.Debugw("assembled depth image",
		"kept_points", inView.Size(),
		"min_depth", minDepth,
		"max_depth", maxDepth,
	)
	return &Image{
		DepthMap: dm,
		FrameID:  cloud.FrameID(),
		Captured: cloud.Captured(),
	}, nil
}

// ConvertAndPublish runs Convert and hands the image to the publisher. A
// missing transform skips the conversion quietly; that is the expected state
// while frames are still coming up.
func (c *Converter) ConvertAndPublish(
	ctx context.Context,
	cloud *pointcloud.Cloud,
	intrinsics *transform.PinholeCameraIntrinsics,
	pub Publisher,
) error {
	img, err := c.Convert(cloud, intrinsics)
	if err != nil {
		if errors.Is(err, referenceframe.ErrTransformUnavailable) {
			c.logger.Debugw("skipping cloud, transform not yet available",
				"cloud_frame", cloud.FrameID(), "error", err)
			return nil
		}
		return err
	}
	return pub.Publish(ctx, img)
}

// assemble projects every surviving point and accumulates the depth map.
// Collisions keep the smaller depth: the nearest surface is the visible one.
func assemble(cloud *pointcloud.Cloud, intrinsics *transform.PinholeCameraIntrinsics) *rimage.DepthMap {
	dm := rimage.NewEmptyDepthMap(intrinsics.Width, intrinsics.Height)
	cloud.Iterate(func(p r3.Vector) bool {
		uf, vf := intrinsics.PointToPixel(p.X, p.Y, p.Z)
		u, v := int(uf), int(vf)
		if !dm.Contains(u, v) {
			return true
		}
		d := encodeDepth(p)
		if d == 0 {
			// degenerate zero-range measurement, 0 stays reserved for "no data"
			return true
		}
		if cur := dm.GetDepth(u, v); cur == 0 || d < cur {
			dm.Set(u, v, d)
		}
		return true
	})
	return dm
}

// encodeDepth converts the camera-frame vector to fixed-point meters*256,
// clamping anything past the representable range to MaxDepth rather than
// letting it wrap.
func encodeDepth(p r3.Vector) rimage.Depth {
	raw := math.Round(p.Norm() * 256)
	if raw > float64(rimage.MaxDepth) {
		return rimage.MaxDepth
	}
	return rimage.Depth(raw)
}
