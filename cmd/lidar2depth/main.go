// Package main converts recorded LiDAR point clouds into depth images
// aligned with a camera's image plane.
//
// It replays one pcd file through the projection pipeline using the frame
// tree, filter bounds, and camera intrinsics from a config file, and writes
// the result as a 16-bit grayscale PNG. With an object list configured it
// also reports which listed objects the camera could see at capture time.
package main

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	"github.com/subtvision/lidar2depth/config"
	"github.com/subtvision/lidar2depth/depth"
	"github.com/subtvision/lidar2depth/objectview"
	"github.com/subtvision/lidar2depth/pointcloud"
	"github.com/subtvision/lidar2depth/referenceframe"
	"github.com/subtvision/lidar2depth/rimage/transform"
)

var logger = golog.NewDevelopmentLogger("lidar2depth")

func main() {
	utils.ContextualMain(mainWithArgs, logger)
}

// Arguments for the command.
type Arguments struct {
	ConfigFile string `flag:"0,required,usage=pipeline config file"`
	CloudFile  string `flag:"1,required,usage=pcd point cloud file"`
	Sightings  string `flag:"sightings,usage=file to append object sighting records to"`
}

func mainWithArgs(ctx context.Context, args []string, logger golog.Logger) error {
	var argsParsed Arguments
	if err := utils.ParseFlags(args, &argsParsed); err != nil {
		return err
	}

	conf, err := config.Read(argsParsed.ConfigFile)
	if err != nil {
		return err
	}
	provider, err := conf.FrameSystem()
	if err != nil {
		return err
	}
	intrinsics, err := transform.NewPinholeCameraIntrinsicsFromJSONFile(conf.IntrinsicsFile)
	if err != nil {
		return err
	}
	if err := intrinsics.CheckValid(); err != nil {
		return err
	}
	converter, err := depth.NewConverter(conf.Pipeline, provider, logger)
	if err != nil {
		return err
	}
	publisher, err := depth.NewPNGPublisher(conf.OutputDir, logger)
	if err != nil {
		return err
	}

	info, err := os.Stat(argsParsed.CloudFile)
	if err != nil {
		return err
	}
	captured := info.ModTime()

	cloud, err := pointcloud.NewFromFile(argsParsed.CloudFile, conf.CloudFrame, captured)
	if err != nil {
		return err
	}
	logger.Infow("cloud loaded", "file", argsParsed.CloudFile, "points", cloud.Size())

	if err := converter.ConvertAndPublish(ctx, cloud, intrinsics, publisher); err != nil {
		return err
	}

	if conf.Objects != nil {
		if err := watchObjects(conf, provider, intrinsics, argsParsed.Sightings, captured, logger); err != nil {
			return err
		}
	}
	return nil
}

func watchObjects(
	conf *config.Config,
	provider referenceframe.Provider,
	intrinsics *transform.PinholeCameraIntrinsics,
	sightingsFile string,
	at time.Time,
	logger golog.Logger,
) (err error) {
	objects, err := objectview.LoadObjectsFromFile(conf.Objects.File, conf.Objects.WorldFrame)
	if err != nil {
		return err
	}

	var out io.Writer
	if sightingsFile != "" {
		//nolint:gosec
		f, oerr := os.OpenFile(sightingsFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if oerr != nil {
			return errors.Wrapf(oerr, "error opening sightings file %q", sightingsFile)
		}
		defer func() {
			err = multierr.Combine(err, f.Close())
		}()
		out = f
	}

	watcher, err := objectview.NewWatcher(objects, provider, conf.Objects.MaxRangeM, out, logger)
	if err != nil {
		return err
	}
	sightings, err := watcher.CameraInfo(intrinsics, conf.Pipeline.TargetFrame, at)
	if err != nil {
		return err
	}
	logger.Infow("objects in view", "count", len(sightings))
	return nil
}
