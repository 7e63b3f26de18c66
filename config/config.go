// Package config loads and validates the static startup configuration: the
// camera target frame, the filter bounds, the frame tree, and the optional
// object watch list. Configuration is read once at startup; any problem here
// is fatal to initialization, never handled per conversion.
package config

import (
	"encoding/json"
	"io"
	"math"
	"os"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/utils"
	"gonum.org/v1/gonum/num/quat"

	"github.com/subtvision/lidar2depth/depth"
	"github.com/subtvision/lidar2depth/referenceframe"
	"github.com/subtvision/lidar2depth/spatialmath"
)

// Translation is a frame offset in meters.
type Translation struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Rotation is a frame orientation as a quaternion. A zero value is treated
// as the identity rotation.
type Rotation struct {
	W float64 `json:"w"`
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func (r Rotation) isZero() bool {
	return r.W == 0 && r.X == 0 && r.Y == 0 && r.Z == 0
}

// Transform places one named frame relative to its parent.
type Transform struct {
	Name        string      `json:"name"`
	Parent      string      `json:"parent"`
	Translation Translation `json:"translation"`
	Rotation    Rotation    `json:"rotation"`
}

// Objects configures the optional object-in-view watcher.
type Objects struct {
	// File holds "name x y z" lines of object positions.
	File string `json:"file"`
	// WorldFrame is the frame the object positions are expressed in.
	WorldFrame string `json:"world_frame"`
	// MaxRangeM excludes sightings farther than this many meters.
	MaxRangeM float64 `json:"max_range_m"`
}

// Config is the full startup configuration.
type Config struct {
	// Pipeline holds the target frame and filter bounds of the projection
	// pipeline.
	Pipeline depth.Config `json:"pipeline"`
	// CloudFrame is the frame ID attached to point clouds read from files.
	CloudFrame string `json:"cloud_frame"`
	// IntrinsicsFile is a JSON camera intrinsics file.
	IntrinsicsFile string `json:"intrinsics_file"`
	// OutputDir receives one mono16 PNG per conversion.
	OutputDir string `json:"output_dir"`
	// Transforms is the static frame tree.
	Transforms []Transform `json:"transforms"`
	// Objects is optional; a nil value disables the watcher.
	Objects *Objects `json:"objects,omitempty"`
}

// Read loads a config file.
func Read(fn string) (*Config, error) {
	//nolint:gosec
	f, err := os.Open(fn)
	if err != nil {
		return nil, errors.Wrapf(err, "error opening config file %q", fn)
	}
	defer utils.UncheckedErrorFunc(f.Close)
	return FromReader(f)
}

// FromReader parses and validates a config.
func FromReader(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "error reading config")
	}
	conf := &Config{}
	if err := json.Unmarshal(data, conf); err != nil {
		return nil, errors.Wrap(err, "error parsing config")
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

// Validate checks every startup invariant the pipeline depends on.
func (conf *Config) Validate() error {
	if err := conf.Pipeline.Validate(); err != nil {
		return errors.Wrap(err, "pipeline")
	}
	if conf.CloudFrame == "" {
		return errors.New("cloud_frame cannot be empty")
	}
	if conf.IntrinsicsFile == "" {
		return errors.New("intrinsics_file cannot be empty")
	}
	if conf.OutputDir == "" {
		return errors.New("output_dir cannot be empty")
	}
	for i, tf := range conf.Transforms {
		if tf.Name == "" || tf.Parent == "" {
			return errors.Errorf("transform %d needs both name and parent", i)
		}
	}
	if conf.Objects != nil {
		if conf.Objects.File == "" {
			return errors.New("objects.file cannot be empty")
		}
		if conf.Objects.WorldFrame == "" {
			return errors.New("objects.world_frame cannot be empty")
		}
		if conf.Objects.MaxRangeM <= 0 {
			return errors.Errorf("objects.max_range_m must be positive, got %v", conf.Objects.MaxRangeM)
		}
	}
	return nil
}

// FrameSystem builds the transform provider from the configured frame tree.
func (conf *Config) FrameSystem() (*referenceframe.StaticProvider, error) {
	frames := make([]referenceframe.StaticFrame, 0, len(conf.Transforms))
	for _, tf := range conf.Transforms {
		rot := quat.Number{Real: 1}
		if !tf.Rotation.isZero() {
			rot = quat.Number{
				Real: tf.Rotation.W,
				Imag: tf.Rotation.X,
				Jmag: tf.Rotation.Y,
				Kmag: tf.Rotation.Z,
			}
			norm := math.Sqrt(rot.Real*rot.Real + rot.Imag*rot.Imag + rot.Jmag*rot.Jmag + rot.Kmag*rot.Kmag)
			if norm < 1e-9 {
				return nil, errors.Errorf("transform %q rotation is not a valid quaternion", tf.Name)
			}
		}
		frames = append(frames, referenceframe.StaticFrame{
			Name:   tf.Name,
			Parent: tf.Parent,
			Pose: spatialmath.NewPose(
				r3.Vector{X: tf.Translation.X, Y: tf.Translation.Y, Z: tf.Translation.Z},
				rot,
			),
		})
	}
	return referenceframe.NewStaticProvider(frames)
}
