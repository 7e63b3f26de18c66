// Package objectview reports when known object positions fall inside a
// camera's field of view.
//
// A Watcher holds a fixed set of object locations in a world frame. Each
// time camera info arrives it transforms those locations into the camera
// frame, projects them through the pinhole model, and emits a sighting
// record for every object that lands inside the image border within the
// configured range of the camera.
package objectview

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/utils"

	"github.com/subtvision/lidar2depth/pointcloud"
	"github.com/subtvision/lidar2depth/referenceframe"
	"github.com/subtvision/lidar2depth/rimage/transform"
)

// Sighting is one object seen by the camera at one moment.
type Sighting struct {
	Seen  time.Time
	U, V  int
	Range float64
}

// Watcher checks object visibility against camera info events.
type Watcher struct {
	objects  *pointcloud.Cloud
	provider referenceframe.Provider
	maxRange float64
	out      io.Writer
	logger   golog.Logger
}

// NewWatcher returns a watcher over the given world-frame object cloud.
// Sightings are appended to out as "seconds u v" lines; a nil out disables
// the record stream.
func NewWatcher(
	objects *pointcloud.Cloud,
	provider referenceframe.Provider,
	maxRange float64,
	out io.Writer,
	logger golog.Logger,
) (*Watcher, error) {
	if objects == nil || objects.Size() == 0 {
		return nil, errors.New("watcher needs at least one object position")
	}
	if provider == nil {
		return nil, errors.New("transform provider cannot be nil")
	}
	if maxRange <= 0 {
		return nil, errors.Errorf("max range must be positive, got %v", maxRange)
	}
	return &Watcher{
		objects:  objects,
		provider: provider,
		maxRange: maxRange,
		out:      out,
		logger:   logger,
	}, nil
}

// CameraInfo handles one camera info event. A missing transform skips the
// event without error; that is the normal state before the frame tree is up.
func (w *Watcher) CameraInfo(
	intrinsics *transform.PinholeCameraIntrinsics,
	cameraFrame string,
	at time.Time,
) ([]Sighting, error) {
	if err := intrinsics.CheckValid(); err != nil {
		return nil, err
	}
	pose, err := w.provider.Transform(w.objects.FrameID(), cameraFrame, at)
	if err != nil {
		if errors.Is(err, referenceframe.ErrTransformUnavailable) {
			w.logger.Debugw("skipping camera info, transform not yet available",
				"camera", cameraFrame, "error", err)
			return nil, nil
		}
		return nil, err
	}

	camObjects := pointcloud.ApplyPose(w.objects, pose, cameraFrame)
	ahead := pointcloud.Filter(camObjects, func(p r3.Vector) bool { return p.Z > 0 })

	var sightings []Sighting
	ahead.Iterate(func(p r3.Vector) bool {
		uf, vf := intrinsics.PointToPixel(p.X, p.Y, p.Z)
		u, v := int(uf), int(vf)
		// strictly inside the border; objects on the edge pixels are treated
		// as leaving the view
		if u < 1 || u >= intrinsics.Width-1 || v < 1 || v >= intrinsics.Height-1 {
			return true
		}
		objRange := p.Norm()
		if objRange >= w.maxRange {
			return true
		}
		sightings = append(sightings, Sighting{Seen: at, U: u, V: v, Range: objRange})
		if w.out != nil {
			_, err = fmt.Fprintf(w.out, "%0.6f %d %d\n", timeToSeconds(at), u, v)
			if err != nil {
				return false
			}
		}
		return true
	})
	if err != nil {
		return nil, errors.Wrap(err, "error writing sighting record")
	}
	return sightings, nil
}

func timeToSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

// LoadObjects reads object positions from whitespace-separated lines of
// "name x y z", the format used by ground-truth object lists. Returns a
// cloud in the given world frame.
func LoadObjects(in io.Reader, worldFrame string) (*pointcloud.Cloud, error) {
	cloud := pointcloud.New(worldFrame, time.Time{})
	scanner := bufio.NewScanner(in)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		tokens := strings.Fields(line)
		if len(tokens) < 4 {
			return nil, errors.Errorf("object list line %d: expected \"name x y z\", got %q", lineNum, line)
		}
		var pt r3.Vector
		for i, dst := range []*float64{&pt.X, &pt.Y, &pt.Z} {
			v, err := strconv.ParseFloat(tokens[i+1], 64)
			if err != nil {
				return nil, errors.Wrapf(err, "object list line %d", lineNum)
			}
			*dst = v
		}
		cloud.Add(pt)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "error reading object list")
	}
	if cloud.Size() == 0 {
		return nil, errors.New("object list is empty")
	}
	return cloud, nil
}

// LoadObjectsFromFile reads an object list file into a world-frame cloud.
func LoadObjectsFromFile(fn, worldFrame string) (*pointcloud.Cloud, error) {
	//nolint:gosec
	f, err := os.Open(fn)
	if err != nil {
		return nil, errors.Wrapf(err, "error opening object list %q", fn)
	}
	defer utils.UncheckedErrorFunc(f.Close)
	return LoadObjects(f, worldFrame)
}
