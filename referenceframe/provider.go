// Package referenceframe provides lookup of rigid transforms between named
// reference frames.
package referenceframe

import (
	"time"

	"github.com/pkg/errors"

	"github.com/subtvision/lidar2depth/spatialmath"
)

// ErrTransformUnavailable is returned when no transform exists between the
// requested frames at the requested time. During startup this is a normal
// condition, not a fault.
var ErrTransformUnavailable = errors.New("transform unavailable")

// Provider looks up the rigid transform that maps points expressed in
// sourceFrame into targetFrame at the given time. Implementations must be
// safe for concurrent use.
type Provider interface {
	Transform(sourceFrame, targetFrame string, at time.Time) (spatialmath.Pose, error)
}

// StaticFrame places a named frame relative to its parent: Pose maps points
// in the frame into parent coordinates.
type StaticFrame struct {
	Name   string
	Parent string
	Pose   spatialmath.Pose
}

// StaticProvider resolves transforms from a fixed tree of frames. It is
// immutable after construction and therefore safe for concurrent lookups.
// The lookup time is ignored; static transforms are valid at all times.
type StaticProvider struct {
	frames map[string]StaticFrame
}

// NewStaticProvider builds a provider from a list of frames. Frame names
// must be unique and nonempty; a parent that is never itself defined acts as
// a root (e.g. "world").
func NewStaticProvider(frames []StaticFrame) (*StaticProvider, error) {
	byName := make(map[string]StaticFrame, len(frames))
	for _, f := range frames {
		if f.Name == "" {
			return nil, errors.New("frame name cannot be empty")
		}
		if f.Name == f.Parent {
			return nil, errors.Errorf("frame %q cannot be its own parent", f.Name)
		}
		if _, ok := byName[f.Name]; ok {
			return nil, errors.Errorf("duplicate frame %q", f.Name)
		}
		byName[f.Name] = f
	}
	p := &StaticProvider{frames: byName}
	for name := range byName {
		if _, err := p.chainToRoot(name); err != nil {
			return nil, err
		}
	}
	return p, nil
}

type chainLink struct {
	frame string
	// pose of frame relative to the chain's starting frame
	pose spatialmath.Pose
}

// chainToRoot returns the ancestors of a frame, starting at the frame itself
// with the identity pose, each paired with the transform mapping points in
// the starting frame into that ancestor's coordinates.
func (p *StaticProvider) chainToRoot(frame string) ([]chainLink, error) {
	chain := []chainLink{{frame: frame, pose: spatialmath.NewZeroPose()}}
	pose := spatialmath.NewZeroPose()
	cur := frame
	for {
		f, ok := p.frames[cur]
		if !ok {
			return chain, nil
		}
		pose = spatialmath.Compose(f.Pose, pose)
		chain = append(chain, chainLink{frame: f.Parent, pose: pose})
		cur = f.Parent
		if len(chain) > len(p.frames)+1 {
			return nil, errors.Errorf("cycle in frame tree at %q", frame)
		}
	}
}

// Transform implements Provider by walking both frames up to their lowest
// common ancestor. It returns ErrTransformUnavailable when the frames do not
// share an ancestor.
func (p *StaticProvider) Transform(sourceFrame, targetFrame string, at time.Time) (spatialmath.Pose, error) {
	srcChain, err := p.chainToRoot(sourceFrame)
	if err != nil {
		return spatialmath.Pose{}, err
	}
	dstChain, err := p.chainToRoot(targetFrame)
	if err != nil {
		return spatialmath.Pose{}, err
	}
	srcByFrame := make(map[string]spatialmath.Pose, len(srcChain))
	for _, link := range srcChain {
		srcByFrame[link.frame] = link.pose
	}
	for _, link := range dstChain {
		if ancToSrc, ok := srcByFrame[link.frame]; ok {
			return spatialmath.Compose(link.pose.Invert(), ancToSrc), nil
		}
	}
	return spatialmath.Pose{}, errors.Wrapf(ErrTransformUnavailable,
		"no common ancestor for frames %q and %q", sourceFrame, targetFrame)
}
