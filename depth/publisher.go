package depth

import (
	"context"
	"fmt"
	"image/png"
	"os"
	"path/filepath"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// PNGPublisher writes each depth image as a 16-bit grayscale PNG (mono16)
// named by capture time, one file per conversion.
type PNGPublisher struct {
	dir    string
	logger golog.Logger
}

// NewPNGPublisher creates the output directory if needed.
func NewPNGPublisher(dir string, logger golog.Logger) (*PNGPublisher, error) {
	if dir == "" {
		return nil, errors.New("output directory cannot be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "error creating output directory %q", dir)
	}
	return &PNGPublisher{dir: dir, logger: logger}, nil
}

// Publish implements Publisher.
func (p *PNGPublisher) Publish(ctx context.Context, img *Image) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	fn := filepath.Join(p.dir, fmt.Sprintf("depth-%d.png", img.Captured.UnixNano()))
	//nolint:gosec
	f, err := os.Create(fn)
	if err != nil {
		return errors.Wrapf(err, "error creating depth image %q", fn)
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()
	if err := png.Encode(f, img.ToGray16Picture()); err != nil {
		return errors.Wrapf(err, "error encoding depth image %q", fn)
	}
	p.logger.Debugw("published depth image", "file", fn, "frame", img.FrameID)
	return nil
}
