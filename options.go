package inloop

import (
	"fmt"
	"runtime"

	"github.com/sirupsen/logrus"

	"github.com/deepteams/inloop/frame"
)

// Options configures a Filterer.
type Options struct {
	// Workers is the number of goroutines a pass may use. 0 or negative
	// means runtime.GOMAXPROCS(0). Each pass uses at most one worker per
	// superblock row.
	Workers int

	// PartialFrame restricts the loop filter to a band in the middle of
	// the frame, for fast previews. CDEF is not affected.
	PartialFrame bool

	// PlaneStart and PlaneEnd select the planes [PlaneStart, PlaneEnd)
	// to filter. PlaneEnd 0 or negative means every plane of the frame.
	PlaneStart int
	PlaneEnd   int

	// Logger receives pass-level diagnostics. nil means the logrus
	// standard logger.
	Logger logrus.FieldLogger
}

// DefaultOptions returns options that filter every plane of the whole
// frame on all available CPUs.
func DefaultOptions() *Options {
	return &Options{
		Workers:    0,
		PlaneStart: 0,
		PlaneEnd:   -1,
	}
}

func validateOptions(opts *Options) error {
	if opts.PlaneStart < 0 || opts.PlaneStart >= frame.MaxPlanes {
		return fmt.Errorf("%w: PlaneStart %d (must be 0-%d)", ErrInvalidOptions, opts.PlaneStart, frame.MaxPlanes-1)
	}
	if opts.PlaneEnd > frame.MaxPlanes {
		return fmt.Errorf("%w: PlaneEnd %d (must be <= %d, or <= 0 for all)", ErrInvalidOptions, opts.PlaneEnd, frame.MaxPlanes)
	}
	if opts.PlaneEnd > 0 && opts.PlaneEnd <= opts.PlaneStart {
		return fmt.Errorf("%w: empty plane range [%d, %d)", ErrInvalidOptions, opts.PlaneStart, opts.PlaneEnd)
	}
	return nil
}

// resolveWorkers maps the Workers sentinel to a goroutine count.
func resolveWorkers(n int) int {
	if n <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return n
}

// planeEnd returns the exclusive end of the plane range for f.
func (o *Options) planeEnd(f *frame.Frame) int {
	if o.PlaneEnd <= 0 || o.PlaneEnd > f.NumPlanes {
		return f.NumPlanes
	}
	return o.PlaneEnd
}
