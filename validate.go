package inloop

import (
	"fmt"

	"github.com/deepteams/inloop/frame"
)

// checkFrame rejects inputs the filters cannot run on. It runs once per
// call, before any sample is written; per-block metadata is trusted.
func (f *Filterer) checkFrame(fr *frame.Frame, g *frame.Grid, params *frame.Params) error {
	switch {
	case fr == nil:
		return fmt.Errorf("%w: nil frame", ErrInvalidFrame)
	case g == nil:
		return fmt.Errorf("%w: nil grid", ErrInvalidFrame)
	case params == nil:
		return fmt.Errorf("%w: nil params", ErrInvalidFrame)
	}
	if fr.Planes8() == nil && fr.Planes16() == nil {
		return fmt.Errorf("%w: frame has no sample buffer", ErrInvalidFrame)
	}
	switch fr.BitDepth {
	case 8, 10, 12:
	default:
		return fmt.Errorf("%w: bit depth %d", ErrInvalidFrame, fr.BitDepth)
	}
	if g.Rows != fr.MIRows() || g.Cols != fr.MICols() {
		return fmt.Errorf("%w: grid is %dx%d units, frame needs %dx%d",
			ErrInvalidFrame, g.Cols, g.Rows, fr.MICols(), fr.MIRows())
	}
	if f.opts.PlaneStart >= fr.NumPlanes {
		return fmt.Errorf("%w: PlaneStart %d on a frame with %d planes",
			ErrInvalidFrame, f.opts.PlaneStart, fr.NumPlanes)
	}
	return checkParams(params)
}

func checkParams(params *frame.Params) error {
	lf := &params.LoopFilter
	for _, lvl := range []int{lf.Level[0], lf.Level[1], lf.LevelU, lf.LevelV} {
		if lvl < 0 || lvl > frame.MaxLoopFilter {
			return fmt.Errorf("%w: loop filter level %d (must be 0-%d)", ErrInvalidFrame, lvl, frame.MaxLoopFilter)
		}
	}
	if lf.Sharpness < 0 || lf.Sharpness > 7 {
		return fmt.Errorf("%w: sharpness %d (must be 0-7)", ErrInvalidFrame, lf.Sharpness)
	}

	c := &params.CDEF
	if !c.Enabled {
		return nil
	}
	if c.Damping < 3 || c.Damping > 6 {
		return fmt.Errorf("%w: CDEF damping %d (must be 3-6)", ErrInvalidFrame, c.Damping)
	}
	if c.Bits < 0 || c.Bits > 3 {
		return fmt.Errorf("%w: CDEF bits %d (must be 0-3)", ErrInvalidFrame, c.Bits)
	}
	for i := 0; i < 1<<c.Bits; i++ {
		for _, s := range []frame.CDEFStrength{c.Y[i], c.UV[i]} {
			if s.Primary < 0 || s.Primary > 15 {
				return fmt.Errorf("%w: CDEF primary strength %d (must be 0-15)", ErrInvalidFrame, s.Primary)
			}
			switch s.Secondary {
			case 0, 1, 2, 4:
			default:
				return fmt.Errorf("%w: CDEF secondary strength %d (must be 0, 1, 2 or 4)", ErrInvalidFrame, s.Secondary)
			}
		}
	}
	return nil
}
