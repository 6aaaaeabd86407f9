// Package cdef is the constrained directional enhancement filter engine.
//
// The frame is processed in 64x64 filter blocks. Every filter block reads
// its neighbours' pre-CDEF samples: the two rows above and below come from
// line snapshots taken before any filtering, the columns to the left from
// a per-worker column buffer, and the columns to the right straight from
// the frame, since filter blocks in a row are processed left to right.
package cdef

import "github.com/deepteams/inloop/frame"

// BlockPos addresses an 8x8 luma block inside a filter block, in 8x8
// units.
type BlockPos struct {
	Row, Col uint8
}

// ComputeSBList returns the 8x8 blocks of filter block (fbr, fbc) that
// are not entirely skipped. Blocks past the frame edge are left out.
func ComputeSBList(g *frame.Grid, fbr, fbc int) []BlockPos {
	r0 := fbr * frame.SuperblockMI
	c0 := fbc * frame.SuperblockMI
	maxr := min(frame.SuperblockMI, g.Rows-r0)
	maxc := min(frame.SuperblockMI, g.Cols-c0)

	var list []BlockPos
	for r := 0; r < maxr; r += 2 {
		for c := 0; c < maxc; c += 2 {
			if is8x8Skip(g, r0+r, c0+c) {
				continue
			}
			list = append(list, BlockPos{Row: uint8(r >> 1), Col: uint8(c >> 1)})
		}
	}
	return list
}

func is8x8Skip(g *frame.Grid, r, c int) bool {
	return g.At(r, c).Skip && g.At(r, c+1).Skip && g.At(r+1, c).Skip && g.At(r+1, c+1).Skip
}

// planeStrength is the filter setting of one plane of one filter block,
// scaled to the bit depth.
type planeStrength struct {
	pri, sec, damping int
}

func (s planeStrength) zero() bool { return s.pri == 0 && s.sec == 0 }

// fbPlan is the per filter block decision.
type fbPlan struct {
	skip     bool
	blocks   []BlockPos
	strength [frame.MaxPlanes]planeStrength
}

// Plan holds everything derived from the grid and header before filtering.
type Plan struct {
	grid       *frame.Grid
	bitDepth   int
	coeffShift int
	subX, subY int
	numPlanes  int
	active     [frame.MaxPlanes]bool
	respect    bool

	Rows, Cols int // filter blocks
	fbs        []fbPlan
}

// NewPlan builds the CDEF plan for one frame. Planes outside
// [planeStart, planeEnd) are not written; luma is still read for the block
// directions. planeEnd <= 0 selects every plane.
func NewPlan(f *frame.Frame, g *frame.Grid, params *frame.CDEFParams, planeStart, planeEnd int) *Plan {
	if planeEnd <= 0 || planeEnd > f.NumPlanes {
		planeEnd = f.NumPlanes
	}
	p := &Plan{
		grid:       g,
		bitDepth:   f.BitDepth,
		coeffShift: f.BitDepth - 8,
		subX:       f.SubX,
		subY:       f.SubY,
		numPlanes:  f.NumPlanes,
		respect:    params.RespectTileEdges,
		Rows:       f.SBRows(),
		Cols:       f.SBCols(),
	}
	if !params.Enabled {
		return p
	}
	for plane := max(0, planeStart); plane < planeEnd; plane++ {
		p.active[plane] = true
	}

	p.fbs = make([]fbPlan, p.Rows*p.Cols)
	for fbr := 0; fbr < p.Rows; fbr++ {
		for fbc := 0; fbc < p.Cols; fbc++ {
			fb := &p.fbs[fbr*p.Cols+fbc]
			fb.skip = true
			idx := int(g.At(fbr*frame.SuperblockMI, fbc*frame.SuperblockMI).CDEFIndex)
			if idx < 0 {
				continue
			}
			filtered := false
			for plane := 0; plane < p.numPlanes; plane++ {
				if !p.active[plane] {
					continue
				}
				s, damping := params.Strength(plane, idx)
				fb.strength[plane] = planeStrength{
					pri:     s.Primary << p.coeffShift,
					sec:     s.Secondary << p.coeffShift,
					damping: damping + p.coeffShift,
				}
				filtered = filtered || !fb.strength[plane].zero()
			}
			if !filtered {
				continue
			}
			fb.blocks = ComputeSBList(g, fbr, fbc)
			fb.skip = len(fb.blocks) == 0
		}
	}
	return p
}

// Active reports whether any filter block will be filtered.
func (p *Plan) Active() bool {
	for i := range p.fbs {
		if !p.fbs[i].skip {
			return true
		}
	}
	return false
}

// Skipped returns the number of filter blocks left untouched.
func (p *Plan) Skipped() int {
	if p.fbs == nil {
		return p.Rows * p.Cols
	}
	n := 0
	for i := range p.fbs {
		if p.fbs[i].skip {
			n++
		}
	}
	return n
}

// Blocks returns the 8x8 blocks filter block (fbr, fbc) will filter, or
// nil when it is skipped.
func (p *Plan) Blocks(fbr, fbc int) []BlockPos {
	if p.fbs == nil || p.fbs[fbr*p.Cols+fbc].skip {
		return nil
	}
	return p.fbs[fbr*p.Cols+fbc].blocks
}

func (p *Plan) sub(plane int) (ssx, ssy int) {
	if plane == frame.PlaneY {
		return 0, 0
	}
	return p.subX, p.subY
}

// fbSize returns the filter block size in plane samples. Filter blocks on
// the right and bottom edges cover only the 8-sample aligned frame area.
func (p *Plan) fbSize(plane, fbr, fbc int) (w, h int) {
	ssx, ssy := p.sub(plane)
	nhb := min(frame.SuperblockMI, p.grid.Cols-fbc*frame.SuperblockMI)
	nvb := min(frame.SuperblockMI, p.grid.Rows-fbr*frame.SuperblockMI)
	return (nhb << frame.MISizeLog2) >> ssx, (nvb << frame.MISizeLog2) >> ssy
}

// tileEdges reports which sides of filter block (fbr, fbc) may not be read
// across: frame edges always, tile edges when requested.
func (p *Plan) tileEdges(fbr, fbc int) (left, top, right, bottom bool) {
	left, top = fbc == 0, fbr == 0
	right, bottom = fbc == p.Cols-1, fbr == p.Rows-1
	if !p.respect {
		return
	}
	r0, c0 := fbr*frame.SuperblockMI, fbc*frame.SuperblockMI
	r1 := min(r0+frame.SuperblockMI, p.grid.Rows) - 1
	c1 := min(c0+frame.SuperblockMI, p.grid.Cols) - 1
	left = left || p.grid.At(r0, c0).Edges&frame.TileEdgeLeft != 0
	top = top || p.grid.At(r0, c0).Edges&frame.TileEdgeTop != 0
	right = right || p.grid.At(r0, c1).Edges&frame.TileEdgeRight != 0
	bottom = bottom || p.grid.At(r1, c0).Edges&frame.TileEdgeBottom != 0
	return
}
