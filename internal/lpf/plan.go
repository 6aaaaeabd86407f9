package lpf

import (
	"github.com/deepteams/inloop/frame"
	"github.com/deepteams/inloop/internal/dsp"
)

// Edge is the filter decision for one 4-sample edge segment. A zero Length
// means the segment is left alone.
type Edge struct {
	Length uint8 // 4, 6, 8 or 14
	Level  uint8
}

// EdgeGrid holds one Edge per 4x4 unit of a plane, for one direction.
type EdgeGrid struct {
	Cols, Rows int
	Edges      []Edge
}

// At returns the edge decision for unit (col, row).
func (g *EdgeGrid) At(col, row int) Edge { return g.Edges[row*g.Cols+col] }

// Plan is everything derived from the frame header and block grid before
// any sample is touched.
type Plan struct {
	params   *frame.Params
	grid     *frame.Grid
	bitDepth int
	subX     int
	subY     int

	thresh [frame.MaxLoopFilter + 1]dsp.Thresholds
	levels levelTable
	planes []int
	edges  [frame.MaxPlanes][2]EdgeGrid

	// StartRow and StopRow bound the superblock rows to filter.
	StartRow, StopRow int
	SBCols            int
}

// Band selects the superblock rows a pass covers.
type Band struct {
	Partial    bool
	PlaneStart int
	PlaneEnd   int
}

// FrameInit derives the per-frame plan: sharpness thresholds, the level
// table, the active planes and the edge grids of the selected band.
// Inputs are assumed validated.
func FrameInit(f *frame.Frame, g *frame.Grid, params *frame.Params, band Band) *Plan {
	p := &Plan{
		params:   params,
		grid:     g,
		bitDepth: f.BitDepth,
		subX:     f.SubX,
		subY:     f.SubY,
		SBCols:   f.SBCols(),
	}
	p.thresh = buildThresholds(params.LoopFilter.Sharpness)
	p.planes = activePlanes(&params.LoopFilter, f.NumPlanes, band.PlaneStart, band.PlaneEnd)
	p.StartRow, p.StopRow = rowBand(f.MIRows(), band.Partial)
	if len(p.planes) == 0 {
		return p
	}
	p.initLevels(p.planes)
	for _, plane := range p.planes {
		w, h := f.PlaneSize(plane)
		for dir := 0; dir < 2; dir++ {
			p.buildEdges(plane, dir, w, h)
		}
	}
	return p
}

// Planes returns the planes this plan filters, in order.
func (p *Plan) Planes() []int { return p.planes }

// Active reports whether there is anything to filter at all.
func (p *Plan) Active() bool { return len(p.planes) > 0 && p.StopRow > p.StartRow }

// Edges returns the edge grid of plane in direction dir.
func (p *Plan) Edges(plane, dir int) *EdgeGrid { return &p.edges[plane][dir] }

// activePlanes applies the level early-exit rules within [start, end):
// luma with both levels zero ends the pass, chroma planes with a zero level
// are skipped.
func activePlanes(lf *frame.LoopFilterParams, numPlanes, start, end int) []int {
	if end <= 0 || end > numPlanes {
		end = numPlanes
	}
	var planes []int
	for plane := start; plane < end; plane++ {
		switch plane {
		case frame.PlaneY:
			if lf.Level[0] == 0 && lf.Level[1] == 0 {
				return planes
			}
		case frame.PlaneU:
			if lf.LevelU == 0 {
				continue
			}
		case frame.PlaneV:
			if lf.LevelV == 0 {
				continue
			}
		}
		planes = append(planes, plane)
	}
	return planes
}

// rowBand returns the superblock rows [start, stop) to filter. The partial
// band covers max(miRows/8, 8) mi rows starting at mi row
// (miRows>>1)&^7 and is widened to whole superblock rows. The start
// rounds down to a multiple of 16 mi rows, so up to 8 mi rows above
// (miRows>>1)&^7 are filtered as well.
func rowBand(miRows int, partial bool) (start, stop int) {
	startMI, stopMI := 0, miRows
	if partial && miRows > 8 {
		startMI = (miRows >> 1) &^ 7
		stopMI = min(startMI+max(miRows/8, 8), miRows)
	}
	return startMI >> frame.SuperblockMILog2,
		(stopMI + frame.SuperblockMI - 1) >> frame.SuperblockMILog2
}
