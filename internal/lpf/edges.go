package lpf

import "github.com/deepteams/inloop/frame"

// buildEdges fills the edge grid of plane for direction dir over the plan's
// superblock band. The walk visits the same positions the filter would:
// within each superblock, one transform unit at a time along the edge
// direction.
func (p *Plan) buildEdges(plane, dir, width, height int) {
	ssx, ssy := 0, 0
	if plane != frame.PlaneY {
		ssx, ssy = p.subX, p.subY
	}
	cols := (width + frame.MISize - 1) >> frame.MISizeLog2
	rows := (height + frame.MISize - 1) >> frame.MISizeLog2
	eg := &p.edges[plane][dir]
	eg.Cols, eg.Rows = cols, rows
	eg.Edges = make([]Edge, cols*rows)

	xRange := frame.SuperblockMI >> ssx
	yRange := frame.SuperblockMI >> ssy
	for sbRow := p.StartRow; sbRow < p.StopRow; sbRow++ {
		y0 := sbRow * yRange
		for sbCol := 0; sbCol < p.SBCols; sbCol++ {
			x0 := sbCol * xRange
			if dir == Vertical {
				for y := 0; y < yRange; y++ {
					for x := 0; x < xRange; {
						x += p.visit(eg, plane, dir, ssx, ssy, x0+x, y0+y)
					}
				}
				continue
			}
			for x := 0; x < xRange; x++ {
				for y := 0; y < yRange; {
					y += p.visit(eg, plane, dir, ssx, ssy, x0+x, y0+y)
				}
			}
		}
	}
}

// visit records the decision for unit (ux, uy) and returns how many units
// to advance along the edge direction.
func (p *Plan) visit(eg *EdgeGrid, plane, dir, ssx, ssy, ux, uy int) int {
	if ux >= eg.Cols || uy >= eg.Rows {
		return 1
	}
	e, advance := p.edgeAt(plane, dir, ssx, ssy, ux<<frame.MISizeLog2, uy<<frame.MISizeLog2)
	eg.Edges[uy*eg.Cols+ux] = e
	return advance
}

// edgeAt decides the edge at plane sample position (x, y).
func (p *Plan) edgeAt(plane, dir, ssx, ssy, x, y int) (Edge, int) {
	miRow := ssy | ((y << ssy) >> frame.MISizeLog2)
	miCol := ssx | ((x << ssx) >> frame.MISizeLog2)
	cur := p.grid.At(miRow, miCol)

	ts := p.txDim(cur, plane, dir, ssx, ssy)
	advance := max(1, ts>>frame.MISizeLog2)
	coord, blockDim := x, cur.BlockSize.PlaneGeometry(ssx, ssy).W
	if dir == Horizontal {
		coord, blockDim = y, cur.BlockSize.PlaneGeometry(ssx, ssy).H
	}
	if coord == 0 || coord&(ts-1) != 0 {
		return Edge{}, advance
	}

	var prev *frame.BlockInfo
	if dir == Vertical {
		prev = p.grid.At(miRow, miCol-(1<<ssx))
	} else {
		prev = p.grid.At(miRow-(1<<ssy), miCol)
	}

	level := p.FilterLevel(plane, dir, cur)
	prevLevel := p.FilterLevel(plane, dir, prev)
	if level == 0 && prevLevel == 0 {
		return Edge{}, advance
	}
	curSkip := cur.Skip && cur.IsInter()
	prevSkip := prev.Skip && prev.IsInter()
	puEdge := coord&(blockDim-1) == 0
	if curSkip && prevSkip && !puEdge {
		return Edge{}, advance
	}

	minTs := min(ts, p.txDim(prev, plane, dir, ssx, ssy))
	var length uint8
	switch {
	case minTs <= 4:
		length = 4
	case plane != frame.PlaneY:
		length = 6
	case minTs == 8:
		length = 8
	default:
		length = 14
	}
	if level == 0 {
		level = prevLevel
	}
	return Edge{Length: length, Level: uint8(level)}, advance
}

// txDim returns the transform width (vertical edges) or height (horizontal
// edges) in plane samples that covers block b.
func (p *Plan) txDim(b *frame.BlockInfo, plane, dir, ssx, ssy int) int {
	if p.params.Lossless[int(b.SegmentID)&(frame.MaxSegments-1)] {
		return frame.MISize
	}
	if plane == frame.PlaneY {
		g := b.TxSize.Geometry()
		if dir == Vertical {
			return g.W
		}
		return g.H
	}
	w, h := b.BlockSize.PlaneTxDims(ssx, ssy)
	if dir == Vertical {
		return w
	}
	return h
}
