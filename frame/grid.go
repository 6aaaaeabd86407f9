package frame

import "fmt"

// PredictionMode is a block's prediction mode, in bitstream order. Only the
// distinction the loop filter needs (intra, global-motion inter, other
// inter) is interpreted here.
type PredictionMode uint8

const (
	DCPred PredictionMode = iota
	VPred
	HPred
	D45Pred
	D135Pred
	D113Pred
	D157Pred
	D203Pred
	D67Pred
	SmoothPred
	SmoothVPred
	SmoothHPred
	PaethPred
	NearestMV
	NearMV
	GlobalMV
	NewMV
	NearestNearestMV
	NearNearMV
	NearestNewMV
	NewNearestMV
	NearNewMV
	NewNearMV
	GlobalGlobalMV
	NewNewMV
	PredictionModes
)

// EdgeFlags marks which sides of a 4x4 unit sit on a tile boundary. Frame
// boundaries are implied by grid position and are not stored.
type EdgeFlags uint8

const (
	TileEdgeLeft EdgeFlags = 1 << iota
	TileEdgeTop
	TileEdgeRight
	TileEdgeBottom
)

// FrameLFCount is the number of per-block loop filter deltas carried when
// multi-delta coding is on: luma vertical, luma horizontal, U and V.
const FrameLFCount = 4

// BlockInfo is the metadata of one 4x4 unit. A coded block covering several
// units repeats its BlockInfo in each of them.
type BlockInfo struct {
	BlockSize BlockSize
	TxSize    TxSize // luma transform size covering this unit
	Mode      PredictionMode
	RefFrame  int8 // 0 is intra, 1..7 name inter references
	SegmentID uint8
	Skip      bool // no residual was coded for the block

	DeltaLFFromBase int8
	DeltaLF         [FrameLFCount]int8

	// CDEFIndex selects the CDEF strength for the enclosing 64x64 area;
	// -1 disables CDEF there.
	CDEFIndex int8

	Edges EdgeFlags
}

// IsInter reports whether the block is inter predicted.
func (b *BlockInfo) IsInter() bool { return b.RefFrame > 0 }

// Grid is the per-4x4 block metadata of one frame.
type Grid struct {
	Rows  int
	Cols  int
	cells []BlockInfo
}

// NewGrid allocates a grid of rows x cols 4x4 units. Every unit starts as
// an intra 4x4 block with a 4x4 transform and CDEF index 0.
func NewGrid(rows, cols int) (*Grid, error) {
	if rows <= 0 || cols <= 0 || rows > MaxDimension>>MISizeLog2 || cols > MaxDimension>>MISizeLog2 {
		return nil, fmt.Errorf("%w: grid %dx%d", ErrDimensions, cols, rows)
	}
	return &Grid{Rows: rows, Cols: cols, cells: make([]BlockInfo, rows*cols)}, nil
}

// NewGridFor allocates a grid sized for f.
func NewGridFor(f *Frame) (*Grid, error) {
	return NewGrid(f.MIRows(), f.MICols())
}

// At returns the unit at (row, col). Coordinates are clamped to the grid.
func (g *Grid) At(row, col int) *BlockInfo {
	row = max(0, min(row, g.Rows-1))
	col = max(0, min(col, g.Cols-1))
	return &g.cells[row*g.Cols+col]
}

// Cells exposes the backing slice in row-major order.
func (g *Grid) Cells() []BlockInfo { return g.cells }

// FillBlock writes info into every unit covered by a block of
// info.BlockSize whose top-left unit is (row, col), clipped to the grid.
func (g *Grid) FillBlock(row, col int, info BlockInfo) {
	w, h := info.BlockSize.MIs()
	for r := row; r < row+h && r < g.Rows; r++ {
		if r < 0 {
			continue
		}
		line := g.cells[r*g.Cols : (r+1)*g.Cols]
		for c := col; c < col+w && c < g.Cols; c++ {
			if c >= 0 {
				line[c] = info
			}
		}
	}
}

// Fill writes info into every unit of the grid.
func (g *Grid) Fill(info BlockInfo) {
	for i := range g.cells {
		g.cells[i] = info
	}
}

// MarkTileEdges sets the tile-edge flags of the units bordering the given
// tile column and row starts (in 4x4 units). Starts at 0 are ignored since
// frame boundaries are already known from position.
func (g *Grid) MarkTileEdges(colStarts, rowStarts []int) {
	for _, c := range colStarts {
		if c <= 0 || c >= g.Cols {
			continue
		}
		for r := 0; r < g.Rows; r++ {
			g.cells[r*g.Cols+c].Edges |= TileEdgeLeft
			g.cells[r*g.Cols+c-1].Edges |= TileEdgeRight
		}
	}
	for _, r := range rowStarts {
		if r <= 0 || r >= g.Rows {
			continue
		}
		for c := 0; c < g.Cols; c++ {
			g.cells[r*g.Cols+c].Edges |= TileEdgeTop
			g.cells[(r-1)*g.Cols+c].Edges |= TileEdgeBottom
		}
	}
}

// Clone returns a deep copy of the grid.
func (g *Grid) Clone() *Grid {
	c := &Grid{Rows: g.Rows, Cols: g.Cols, cells: make([]BlockInfo, len(g.cells))}
	copy(c.cells, g.cells)
	return c
}
