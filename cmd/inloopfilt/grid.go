package main

import (
	"github.com/deepteams/inloop/frame"
)

// Square block sizes a 64x64 area is split into, largest first.
var squareBlocks = []struct {
	log2 int
	bs   frame.BlockSize
	tx   frame.TxSize
}{
	{6, frame.Block64x64, frame.Tx64x64},
	{5, frame.Block32x32, frame.Tx32x32},
	{4, frame.Block16x16, frame.Tx16x16},
	{3, frame.Block8x8, frame.Tx8x8},
}

// gridConfig drives the block layout made up for a still image.
type gridConfig struct {
	minLog2    int // smallest block, 3..6
	splitVar   int // split blocks whose 8-bit luma variance exceeds this
	skipVar    int // mark blocks flatter than this as skipped
	strongVar  int // 64x64 areas busier than this use CDEF preset 1
	tileCols   int // tile columns, for tile-edge flags
	tileRows   int
	noCDEFFlat bool // disable CDEF (index -1) on fully flat areas
}

// synthGrid lays out square intra blocks by a variance-driven quadtree
// split of every 64x64 area, with transforms as large as the blocks. It
// stands in for the metadata a real decoder would produce.
func synthGrid(fr *frame.Frame, cfg gridConfig) (*frame.Grid, error) {
	g, err := frame.NewGridFor(fr)
	if err != nil {
		return nil, err
	}
	cfg.minLog2 = max(3, min(cfg.minLog2, 6))

	for y := 0; y < fr.Height; y += frame.SuperblockSize {
		for x := 0; x < fr.Width; x += frame.SuperblockSize {
			split(fr, g, cfg, x, y, 0)

			_, v := lumaStats(fr, x, y, frame.SuperblockSize)
			idx := int8(0)
			switch {
			case v > cfg.strongVar:
				idx = 1
			case cfg.noCDEFFlat && v <= cfg.skipVar:
				idx = -1
			}
			g.At(y>>frame.MISizeLog2, x>>frame.MISizeLog2).CDEFIndex = idx
		}
	}

	g.MarkTileEdges(tileStarts(g.Cols, cfg.tileCols), tileStarts(g.Rows, cfg.tileRows))
	return g, nil
}

func split(fr *frame.Frame, g *frame.Grid, cfg gridConfig, x, y, level int) {
	if x >= fr.Width || y >= fr.Height {
		return
	}
	sq := squareBlocks[level]
	size := 1 << sq.log2
	_, v := lumaStats(fr, x, y, size)
	if sq.log2 > cfg.minLog2 && v > cfg.splitVar {
		half := size >> 1
		split(fr, g, cfg, x, y, level+1)
		split(fr, g, cfg, x+half, y, level+1)
		split(fr, g, cfg, x, y+half, level+1)
		split(fr, g, cfg, x+half, y+half, level+1)
		return
	}
	g.FillBlock(y>>frame.MISizeLog2, x>>frame.MISizeLog2, frame.BlockInfo{
		BlockSize: sq.bs,
		TxSize:    sq.tx,
		Mode:      frame.DCPred,
		Skip:      v <= cfg.skipVar,
	})
}

// lumaStats returns the mean and variance of the 8-bit scaled luma in the
// size x size square at (x, y), clipped to the frame.
func lumaStats(fr *frame.Frame, x, y, size int) (mean, variance int) {
	x1, y1 := min(x+size, fr.Width), min(y+size, fr.Height)
	n := (x1 - x) * (y1 - y)
	if n <= 0 {
		return 0, 0
	}
	shift := fr.BitDepth - 8
	var sum, sq int
	for yy := y; yy < y1; yy++ {
		for xx := x; xx < x1; xx++ {
			v := fr.Sample(frame.PlaneY, xx, yy) >> shift
			sum += v
			sq += v * v
		}
	}
	mean = sum / n
	return mean, sq/n - mean*mean
}

// tileStarts splits units into n tiles of superblock-aligned width and
// returns their starting units.
func tileStarts(units, n int) []int {
	if n <= 1 {
		return nil
	}
	sbs := (units + frame.SuperblockMI - 1) / frame.SuperblockMI
	var starts []int
	for i := 1; i < n; i++ {
		starts = append(starts, (i*sbs/n)*frame.SuperblockMI)
	}
	return starts
}
