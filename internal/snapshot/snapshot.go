// Package snapshot stores a reconstructed frame together with its block
// grid and header parameters, so a decoder can dump the input of the
// in-loop filters and the filters can be rerun on it offline.
//
// A snapshot is a RIFF file of form "INLP" with four chunks:
//
//	HEAD  version and frame layout, little-endian uint32s
//	PARM  frame.Params as JSON
//	GRID  grid size, then the zstd-compressed 4x4 unit records
//	PLNS  zstd-compressed visible samples, plane after plane
//
// Wide samples are stored as little-endian uint16.
package snapshot

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/deepteams/inloop/frame"
	"github.com/deepteams/inloop/internal/pool"
)

// Version is the HEAD chunk version written by Save.
const Version = 1

// MaxPixels bounds the luma area Load accepts, so a short HEAD cannot
// request a huge frame. Chunk payloads are bounded separately by the
// bytes actually present in the file.
const MaxPixels = 1 << 26

const (
	headSize = 7 * 4
	cellSize = 13
)

// Snapshot is the complete input of one filter pass.
type Snapshot struct {
	Frame  *frame.Frame
	Grid   *frame.Grid
	Params frame.Params
}

// Save writes s to w.
func Save(w io.Writer, s *Snapshot) error {
	if s == nil || s.Frame == nil || s.Grid == nil {
		return errors.New("snapshot: nil frame or grid")
	}
	f := s.Frame

	head := make([]byte, headSize)
	for i, v := range []int{Version, f.Width, f.Height, f.BitDepth, f.SubX, f.SubY, f.NumPlanes} {
		binary.LittleEndian.PutUint32(head[i*4:], uint32(v))
	}

	params, err := json.Marshal(&s.Params)
	if err != nil {
		return fmt.Errorf("snapshot: encoding params: %w", err)
	}

	cells, err := compress(packGrid(s.Grid))
	if err != nil {
		return fmt.Errorf("snapshot: compressing grid: %w", err)
	}
	grid := make([]byte, 8, 8+len(cells))
	binary.LittleEndian.PutUint32(grid[0:], uint32(s.Grid.Rows))
	binary.LittleEndian.PutUint32(grid[4:], uint32(s.Grid.Cols))
	grid = append(grid, cells...)

	raw := pool.Get(planeBytes(f))
	defer pool.Put(raw)
	packPlanes(raw, f)
	planes, err := compress(raw)
	if err != nil {
		return fmt.Errorf("snapshot: compressing planes: %w", err)
	}

	return writeRIFF(w, []chunk{
		{id: fourCCHead, payload: head},
		{id: fourCCParam, payload: params},
		{id: fourCCGrid, payload: grid},
		{id: fourCCPlane, payload: planes},
	})
}

// Load reads a snapshot written by Save. Unknown chunks are skipped.
func Load(r io.Reader) (*Snapshot, error) {
	size, err := readRIFFHeader(r)
	if err != nil {
		return nil, err
	}
	chunks := make(map[uint32][]byte)
	body := &io.LimitedReader{R: r, N: int64(size)}
	for {
		c, err := readChunk(body)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if _, dup := chunks[c.id]; !dup {
			chunks[c.id] = c.payload
		}
	}
	for _, id := range []uint32{fourCCHead, fourCCParam, fourCCGrid, fourCCPlane} {
		if _, ok := chunks[id]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingChunk, fourCCString(id))
		}
	}

	f, err := readHead(chunks[fourCCHead])
	if err != nil {
		return nil, err
	}
	s := &Snapshot{Frame: f}
	if err := json.Unmarshal(chunks[fourCCParam], &s.Params); err != nil {
		return nil, fmt.Errorf("%w: PARM: %v", ErrCorrupt, err)
	}
	if s.Grid, err = readGrid(chunks[fourCCGrid], f); err != nil {
		return nil, err
	}
	raw, err := decompress(chunks[fourCCPlane], planeBytes(f))
	if err != nil {
		return nil, fmt.Errorf("PLNS: %w", err)
	}
	unpackPlanes(f, raw)
	return s, nil
}

func readHead(b []byte) (*frame.Frame, error) {
	if len(b) < headSize {
		return nil, fmt.Errorf("%w: HEAD is %d bytes", ErrCorrupt, len(b))
	}
	var v [7]int
	for i := range v {
		v[i] = int(binary.LittleEndian.Uint32(b[i*4:]))
	}
	if v[0] != Version {
		return nil, fmt.Errorf("%w: version %d", ErrCorrupt, v[0])
	}
	if uint64(v[1])*uint64(v[2]) > MaxPixels {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrTooLarge, v[1], v[2], MaxPixels)
	}
	if v[6] != 1 && v[6] != frame.MaxPlanes {
		return nil, fmt.Errorf("%w: %d planes", ErrCorrupt, v[6])
	}
	f, err := frame.NewFrame(v[1], v[2], v[3], v[4], v[5], v[6] == 1)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return f, nil
}

func readGrid(b []byte, f *frame.Frame) (*frame.Grid, error) {
	if len(b) < 8 {
		return nil, fmt.Errorf("%w: GRID is %d bytes", ErrCorrupt, len(b))
	}
	rows := int(binary.LittleEndian.Uint32(b[0:]))
	cols := int(binary.LittleEndian.Uint32(b[4:]))
	if rows != f.MIRows() || cols != f.MICols() {
		return nil, fmt.Errorf("%w: grid %dx%d for a %dx%d frame", ErrCorrupt, cols, rows, f.Width, f.Height)
	}
	g, err := frame.NewGrid(rows, cols)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	raw, err := decompress(b[8:], rows*cols*cellSize)
	if err != nil {
		return nil, fmt.Errorf("GRID: %w", err)
	}
	unpackGrid(g, raw)
	return g, nil
}

func packGrid(g *frame.Grid) []byte {
	cells := g.Cells()
	out := make([]byte, len(cells)*cellSize)
	for i := range cells {
		c := &cells[i]
		b := out[i*cellSize : (i+1)*cellSize]
		b[0] = byte(c.BlockSize)
		b[1] = byte(c.TxSize)
		b[2] = byte(c.Mode)
		b[3] = byte(c.RefFrame)
		b[4] = c.SegmentID
		if c.Skip {
			b[5] = 1
		}
		b[6] = byte(c.DeltaLFFromBase)
		for k, d := range c.DeltaLF {
			b[7+k] = byte(d)
		}
		b[11] = byte(c.CDEFIndex)
		b[12] = byte(c.Edges)
	}
	return out
}

func unpackGrid(g *frame.Grid, raw []byte) {
	cells := g.Cells()
	for i := range cells {
		b := raw[i*cellSize : (i+1)*cellSize]
		c := &cells[i]
		c.BlockSize = frame.BlockSize(b[0])
		c.TxSize = frame.TxSize(b[1])
		c.Mode = frame.PredictionMode(b[2])
		c.RefFrame = int8(b[3])
		c.SegmentID = b[4]
		c.Skip = b[5] != 0
		c.DeltaLFFromBase = int8(b[6])
		for k := range c.DeltaLF {
			c.DeltaLF[k] = int8(b[7+k])
		}
		c.CDEFIndex = int8(b[11])
		c.Edges = frame.EdgeFlags(b[12])
	}
}

func sampleBytes(f *frame.Frame) int {
	if f.HighBitDepth() {
		return 2
	}
	return 1
}

func planeBytes(f *frame.Frame) int {
	n := 0
	for plane := 0; plane < f.NumPlanes; plane++ {
		w, h := f.PlaneSize(plane)
		n += w * h
	}
	return n * sampleBytes(f)
}

// packPlanes writes the visible samples of f to dst, which must hold
// planeBytes(f) bytes.
func packPlanes(dst []byte, f *frame.Frame) {
	if b := f.Planes8(); b != nil {
		for plane := 0; plane < b.NumPlanes; plane++ {
			pl := &b.Planes[plane]
			for y := 0; y < pl.Height; y++ {
				dst = dst[copy(dst, pl.Pix[y*pl.Stride:y*pl.Stride+pl.Width]):]
			}
		}
		return
	}
	b := f.Planes16()
	for plane := 0; plane < b.NumPlanes; plane++ {
		pl := &b.Planes[plane]
		for y := 0; y < pl.Height; y++ {
			for x, v := range pl.Pix[y*pl.Stride : y*pl.Stride+pl.Width] {
				binary.LittleEndian.PutUint16(dst[2*x:], v)
			}
			dst = dst[2*pl.Width:]
		}
	}
}

func unpackPlanes(f *frame.Frame, raw []byte) {
	peak := uint16(1)<<f.BitDepth - 1
	if b := f.Planes8(); b != nil {
		for plane := 0; plane < b.NumPlanes; plane++ {
			pl := &b.Planes[plane]
			for y := 0; y < pl.Height; y++ {
				raw = raw[copy(pl.Pix[y*pl.Stride:y*pl.Stride+pl.Width], raw):]
			}
		}
		return
	}
	b := f.Planes16()
	for plane := 0; plane < b.NumPlanes; plane++ {
		pl := &b.Planes[plane]
		for y := 0; y < pl.Height; y++ {
			row := pl.Pix[y*pl.Stride : y*pl.Stride+pl.Width]
			for x := range row {
				row[x] = min(binary.LittleEndian.Uint16(raw[2*x:]), peak)
			}
			raw = raw[2*len(row):]
		}
	}
}
