package snapshot

import (
	"bytes"
	"encoding/binary"
	"math/rand"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepteams/inloop/frame"
)

func randomSnapshot(t testing.TB, w, h, bd, sx, sy int, mono bool) *Snapshot {
	t.Helper()
	f, err := frame.NewFrame(w, h, bd, sx, sy, mono)
	require.NoError(t, err)
	rng := rand.New(rand.NewSource(int64(w*h + bd)))
	for plane := 0; plane < f.NumPlanes; plane++ {
		pw, ph := f.PlaneSize(plane)
		for y := 0; y < ph; y++ {
			for x := 0; x < pw; x++ {
				f.SetSample(plane, x, y, rng.Intn(1<<bd))
			}
		}
	}
	g, err := frame.NewGridFor(f)
	require.NoError(t, err)
	for r := 0; r < g.Rows; r += 2 {
		for c := 0; c < g.Cols; c += 2 {
			g.FillBlock(r, c, frame.BlockInfo{
				BlockSize: frame.Block8x8,
				TxSize:    frame.TxSize(rng.Intn(int(frame.Tx8x8) + 1)),
				Mode:      frame.PredictionMode(rng.Intn(int(frame.PredictionModes))),
				RefFrame:  int8(rng.Intn(8)),
				SegmentID: uint8(rng.Intn(frame.MaxSegments)),
				Skip:      rng.Intn(2) == 0,
				DeltaLF:   [frame.FrameLFCount]int8{int8(rng.Intn(7) - 3), 1, -2, 0},
				CDEFIndex: int8(rng.Intn(9) - 1),
			})
		}
	}
	g.MarkTileEdges([]int{g.Cols / 2}, []int{g.Rows / 2})

	s := &Snapshot{Frame: f, Grid: g}
	s.Params.LoopFilter.Level = [2]int{20, 31}
	s.Params.LoopFilter.LevelU = 7
	s.Params.LoopFilter.Sharpness = 3
	s.Params.LoopFilter.ModeRefDeltaEnabled = true
	s.Params.LoopFilter.RefDeltas = frame.DefaultRefDeltas
	s.Params.Segmentation.Enabled = true
	s.Params.Segmentation.FeatureEnabled[2][frame.SegLFU] = true
	s.Params.Segmentation.FeatureData[2][frame.SegLFU] = -9
	s.Params.Lossless[5] = true
	s.Params.CDEF = frame.CDEFParams{Enabled: true, Damping: 5, Bits: 2}
	s.Params.CDEF.Y[1] = frame.DecodeCDEFStrength(0x1b)
	s.Params.CDEF.UV[3] = frame.CDEFStrength{Primary: 2, Secondary: 1}
	return s
}

func TestSaveLoad(t *testing.T) {
	tests := []struct {
		name   string
		w, h   int
		bd     int
		sx, sy int
		mono   bool
	}{
		{"420_8bit", 97, 45, 8, 1, 1, false},
		{"444_10bit", 64, 64, 10, 0, 0, false},
		{"422_12bit", 33, 70, 12, 1, 0, false},
		{"mono_8bit", 130, 9, 8, 1, 1, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			want := randomSnapshot(t, tc.w, tc.h, tc.bd, tc.sx, tc.sy, tc.mono)

			var buf bytes.Buffer
			require.NoError(t, Save(&buf, want))
			assert.Zero(t, buf.Len()&1, "RIFF data must stay even sized")

			got, err := Load(bytes.NewReader(buf.Bytes()))
			require.NoError(t, err)
			assert.True(t, want.Frame.Equal(got.Frame), "samples differ")
			assert.Equal(t, want.Grid.Rows, got.Grid.Rows)
			assert.Equal(t, want.Grid.Cols, got.Grid.Cols)
			assert.Equal(t, want.Grid.Cells(), got.Grid.Cells())
			assert.Equal(t, want.Params, got.Params)
		})
	}
}

func TestLoad_Errors(t *testing.T) {
	s := randomSnapshot(t, 40, 24, 8, 1, 1, false)
	var buf bytes.Buffer
	require.NoError(t, Save(&buf, s))
	good := buf.Bytes()

	corrupt := func(mod func(b []byte) []byte) []byte {
		b := append([]byte(nil), good...)
		return mod(b)
	}

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"empty", nil, ErrTruncated},
		{"not_riff", corrupt(func(b []byte) []byte { b[0] = 'X'; return b }), ErrInvalidRIFF},
		{"wrong_form", corrupt(func(b []byte) []byte { copy(b[8:], "WEBP"); return b }), ErrInvalidForm},
		{"truncated", good[:len(good)-10], ErrTruncated},
		{"missing_planes", corrupt(func(b []byte) []byte {
			// Shrink the RIFF size so the last chunk falls outside it.
			i := bytes.Index(b, []byte("PLNS"))
			binary.LittleEndian.PutUint32(b[4:], uint32(i-8))
			return b[:i]
		}), ErrMissingChunk},
		{"bad_version", corrupt(func(b []byte) []byte {
			i := bytes.Index(b, []byte("HEAD"))
			binary.LittleEndian.PutUint32(b[i+8:], 99)
			return b
		}), ErrCorrupt},
		{"huge_chunk_size", hugeChunk(), ErrTruncated},
		{"chunk_past_body", corrupt(func(b []byte) []byte {
			// PARM claims more bytes than the RIFF body has left.
			i := bytes.Index(b, []byte("PARM"))
			binary.LittleEndian.PutUint32(b[i+4:], uint32(len(b)))
			return b
		}), ErrTruncated},
		{"too_many_pixels", corrupt(func(b []byte) []byte {
			i := bytes.Index(b, []byte("HEAD"))
			binary.LittleEndian.PutUint32(b[i+12:], frame.MaxDimension)
			binary.LittleEndian.PutUint32(b[i+16:], frame.MaxDimension)
			return b
		}), ErrTooLarge},
		{"bad_grid_size", corrupt(func(b []byte) []byte {
			i := bytes.Index(b, []byte("GRID"))
			binary.LittleEndian.PutUint32(b[i+8:], 1)
			return b
		}), ErrCorrupt},
		{"bad_planes_payload", corrupt(func(b []byte) []byte {
			i := bytes.Index(b, []byte("PLNS"))
			for k := i + 8; k < len(b); k++ {
				b[k] = 0xa5
			}
			return b
		}), ErrCorrupt},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(bytes.NewReader(tc.data))
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

// hugeChunk is a 20-byte file whose RIFF body and HEAD chunk both declare
// close to 2 GiB. The HEAD size fits the declared body, so only the bytes
// actually present can stop the read.
func hugeChunk() []byte {
	b := make([]byte, 20)
	copy(b[0:], "RIFF")
	binary.LittleEndian.PutUint32(b[4:], 0x7ffffff8)
	copy(b[8:], "INLP")
	copy(b[12:], "HEAD")
	binary.LittleEndian.PutUint32(b[16:], 0x7fffffe0)
	return b
}

func TestLoad_HugeChunkAllocatesLittle(t *testing.T) {
	var before, after runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&before)
	_, err := Load(bytes.NewReader(hugeChunk()))
	runtime.ReadMemStats(&after)

	assert.ErrorIs(t, err, ErrTruncated)
	assert.Less(t, after.TotalAlloc-before.TotalAlloc, uint64(16<<20))
}

func TestLoad_SkipsUnknownChunks(t *testing.T) {
	s := randomSnapshot(t, 16, 16, 8, 1, 1, false)
	var buf bytes.Buffer
	require.NoError(t, Save(&buf, s))
	b := buf.Bytes()

	// Insert an odd-sized private chunk right after the RIFF header.
	extra := []byte("note\x03\x00\x00\x00abc\x00")
	out := append([]byte(nil), b[:riffHeaderSize]...)
	out = append(out, extra...)
	out = append(out, b[riffHeaderSize:]...)
	binary.LittleEndian.PutUint32(out[4:], binary.LittleEndian.Uint32(b[4:])+uint32(len(extra)))

	got, err := Load(bytes.NewReader(out))
	require.NoError(t, err)
	assert.True(t, s.Frame.Equal(got.Frame))
}

func TestSave_NilFrame(t *testing.T) {
	assert.Error(t, Save(&bytes.Buffer{}, &Snapshot{}))
	assert.Error(t, Save(&bytes.Buffer{}, nil))
}

func TestCompress_Empty(t *testing.T) {
	c, err := compress(nil)
	require.NoError(t, err)
	out, err := decompress(c, 0)
	require.NoError(t, err)
	assert.Empty(t, out)
}
