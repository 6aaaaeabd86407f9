package main

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"

	"github.com/deepteams/inloop/frame"
	"github.com/deepteams/inloop/internal/snapshot"
)

// testImage returns a blocky gradient with a hard diagonal edge, so both
// filters find work.
func testImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8(40 + (x>>3)*6 + (y>>3)*3)
			if x > y {
				v += 60
			}
			img.SetNRGBA(x, y, color.NRGBA{R: v, G: v / 2, B: 255 - v, A: 255})
		}
	}
	return img
}

func writePNG(t *testing.T, dir string, img image.Image) string {
	t.Helper()
	path := filepath.Join(dir, "in.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
	return path
}

func readPNG(t *testing.T, path string) image.Image {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	return img
}

func TestImageToFrame_RoundTrip(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 17, 9))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = 128, 128, 128, 255
	}
	for _, tc := range []struct {
		depth int
		sub   string
	}{{8, "420"}, {10, "444"}, {12, "422"}, {8, "440"}, {10, "400"}} {
		fr, err := imageToFrame(img, tc.depth, tc.sub)
		require.NoError(t, err, tc.sub)
		assert.Equal(t, 17, fr.Width)
		assert.Equal(t, tc.depth, fr.BitDepth)

		out := frameToImage(fr)
		c := out.NRGBAAt(16, 8)
		assert.InDelta(t, 128, int(c.R), 2, "%d-bit %s", tc.depth, tc.sub)
		assert.InDelta(t, 128, int(c.G), 2, "%d-bit %s", tc.depth, tc.sub)
		assert.InDelta(t, 128, int(c.B), 2, "%d-bit %s", tc.depth, tc.sub)
	}

	_, err := imageToFrame(img, 8, "411")
	assert.Error(t, err)
}

func TestSynthGrid(t *testing.T) {
	fr, err := imageToFrame(testImage(200, 130), 8, "420")
	require.NoError(t, err)
	g, err := synthGrid(fr, gridConfig{minLog2: 3, splitVar: 64, skipVar: 4, strongVar: 256, tileCols: 2, tileRows: 1})
	require.NoError(t, err)
	assert.Equal(t, fr.MIRows(), g.Rows)
	assert.Equal(t, fr.MICols(), g.Cols)

	sizes := map[frame.BlockSize]bool{}
	for _, c := range g.Cells() {
		sizes[c.BlockSize] = true
		assert.Equal(t, c.BlockSize.Geometry().W, c.TxSize.Geometry().W)
	}
	assert.True(t, sizes[frame.Block8x8], "the diagonal edge should force 8x8 blocks")
	assert.Greater(t, len(sizes), 1)

	// Two tiles over 4 superblock columns split after the second.
	assert.NotZero(t, g.At(0, 2*frame.SuperblockMI).Edges&frame.TileEdgeLeft)
	assert.NotZero(t, g.At(0, 2*frame.SuperblockMI-1).Edges&frame.TileEdgeRight)
}

func TestTileStarts(t *testing.T) {
	assert.Nil(t, tileStarts(64, 1))
	assert.Equal(t, []int{32}, tileStarts(64, 2))
	assert.Equal(t, []int{16, 48}, tileStarts(80, 3))
}

func TestOutputPath(t *testing.T) {
	assert.Equal(t, "x.png", outputPath("x.png", "in.bmp", ".jpg"))
	assert.Equal(t, "photo_filtered.png", outputPath("", "/tmp/photo.jpeg", "_filtered.png"))
	assert.Equal(t, "output.png", outputPath("", "-", ".png"))
}

func TestRunFilter(t *testing.T) {
	dir := t.TempDir()
	in := writePNG(t, dir, testImage(150, 100))
	out := filepath.Join(dir, "out.png")
	snap := filepath.Join(dir, "in.inlp")

	err := runFilter([]string{"-q", "-workers", "2", "-depth", "10", "-tiles", "2x1", "-snapshot", snap, "-o", out, in}, &bytes.Buffer{})
	require.NoError(t, err)

	filtered := readPNG(t, out)
	assert.Equal(t, image.Rect(0, 0, 150, 100), filtered.Bounds())

	s, err := loadSnapshot(snap)
	require.NoError(t, err)
	assert.Equal(t, 10, s.Frame.BitDepth)
	assert.True(t, s.Params.CDEF.RespectTileEdges)

	// The snapshot holds the unfiltered frame, so rerunning it yields the
	// same picture.
	rerun := filepath.Join(dir, "rerun.png")
	require.NoError(t, runSnapshot([]string{"-q", "-workers", "3", "-o", rerun, snap}, &bytes.Buffer{}))
	assert.Equal(t, filtered, readPNG(t, rerun))
}

func TestRunFilter_BMPToStdout(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "in.bmp")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, bmp.Encode(f, testImage(40, 40)))
	require.NoError(t, f.Close())

	var stdout bytes.Buffer
	require.NoError(t, runFilter([]string{"-q", "-sub", "444", "-nocdef", "-o", "-", path}, &stdout))
	img, err := png.Decode(&stdout)
	require.NoError(t, err)
	assert.Equal(t, 40, img.Bounds().Dx())
}

func TestRunSnapshot_WritesSnapshot(t *testing.T) {
	dir := t.TempDir()
	in := writePNG(t, dir, testImage(64, 64))
	snap := filepath.Join(dir, "a.inlp")
	require.NoError(t, runFilter([]string{"-q", "-snapshot", snap, "-o", filepath.Join(dir, "a.png"), in}, &bytes.Buffer{}))

	out := filepath.Join(dir, "b.inlp")
	require.NoError(t, runSnapshot([]string{"-q", "-nolf", "-o", out, snap}, &bytes.Buffer{}))

	before, err := loadSnapshot(snap)
	require.NoError(t, err)
	after, err := loadSnapshot(out)
	require.NoError(t, err)
	assert.False(t, before.Frame.Equal(after.Frame), "CDEF should have changed the frame")
	assert.Equal(t, before.Grid.Cells(), after.Grid.Cells())
}

func TestRunInfo(t *testing.T) {
	dir := t.TempDir()
	in := writePNG(t, dir, testImage(96, 72))
	snap := filepath.Join(dir, "c.inlp")
	require.NoError(t, runFilter([]string{"-q", "-sub", "422", "-snapshot", snap, "-o", filepath.Join(dir, "c.png"), in}, &bytes.Buffer{}))

	var stdout bytes.Buffer
	require.NoError(t, runInfo([]string{snap}, &stdout))
	text := stdout.String()
	assert.Contains(t, text, "Dimensions:  96 x 72")
	assert.Contains(t, text, "Layout:      4:2:2")
	assert.Contains(t, text, "CDEF:        damping 4, 2 presets")
	assert.Contains(t, text, "File size:")
}

func TestRunFilter_FlatOff(t *testing.T) {
	dir := t.TempDir()
	img := image.NewNRGBA(image.Rect(0, 0, 128, 64))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = 90, 90, 90, 255
	}
	in := writePNG(t, dir, img)
	snap := filepath.Join(dir, "flat.inlp")
	require.NoError(t, runFilter([]string{"-q", "-flat_off", "-snapshot", snap, "-o", filepath.Join(dir, "flat.png"), in}, &bytes.Buffer{}))

	var stdout bytes.Buffer
	require.NoError(t, runInfo([]string{snap}, &stdout))
	assert.Contains(t, stdout.String(), "Superblocks: 2 x 1, CDEF off in 2")
}

func TestCommands_Errors(t *testing.T) {
	var out bytes.Buffer
	assert.ErrorContains(t, runFilter(nil, &out), "missing input")
	assert.ErrorContains(t, runSnapshot(nil, &out), "missing input")
	assert.ErrorContains(t, runInfo(nil, &out), "missing input")

	dir := t.TempDir()
	bogus := filepath.Join(dir, "bogus.inlp")
	require.NoError(t, os.WriteFile(bogus, []byte("RIFF\x04\x00\x00\x00WEBP"), 0o644))
	err := runInfo([]string{bogus}, &out)
	assert.ErrorIs(t, err, snapshot.ErrInvalidForm)

	in := writePNG(t, dir, testImage(16, 16))
	err = runFilter([]string{"-q", "-tiles", "two", in}, &out)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "-tiles"))
}
