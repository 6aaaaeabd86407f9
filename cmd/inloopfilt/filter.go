package main

import (
	"flag"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/deepteams/inloop"
	"github.com/deepteams/inloop/frame"
	"github.com/deepteams/inloop/internal/snapshot"
)

func runFilter(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("filter", flag.ContinueOnError)
	common := addCommonFlags(fs)
	depth := fs.Int("depth", 8, "bit depth 8, 10 or 12")
	sub := fs.String("sub", "420", "chroma subsampling: 420/422/440/444/400")
	level := fs.Int("level", 24, "luma loop filter level 0-63")
	levelUV := fs.Int("level_uv", -1, "chroma loop filter level 0-63 (-1 = luma level)")
	sharpness := fs.Int("sharpness", 0, "loop filter sharpness 0-7")
	damping := fs.Int("damping", 4, "CDEF damping 3-6")
	pri := fs.Int("pri", 4, "CDEF luma primary strength 0-15 (busy areas)")
	sec := fs.Int("sec", 2, "CDEF luma secondary strength 0/1/2/4 (busy areas)")
	priUV := fs.Int("pri_uv", 2, "CDEF chroma primary strength 0-15")
	secUV := fs.Int("sec_uv", 1, "CDEF chroma secondary strength 0/1/2/4")
	minBlock := fs.Int("block", 8, "smallest block size 8/16/32/64")
	tiles := fs.String("tiles", "1x1", "tile layout COLSxROWS; CDEF does not read across tiles")
	flatOff := fs.Bool("flat_off", false, "turn CDEF off in flat 64x64 areas")
	save := fs.String("snapshot", "", "also save the unfiltered frame as a snapshot")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("filter: missing input file\nUsage: inloopfilt filter [options] <image>")
	}
	inputPath := fs.Arg(0)
	log := common.newLogger()

	var tileCols, tileRows int
	if _, err := fmt.Sscanf(*tiles, "%dx%d", &tileCols, &tileRows); err != nil {
		return fmt.Errorf("filter: bad -tiles %q: %w", *tiles, err)
	}
	minLog2 := 3
	for minLog2 < 6 && 1<<minLog2 < *minBlock {
		minLog2++
	}

	in, err := openInput(inputPath)
	if err != nil {
		return err
	}
	defer in.Close()
	img, format, err := image.Decode(in)
	if err != nil {
		return fmt.Errorf("filter: decoding input: %w", err)
	}

	fr, err := imageToFrame(img, *depth, *sub)
	if err != nil {
		return fmt.Errorf("filter: %w", err)
	}
	g, err := synthGrid(fr, gridConfig{
		minLog2:    minLog2,
		splitVar:   64,
		skipVar:    4,
		strongVar:  256,
		tileCols:   tileCols,
		tileRows:   tileRows,
		noCDEFFlat: *flatOff,
	})
	if err != nil {
		return fmt.Errorf("filter: %w", err)
	}

	if *levelUV < 0 {
		*levelUV = *level
	}
	params := frame.Params{
		LoopFilter: frame.LoopFilterParams{
			Level:     [2]int{*level, *level},
			LevelU:    *levelUV,
			LevelV:    *levelUV,
			Sharpness: *sharpness,
			RefDeltas: frame.DefaultRefDeltas,
		},
		CDEF: frame.CDEFParams{
			Enabled:          true,
			Damping:          *damping,
			Bits:             1,
			RespectTileEdges: tileCols > 1 || tileRows > 1,
		},
	}
	// Preset 0 covers calm areas at half strength, preset 1 busy ones.
	params.CDEF.Y[0] = frame.CDEFStrength{Primary: *pri / 2, Secondary: *sec / 2}
	params.CDEF.Y[1] = frame.CDEFStrength{Primary: *pri, Secondary: *sec}
	params.CDEF.UV[0] = frame.CDEFStrength{Primary: *priUV / 2, Secondary: *secUV / 2}
	params.CDEF.UV[1] = frame.CDEFStrength{Primary: *priUV, Secondary: *secUV}

	log.WithFields(logrus.Fields{
		"input":  inputPath,
		"format": format,
		"width":  fr.Width,
		"height": fr.Height,
		"depth":  fr.BitDepth,
		"sub":    *sub,
	}).Debug("Decoded input image")

	if *save != "" {
		snap := &snapshot.Snapshot{Frame: fr, Grid: g, Params: params}
		if err := writeOutput(*save, stdout, func(w io.Writer) error { return snapshot.Save(w, snap) }); err != nil {
			return fmt.Errorf("filter: saving snapshot: %w", err)
		}
	}

	st, elapsed, err := applyFilters(fr, g, &params, common, log)
	if err != nil {
		return fmt.Errorf("filter: %w", err)
	}

	out := outputPath(*common.output, inputPath, "_filtered.png")
	if err := writeOutput(out, stdout, func(w io.Writer) error {
		return encodeImage(w, frameToImage(fr), out)
	}); err != nil {
		return fmt.Errorf("filter: %w", err)
	}

	logSummary(log, inputPath, out, st, elapsed)
	return nil
}

// applyFilters runs the passes selected on the command line.
func applyFilters(fr *frame.Frame, g *frame.Grid, params *frame.Params, c *commonFlags, log logrus.FieldLogger) (inloop.Stats, time.Duration, error) {
	f, err := inloop.New(&inloop.Options{
		Workers:      *c.workers,
		PartialFrame: *c.partial,
		PlaneStart:   *c.planeStart,
		PlaneEnd:     *c.planeEnd,
		Logger:       log,
	})
	if err != nil {
		return inloop.Stats{}, 0, err
	}
	defer f.Close()

	start := time.Now()
	var st inloop.Stats
	if !*c.noLF {
		if st, err = f.LoopFilter(fr, g, params); err != nil {
			return st, 0, err
		}
	}
	if !*c.noCDEF {
		cs, err := f.CDEF(fr, g, params)
		if err != nil {
			return st, 0, err
		}
		st.Add(cs)
	}
	return st, time.Since(start), nil
}

func logSummary(log logrus.FieldLogger, in, out string, st inloop.Stats, elapsed time.Duration) {
	log.WithFields(logrus.Fields{
		"input":        in,
		"output":       out,
		"workers":      st.Workers,
		"edges":        st.Deblocked(),
		"cdef_blocks":  st.CDEFBlocks,
		"cdef_skipped": st.CDEFSkipped,
		"elapsed":      elapsed.Round(time.Microsecond),
	}).Info("Filtered frame")
}

// encodeImage writes img as JPEG when path ends in .jpg or .jpeg, PNG
// otherwise.
func encodeImage(w io.Writer, img image.Image, path string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return jpeg.Encode(w, img, &jpeg.Options{Quality: 90})
	default:
		return png.Encode(w, img)
	}
}
