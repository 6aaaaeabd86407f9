package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/deepteams/inloop/frame"
	"github.com/deepteams/inloop/internal/snapshot"
)

// snapshotExt is the extension that makes run write a snapshot instead of
// an image.
const snapshotExt = ".inlp"

func loadSnapshot(path string) (*snapshot.Snapshot, error) {
	in, err := openInput(path)
	if err != nil {
		return nil, err
	}
	defer in.Close()
	return snapshot.Load(in)
}

func runSnapshot(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	common := addCommonFlags(fs)

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("run: missing input file\nUsage: inloopfilt run [options] <in.inlp>")
	}
	inputPath := fs.Arg(0)
	log := common.newLogger()

	snap, err := loadSnapshot(inputPath)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	st, elapsed, err := applyFilters(snap.Frame, snap.Grid, &snap.Params, common, log)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	out := outputPath(*common.output, inputPath, "_filtered.png")
	write := func(w io.Writer) error {
		return encodeImage(w, frameToImage(snap.Frame), out)
	}
	if strings.EqualFold(filepath.Ext(out), snapshotExt) {
		write = func(w io.Writer) error { return snapshot.Save(w, snap) }
	}
	if err := writeOutput(out, stdout, write); err != nil {
		return fmt.Errorf("run: %w", err)
	}

	logSummary(log, inputPath, out, st, elapsed)
	return nil
}

// --- info ---

func runInfo(args []string, stdout io.Writer) error {
	if len(args) < 1 {
		return fmt.Errorf("info: missing input file\nUsage: inloopfilt info <in.inlp>")
	}
	inputPath := args[0]

	snap, err := loadSnapshot(inputPath)
	if err != nil {
		return fmt.Errorf("info: %w", err)
	}
	fr, g, p := snap.Frame, snap.Grid, &snap.Params

	name := inputPath
	if inputPath == "-" {
		name = "<stdin>"
	}
	layout := "monochrome"
	if fr.NumPlanes > 1 {
		layout = fmt.Sprintf("4:%d:%d", 4>>fr.SubX, (4>>fr.SubX)*(1-fr.SubY))
	}

	var skipped, tileEdges int
	for _, c := range g.Cells() {
		if c.Skip {
			skipped++
		}
		if c.Edges != 0 {
			tileEdges++
		}
	}
	cdefOff := 0
	for r := 0; r < g.Rows; r += frame.SuperblockMI {
		for c := 0; c < g.Cols; c += frame.SuperblockMI {
			if g.At(r, c).CDEFIndex < 0 {
				cdefOff++
			}
		}
	}

	fmt.Fprintf(stdout, "File:        %s\n", name)
	fmt.Fprintf(stdout, "Dimensions:  %d x %d\n", fr.Width, fr.Height)
	fmt.Fprintf(stdout, "Bit depth:   %d\n", fr.BitDepth)
	fmt.Fprintf(stdout, "Layout:      %s\n", layout)
	fmt.Fprintf(stdout, "Grid:        %d x %d units, %d skipped, %d on tile edges\n", g.Cols, g.Rows, skipped, tileEdges)
	fmt.Fprintf(stdout, "Superblocks: %d x %d, CDEF off in %d\n", fr.SBCols(), fr.SBRows(), cdefOff)
	fmt.Fprintf(stdout, "Loop filter: levels %d/%d u %d v %d, sharpness %d\n",
		p.LoopFilter.Level[0], p.LoopFilter.Level[1], p.LoopFilter.LevelU, p.LoopFilter.LevelV, p.LoopFilter.Sharpness)
	if p.CDEF.Enabled {
		fmt.Fprintf(stdout, "CDEF:        damping %d, %d presets\n", p.CDEF.Damping, 1<<p.CDEF.Bits)
		for i := 0; i < 1<<p.CDEF.Bits; i++ {
			fmt.Fprintf(stdout, "  preset %d:  y %d/%d uv %d/%d\n", i,
				p.CDEF.Y[i].Primary, p.CDEF.Y[i].Secondary, p.CDEF.UV[i].Primary, p.CDEF.UV[i].Secondary)
		}
	} else {
		fmt.Fprintf(stdout, "CDEF:        disabled\n")
	}

	if inputPath != "-" {
		if fi, err := os.Stat(inputPath); err == nil {
			fmt.Fprintf(stdout, "File size:   %d bytes\n", fi.Size())
		}
	}
	return nil
}
