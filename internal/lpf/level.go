// Package lpf is the deblocking loop filter engine. A Plan is derived once
// per frame from the block grid and header parameters (levels, thresholds
// and the per-edge filter grid); superblock rows are then filtered either
// serially or by row-synchronized workers, with identical output.
package lpf

import (
	"github.com/deepteams/inloop/frame"
	"github.com/deepteams/inloop/internal/dsp"
)

// Edge directions.
const (
	Vertical   = 0
	Horizontal = 1
)

var segLFFeature = [frame.MaxPlanes][2]frame.SegFeature{
	{frame.SegLFYVertical, frame.SegLFYHorizontal},
	{frame.SegLFU, frame.SegLFU},
	{frame.SegLFV, frame.SegLFV},
}

var deltaLFIndex = [frame.MaxPlanes][2]int{{0, 1}, {2, 2}, {3, 3}}

// modeLFLut maps a prediction mode to its mode delta slot. Intra and
// global-motion modes use slot 0.
var modeLFLut = [frame.PredictionModes]int{
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, // intra
	1, 1, 0, 1, // single reference, GlobalMV is 0
	1, 1, 1, 1, 1, 1, 0, 1, // compound, GlobalGlobalMV is 0
}

func modeSlot(m frame.PredictionMode) int {
	if m >= frame.PredictionModes {
		return 0
	}
	return modeLFLut[m]
}

func clampLevel(v int) int { return max(0, min(v, frame.MaxLoopFilter)) }

type levelTable [frame.MaxPlanes][frame.MaxSegments][2][frame.RefFrames][2]uint8

// initLevels fills the per plane/segment/direction/reference/mode level
// table used when per-block deltas are off.
func (p *Plan) initLevels(planes []int) {
	lf := &p.params.LoopFilter
	for _, plane := range planes {
		for seg := 0; seg < frame.MaxSegments; seg++ {
			for dir := 0; dir < 2; dir++ {
				lvl := p.segmentLevel(lf.PlaneLevel(plane, dir), plane, dir, seg)
				t := &p.levels[plane][seg][dir]
				if !lf.ModeRefDeltaEnabled {
					for ref := range t {
						t[ref] = [2]uint8{uint8(lvl), uint8(lvl)}
					}
					continue
				}
				scale := 1 << (lvl >> 5)
				t[0][0] = uint8(clampLevel(lvl + lf.RefDeltas[0]*scale))
				for ref := 1; ref < frame.RefFrames; ref++ {
					for mode := 0; mode < 2; mode++ {
						t[ref][mode] = uint8(clampLevel(lvl + lf.RefDeltas[ref]*scale + lf.ModeDeltas[mode]*scale))
					}
				}
			}
		}
	}
}

func (p *Plan) segmentLevel(lvl, plane, dir, seg int) int {
	s := &p.params.Segmentation
	feat := segLFFeature[plane][dir]
	if s.Enabled && s.FeatureEnabled[seg][feat] {
		lvl = clampLevel(lvl + s.FeatureData[seg][feat])
	}
	return lvl
}

// FilterLevel returns the level (0..63) of block b for edges of direction
// dir in plane.
func (p *Plan) FilterLevel(plane, dir int, b *frame.BlockInfo) int {
	lf := &p.params.LoopFilter
	seg := int(b.SegmentID) & (frame.MaxSegments - 1)
	ref := int(b.RefFrame) & (frame.RefFrames - 1)
	if !lf.DeltaLFPresent {
		return int(p.levels[plane][seg][dir][ref][modeSlot(b.Mode)])
	}

	delta := int(b.DeltaLFFromBase)
	if lf.DeltaLFMulti {
		delta = int(b.DeltaLF[deltaLFIndex[plane][dir]])
	}
	lvl := clampLevel(delta + lf.PlaneLevel(plane, dir))
	lvl = p.segmentLevel(lvl, plane, dir, seg)
	if lf.ModeRefDeltaEnabled {
		scale := 1 << (lvl >> 5)
		lvl += lf.RefDeltas[ref] * scale
		if ref > 0 {
			lvl += lf.ModeDeltas[modeSlot(b.Mode)] * scale
		}
		lvl = clampLevel(lvl)
	}
	return lvl
}

func buildThresholds(sharpness int) (t [frame.MaxLoopFilter + 1]dsp.Thresholds) {
	for lvl := range t {
		t[lvl] = dsp.LoopFilterThresholds(lvl, sharpness)
	}
	return t
}
