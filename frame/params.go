package frame

// SegFeature indexes the loop filter segmentation features.
type SegFeature int

const (
	SegLFYVertical SegFeature = iota
	SegLFYHorizontal
	SegLFU
	SegLFV
	SegLFFeatures
)

// Segmentation carries the per-segment loop filter level adjustments.
type Segmentation struct {
	Enabled        bool
	FeatureEnabled [MaxSegments][SegLFFeatures]bool
	FeatureData    [MaxSegments][SegLFFeatures]int
}

// LoopFilterParams are the frame header loop filter fields.
type LoopFilterParams struct {
	// Level holds the luma levels for vertical [0] and horizontal [1] edges.
	Level  [2]int
	LevelU int
	LevelV int

	Sharpness int

	ModeRefDeltaEnabled bool
	RefDeltas           [RefFrames]int
	ModeDeltas          [2]int

	DeltaLFPresent bool
	DeltaLFMulti   bool
}

// DefaultRefDeltas are the reference deltas a decoder starts from.
var DefaultRefDeltas = [RefFrames]int{1, 0, 0, 0, -1, 0, -1, -1}

// PlaneLevel returns the base level for plane and edge direction dir
// (0 vertical, 1 horizontal).
func (p *LoopFilterParams) PlaneLevel(plane, dir int) int {
	switch plane {
	case PlaneY:
		return p.Level[dir]
	case PlaneU:
		return p.LevelU
	default:
		return p.LevelV
	}
}

// CDEFStrength is one decoded CDEF strength pair.
type CDEFStrength struct {
	Primary   int // 0..15
	Secondary int // 0, 1, 2 or 4
}

// DecodeCDEFStrength unpacks a coded strength (primary*4 + secondary) where
// a coded secondary of 3 stands for 4.
func DecodeCDEFStrength(code int) CDEFStrength {
	s := CDEFStrength{Primary: (code >> 2) & 15, Secondary: code & 3}
	if s.Secondary == 3 {
		s.Secondary = 4
	}
	return s
}

// Code packs s back into its coded form.
func (s CDEFStrength) Code() int {
	sec := s.Secondary
	if sec == 4 {
		sec = 3
	}
	return s.Primary<<2 | sec
}

// CDEFStrengths is the number of strength presets a frame may signal.
const CDEFStrengths = 8

// CDEFParams are the frame header CDEF fields.
type CDEFParams struct {
	Enabled bool
	Damping int // 3..6
	Bits    int // log2 of the number of presets in use
	Y       [CDEFStrengths]CDEFStrength
	UV      [CDEFStrengths]CDEFStrength

	// RespectTileEdges stops CDEF from reading across tile boundaries
	// marked in the grid.
	RespectTileEdges bool
}

// Strength returns the strength pair and damping for preset idx of plane,
// before bit-depth scaling. idx is masked into the signalled range.
func (c *CDEFParams) Strength(plane, idx int) (s CDEFStrength, damping int) {
	idx &= (1 << c.Bits) - 1
	if plane == PlaneY {
		return c.Y[idx], c.Damping
	}
	return c.UV[idx], c.Damping - 1
}

// Params bundles the per-frame header parameters read by the filters.
type Params struct {
	LoopFilter   LoopFilterParams
	Segmentation Segmentation
	// Lossless marks segments coded losslessly; their edges use 4x4
	// transforms regardless of the grid.
	Lossless [MaxSegments]bool
	CDEF     CDEFParams
}
