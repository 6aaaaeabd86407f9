package dsp

import "github.com/deepteams/inloop/frame"

// Thresholds are the edge thresholds of one filter level on the 8-bit
// scale. Kernels scale them by the bit depth.
type Thresholds struct {
	MBLimit int
	Limit   int
	HEV     int
}

// LoopFilterThresholds derives the thresholds for level under sharpness.
func LoopFilterThresholds(level, sharpness int) Thresholds {
	shift := 0
	if sharpness > 0 {
		shift++
	}
	if sharpness > 4 {
		shift++
	}
	limit := level >> shift
	if sharpness > 0 && limit > 9-sharpness {
		limit = 9 - sharpness
	}
	if limit < 1 {
		limit = 1
	}
	return Thresholds{
		MBLimit: 2*(level+2) + limit,
		Limit:   limit,
		HEV:     level >> 4,
	}
}

// SamplesPerCall is the number of samples along the edge each loop filter
// kernel call processes.
const SamplesPerCall = 4

// edge holds thresholds scaled to the bit depth and the signed clamp range
// used by the narrow filter.
type edge struct {
	blimit, limit, hev, flat int
	lo, hi, bias             int
}

func newEdge(t Thresholds, bitDepth int) edge {
	shift := bitDepth - 8
	return edge{
		blimit: t.MBLimit << shift,
		limit:  t.Limit << shift,
		hev:    t.HEV << shift,
		flat:   1 << shift,
		lo:     -(128 << shift),
		hi:     (128 << shift) - 1,
		bias:   128 << shift,
	}
}

func (e *edge) sclamp(v int) int { return clamp(v, e.lo, e.hi) }

func (e *edge) outer(p0, q0, p1, q1 int) bool {
	return abs(p0-q0)*2+abs(p1-q1)/2 <= e.blimit
}

// mask2 gates the 4-tap filter.
func (e *edge) mask2(p1, p0, q0, q1 int) bool {
	return abs(p1-p0) <= e.limit && abs(q1-q0) <= e.limit && e.outer(p0, q0, p1, q1)
}

// mask3 gates the 6-tap chroma filter.
func (e *edge) mask3(p2, p1, p0, q0, q1, q2 int) bool {
	return abs(p2-p1) <= e.limit && abs(q2-q1) <= e.limit && e.mask2(p1, p0, q0, q1)
}

// mask4 gates the 8- and 14-tap filters.
func (e *edge) mask4(p3, p2, p1, p0, q0, q1, q2, q3 int) bool {
	return abs(p3-p2) <= e.limit && abs(q3-q2) <= e.limit && e.mask3(p2, p1, p0, q0, q1, q2)
}

func (e *edge) flat3(p2, p1, p0, q0, q1, q2 int) bool {
	t := e.flat
	return abs(p1-p0) <= t && abs(q1-q0) <= t && abs(p2-p0) <= t && abs(q2-q0) <= t
}

func (e *edge) flat4(p3, p2, p1, p0, q0, q1, q2, q3 int) bool {
	return abs(p3-p0) <= e.flat && abs(q3-q0) <= e.flat && e.flat3(p2, p1, p0, q0, q1, q2)
}

// filter4 is the narrow filter. Samples are re-centred around zero and
// every intermediate is clamped to the signed range of the bit depth.
func (e *edge) filter4(p1, p0, q0, q1 int) (int, int, int, int) {
	ps1, ps0 := p1-e.bias, p0-e.bias
	qs0, qs1 := q0-e.bias, q1-e.bias
	hev := abs(p1-p0) > e.hev || abs(q1-q0) > e.hev

	f := 0
	if hev {
		f = e.sclamp(ps1 - qs1)
	}
	f = e.sclamp(f + 3*(qs0-ps0))
	f1 := e.sclamp(f+4) >> 3
	f2 := e.sclamp(f+3) >> 3
	q0 = e.sclamp(qs0-f1) + e.bias
	p0 = e.sclamp(ps0+f2) + e.bias
	if hev {
		return p1, p0, q0, q1
	}
	f = (f1 + 1) >> 1
	q1 = e.sclamp(qs1-f) + e.bias
	p1 = e.sclamp(ps1+f) + e.bias
	return p1, p0, q0, q1
}

// LPF4 applies the 4-tap filter to SamplesPerCall samples of the edge
// starting at s[off]. step crosses the edge; along follows it.
func LPF4[T frame.Sample](s []T, off, step, along int, t Thresholds, bitDepth int) {
	e := newEdge(t, bitDepth)
	for i := 0; i < SamplesPerCall; i++ {
		o := off + i*along
		p1, p0 := int(s[o-2*step]), int(s[o-step])
		q0, q1 := int(s[o]), int(s[o+step])
		if !e.mask2(p1, p0, q0, q1) {
			continue
		}
		p1, p0, q0, q1 = e.filter4(p1, p0, q0, q1)
		s[o-2*step], s[o-step] = T(p1), T(p0)
		s[o], s[o+step] = T(q0), T(q1)
	}
}

// LPF6 applies the chroma 6-tap filter (5-tap smoothing when flat).
func LPF6[T frame.Sample](s []T, off, step, along int, t Thresholds, bitDepth int) {
	e := newEdge(t, bitDepth)
	for i := 0; i < SamplesPerCall; i++ {
		o := off + i*along
		p2, p1, p0 := int(s[o-3*step]), int(s[o-2*step]), int(s[o-step])
		q0, q1, q2 := int(s[o]), int(s[o+step]), int(s[o+2*step])
		if !e.mask3(p2, p1, p0, q0, q1, q2) {
			continue
		}
		if e.flat3(p2, p1, p0, q0, q1, q2) {
			s[o-2*step] = T(roundShift(p2*3+p1*2+p0*2+q0, 3))
			s[o-step] = T(roundShift(p2+p1*2+p0*2+q0*2+q1, 3))
			s[o] = T(roundShift(p1+p0*2+q0*2+q1*2+q2, 3))
			s[o+step] = T(roundShift(p0+q0*2+q1*2+q2*3, 3))
			continue
		}
		p1, p0, q0, q1 = e.filter4(p1, p0, q0, q1)
		s[o-2*step], s[o-step] = T(p1), T(p0)
		s[o], s[o+step] = T(q0), T(q1)
	}
}

// filter8 writes the 7-tap smoothing result for one position.
func filter8[T frame.Sample](s []T, o, step, p3, p2, p1, p0, q0, q1, q2, q3 int) {
	s[o-3*step] = T(roundShift(p3*3+p2*2+p1+p0+q0, 3))
	s[o-2*step] = T(roundShift(p3*2+p2+p1*2+p0+q0+q1, 3))
	s[o-step] = T(roundShift(p3+p2+p1+p0*2+q0+q1+q2, 3))
	s[o] = T(roundShift(p2+p1+p0+q0*2+q1+q2+q3, 3))
	s[o+step] = T(roundShift(p1+p0+q0+q1*2+q2+q3*2, 3))
	s[o+2*step] = T(roundShift(p0+q0+q1+q2*2+q3*3, 3))
}

// LPF8 applies the 8-tap filter (7-tap smoothing when flat).
func LPF8[T frame.Sample](s []T, off, step, along int, t Thresholds, bitDepth int) {
	e := newEdge(t, bitDepth)
	for i := 0; i < SamplesPerCall; i++ {
		o := off + i*along
		p3, p2, p1, p0 := int(s[o-4*step]), int(s[o-3*step]), int(s[o-2*step]), int(s[o-step])
		q0, q1, q2, q3 := int(s[o]), int(s[o+step]), int(s[o+2*step]), int(s[o+3*step])
		if !e.mask4(p3, p2, p1, p0, q0, q1, q2, q3) {
			continue
		}
		if e.flat4(p3, p2, p1, p0, q0, q1, q2, q3) {
			filter8(s, o, step, p3, p2, p1, p0, q0, q1, q2, q3)
			continue
		}
		p1, p0, q0, q1 = e.filter4(p1, p0, q0, q1)
		s[o-2*step], s[o-step] = T(p1), T(p0)
		s[o], s[o+step] = T(q0), T(q1)
	}
}

// LPF14 applies the luma 14-tap filter (13-tap smoothing when both the
// inner and outer neighbourhoods are flat, otherwise the 8-tap rules).
func LPF14[T frame.Sample](s []T, off, step, along int, t Thresholds, bitDepth int) {
	e := newEdge(t, bitDepth)
	for i := 0; i < SamplesPerCall; i++ {
		o := off + i*along
		p3, p2, p1, p0 := int(s[o-4*step]), int(s[o-3*step]), int(s[o-2*step]), int(s[o-step])
		q0, q1, q2, q3 := int(s[o]), int(s[o+step]), int(s[o+2*step]), int(s[o+3*step])
		if !e.mask4(p3, p2, p1, p0, q0, q1, q2, q3) {
			continue
		}
		if !e.flat4(p3, p2, p1, p0, q0, q1, q2, q3) {
			p1, p0, q0, q1 = e.filter4(p1, p0, q0, q1)
			s[o-2*step], s[o-step] = T(p1), T(p0)
			s[o], s[o+step] = T(q0), T(q1)
			continue
		}
		p6, p5, p4 := int(s[o-7*step]), int(s[o-6*step]), int(s[o-5*step])
		q4, q5, q6 := int(s[o+4*step]), int(s[o+5*step]), int(s[o+6*step])
		if !e.flat4(p6, p5, p4, p0, q0, q4, q5, q6) {
			filter8(s, o, step, p3, p2, p1, p0, q0, q1, q2, q3)
			continue
		}
		s[o-6*step] = T(roundShift(p6*7+p5*2+p4*2+p3+p2+p1+p0+q0, 4))
		s[o-5*step] = T(roundShift(p6*5+p5*2+p4*2+p3*2+p2+p1+p0+q0+q1, 4))
		s[o-4*step] = T(roundShift(p6*4+p5+p4*2+p3*2+p2*2+p1+p0+q0+q1+q2, 4))
		s[o-3*step] = T(roundShift(p6*3+p5+p4+p3*2+p2*2+p1*2+p0+q0+q1+q2+q3, 4))
		s[o-2*step] = T(roundShift(p6*2+p5+p4+p3+p2*2+p1*2+p0*2+q0+q1+q2+q3+q4, 4))
		s[o-step] = T(roundShift(p6+p5+p4+p3+p2+p1*2+p0*2+q0*2+q1+q2+q3+q4+q5, 4))
		s[o] = T(roundShift(p5+p4+p3+p2+p1+p0*2+q0*2+q1*2+q2+q3+q4+q5+q6, 4))
		s[o+step] = T(roundShift(p4+p3+p2+p1+p0+q0*2+q1*2+q2*2+q3+q4+q5+q6*2, 4))
		s[o+2*step] = T(roundShift(p3+p2+p1+p0+q0+q1*2+q2*2+q3*2+q4+q5+q6*3, 4))
		s[o+3*step] = T(roundShift(p2+p1+p0+q0+q1+q2*2+q3*2+q4*2+q5+q6*4, 4))
		s[o+4*step] = T(roundShift(p1+p0+q0+q1+q2+q3*2+q4*2+q5*2+q6*5, 4))
		s[o+5*step] = T(roundShift(p0+q0+q1+q2+q3+q4*2+q5*2+q6*7, 4))
	}
}

// LPFFunc is the signature shared by the loop filter kernels.
type LPFFunc[T frame.Sample] func(s []T, off, step, along int, t Thresholds, bitDepth int)

// LoopFilterKernel returns the kernel for a filter length of 4, 6, 8 or
// 14 taps, or nil for any other length.
func LoopFilterKernel[T frame.Sample](length int) LPFFunc[T] {
	switch length {
	case 4:
		return LPF4[T]
	case 6:
		return LPF6[T]
	case 8:
		return LPF8[T]
	case 14:
		return LPF14[T]
	}
	return nil
}
