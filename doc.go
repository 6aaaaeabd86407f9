// Package inloop implements the in-loop filters a block-based video
// decoder runs on every reconstructed frame before it is displayed or used
// as a reference: the deblocking loop filter and the constrained
// directional enhancement filter (CDEF).
//
// Both filters work in place on a frame.Frame, driven by the per-4x4 block
// metadata in a frame.Grid and the frame header fields in frame.Params.
// Frames are cut into 64x64 superblock rows that a fixed pool of goroutines
// filters concurrently; a per-row column barrier keeps the output
// bit-identical to a single-threaded pass for any worker count.
//
// Basic usage:
//
//	f, err := inloop.New(&inloop.Options{Workers: 4})
//	if err != nil {
//		return err
//	}
//	defer f.Close()
//	for _, fr := range frames {
//		if _, err := f.Apply(fr.Frame, fr.Grid, &fr.Params); err != nil {
//			return err
//		}
//	}
//
// Supported layouts are 8-, 10- and 12-bit samples in 4:2:0, 4:2:2, 4:4:0,
// 4:4:4 and monochrome.
package inloop
