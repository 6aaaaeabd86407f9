package inloop

import (
	"fmt"
	"testing"

	"github.com/deepteams/inloop/frame"
)

// benchFrame returns a fresh copy of in for every iteration; the copy is
// made with the timer stopped.
func benchFrame(b *testing.B, in testInput) *frame.Frame {
	b.StopTimer()
	fr := in.fr.Clone()
	b.StartTimer()
	return fr
}

func benchApply(b *testing.B, w, h, bd, workers int) {
	in := newInput(b, w, h, bd, 1, 1, 7)
	f, err := New(quietOptions(workers))
	if err != nil {
		b.Fatal(err)
	}
	defer f.Close()

	b.SetBytes(int64(w * h * 3 / 2))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		fr := benchFrame(b, in)
		if _, err := f.Apply(fr, in.g, in.params); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkApply_720p(b *testing.B) {
	benchApply(b, 1280, 720, 8, 1)
}

func BenchmarkApply_720p_10bit(b *testing.B) {
	benchApply(b, 1280, 720, 10, 1)
}

func BenchmarkApply_1080p_WorkerSweep(b *testing.B) {
	for _, workers := range []int{1, 2, 4, 8} {
		b.Run(fmt.Sprintf("workers=%d", workers), func(b *testing.B) {
			benchApply(b, 1920, 1080, 8, workers)
		})
	}
}

func BenchmarkLoopFilter_1080p(b *testing.B) {
	in := newInput(b, 1920, 1080, 8, 1, 1, 11)
	f, err := New(quietOptions(4))
	if err != nil {
		b.Fatal(err)
	}
	defer f.Close()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		fr := benchFrame(b, in)
		if _, err := f.LoopFilter(fr, in.g, in.params); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkCDEF_1080p(b *testing.B) {
	in := newInput(b, 1920, 1080, 8, 1, 1, 13)
	f, err := New(quietOptions(4))
	if err != nil {
		b.Fatal(err)
	}
	defer f.Close()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		fr := benchFrame(b, in)
		if _, err := f.CDEF(fr, in.g, in.params); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkApply_PartialFrame(b *testing.B) {
	in := newInput(b, 1920, 1080, 8, 1, 1, 17)
	opts := quietOptions(4)
	opts.PartialFrame = true
	f, err := New(opts)
	if err != nil {
		b.Fatal(err)
	}
	defer f.Close()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		fr := benchFrame(b, in)
		if _, err := f.Apply(fr, in.g, in.params); err != nil {
			b.Fatal(err)
		}
	}
}
