package main

import (
	"fmt"
	"image"
	"image/color"

	"github.com/deepteams/inloop/frame"
	"github.com/deepteams/inloop/internal/dsp"
)

// Chroma layouts accepted by -sub.
var subsamplings = map[string]struct {
	x, y int
	mono bool
}{
	"420": {1, 1, false},
	"422": {1, 0, false},
	"440": {0, 1, false},
	"444": {0, 0, false},
	"400": {1, 1, true},
}

// imageToFrame converts img to a YCbCr frame. Chroma samples average the
// luma-resolution block they cover; blocks hanging over the right or
// bottom edge repeat the last column or row.
func imageToFrame(img image.Image, bitDepth int, sub string) (*frame.Frame, error) {
	s, ok := subsamplings[sub]
	if !ok {
		return nil, fmt.Errorf("unknown subsampling %q (use 420/422/440/444/400)", sub)
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	fr, err := frame.NewFrame(w, h, bitDepth, s.x, s.y, s.mono)
	if err != nil {
		return nil, err
	}

	rgb := func(x, y int) (int, int, int) {
		x, y = min(x, w-1), min(y, h-1)
		c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
		return int(c.R), int(c.G), int(c.B)
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, bl := rgb(x, y)
			fr.SetSample(frame.PlaneY, x, y, dsp.ToBitDepth(dsp.RGBToY(r, g, bl), bitDepth))
		}
	}
	if s.mono {
		return fr, nil
	}

	shift := s.x + s.y
	cw, ch := fr.PlaneSize(frame.PlaneU)
	for cy := 0; cy < ch; cy++ {
		for cx := 0; cx < cw; cx++ {
			var sr, sg, sb int
			for dy := 0; dy <= s.y; dy++ {
				for dx := 0; dx <= s.x; dx++ {
					r, g, bl := rgb(cx<<s.x+dx, cy<<s.y+dy)
					sr, sg, sb = sr+r, sg+g, sb+bl
				}
			}
			fr.SetSample(frame.PlaneU, cx, cy, dsp.ToBitDepth(dsp.RGBToU(sr, sg, sb, shift), bitDepth))
			fr.SetSample(frame.PlaneV, cx, cy, dsp.ToBitDepth(dsp.RGBToV(sr, sg, sb, shift), bitDepth))
		}
	}
	return fr, nil
}

// frameToImage converts fr back to RGB, nearest-neighbour upsampling the
// chroma planes.
func frameToImage(fr *frame.Frame) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, fr.Width, fr.Height))
	for y := 0; y < fr.Height; y++ {
		for x := 0; x < fr.Width; x++ {
			yy := dsp.FromBitDepth(fr.Sample(frame.PlaneY, x, y), fr.BitDepth)
			u, v := 128, 128
			if fr.NumPlanes > 1 {
				cx, cy := x>>fr.SubX, y>>fr.SubY
				u = dsp.FromBitDepth(fr.Sample(frame.PlaneU, cx, cy), fr.BitDepth)
				v = dsp.FromBitDepth(fr.Sample(frame.PlaneV, cx, cy), fr.BitDepth)
			}
			r, g, b := dsp.YUVToRGB(yy, u, v)
			off := img.PixOffset(x, y)
			img.Pix[off+0] = r
			img.Pix[off+1] = g
			img.Pix[off+2] = b
			img.Pix[off+3] = 0xff
		}
	}
	return img
}
