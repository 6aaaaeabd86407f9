package dsp

// BT.601 limited-range YUV <-> RGB conversion using fixed-point
// arithmetic, used by the command-line tools to move between images and
// frames. Wide samples are converted through their top 8 bits.

const (
	yuvFix  = 16 // fixed-point precision
	yuvHalf = 1 << (yuvFix - 1)

	yuvFix2 = 6 // additional precision for intermediate values
	yuvMask = (256 << yuvFix2) - 1

	kYScale = 19077 // 1.164 * (1 << 16)
	kRCr    = 26149 // 1.596 * (1 << 14)
	kGCb    = 6419  // 0.391 * (1 << 14)
	kGCr    = 13320 // 0.813 * (1 << 14)
	kBCb    = 33050 // 2.018 * (1 << 14)

	// Biases absorb the (Y-16) and (U/V-128) offsets.
	kRBias = 14234
	kGBias = 8708
	kBBias = 17685

	kRGBToY0 = 16839 // 0.2568 * (1 << 16)
	kRGBToY1 = 33059 // 0.5041 * (1 << 16)
	kRGBToY2 = 6420  // 0.0979 * (1 << 16)
	kRGBToU0 = -9719
	kRGBToU1 = -19081
	kRGBToU2 = 28800
	kRGBToV0 = 28800
	kRGBToV1 = -24116
	kRGBToV2 = -4684
)

// multHi computes (v * coeff) >> 8.
func multHi(v, coeff int) int {
	return (v * coeff) >> 8
}

func clipRGB(val int) uint8 {
	return uint8(clamp(val, 0, yuvMask) >> yuvFix2)
}

// YUVToRGB converts one 8-bit YUV triple to RGB.
func YUVToRGB(y, u, v int) (r, g, b uint8) {
	yy := multHi(y, kYScale)
	r = clipRGB(yy + multHi(v, kRCr) - kRBias)
	g = clipRGB(yy - multHi(u, kGCb) - multHi(v, kGCr) + kGBias)
	b = clipRGB(yy + multHi(u, kBCb) - kBBias)
	return r, g, b
}

// RGBToY converts an 8-bit RGB triple to luma.
func RGBToY(r, g, b int) uint8 {
	return uint8((kRGBToY0*r + kRGBToY1*g + kRGBToY2*b + yuvHalf + (16 << yuvFix)) >> yuvFix)
}

// clipUV clips an accumulated chroma value. sum4 callers pass the sum of
// a 2x2 block; single-sample callers pass shift 0.
func clipUV(uv, shift int) uint8 {
	uv = (uv + (yuvHalf << shift) + (128 << (yuvFix + shift))) >> (yuvFix + shift)
	return uint8(clamp(uv, 0, 255))
}

// RGBToU converts the sum of n = 1<<shift RGB samples to Cb.
func RGBToU(r, g, b, shift int) uint8 {
	return clipUV(kRGBToU0*r+kRGBToU1*g+kRGBToU2*b, shift)
}

// RGBToV converts the sum of n = 1<<shift RGB samples to Cr.
func RGBToV(r, g, b, shift int) uint8 {
	return clipUV(kRGBToV0*r+kRGBToV1*g+kRGBToV2*b, shift)
}

// ToBitDepth widens an 8-bit value to bitDepth.
func ToBitDepth(v uint8, bitDepth int) int { return int(v) << (bitDepth - 8) }

// FromBitDepth narrows a sample of bitDepth to 8 bits with rounding.
func FromBitDepth(v, bitDepth int) int {
	if bitDepth == 8 {
		return v
	}
	return min(255, roundShift(v, bitDepth-8))
}
