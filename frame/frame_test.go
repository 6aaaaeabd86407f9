package frame

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFrame_Layout(t *testing.T) {
	tests := []struct {
		name         string
		w, h, bd     int
		sx, sy       int
		mono         bool
		wantPlanes   int
		wantStride   [3]int
		wantSize     [3][2]int
		wantMI       [2]int
		wantSB       [2]int
		wantHighBits bool
	}{
		{"420_8bit", 100, 70, 8, 1, 1, false, 3, [3]int{128, 64, 64}, [3][2]int{{100, 70}, {50, 35}, {50, 35}}, [2]int{18, 26}, [2]int{2, 2}, false},
		{"444_10bit", 64, 64, 10, 0, 0, false, 3, [3]int{64, 64, 64}, [3][2]int{{64, 64}, {64, 64}, {64, 64}}, [2]int{16, 16}, [2]int{1, 1}, true},
		{"422_odd", 33, 9, 12, 1, 0, false, 3, [3]int{64, 32, 32}, [3][2]int{{33, 9}, {17, 9}, {17, 9}}, [2]int{4, 10}, [2]int{1, 1}, true},
		{"mono", 130, 1, 8, 1, 1, true, 1, [3]int{192}, [3][2]int{{130, 1}}, [2]int{2, 34}, [2]int{1, 3}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := NewFrame(tt.w, tt.h, tt.bd, tt.sx, tt.sy, tt.mono)
			require.NoError(t, err)
			assert.Equal(t, tt.wantPlanes, f.NumPlanes)
			assert.Equal(t, tt.wantHighBits, f.HighBitDepth())
			assert.Equal(t, tt.wantMI[0], f.MIRows())
			assert.Equal(t, tt.wantMI[1], f.MICols())
			assert.Equal(t, tt.wantSB[0], f.SBRows())
			assert.Equal(t, tt.wantSB[1], f.SBCols())
			for p := 0; p < f.NumPlanes; p++ {
				w, h := f.PlaneSize(p)
				assert.Equal(t, tt.wantSize[p], [2]int{w, h}, "plane %d size", p)
				if f.HighBitDepth() {
					assert.Equal(t, tt.wantStride[p], f.Planes16().Planes[p].Stride)
				} else {
					assert.Equal(t, tt.wantStride[p], f.Planes8().Planes[p].Stride)
				}
			}
		})
	}
}

func TestNewFrame_Errors(t *testing.T) {
	_, err := NewFrame(0, 10, 8, 1, 1, false)
	assert.True(t, errors.Is(err, ErrDimensions))
	_, err = NewFrame(10, MaxDimension+1, 8, 1, 1, false)
	assert.True(t, errors.Is(err, ErrDimensions))
	_, err = NewFrame(10, 10, 9, 1, 1, false)
	assert.True(t, errors.Is(err, ErrBitDepth))
	_, err = NewFrame(10, 10, 8, 2, 1, false)
	assert.True(t, errors.Is(err, ErrDimensions))
}

func TestBufferOf(t *testing.T) {
	f8, err := NewFrame(16, 16, 8, 1, 1, false)
	require.NoError(t, err)
	assert.NotNil(t, BufferOf[uint8](f8))
	assert.Nil(t, BufferOf[uint16](f8))

	f10, err := NewFrame(16, 16, 10, 1, 1, false)
	require.NoError(t, err)
	assert.Nil(t, BufferOf[uint8](f10))
	assert.Same(t, f10.Planes16(), BufferOf[uint16](f10))
}

func TestFrame_CloneEqual(t *testing.T) {
	f, err := NewFrame(40, 24, 10, 1, 1, false)
	require.NoError(t, err)
	f.SetSample(PlaneY, 3, 4, 700)
	f.SetSample(PlaneV, 1, 1, 5000) // clamps to 1023

	c := f.Clone()
	require.True(t, f.Equal(c))
	assert.Equal(t, 1023, c.Sample(PlaneV, 1, 1))

	c.SetSample(PlaneU, 19, 11, 1)
	assert.False(t, f.Equal(c))
	assert.Equal(t, 0, f.Sample(PlaneU, 19, 11), "clone must not alias")
}

func TestGrid_FillBlockClips(t *testing.T) {
	g, err := NewGrid(6, 6)
	require.NoError(t, err)
	g.FillBlock(4, 4, BlockInfo{BlockSize: Block16x16, TxSize: Tx16x16, Skip: true})

	assert.True(t, g.At(5, 5).Skip)
	assert.True(t, g.At(4, 4).Skip)
	assert.False(t, g.At(3, 4).Skip)
	// At clamps out-of-range coordinates.
	assert.Same(t, g.At(5, 5), g.At(99, 99))
	assert.Same(t, g.At(0, 0), g.At(-1, -3))
}

func TestGrid_MarkTileEdges(t *testing.T) {
	g, err := NewGrid(8, 8)
	require.NoError(t, err)
	g.MarkTileEdges([]int{0, 4}, []int{2, 100})

	assert.Equal(t, TileEdgeLeft, g.At(0, 4).Edges)
	assert.Equal(t, TileEdgeRight|TileEdgeBottom, g.At(1, 3).Edges)
	assert.Equal(t, TileEdgeTop, g.At(2, 0).Edges)
	assert.Equal(t, EdgeFlags(0), g.At(7, 7).Edges)
}

func TestCDEFStrengthCoding(t *testing.T) {
	tests := []struct {
		code int
		want CDEFStrength
	}{
		{0, CDEFStrength{0, 0}},
		{1, CDEFStrength{0, 1}},
		{3, CDEFStrength{0, 4}},
		{17, CDEFStrength{4, 1}},
		{63, CDEFStrength{15, 4}},
	}
	for _, tt := range tests {
		got := DecodeCDEFStrength(tt.code)
		assert.Equal(t, tt.want, got, "code %d", tt.code)
		assert.Equal(t, tt.code, got.Code())
	}
}

func TestCDEFParams_Strength(t *testing.T) {
	p := CDEFParams{Damping: 5, Bits: 1}
	p.Y[1] = CDEFStrength{Primary: 7, Secondary: 2}
	p.UV[1] = CDEFStrength{Primary: 3, Secondary: 1}

	s, d := p.Strength(PlaneY, 3) // masked to 1
	assert.Equal(t, CDEFStrength{7, 2}, s)
	assert.Equal(t, 5, d)

	s, d = p.Strength(PlaneV, 1)
	assert.Equal(t, CDEFStrength{3, 1}, s)
	assert.Equal(t, 4, d)
}

func TestBlockGeometry(t *testing.T) {
	g := Block16x8.PlaneGeometry(1, 1)
	assert.Equal(t, 8, g.W)
	assert.Equal(t, 4, g.H)

	g = Block4x16.PlaneGeometry(1, 1)
	assert.Equal(t, 4, g.W, "never below 4")

	w, h := Block64x64.PlaneTxDims(0, 0)
	assert.Equal(t, [2]int{32, 32}, [2]int{w, h})
	w, h = Block64x16.PlaneTxDims(1, 1)
	assert.Equal(t, [2]int{32, 8}, [2]int{w, h})

	assert.Equal(t, 16, Tx16x64.Geometry().W)
	assert.Equal(t, 64, Tx16x64.Geometry().H)
	assert.False(t, TxSizes.Valid())
}
