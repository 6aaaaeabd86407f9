package snapshot

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
)

var encPool = sync.Pool{
	New: func() any {
		enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
		return enc
	},
}

var decPool = sync.Pool{
	New: func() any {
		dec, _ := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
		return dec
	},
}

func compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	enc := encPool.Get().(*zstd.Encoder)
	defer encPool.Put(enc)

	enc.Reset(&buf)
	if _, err := enc.Write(data); err != nil {
		_ = enc.Close()
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decompress inflates data, which must hold exactly want bytes.
func decompress(data []byte, want int) ([]byte, error) {
	dec := decPool.Get().(*zstd.Decoder)
	defer decPool.Put(dec)

	if err := dec.Reset(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	out := bytes.NewBuffer(make([]byte, 0, want))
	// One byte past want is enough to tell an oversized payload apart.
	if _, err := out.ReadFrom(io.LimitReader(dec, int64(want)+1)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if out.Len() != want {
		return nil, fmt.Errorf("%w: inflated to %d bytes, want %d", ErrCorrupt, out.Len(), want)
	}
	return out.Bytes(), nil
}
