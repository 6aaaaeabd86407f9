package snapshot

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Container layout sizes.
const (
	riffHeaderSize  = 12 // "RIFF" + size + form type
	chunkHeaderSize = 8  // FourCC + payload size

	// maxChunkPayload bounds any single chunk; a 16384x16384 12-bit 4:4:4
	// frame stays well below it.
	maxChunkPayload = 1<<31 - 1
)

// fourCC packs four ASCII bytes into a little-endian tag.
func fourCC(a, b, c, d byte) uint32 {
	return uint32(a) | uint32(b)<<8 | uint32(c)<<16 | uint32(d)<<24
}

var (
	fourCCRIFF = fourCC('R', 'I', 'F', 'F')
	fourCCForm = fourCC('I', 'N', 'L', 'P')

	fourCCHead  = fourCC('H', 'E', 'A', 'D')
	fourCCParam = fourCC('P', 'A', 'R', 'M')
	fourCCGrid  = fourCC('G', 'R', 'I', 'D')
	fourCCPlane = fourCC('P', 'L', 'N', 'S')
)

// Errors returned by Load.
var (
	ErrInvalidRIFF  = errors.New("snapshot: invalid RIFF header")
	ErrInvalidForm  = errors.New("snapshot: not an inloop snapshot")
	ErrTruncated    = errors.New("snapshot: truncated data")
	ErrTooLarge     = errors.New("snapshot: too large")
	ErrMissingChunk = errors.New("snapshot: missing chunk")
	ErrCorrupt      = errors.New("snapshot: corrupt chunk")
)

// chunk is one RIFF chunk.
type chunk struct {
	id      uint32
	payload []byte
}

// paddedSize rounds a payload size up to the even size RIFF stores.
func paddedSize(size uint32) uint32 {
	return size + (size & 1)
}

// fourCCString returns the tag as text, for error messages.
func fourCCString(id uint32) string {
	b := [4]byte{byte(id), byte(id >> 8), byte(id >> 16), byte(id >> 24)}
	return string(b[:])
}

// readRIFFHeader validates the 12-byte header and returns the size of the
// chunk area that follows.
func readRIFFHeader(r io.Reader) (uint32, error) {
	var hdr [riffHeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrTruncated, err)
	}
	if binary.LittleEndian.Uint32(hdr[0:4]) != fourCCRIFF {
		return 0, ErrInvalidRIFF
	}
	size := binary.LittleEndian.Uint32(hdr[4:8])
	if size < 4 {
		return 0, ErrInvalidRIFF
	}
	if binary.LittleEndian.Uint32(hdr[8:12]) != fourCCForm {
		return 0, ErrInvalidForm
	}
	return size - 4, nil
}

// readChunk reads one chunk from the RIFF body r, dropping the pad byte.
// A payload larger than what is left of the body is truncated data. The
// payload buffer grows with the bytes actually read, never with the
// declared size alone.
func readChunk(r *io.LimitedReader) (chunk, error) {
	var hdr [chunkHeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return chunk{}, err
	}
	id := binary.LittleEndian.Uint32(hdr[0:4])
	size := binary.LittleEndian.Uint32(hdr[4:8])
	if size > maxChunkPayload {
		return chunk{}, fmt.Errorf("%w: %s", ErrTooLarge, fourCCString(id))
	}
	if int64(size) > r.N {
		return chunk{}, fmt.Errorf("%w: %s payload of %d bytes, %d left", ErrTruncated, fourCCString(id), size, r.N)
	}
	payload, err := io.ReadAll(io.LimitReader(r, int64(size)))
	if err != nil {
		return chunk{}, fmt.Errorf("%w: %s payload: %v", ErrTruncated, fourCCString(id), err)
	}
	if len(payload) < int(size) {
		return chunk{}, fmt.Errorf("%w: %s payload: %d of %d bytes", ErrTruncated, fourCCString(id), len(payload), size)
	}
	if size&1 != 0 && r.N > 0 {
		var pad [1]byte
		if _, err := io.ReadFull(r, pad[:]); err != nil {
			return chunk{}, fmt.Errorf("%w: %s pad: %v", ErrTruncated, fourCCString(id), err)
		}
	}
	return chunk{id: id, payload: payload}, nil
}

// writeRIFF writes the header and chunks in order.
func writeRIFF(w io.Writer, chunks []chunk) error {
	total := uint64(4)
	for _, c := range chunks {
		if uint64(len(c.payload)) > maxChunkPayload {
			return fmt.Errorf("%w: %s", ErrTooLarge, fourCCString(c.id))
		}
		total += chunkHeaderSize + uint64(paddedSize(uint32(len(c.payload))))
	}
	if total > maxChunkPayload {
		return ErrTooLarge
	}

	var hdr [riffHeaderSize]byte
	binary.LittleEndian.PutUint32(hdr[0:4], fourCCRIFF)
	binary.LittleEndian.PutUint32(hdr[4:8], uint32(total))
	binary.LittleEndian.PutUint32(hdr[8:12], fourCCForm)
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	for _, c := range chunks {
		var ch [chunkHeaderSize]byte
		binary.LittleEndian.PutUint32(ch[0:4], c.id)
		binary.LittleEndian.PutUint32(ch[4:8], uint32(len(c.payload)))
		if _, err := w.Write(ch[:]); err != nil {
			return err
		}
		if _, err := w.Write(c.payload); err != nil {
			return err
		}
		if len(c.payload)&1 != 0 {
			if _, err := w.Write([]byte{0}); err != nil {
				return err
			}
		}
	}
	return nil
}
