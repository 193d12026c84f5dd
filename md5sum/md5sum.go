// Package md5sum computes the MD5 digest FLAC uses to validate a fully
// decoded stream against meta.StreamInfo.MD5Sum: samples interleaved
// channel-by-channel within each frame, each encoded little-endian
// two's-complement at a caller-chosen byte width.
//
// Verifying the result against StreamInfo.MD5Sum is a caller decision,
// not something this package or the frame decoder does on its own -- spec
// scopes whole-stream MD5 validation as external to the core.
package md5sum

import (
	"crypto/md5"
	"hash"

	"github.com/mycophonic/flac/internal/ferr"
)

// Hash accumulates an MD5 digest over planar PCM samples one block at a
// time, the way a decoder's caller would feed it one frame's worth of
// output after each successful ReadFrame.
type Hash struct {
	h          hash.Hash
	bytesPer   int
	buf        []byte
	numChannel int
}

// New returns a Hash for samples of the given bit depth (8, 16, 24 or 32)
// across numChannels channels.
func New(bitsPerSample, numChannels int) (*Hash, error) {
	bytesPer, err := bytesPerSample(bitsPerSample)
	if err != nil {
		return nil, err
	}
	if numChannels < 1 || numChannels > 8 {
		return nil, ferr.IllegalArgumentf("md5sum.New: channel count %d out of range", numChannels)
	}
	return &Hash{
		h:          md5.New(),
		bytesPer:   bytesPer,
		buf:        make([]byte, bytesPer),
		numChannel: numChannels,
	}, nil
}

func bytesPerSample(bitsPerSample int) (int, error) {
	switch bitsPerSample {
	case 8:
		return 1, nil
	case 16:
		return 2, nil
	case 24:
		return 3, nil
	case 32:
		return 4, nil
	default:
		return 0, ferr.IllegalArgumentf("md5sum: unsupported bit depth %d", bitsPerSample)
	}
}

// Write folds one block of planar samples into the digest. samples must
// have exactly numChannels rows (as passed to New), each at least
// offset+n long; n is the number of inter-channel samples (the block
// size) to consume starting at offset.
func (m *Hash) Write(samples [][]int32, offset, n int) error {
	if len(samples) != m.numChannel {
		return ferr.IllegalArgumentf("md5sum.Hash.Write: %d channels, want %d", len(samples), m.numChannel)
	}
	for i := 0; i < n; i++ {
		for ch := 0; ch < m.numChannel; ch++ {
			if offset+i >= len(samples[ch]) {
				return ferr.IllegalArgumentf("md5sum.Hash.Write: channel %d shorter than offset %d + n %d", ch, offset, n)
			}
			putLE(m.buf, samples[ch][offset+i])
			if _, err := m.h.Write(m.buf); err != nil {
				return ferr.IoFailuref(err)
			}
		}
	}
	return nil
}

// putLE packs v's low bytesPer(buf) bytes, little-endian two's-complement,
// into buf.
func putLE(buf []byte, v int32) {
	u := uint32(v)
	for i := range buf {
		buf[i] = byte(u >> (8 * uint(i)))
	}
}

// Sum returns the MD5 digest of every block written so far.
func (m *Hash) Sum() [16]byte {
	var out [16]byte
	copy(out[:], m.h.Sum(nil))
	return out
}
