// Package bits implements the bit-level cursor every other package in this
// module reads through. It follows the dual-buffer shape of
// farcloser-flac's internal/bits.Reader -- a byte-granular buffer backing a
// wider bit-granular register -- but widens the register to 64 bits and
// tracks CRC-8/CRC-16 as a pair of always-on running checksums queried on
// demand rather than toggled with Enable/DisableCRC8/16, since callers here
// need both simultaneously (header CRC-8, frame CRC-16) rather than one at
// a time.
package bits

import (
	"io"

	"github.com/mycophonic/flac/internal/ferr"
	"github.com/mycophonic/flac/internal/hashutil/crc16"
	"github.com/mycophonic/flac/internal/hashutil/crc8"
	"github.com/mycophonic/flac/source"
)

// readBufSize is the size of the byte-granular buffer backing the bit
// register. 4096 matches farcloser-flac's buf [4096]byte.
const readBufSize = 4096

// Reader is a bit-oriented cursor over a source.ByteSource. It maintains
// two buffers: byteBuffer, a byte-granular staging area refilled directly
// from the source, and bitBuffer, a 64-bit register fed from byteBuffer
// that callers actually read bits out of. Keeping the register wide (up to
// 64 bits, topped up past 56 whenever a read needs more bits than it
// holds) lets ReadRiceInts
// look 13 bits ahead for its fast-path table without a refill on every
// sample.
type Reader struct {
	src source.ByteSource

	byteBuffer         []byte
	byteBufferStartPos int64 // absolute offset of byteBuffer[0] in the source
	byteBufferIndex    int   // next byte not yet pulled into bitBuffer
	byteBufferLen      int   // valid bytes in byteBuffer

	bitBuffer    uint64 // occupied bits sit in the low bitBufferLen bits, oldest-first from the top
	bitBufferLen uint   // 0..64

	crc8          uint8
	crc16         uint16
	crcStartIndex int // first byte in byteBuffer not yet folded into crc8/crc16
}

// NewReader wraps src for bit-level reads starting at absolute position 0.
func NewReader(src source.ByteSource) *Reader {
	return &Reader{
		src:        src,
		byteBuffer: make([]byte, readBufSize),
	}
}

// refillByteBuffer folds everything fold-able into the running CRCs, slides
// the not-yet-foldable tail (bytes already pulled into bitBuffer but not
// logically consumed, per updateCrcs) to the front, and reads more bytes
// from src to fill the rest of byteBuffer.
func (r *Reader) refillByteBuffer() error {
	r.updateCrcs()
	keep := r.byteBufferLen - r.crcStartIndex
	copy(r.byteBuffer[:keep], r.byteBuffer[r.crcStartIndex:r.byteBufferLen])
	r.byteBufferIndex -= r.crcStartIndex
	r.byteBufferStartPos += int64(r.crcStartIndex)
	r.crcStartIndex = 0

	n, err := r.src.Read(r.byteBuffer, keep, len(r.byteBuffer)-keep)
	r.byteBufferLen = keep + n
	if n == 0 {
		if err == nil {
			err = io.EOF
		}
		return err
	}
	return nil
}

// fillBitBuffer tops bitBuffer up past 56 bits, refilling byteBuffer from
// src as needed. It returns the first error encountered (possibly io.EOF)
// without converting it -- that's ensureBits' job, since only ensureBits
// knows whether the shortfall matters to its caller.
func (r *Reader) fillBitBuffer() error {
	for r.bitBufferLen <= 56 {
		if r.byteBufferIndex >= r.byteBufferLen {
			if err := r.refillByteBuffer(); err != nil {
				return err
			}
		}
		b := r.byteBuffer[r.byteBufferIndex]
		r.byteBufferIndex++
		r.bitBuffer = r.bitBuffer<<8 | uint64(b)
		r.bitBufferLen += 8
	}
	return nil
}

// ensureBits guarantees at least n bits are buffered or returns an error:
// io.EOF if the stream ended with nothing at all buffered (a candidate for
// the caller to treat as a clean end-of-stream), io.ErrUnexpectedEOF if it
// ended mid-structure, or a wrapped IoFailure for anything else.
func (r *Reader) ensureBits(n uint) error {
	if r.bitBufferLen >= n {
		return nil
	}
	err := r.fillBitBuffer()
	if r.bitBufferLen >= n {
		return nil
	}
	if err == nil || err == io.EOF {
		if r.bitBufferLen == 0 {
			return io.EOF
		}
		return io.ErrUnexpectedEOF
	}
	return ferr.IoFailuref(err)
}

// updateCrcs folds byteBuffer[crcStartIndex:end] into crc8/crc16, where end
// is the logical read position: bytes already pulled into bitBuffer but not
// yet delivered to a caller (the Rice fast path can pull several bytes
// ahead of what it has actually consumed) are left out until a later call
// catches up to them. Both CRCs must only be queried at a byte boundary,
// where this lag is always a whole number of bytes.
func (r *Reader) updateCrcs() {
	end := r.byteBufferIndex - int(r.bitBufferLen/8)
	if end > r.crcStartIndex {
		data := r.byteBuffer[r.crcStartIndex:end]
		r.crc8 = crc8.Update(r.crc8, crc8.ATMTable, data)
		r.crc16 = crc16.Update(r.crc16, crc16.IBMTable, data)
		r.crcStartIndex = end
	}
}

// ResetCrcs zeroes both running checksums and anchors them at the current
// logical position, so a subsequent Crc8/Crc16 reports only bytes consumed
// after this call.
func (r *Reader) ResetCrcs() {
	r.crcStartIndex = r.byteBufferIndex - int(r.bitBufferLen/8)
	r.crc8 = 0
	r.crc16 = 0
}

// Crc8 returns the running CRC-8 over bytes consumed since the last
// ResetCrcs. Must be called at a byte boundary.
func (r *Reader) Crc8() uint8 {
	r.updateCrcs()
	return r.crc8
}

// Crc16 returns the running CRC-16 over bytes consumed since the last
// ResetCrcs. Must be called at a byte boundary.
func (r *Reader) Crc16() uint16 {
	r.updateCrcs()
	return r.crc16
}

// IsAligned reports whether the cursor sits on a byte boundary.
func (r *Reader) IsAligned() bool {
	return r.bitBufferLen%8 == 0
}

// Position returns the absolute byte offset of the stream position: the
// start of the byte the next read will begin consuming (or continue
// consuming, if mid-byte).
func (r *Reader) Position() int64 {
	return r.byteBufferStartPos + int64(r.byteBufferIndex) - int64((r.bitBufferLen+7)/8)
}

// BitPosition returns how many bits of the byte at Position have already
// been consumed, in [0,8).
func (r *Reader) BitPosition() uint {
	return (8 - r.bitBufferLen%8) % 8
}

// ReadUint reads the next n bits (1 <= n <= 32) as an unsigned value, MSB
// first.
func (r *Reader) ReadUint(n uint) (uint32, error) {
	if n < 1 || n > 32 {
		return 0, ferr.IllegalArgumentf("bits.Reader.ReadUint: n=%d out of range", n)
	}
	if err := r.ensureBits(n); err != nil {
		return 0, err
	}
	r.bitBufferLen -= n
	mask := uint64(1)<<n - 1
	return uint32((r.bitBuffer >> r.bitBufferLen) & mask), nil
}

// ReadSignedInt reads the next n bits (1 <= n <= 32) as a two's complement
// value and sign-extends it to int32.
func (r *Reader) ReadSignedInt(n uint) (int32, error) {
	u, err := r.ReadUint(n)
	if err != nil {
		return 0, err
	}
	shift := 32 - n
	return int32(u<<shift) >> shift, nil
}

// ReadUnary reads a unary-coded value: the count of 0 bits before the
// terminating 1 bit, consuming the 1.
func (r *Reader) ReadUnary() (uint32, error) {
	var count uint32
	for {
		if err := r.ensureBits(1); err != nil {
			return 0, err
		}
		// Fast path: scan the whole buffered window at once instead of bit
		// by bit, same trick as farcloser-flac's ReadUnary.
		window := r.bitBuffer & (1<<r.bitBufferLen - 1)
		if window == 0 {
			count += uint32(r.bitBufferLen)
			r.bitBufferLen = 0
			continue
		}
		lead := r.bitBufferLen - uint(bitsLen(window))
		count += uint32(lead)
		r.bitBufferLen -= lead + 1 // also consume the terminating 1
		return count, nil
	}
}

// bitsLen returns the position (1-based from the LSB) of the highest set
// bit in x.
func bitsLen(x uint64) int {
	n := 0
	for x != 0 {
		x >>= 1
		n++
	}
	return n
}

// ReadByte reads one byte-aligned byte, returning -1 at a clean end of
// stream. It fails IllegalState if the cursor is not byte-aligned.
func (r *Reader) ReadByte() (int, error) {
	if !r.IsAligned() {
		return 0, ferr.IllegalStatef("bits.Reader.ReadByte: not byte-aligned")
	}
	v, err := r.ReadUint(8)
	if err == io.EOF {
		return -1, nil
	}
	if err != nil {
		return 0, err
	}
	return int(v), nil
}

// ReadFully fills buf with byte-aligned bytes, failing UnexpectedEof if the
// stream runs out first.
func (r *Reader) ReadFully(buf []byte) error {
	if !r.IsAligned() {
		return ferr.IllegalStatef("bits.Reader.ReadFully: not byte-aligned")
	}
	for i := range buf {
		v, err := r.ReadUint(8)
		if err == io.EOF {
			return ferr.UnexpectedEoff("bits.Reader.ReadFully: stream ended after %d/%d bytes", i, len(buf))
		}
		if err != nil {
			return err
		}
		buf[i] = byte(v)
	}
	return nil
}

// PositionChanged discards all buffered state after the underlying source
// has been repositioned to pos, so the next read starts clean.
func (r *Reader) PositionChanged(pos int64) {
	r.byteBufferStartPos = pos
	r.byteBufferIndex = 0
	r.byteBufferLen = 0
	r.bitBuffer = 0
	r.bitBufferLen = 0
	r.crc8 = 0
	r.crc16 = 0
	r.crcStartIndex = 0
}

// SeekTo repositions the underlying source to pos, if it supports seeking,
// and resets all buffered state accordingly.
func (r *Reader) SeekTo(pos int64) error {
	seeker, ok := r.src.(source.Seeker)
	if !ok {
		return ferr.IllegalStatef("bits.Reader.SeekTo: source does not support seeking")
	}
	if err := seeker.SeekTo(pos); err != nil {
		return ferr.IoFailuref(err)
	}
	r.PositionChanged(pos)
	return nil
}
