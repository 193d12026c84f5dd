package bits

import (
	"io"

	"github.com/mycophonic/flac/internal/ferr"
)

// riceLookupBits is the width of the lookahead window the fast-path Rice
// decode tables are indexed by.
const riceLookupBits = 13

// maxRiceParam bounds the Rice parameter range the fast-path table covers
// (a 4-bit parameter field gives 0..14 and a 5-bit field 0..30; the
// all-ones escape value of either width is handled by the frame package's
// decodeResidual as a verbatim partition rather than routed through here).
const maxRiceParam = 30

// riceValue and riceConsumed are 2D lookup tables indexed by [param][next
// riceLookupBits bits of the bit buffer]. riceConsumed[p][w] is the number
// of bits consumed decoding one Rice-k residual starting at window w with
// parameter p, or 0 if w does not hold the whole code (the unary prefix,
// its terminating 1 and the k remainder bits together run past
// riceLookupBits bits) -- the caller falls back to ReadUnary+ReadUint for
// those.
var riceValue [maxRiceParam + 1][1 << riceLookupBits]int32
var riceConsumed [maxRiceParam + 1][1 << riceLookupBits]uint8

func init() {
	for p := 0; p <= maxRiceParam; p++ {
		for w := 0; w < 1<<riceLookupBits; w++ {
			riceValue[p][w], riceConsumed[p][w] = decodeRiceWindow(uint(p), uint32(w))
		}
	}
}

// decodeRiceWindow decodes one Rice-k value from a riceLookupBits-wide
// window (MSB-first, as if it were the next riceLookupBits bits off the
// stream), returning the zigzag-decoded value and the number of bits
// consumed, or (0, 0) if the window doesn't contain a full code.
func decodeRiceWindow(k uint, window uint32) (int32, uint8) {
	quotient := uint(0)
	for bit := riceLookupBits - 1; bit >= 0; bit-- {
		if window&(1<<uint(bit)) != 0 {
			remBits := bit // window bits left after the terminating 1
			if uint(remBits) < k {
				return 0, 0
			}
			consumed := quotient + 1 + k
			if consumed > riceLookupBits {
				return 0, 0
			}
			rem := (window >> uint(remBits-int(k))) & (1<<k - 1)
			folded := quotient<<k | uint(rem)
			return zigzagDecode(uint32(folded)), uint8(consumed)
		}
		quotient++
	}
	return 0, 0
}

func zigzagDecode(folded uint32) int32 {
	return int32(folded>>1) ^ -int32(folded&1)
}

// ReadRiceInts decodes n Rice-k coded residuals into out[start:start+n],
// zigzag-unfolding each one to a signed value. It consults the
// riceValue/riceConsumed tables for the common case of a short unary
// prefix and falls back to ReadUnary+ReadUint otherwise.
func (r *Reader) ReadRiceInts(k uint, out []int32, start, n int) error {
	if k > maxRiceParam {
		return r.readRiceIntsSlow(k, out, start, n)
	}
	table := &riceConsumed[k]
	values := &riceValue[k]
	for i := start; i < start+n; i++ {
		if err := r.ensureBits(riceLookupBits); err != nil {
			if err != io.EOF && err != io.ErrUnexpectedEOF {
				return err
			}
			v, rerr := r.readRiceIntSlow(k)
			if rerr != nil {
				return rerr
			}
			out[i] = v
			continue
		}
		window := uint32((r.bitBuffer >> (r.bitBufferLen - riceLookupBits)) & (1<<riceLookupBits - 1))
		consumed := table[window]
		if consumed == 0 {
			v, err := r.readRiceIntSlow(k)
			if err != nil {
				return err
			}
			out[i] = v
			continue
		}
		r.bitBufferLen -= uint(consumed)
		out[i] = values[window]
	}
	return nil
}

func (r *Reader) readRiceIntsSlow(k uint, out []int32, start, n int) error {
	for i := start; i < start+n; i++ {
		v, err := r.readRiceIntSlow(k)
		if err != nil {
			return err
		}
		out[i] = v
	}
	return nil
}

func (r *Reader) readRiceIntSlow(k uint) (int32, error) {
	q, err := r.ReadUnary()
	if err != nil {
		return 0, err
	}
	// Guard against a pathological unary run: (q << k) must stay under 2^53
	// so a post-LPC reconstruction built on top of it can't silently
	// overflow into the sign bits a later 54-bit accumulator check relies
	// on. k is at most 31 (a 5-bit escape width), so this never shifts out
	// of range.
	if k < 53 && uint64(q) >= uint64(1)<<(53-k) {
		return 0, ferr.DataFormatf("bits.Reader.ReadRiceInts: quotient %d too large for param %d", q, k)
	}
	var rem uint32
	if k > 0 {
		rem, err = r.ReadUint(k)
		if err != nil {
			return 0, err
		}
	}
	folded := q<<k | rem
	return zigzagDecode(folded), nil
}
