package frame

import (
	"github.com/mycophonic/flac/internal/bits"
	"github.com/mycophonic/flac/internal/ferr"
)

// minFrameSize is the smallest number of bytes a legal frame can occupy:
// sync+reserved+blocking (2), block size code nibble, sample rate code
// nibble, channel assignment nibble, bits-per-sample code, reserved bit,
// one frame/sample number byte, header CRC-8, one subframe header byte,
// at least one byte holding the subframe's sample data, and the CRC-16
// footer leave no room below 10.
const minFrameSize = 10

// Frame is everything a caller needs about one decoded audio frame: the
// parsed header plus the number of bytes it occupied in the stream, from
// the sync code through the CRC-16 footer.
type Frame struct {
	Info
	// Size is the number of bytes consumed by this frame, sync through
	// CRC-16 footer inclusive. Filled in only after Decode returns
	// successfully.
	Size int64
}

// Decode parses and fully decodes the next frame from br: its header,
// every subframe, stereo decorrelation if the channel assignment calls
// for it, padding, and the CRC-16 footer. Decoded samples are written
// planar into out[ch][outOffset : outOffset+blockSize] as int32, one
// slice per output channel; out must have at least Info.Channels.Count()
// entries, each long enough to hold outOffset+blockSize samples.
//
// scratch0 and scratch1 are int64 working buffers owned by the caller
// (the decoder amortizes their allocation across every frame it reads);
// both must be at least as long as the frame's block size. Independent
// channel assignments only need scratch0; the three stereo-decorrelation
// modes, each of which carries a side channel, use both.
//
// A clean io.EOF (nothing at all buffered before the sync code) means the
// stream has no more frames and is returned as-is, not wrapped.
func Decode(br *bits.Reader, streamRate uint32, streamBPS uint8, out [][]int32, outOffset int, scratch0, scratch1 []int64) (*Frame, error) {
	startPos := br.Position()

	hdr, err := parseHeader(br, streamRate, streamBPS)
	if err != nil {
		return nil, err
	}

	nch := hdr.Channels.Count()
	if len(out) < nch {
		return nil, ferr.IllegalArgumentf("frame.Decode: %d output channels, frame needs %d", len(out), nch)
	}
	blockSize := int(hdr.BlockSize)
	for ch := 0; ch < nch; ch++ {
		if len(out[ch]) < outOffset+blockSize {
			return nil, ferr.IllegalArgumentf("frame.Decode: output channel %d too short for offset %d + block size %d", ch, outOffset, blockSize)
		}
	}
	if len(scratch0) < blockSize || (hdr.Channels.hasSide() && len(scratch1) < blockSize) {
		return nil, ferr.IllegalArgumentf("frame.Decode: scratch buffers shorter than block size %d", blockSize)
	}
	// A side subframe is coded one bit wider than the frame's declared
	// depth; at the declared maximum of 32 that would need a 33-bit
	// literal read, past what the bit reader's 32-bit ReadUint/ReadSignedInt
	// contract supports. Reject up front as a format violation rather than
	// let the subframe decoder fail with an internal argument error deep
	// inside a VERBATIM or warm-up read.
	if hdr.Channels.hasSide() && hdr.BitsPerSample >= 32 {
		return nil, ferr.DataFormatf("frame.Decode: side channel at declared depth %d exceeds the 32-bit reader width", hdr.BitsPerSample)
	}

	if err := decodeChannels(br, hdr, blockSize, out, outOffset, scratch0, scratch1); err != nil {
		return nil, err
	}

	if err := readFramePadding(br); err != nil {
		return nil, err
	}

	gotCRC := br.Crc16()
	wantCRC, err := br.ReadUint(16)
	if err != nil {
		return nil, wrap(err, "frame.Decode: crc-16")
	}
	if uint16(wantCRC) != gotCRC {
		return nil, ferr.CrcMismatchf("frame.Decode: frame crc-16 got 0x%04X want 0x%04X", gotCRC, uint16(wantCRC))
	}

	size := br.Position() - startPos
	if size < minFrameSize {
		return nil, ferr.DataFormatf("frame.Decode: frame size %d below minimum %d", size, minFrameSize)
	}

	return &Frame{Info: hdr, Size: size}, nil
}

// hasSide reports whether this assignment decodes a side channel one bit
// wider than the frame's declared bits-per-sample.
func (c ChannelAssignment) hasSide() bool {
	return c == ChannelsLeftSide || c == ChannelsRightSide || c == ChannelsMidSide
}

func decodeChannels(br *bits.Reader, hdr Info, blockSize int, out [][]int32, outOffset int, scratch0, scratch1 []int64) error {
	bps := hdr.BitsPerSample
	s0 := scratch0[:blockSize]

	switch hdr.Channels {
	case ChannelsLeftSide, ChannelsRightSide, ChannelsMidSide:
		s1 := scratch1[:blockSize]
		if hdr.Channels == ChannelsLeftSide {
			if err := decodeSubframe(br, bps, s0); err != nil {
				return err
			}
			if err := decodeSubframe(br, bps+1, s1); err != nil {
				return err
			}
			for i := 0; i < blockSize; i++ {
				left := s0[i]
				right := left - s1[i]
				if err := writeSample(out[0], outOffset+i, left, bps); err != nil {
					return err
				}
				if err := writeSample(out[1], outOffset+i, right, bps); err != nil {
					return err
				}
			}
			return nil
		}
		if hdr.Channels == ChannelsRightSide {
			if err := decodeSubframe(br, bps+1, s0); err != nil {
				return err
			}
			if err := decodeSubframe(br, bps, s1); err != nil {
				return err
			}
			for i := 0; i < blockSize; i++ {
				right := s1[i]
				left := s0[i] + right
				if err := writeSample(out[0], outOffset+i, left, bps); err != nil {
					return err
				}
				if err := writeSample(out[1], outOffset+i, right, bps); err != nil {
					return err
				}
			}
			return nil
		}
		// Mid/Side.
		if err := decodeSubframe(br, bps, s0); err != nil {
			return err
		}
		if err := decodeSubframe(br, bps+1, s1); err != nil {
			return err
		}
		for i := 0; i < blockSize; i++ {
			mid := s0[i]
			side := s1[i]
			right := mid - (side >> 1)
			left := right + side
			if err := writeSample(out[0], outOffset+i, left, bps); err != nil {
				return err
			}
			if err := writeSample(out[1], outOffset+i, right, bps); err != nil {
				return err
			}
		}
		return nil
	default:
		count := hdr.Channels.Count()
		for ch := 0; ch < count; ch++ {
			if err := decodeSubframe(br, bps, s0); err != nil {
				return err
			}
			for i := 0; i < blockSize; i++ {
				if err := writeSample(out[ch], outOffset+i, s0[i], bps); err != nil {
					return err
				}
			}
		}
		return nil
	}
}

// writeSample narrows v to a signed bps-bit value and stores it, or
// reports a DataFormat error if v doesn't fit -- the post-decorrelation
// overflow check spec calls out for mid/side reconstruction.
func writeSample(dst []int32, i int, v int64, bps uint8) error {
	lo := -(int64(1) << (bps - 1))
	hi := int64(1)<<(bps-1) - 1
	if v < lo || v > hi {
		return ferr.DataFormatf("frame: decoded sample %d does not fit in signed %d-bit range", v, bps)
	}
	dst[i] = int32(v)
	return nil
}

// readFramePadding consumes the zero-padding bits that align the cursor to
// a byte boundary before the CRC-16 footer, rejecting any non-zero
// padding bit.
func readFramePadding(br *bits.Reader) error {
	pad := (8 - br.BitPosition()%8) % 8
	if pad == 0 {
		return nil
	}
	v, err := br.ReadUint(pad)
	if err != nil {
		return wrap(err, "frame.Decode: padding")
	}
	if v != 0 {
		return ferr.DataFormatf("frame.Decode: non-zero frame padding bits 0x%X", v)
	}
	return nil
}
