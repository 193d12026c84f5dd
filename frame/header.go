// Package frame decodes FLAC audio frames: the per-frame header, each
// channel's subframe, and the stereo decorrelation that reconstructs
// independent left/right samples from a mid/side or left/side/right-side
// coded pair.
package frame

import (
	"github.com/mycophonic/flac/internal/bits"
	"github.com/mycophonic/flac/internal/ferr"
	"github.com/mycophonic/flac/internal/utf8"
)

// syncCode is the 14-bit pattern that opens every frame header.
const syncCode = 0x3FFE

// ChannelAssignment identifies how a frame's subframes map to output
// channels: either independently-coded channels, or one of three stereo
// decorrelation schemes applied to a coded pair.
type ChannelAssignment uint8

// Channel assignment codes, as laid out in the 4-bit header field.
const (
	ChannelsIndependent1 ChannelAssignment = iota
	ChannelsIndependent2
	ChannelsIndependent3
	ChannelsIndependent4
	ChannelsIndependent5
	ChannelsIndependent6
	ChannelsIndependent7
	ChannelsIndependent8
	ChannelsLeftSide
	ChannelsRightSide
	ChannelsMidSide
)

// Count returns the number of subframes (and output channels) this
// assignment implies.
func (c ChannelAssignment) Count() int {
	switch {
	case c <= ChannelsIndependent8:
		return int(c) + 1
	case c == ChannelsLeftSide, c == ChannelsRightSide, c == ChannelsMidSide:
		return 2
	default:
		return 0
	}
}

func (c ChannelAssignment) String() string {
	switch c {
	case ChannelsLeftSide:
		return "left/side"
	case ChannelsRightSide:
		return "right/side"
	case ChannelsMidSide:
		return "mid/side"
	default:
		return "independent"
	}
}

// Info holds a parsed frame header: everything needed to decode its
// subframes and reassemble their output, minus the subframes themselves.
type Info struct {
	HasFixedBlockSize bool
	// BlockSize is the number of samples per channel in this frame. The
	// 16-bit block size code (resolveBlockSize code 7) can legally request
	// 65536, one past what a uint16 holds, so this is a uint32.
	BlockSize uint32
	SampleRate        uint32
	Channels          ChannelAssignment
	BitsPerSample     uint8
	// Num is the frame number (HasFixedBlockSize) or the first sample
	// number of this frame (!HasFixedBlockSize).
	Num uint64
}

// parseHeader reads and validates a frame header, resolving block-size and
// sample-rate codes that require reading past the header proper, and
// checking the trailing CRC-8 against br's running checksum (which
// parseHeader resets at header start). streamRate/streamBPS supply the values a
// header can defer to STREAMINFO.
func parseHeader(br *bits.Reader, streamRate uint32, streamBPS uint8) (Info, error) {
	br.ResetCrcs()

	sync, err := br.ReadUint(14)
	if err != nil {
		// A clean io.EOF here (nothing at all buffered) means the stream
		// simply has no more frames; propagate it as-is so the decoder can
		// tell that apart from real truncation. Anything else is already
		// either io.ErrUnexpectedEOF or a wrapped *ferr.Error.
		return Info{}, err
	}
	if sync != syncCode {
		return Info{}, ferr.DataFormatf("frame.parseHeader: bad sync code 0x%04X", sync)
	}

	reserved1, err := br.ReadUint(1)
	if err != nil {
		return Info{}, wrap(err, "frame.parseHeader: reserved bit")
	}
	if reserved1 != 0 {
		return Info{}, ferr.DataFormatf("frame.parseHeader: reserved bit set")
	}

	blockingBit, err := br.ReadUint(1)
	if err != nil {
		return Info{}, wrap(err, "frame.parseHeader: blocking strategy")
	}
	hasFixedBlockSize := blockingBit == 0

	blockSizeCode, err := br.ReadUint(4)
	if err != nil {
		return Info{}, wrap(err, "frame.parseHeader: block size code")
	}

	sampleRateCode, err := br.ReadUint(4)
	if err != nil {
		return Info{}, wrap(err, "frame.parseHeader: sample rate code")
	}

	channelsCode, err := br.ReadUint(4)
	if err != nil {
		return Info{}, wrap(err, "frame.parseHeader: channel assignment")
	}
	channels := ChannelAssignment(channelsCode)
	if channels.Count() == 0 {
		return Info{}, ferr.DataFormatf("frame.parseHeader: reserved channel assignment code %d", channelsCode)
	}

	bpsCode, err := br.ReadUint(3)
	if err != nil {
		return Info{}, wrap(err, "frame.parseHeader: bits per sample code")
	}
	bps, err := resolveBitsPerSample(bpsCode, streamBPS)
	if err != nil {
		return Info{}, err
	}

	reserved2, err := br.ReadUint(1)
	if err != nil {
		return Info{}, wrap(err, "frame.parseHeader: reserved bit")
	}
	if reserved2 != 0 {
		return Info{}, ferr.DataFormatf("frame.parseHeader: reserved bit set")
	}

	num, err := utf8.Decode(br)
	if err != nil {
		return Info{}, err
	}
	if hasFixedBlockSize {
		// Frame number: 31 bits max.
		if num >= 1<<31 {
			return Info{}, ferr.DataFormatf("frame.parseHeader: frame number %d exceeds 31 bits", num)
		}
	} else if num >= 1<<36 {
		// Sample number: 36 bits max. utf8.Decode's widest encoding already
		// tops out exactly at 2^36-1, so this can only trip on a future
		// encoding change; kept as the explicit bound spec calls for.
		return Info{}, ferr.DataFormatf("frame.parseHeader: sample number %d exceeds 36 bits", num)
	}

	blockSize, err := resolveBlockSize(br, blockSizeCode)
	if err != nil {
		return Info{}, err
	}

	sampleRate, err := resolveSampleRate(br, sampleRateCode, streamRate)
	if err != nil {
		return Info{}, err
	}

	gotCRC := br.Crc8()
	wantCRC, err := br.ReadUint(8)
	if err != nil {
		return Info{}, wrap(err, "frame.parseHeader: crc-8")
	}
	if uint8(wantCRC) != gotCRC {
		return Info{}, ferr.CrcMismatchf("frame.parseHeader: header crc-8 got 0x%02X want 0x%02X", gotCRC, uint8(wantCRC))
	}

	return Info{
		HasFixedBlockSize: hasFixedBlockSize,
		BlockSize:         blockSize,
		SampleRate:        sampleRate,
		Channels:          channels,
		BitsPerSample:     bps,
		Num:               num,
	}, nil
}

func resolveBitsPerSample(code uint32, streamBPS uint8) (uint8, error) {
	switch code {
	case 0:
		return streamBPS, nil
	case 1:
		return 8, nil
	case 2:
		return 12, nil
	case 4:
		return 16, nil
	case 5:
		return 20, nil
	case 6:
		return 24, nil
	case 3, 7:
		return 0, ferr.DataFormatf("frame.parseHeader: reserved bits-per-sample code %d", code)
	default:
		return 0, ferr.DataFormatf("frame.parseHeader: invalid bits-per-sample code %d", code)
	}
}

func resolveBlockSize(br *bits.Reader, code uint32) (uint32, error) {
	switch {
	case code == 0:
		return 0, ferr.DataFormatf("frame.parseHeader: reserved block size code 0")
	case code == 1:
		return 192, nil
	case code >= 2 && code <= 5:
		return 576 << (code - 2), nil
	case code == 6:
		v, err := br.ReadUint(8)
		if err != nil {
			return 0, wrap(err, "frame.parseHeader: 8-bit block size")
		}
		return v + 1, nil
	case code == 7:
		v, err := br.ReadUint(16)
		if err != nil {
			return 0, wrap(err, "frame.parseHeader: 16-bit block size")
		}
		return v + 1, nil
	case code >= 8 && code <= 15:
		return 256 << (code - 8), nil
	default:
		return 0, ferr.DataFormatf("frame.parseHeader: invalid block size code %d", code)
	}
}

func resolveSampleRate(br *bits.Reader, code uint32, streamRate uint32) (uint32, error) {
	switch code {
	case 0:
		return streamRate, nil
	case 1:
		return 88200, nil
	case 2:
		return 176400, nil
	case 3:
		return 192000, nil
	case 4:
		return 8000, nil
	case 5:
		return 16000, nil
	case 6:
		return 22050, nil
	case 7:
		return 24000, nil
	case 8:
		return 32000, nil
	case 9:
		return 44100, nil
	case 10:
		return 48000, nil
	case 11:
		return 96000, nil
	case 12:
		v, err := br.ReadUint(8)
		if err != nil {
			return 0, wrap(err, "frame.parseHeader: 8-bit sample rate")
		}
		return v * 1000, nil
	case 13:
		v, err := br.ReadUint(16)
		if err != nil {
			return 0, wrap(err, "frame.parseHeader: 16-bit sample rate")
		}
		return v, nil
	case 14:
		v, err := br.ReadUint(16)
		if err != nil {
			return 0, wrap(err, "frame.parseHeader: 16-bit sample rate (tens)")
		}
		return v * 10, nil
	case 15:
		return 0, ferr.DataFormatf("frame.parseHeader: reserved sample rate code 15")
	default:
		return 0, ferr.DataFormatf("frame.parseHeader: invalid sample rate code %d", code)
	}
}
