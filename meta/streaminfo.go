package meta

import (
	"github.com/mycophonic/flac/internal/bits"
	"github.com/mycophonic/flac/internal/ferr"
)

// streamInfoLength is the fixed byte length of a StreamInfo block body.
const streamInfoLength = 34

// StreamInfo holds the stream-wide parameters every frame must agree with:
// block size bounds, frame size bounds, sample rate, channel count, bit
// depth, total sample count and a whole-stream MD5 of the decoded audio.
//
//	ref: https://www.xiph.org/flac/format.html#metadata_block_streaminfo
type StreamInfo struct {
	BlockSizeMin  uint16
	BlockSizeMax  uint16
	FrameSizeMin  uint32 // 24-bit
	FrameSizeMax  uint32 // 24-bit
	SampleRate    uint32 // 20-bit
	NChannels     uint8  // 1..8
	BitsPerSample uint8  // 4..32
	NSamples      uint64 // 36-bit
	MD5Sum        [16]byte
}

// parseStreamInfo reads and validates a StreamInfo block body. length must
// equal streamInfoLength; FLAC encoders never emit any other size.
func parseStreamInfo(br *bits.Reader, length int64) (*StreamInfo, error) {
	if length != streamInfoLength {
		return nil, ferr.DataFormatf("meta.parseStreamInfo: body length %d, want %d", length, streamInfoLength)
	}
	si := new(StreamInfo)

	minBlock, err := br.ReadUint(16)
	if err != nil {
		return nil, wrapTruncated(err, "meta.parseStreamInfo")
	}
	maxBlock, err := br.ReadUint(16)
	if err != nil {
		return nil, wrapTruncated(err, "meta.parseStreamInfo")
	}
	minFrame, err := br.ReadUint(24)
	if err != nil {
		return nil, wrapTruncated(err, "meta.parseStreamInfo")
	}
	maxFrame, err := br.ReadUint(24)
	if err != nil {
		return nil, wrapTruncated(err, "meta.parseStreamInfo")
	}
	sampleRate, err := br.ReadUint(20)
	if err != nil {
		return nil, wrapTruncated(err, "meta.parseStreamInfo")
	}
	nChannels, err := br.ReadUint(3)
	if err != nil {
		return nil, wrapTruncated(err, "meta.parseStreamInfo")
	}
	bps, err := br.ReadUint(5)
	if err != nil {
		return nil, wrapTruncated(err, "meta.parseStreamInfo")
	}
	nSamplesHi, err := br.ReadUint(4)
	if err != nil {
		return nil, wrapTruncated(err, "meta.parseStreamInfo")
	}
	nSamplesLo, err := br.ReadUint(32)
	if err != nil {
		return nil, wrapTruncated(err, "meta.parseStreamInfo")
	}
	if err := br.ReadFully(si.MD5Sum[:]); err != nil {
		return nil, wrapTruncated(err, "meta.parseStreamInfo")
	}

	si.BlockSizeMin = uint16(minBlock)
	si.BlockSizeMax = uint16(maxBlock)
	si.FrameSizeMin = minFrame
	si.FrameSizeMax = maxFrame
	si.SampleRate = sampleRate
	si.NChannels = uint8(nChannels) + 1
	si.BitsPerSample = uint8(bps) + 1
	si.NSamples = uint64(nSamplesHi)<<32 | uint64(nSamplesLo)

	if err := si.Validate(); err != nil {
		return nil, err
	}
	return si, nil
}

// Validate checks the invariants a well-formed StreamInfo must satisfy.
func (si *StreamInfo) Validate() error {
	if si.BlockSizeMin < 16 {
		return ferr.DataFormatf("meta.StreamInfo: block size min %d below 16", si.BlockSizeMin)
	}
	if si.BlockSizeMax < si.BlockSizeMin {
		return ferr.DataFormatf("meta.StreamInfo: block size max %d below min %d", si.BlockSizeMax, si.BlockSizeMin)
	}
	if si.SampleRate == 0 || si.SampleRate > 655350 {
		return ferr.DataFormatf("meta.StreamInfo: sample rate %d out of range", si.SampleRate)
	}
	if si.NChannels == 0 || si.NChannels > 8 {
		return ferr.DataFormatf("meta.StreamInfo: channel count %d out of range", si.NChannels)
	}
	if si.BitsPerSample < 4 || si.BitsPerSample > 32 {
		return ferr.DataFormatf("meta.StreamInfo: bits per sample %d out of range", si.BitsPerSample)
	}
	if si.FrameSizeMax != 0 && si.FrameSizeMin > si.FrameSizeMax {
		return ferr.DataFormatf("meta.StreamInfo: frame size min %d above max %d", si.FrameSizeMin, si.FrameSizeMax)
	}
	return nil
}

// Serialize encodes si back into its 34-byte on-disk representation, for
// round-trip tests and for callers that want to re-emit a StreamInfo block
// (e.g. after re-deriving bounds following a seek-table rebuild).
func (si *StreamInfo) Serialize() []byte {
	buf := make([]byte, streamInfoLength)
	putUint16(buf[0:2], si.BlockSizeMin)
	putUint16(buf[2:4], si.BlockSizeMax)
	putUint24(buf[4:7], si.FrameSizeMin)
	putUint24(buf[7:10], si.FrameSizeMax)

	nChannels := uint64(si.NChannels - 1)
	bps := uint64(si.BitsPerSample - 1)
	var bitbuf uint64
	var bitlen uint
	push := func(v uint64, n uint) {
		bitbuf = bitbuf<<n | v
		bitlen += n
	}
	push(uint64(si.SampleRate), 20)
	push(nChannels, 3)
	push(bps, 5)
	push(si.NSamples>>32, 4)
	push(si.NSamples&0xFFFFFFFF, 32)
	// bitlen == 64 now; drain as 8 bytes into buf[10:18].
	for i := 0; i < 8; i++ {
		shift := uint(56 - 8*i)
		buf[10+i] = byte(bitbuf >> shift)
	}
	copy(buf[18:34], si.MD5Sum[:])
	return buf
}

func putUint16(b []byte, v uint16) {
	b[0] = byte(v >> 8)
	b[1] = byte(v)
}

func putUint24(b []byte, v uint32) {
	b[0] = byte(v >> 16)
	b[1] = byte(v >> 8)
	b[2] = byte(v)
}

// CheckFrame reports whether a decoded frame is consistent with this
// StreamInfo, returning a DataFormat error describing the first mismatch
// found. sampleRate and bitsPerSample are the frame's resolved values
// (frame.Info already substitutes STREAMINFO's own values for a header
// that deferred to it, so a mismatch here only fires when the frame
// explicitly declared a conflicting value). samplesBefore is the running
// count of inter-channel samples decoded prior to this frame, used to
// recognize a final, shorter-than-BlockSizeMin frame as legitimate rather
// than truncated.
func (si *StreamInfo) CheckFrame(nChannels, sampleRate, bitsPerSample, blockSize int, frameSize int64, samplesBefore uint64) error {
	if nChannels != int(si.NChannels) {
		return ferr.DataFormatf("meta.StreamInfo.CheckFrame: frame has %d channels, stream declares %d", nChannels, si.NChannels)
	}
	if uint32(sampleRate) != si.SampleRate {
		return ferr.DataFormatf("meta.StreamInfo.CheckFrame: frame has sample rate %d, stream declares %d", sampleRate, si.SampleRate)
	}
	if bitsPerSample != int(si.BitsPerSample) {
		return ferr.DataFormatf("meta.StreamInfo.CheckFrame: frame has %d bits per sample, stream declares %d", bitsPerSample, si.BitsPerSample)
	}
	if blockSize > int(si.BlockSizeMax) {
		return ferr.DataFormatf("meta.StreamInfo.CheckFrame: block size %d above max %d", blockSize, si.BlockSizeMax)
	}
	if blockSize < int(si.BlockSizeMin) {
		isFinal := si.NSamples != 0 && samplesBefore+uint64(blockSize) == si.NSamples
		if !isFinal {
			return ferr.DataFormatf("meta.StreamInfo.CheckFrame: block size %d below min %d", blockSize, si.BlockSizeMin)
		}
	}
	if si.NSamples != 0 && samplesBefore+uint64(blockSize) > si.NSamples {
		return ferr.DataFormatf("meta.StreamInfo.CheckFrame: decoded samples would exceed stream total %d", si.NSamples)
	}
	if si.FrameSizeMin != 0 && frameSize < int64(si.FrameSizeMin) {
		return ferr.DataFormatf("meta.StreamInfo.CheckFrame: frame size %d below min %d", frameSize, si.FrameSizeMin)
	}
	if si.FrameSizeMax != 0 && frameSize > int64(si.FrameSizeMax) {
		return ferr.DataFormatf("meta.StreamInfo.CheckFrame: frame size %d above max %d", frameSize, si.FrameSizeMax)
	}
	return nil
}
