// Package flac decodes FLAC (Free Lossless Audio Codec) bitstreams to
// bit-exact integer PCM.
//
// A FLAC stream opens with a 4-byte "fLaC" signature, followed by one or
// more metadata blocks -- the first of which must be STREAMINFO -- and
// then one or more audio frames. This package fully parses STREAMINFO
// (see the meta package) and skips every other metadata block by length;
// parsing PADDING, APPLICATION, SEEKTABLE, VORBIS_COMMENT, CUESHEET or
// PICTURE bodies, FLAC encoding, seek-table based seeking, and whole-
// stream MD5 verification are all out of scope (md5sum.Hash is provided
// for a caller that wants to verify StreamInfo.MD5Sum itself).
//
//	ref: https://www.xiph.org/flac/format.html#stream
package flac

import (
	"io"
	"os"

	"github.com/mycophonic/flac/frame"
	"github.com/mycophonic/flac/internal/bits"
	"github.com/mycophonic/flac/internal/ferr"
	"github.com/mycophonic/flac/meta"
	"github.com/mycophonic/flac/source"
)

// scratchLen is the length of each of a Stream's two int64 scratch
// buffers, sized to the largest legal block size so every frame, however
// it's coded, decodes without a per-frame allocation.
const scratchLen = 65536

// flacSignature marks the beginning of a FLAC stream.
var flacSignature = [4]byte{'f', 'L', 'a', 'C'}

// Stream decodes a single FLAC bitstream: its STREAMINFO metadata block,
// then, one at a time, its audio frames.
//
// A Stream owns its bit reader and scratch buffers exclusively; it is not
// safe for concurrent use. ReadFrame guards against reentrancy so a
// stray concurrent call fails fast with an IllegalState error instead of
// corrupting buffered state.
type Stream struct {
	// Info describes the stream-wide parameters every frame is checked
	// against: block size and frame size bounds, sample rate, channel
	// count, bit depth and total sample count.
	Info *meta.StreamInfo

	br     *bits.Reader
	closer io.Closer

	scratch0 []int64
	scratch1 []int64

	samplesDecoded uint64
	decoding       bool
}

// New constructs a Stream over src, reading and validating the FLAC
// signature and the STREAMINFO metadata block. Any subsequent metadata
// blocks are skipped by length without being parsed.
func New(src source.ByteSource) (*Stream, error) {
	br := bits.NewReader(src)
	s := &Stream{
		br:       br,
		scratch0: make([]int64, scratchLen),
		scratch1: make([]int64, scratchLen),
	}

	var sig [4]byte
	if err := br.ReadFully(sig[:]); err != nil {
		return nil, err
	}
	if sig != flacSignature {
		return nil, ferr.DataFormatf("flac.New: invalid signature %q, want %q", sig[:], flacSignature[:])
	}

	block, err := meta.New(br)
	if err != nil {
		return nil, err
	}
	if block.StreamInfo == nil {
		return nil, ferr.DataFormatf("flac.New: first metadata block has type %s, want stream info", block.Type)
	}
	s.Info = block.StreamInfo

	for !block.IsLast {
		if block, err = meta.New(br); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Open opens path and constructs a Stream over its contents. The
// returned Stream's Close method closes the underlying file.
func Open(path string) (*Stream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ferr.IoFailuref(err)
	}
	s, err := New(source.NewFileSource(f))
	if err != nil {
		f.Close()
		return nil, err
	}
	s.closer = f
	return s, nil
}

// NewReader constructs a Stream over a forward-only io.Reader. The
// reader does not support seeking, so metadata blocks this package
// skips are discarded by reading and discarding their bytes rather than
// by a seek.
func NewReader(r io.Reader) (*Stream, error) {
	return New(source.NewStreamSource(r))
}

// NewMemory constructs a Stream over an in-memory FLAC image.
func NewMemory(data []byte) (*Stream, error) {
	return New(source.NewMemorySource(data))
}

// Close releases the Stream's underlying file, if it was opened with
// Open. It is a no-op for Streams constructed with New, NewReader or
// NewMemory, whose byte source lifetime the caller owns.
func (s *Stream) Close() error {
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}

// ReadFrame decodes the next audio frame, writing its samples planar
// into out[ch][outOffset : outOffset+blockSize] for each output channel;
// out must have at least Info.NChannels rows, each long enough to hold
// outOffset plus the frame's block size. The returned *frame.Frame
// describes the decoded frame's header and its size in bytes.
//
// A clean io.EOF, unwrapped, signals the end of the stream reached
// exactly at a frame boundary. Any other error -- DataFormat,
// CrcMismatch, UnexpectedEof -- aborts the current frame; no partial
// frame is exposed to the caller.
//
// Concurrent calls to ReadFrame on the same Stream are rejected with an
// IllegalState error: FLAC frames must be decoded one at a time, in
// order, through a single Stream.
func (s *Stream) ReadFrame(out [][]int32, outOffset int) (*frame.Frame, error) {
	if s.decoding {
		return nil, ferr.IllegalStatef("flac.Stream.ReadFrame: reentrant call")
	}
	s.decoding = true
	defer func() { s.decoding = false }()

	f, err := frame.Decode(s.br, s.Info.SampleRate, s.Info.BitsPerSample, out, outOffset, s.scratch0, s.scratch1)
	if err != nil {
		return nil, err
	}

	err = s.Info.CheckFrame(
		f.Channels.Count(), int(f.SampleRate), int(f.BitsPerSample), int(f.BlockSize),
		f.Size, s.samplesDecoded,
	)
	if err != nil {
		return nil, err
	}
	s.samplesDecoded += uint64(f.BlockSize)

	return f, nil
}

// Position reports the absolute byte offset of the Stream's read cursor
// in its underlying byte source.
func (s *Stream) Position() int64 {
	return s.br.Position()
}
