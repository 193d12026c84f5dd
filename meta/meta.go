// Package meta implements access to the metadata block chain that precedes
// audio frames in a FLAC stream.
//
// A FLAC stream opens with one or more metadata blocks, each a header
// (type, byte length, last-block flag) followed by a type-specific body.
// This package fully parses the StreamInfo block, since decoding frames is
// impossible without it, and otherwise only tracks and skips blocks by
// length: PADDING, APPLICATION, SEEKTABLE, VORBIS_COMMENT, CUESHEET and
// PICTURE bodies carry no information this decoder's frame-level contract
// needs.
//
//	ref: https://www.xiph.org/flac/format.html#metadata_block
package meta

import (
	"github.com/mycophonic/flac/internal/bits"
	"github.com/mycophonic/flac/internal/ferr"
)

// A Block contains the header of a metadata block and, for TypeStreamInfo,
// its parsed body.
type Block struct {
	Header
	// StreamInfo is non-nil only when Header.Type == TypeStreamInfo.
	StreamInfo *StreamInfo
}

// New reads and parses the next metadata block header from br, then parses
// its body if it's a StreamInfo block or skips it (by length) otherwise.
func New(br *bits.Reader) (*Block, error) {
	h, err := parseHeader(br)
	if err != nil {
		return nil, err
	}
	block := &Block{Header: h}
	if h.Type == TypeStreamInfo {
		si, err := parseStreamInfo(br, h.Length)
		if err != nil {
			return nil, err
		}
		block.StreamInfo = si
		return block, nil
	}
	if err := skip(br, h.Length); err != nil {
		return nil, err
	}
	return block, nil
}

// skip discards length bytes of a block body that this package does not
// otherwise interpret, seeking past them when br's source supports it and
// reading-and-discarding in bounded chunks otherwise.
func skip(br *bits.Reader, length int64) error {
	if length == 0 {
		return nil
	}
	if err := br.SeekTo(br.Position() + length); err == nil {
		return nil
	}
	var buf [4096]byte
	for length > 0 {
		n := int64(len(buf))
		if length < n {
			n = length
		}
		if err := br.ReadFully(buf[:n]); err != nil {
			return err
		}
		length -= n
	}
	return nil
}

// Header describes the type and length of a metadata block.
//
//	ref: https://www.xiph.org/flac/format.html#metadata_block_header
type Header struct {
	// Type of the block body.
	Type Type
	// Length of the block body in bytes.
	Length int64
	// IsLast reports whether this is the final metadata block before the
	// first audio frame.
	IsLast bool
}

// parseHeader reads the 4-byte (32-bit) metadata block header: 1 bit
// IsLast, 7 bits Type, 24 bits Length.
func parseHeader(br *bits.Reader) (Header, error) {
	v, err := br.ReadUint(32)
	if err != nil {
		return Header{}, wrapTruncated(err, "meta.parseHeader")
	}
	return Header{
		IsLast: v&0x80000000 != 0,
		Type:   Type((v >> 24) & 0x7F),
		Length: int64(v & 0xFFFFFF),
	}, nil
}

func wrapTruncated(err error, where string) error {
	switch err {
	case nil:
		return nil
	default:
		if fe, ok := err.(*ferr.Error); ok {
			return fe
		}
		return ferr.UnexpectedEoff("%s: %v", where, err)
	}
}

// Type identifies the kind of body a metadata block carries.
type Type uint8

// Metadata block body types.
const (
	TypeStreamInfo    Type = 0
	TypePadding       Type = 1
	TypeApplication   Type = 2
	TypeSeekTable     Type = 3
	TypeVorbisComment Type = 4
	TypeCueSheet      Type = 5
	TypePicture       Type = 6
)

func (t Type) String() string {
	switch t {
	case TypeStreamInfo:
		return "stream info"
	case TypePadding:
		return "padding"
	case TypeApplication:
		return "application"
	case TypeSeekTable:
		return "seek table"
	case TypeVorbisComment:
		return "vorbis comment"
	case TypeCueSheet:
		return "cue sheet"
	case TypePicture:
		return "picture"
	default:
		return "reserved"
	}
}

