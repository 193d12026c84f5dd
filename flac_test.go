package flac

import (
	"io"
	"testing"

	"github.com/mycophonic/flac/internal/ferr"
	"github.com/mycophonic/flac/meta"
)

func kindOf(err error) ferr.Kind {
	fe, ok := err.(*ferr.Error)
	if !ok {
		return -1
	}
	return fe.Kind
}

func validStreamInfoBody(t *testing.T) []byte {
	t.Helper()
	si := &meta.StreamInfo{
		BlockSizeMin:  4096,
		BlockSizeMax:  4096,
		SampleRate:    44100,
		NChannels:     1,
		BitsPerSample: 16,
		NSamples:      0,
	}
	return si.Serialize()
}

func minimalStream(t *testing.T) []byte {
	t.Helper()
	body := validStreamInfoBody(t)
	header := []byte{0x80, byte(len(body) >> 16), byte(len(body) >> 8), byte(len(body))}
	data := append([]byte("fLaC"), header...)
	data = append(data, body...)
	return data
}

func TestNewRejectsBadSignature(t *testing.T) {
	_, err := NewMemory([]byte("OggS"))
	if kindOf(err) != ferr.DataFormat {
		t.Fatalf("NewMemory with bad signature = %v, want DataFormat", err)
	}
}

func TestNewRejectsEmptySource(t *testing.T) {
	// The 4-byte signature is a fixed structure read via ReadFully, which
	// treats any shortfall -- even an entirely empty source -- as a
	// truncation rather than a legal end of stream; only a sync-code read
	// at a genuine frame boundary gets the bare io.EOF treatment.
	_, err := NewMemory(nil)
	if kindOf(err) != ferr.UnexpectedEof {
		t.Fatalf("NewMemory on empty source = %v, want UnexpectedEof", err)
	}
}

func TestNewTruncatedSignatureIsUnexpectedEof(t *testing.T) {
	_, err := NewMemory([]byte("fL"))
	if kindOf(err) != ferr.UnexpectedEof {
		t.Fatalf("NewMemory with 2-byte signature = %v, want UnexpectedEof", err)
	}
}

func TestNewParsesStreamInfoAndReachesEofOnFirstFrame(t *testing.T) {
	s, err := NewMemory(minimalStream(t))
	if err != nil {
		t.Fatalf("NewMemory: %v", err)
	}
	if s.Info.SampleRate != 44100 {
		t.Fatalf("Info.SampleRate = %d, want 44100", s.Info.SampleRate)
	}
	if s.Info.NChannels != 1 {
		t.Fatalf("Info.NChannels = %d, want 1", s.Info.NChannels)
	}

	out := [][]int32{make([]int32, 4096)}
	_, err = s.ReadFrame(out, 0)
	if err != io.EOF {
		t.Fatalf("ReadFrame past the last metadata block with no frames = %v, want io.EOF", err)
	}
}

func TestReadFrameRejectsReentrantCall(t *testing.T) {
	s, err := NewMemory(minimalStream(t))
	if err != nil {
		t.Fatalf("NewMemory: %v", err)
	}
	s.decoding = true
	out := [][]int32{make([]int32, 4096)}
	_, err = s.ReadFrame(out, 0)
	if kindOf(err) != ferr.IllegalState {
		t.Fatalf("ReadFrame while already decoding = %v, want IllegalState", err)
	}
}

func TestCloseIsNoopWithoutAFile(t *testing.T) {
	s, err := NewMemory(minimalStream(t))
	if err != nil {
		t.Fatalf("NewMemory: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close on a memory-backed Stream: %v", err)
	}
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open("/nonexistent/path/to/a.flac")
	if kindOf(err) != ferr.IoFailure {
		t.Fatalf("Open on a missing file = %v, want IoFailure", err)
	}
}
