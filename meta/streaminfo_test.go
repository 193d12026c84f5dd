package meta

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/mycophonic/flac/internal/ferr"
)

func sampleStreamInfo() *StreamInfo {
	si := &StreamInfo{
		BlockSizeMin:  4096,
		BlockSizeMax:  4096,
		FrameSizeMin:  1000,
		FrameSizeMax:  5000,
		SampleRate:    44100,
		NChannels:     2,
		BitsPerSample: 16,
		NSamples:      123456789,
	}
	for i := range si.MD5Sum {
		si.MD5Sum[i] = byte(i * 7)
	}
	return si
}

func TestStreamInfoSerializeParseRoundTrip(t *testing.T) {
	want := sampleStreamInfo()
	body := want.Serialize()
	if len(body) != streamInfoLength {
		t.Fatalf("Serialize produced %d bytes, want %d", len(body), streamInfoLength)
	}

	got, err := parseStreamInfo(newReader(body), int64(len(body)))
	if err != nil {
		t.Fatalf("parseStreamInfo: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestStreamInfoValidateRejectsBadBlockSize(t *testing.T) {
	si := sampleStreamInfo()
	si.BlockSizeMin = 15
	if kindOf(si.Validate()) != ferr.DataFormat {
		t.Fatal("Validate with BlockSizeMin 15: want DataFormat")
	}

	si = sampleStreamInfo()
	si.BlockSizeMax = si.BlockSizeMin - 1
	if kindOf(si.Validate()) != ferr.DataFormat {
		t.Fatal("Validate with max < min: want DataFormat")
	}
}

func TestStreamInfoValidateRejectsBadSampleRate(t *testing.T) {
	for _, rate := range []uint32{0, 655351} {
		si := sampleStreamInfo()
		si.SampleRate = rate
		if kindOf(si.Validate()) != ferr.DataFormat {
			t.Errorf("Validate with sample rate %d: want DataFormat", rate)
		}
	}
}

func TestStreamInfoValidateRejectsBadFrameSize(t *testing.T) {
	si := sampleStreamInfo()
	si.FrameSizeMin = si.FrameSizeMax + 1
	if kindOf(si.Validate()) != ferr.DataFormat {
		t.Fatal("Validate with FrameSizeMin > FrameSizeMax: want DataFormat")
	}
}

func TestCheckFrameAcceptsMatchingFrame(t *testing.T) {
	si := sampleStreamInfo()
	err := si.CheckFrame(2, 44100, 16, 4096, 2000, 0)
	if err != nil {
		t.Fatalf("CheckFrame: %v", err)
	}
}

func TestCheckFrameRejectsChannelMismatch(t *testing.T) {
	si := sampleStreamInfo()
	if kindOf(si.CheckFrame(1, 44100, 16, 4096, 2000, 0)) != ferr.DataFormat {
		t.Fatal("CheckFrame with wrong channel count: want DataFormat")
	}
}

func TestCheckFrameAllowsShortFinalFrame(t *testing.T) {
	si := sampleStreamInfo()
	si.NSamples = 100
	// A final frame shorter than BlockSizeMin is legitimate when it lands
	// exactly on the stream's declared sample total.
	err := si.CheckFrame(2, 44100, 16, 100, 2000, 0)
	if err != nil {
		t.Fatalf("CheckFrame for exact-length final frame: %v", err)
	}
}

func TestCheckFrameRejectsShortNonFinalFrame(t *testing.T) {
	si := sampleStreamInfo()
	si.NSamples = 1000
	if kindOf(si.CheckFrame(2, 44100, 16, 100, 2000, 0)) != ferr.DataFormat {
		t.Fatal("CheckFrame for short frame not at stream end: want DataFormat")
	}
}

func TestCheckFrameRejectsOverrunPastTotalSamples(t *testing.T) {
	si := sampleStreamInfo()
	si.NSamples = 4096
	if kindOf(si.CheckFrame(2, 44100, 16, 4096, 2000, 100)) != ferr.DataFormat {
		t.Fatal("CheckFrame decoding past NSamples: want DataFormat")
	}
}

func kindOf(err error) ferr.Kind {
	fe, ok := err.(*ferr.Error)
	if !ok {
		return -1
	}
	return fe.Kind
}
