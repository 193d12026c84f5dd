package md5sum

import (
	"crypto/md5"
	"testing"
)

func TestWriteMatchesManualInterleave(t *testing.T) {
	h, err := New(16, 2)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	left := []int32{1, -2, 3}
	right := []int32{4, 5, -6}
	if err := h.Write([][]int32{left, right}, 0, len(left)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got := h.Sum()

	want := md5.New()
	for i := range left {
		want.Write(le16(left[i]))
		want.Write(le16(right[i]))
	}
	var wantSum [16]byte
	copy(wantSum[:], want.Sum(nil))
	if got != wantSum {
		t.Fatalf("Sum = %x, want %x", got, wantSum)
	}
}

func TestNewRejectsUnsupportedDepth(t *testing.T) {
	if _, err := New(20, 2); err == nil {
		t.Fatal("New with 20-bit depth: want error")
	}
}

func TestNewRejectsBadChannelCount(t *testing.T) {
	if _, err := New(16, 0); err == nil {
		t.Fatal("New with 0 channels: want error")
	}
	if _, err := New(16, 9); err == nil {
		t.Fatal("New with 9 channels: want error")
	}
}

func TestWriteRejectsChannelCountMismatch(t *testing.T) {
	h, err := New(16, 2)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := h.Write([][]int32{{1, 2}}, 0, 2); err == nil {
		t.Fatal("Write with wrong channel count: want error")
	}
}

func le16(v int32) []byte {
	u := uint32(v)
	return []byte{byte(u), byte(u >> 8)}
}
