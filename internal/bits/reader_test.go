package bits_test

import (
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/mycophonic/flac/internal/bits"
	"github.com/mycophonic/flac/source"
)

func TestReadUint(t *testing.T) {
	// 0b10110_0110101010101_1 packed MSB-first across 3 bytes.
	data := []byte{0b10110011, 0b01010101, 0b01100000}
	r := bits.NewReader(source.NewMemorySource(data))

	v, err := r.ReadUint(5)
	if err != nil {
		t.Fatalf("ReadUint(5): %v", err)
	}
	if want := uint32(0b10110); v != want {
		t.Fatalf("ReadUint(5) = %05b, want %05b", v, want)
	}

	v, err = r.ReadUint(13)
	if err != nil {
		t.Fatalf("ReadUint(13): %v", err)
	}
	if want := uint32(0b0110101010101); v != want {
		t.Fatalf("ReadUint(13) = %013b, want %013b", v, want)
	}

	v, err = r.ReadUint(1)
	if err != nil {
		t.Fatalf("ReadUint(1): %v", err)
	}
	if v != 1 {
		t.Fatalf("ReadUint(1) = %d, want 1", v)
	}
}

func TestReadUintRejectsOutOfRangeWidth(t *testing.T) {
	r := bits.NewReader(source.NewMemorySource([]byte{0, 0, 0, 0}))
	if _, err := r.ReadUint(0); err == nil {
		t.Fatal("ReadUint(0): want error")
	}
	if _, err := r.ReadUint(33); err == nil {
		t.Fatal("ReadUint(33): want error")
	}
}

func TestReadSignedIntSignExtends(t *testing.T) {
	// 4-bit two's complement 0b1110 == -2.
	r := bits.NewReader(source.NewMemorySource([]byte{0b11100000}))
	v, err := r.ReadSignedInt(4)
	if err != nil {
		t.Fatalf("ReadSignedInt: %v", err)
	}
	if v != -2 {
		t.Fatalf("ReadSignedInt(4) = %d, want -2", v)
	}
}

func TestReadUnary(t *testing.T) {
	// 0b00001111 0b11111111 -> 4 zeros then a 1; every bit after it is a 1.
	r := bits.NewReader(source.NewMemorySource([]byte{0b00001111, 0b11111111}))
	q, err := r.ReadUnary()
	if err != nil {
		t.Fatalf("ReadUnary: %v", err)
	}
	if q != 4 {
		t.Fatalf("ReadUnary = %d, want 4", q)
	}
}

func TestReadByteUnalignedFails(t *testing.T) {
	r := bits.NewReader(source.NewMemorySource([]byte{0xFF, 0xFF}))
	if _, err := r.ReadUint(3); err != nil {
		t.Fatalf("ReadUint(3): %v", err)
	}
	if _, err := r.ReadByte(); err == nil {
		t.Fatal("ReadByte while unaligned: want error")
	}
}

func TestUnexpectedEofMidStructure(t *testing.T) {
	// Half of the only byte is consumed first, so the second read starts
	// with 4 bits buffered and runs out partway through.
	r := bits.NewReader(source.NewMemorySource([]byte{0xFF}))
	if _, err := r.ReadUint(4); err != nil {
		t.Fatalf("ReadUint(4): %v", err)
	}
	_, err := r.ReadUint(8)
	if err != io.ErrUnexpectedEOF {
		t.Fatalf("ReadUint past end = %v, want io.ErrUnexpectedEOF", err)
	}
}

func TestCleanEofOnEmptySource(t *testing.T) {
	r := bits.NewReader(source.NewMemorySource(nil))
	_, err := r.ReadUint(8)
	if err != io.EOF {
		t.Fatalf("ReadUint on empty source = %v, want io.EOF", err)
	}
}

func TestCrc8AndCrc16Deterministic(t *testing.T) {
	data := []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08}
	r := bits.NewReader(source.NewMemorySource(data))
	r.ResetCrcs()
	if err := r.ReadFully(make([]byte, len(data))); err != nil {
		t.Fatalf("ReadFully: %v", err)
	}
	// Consuming the same bytes through a second, fresh reader must yield the
	// same running CRC-8 and CRC-16.
	r2 := bits.NewReader(source.NewMemorySource(data))
	r2.ResetCrcs()
	if err := r2.ReadFully(make([]byte, len(data))); err != nil {
		t.Fatalf("ReadFully: %v", err)
	}
	if r.Crc8() != r2.Crc8() {
		t.Fatalf("Crc8 not deterministic: %02X vs %02X", r.Crc8(), r2.Crc8())
	}
	if r.Crc16() != r2.Crc16() {
		t.Fatalf("Crc16 not deterministic: %04X vs %04X", r.Crc16(), r2.Crc16())
	}
}

func TestResetCrcsCoversOnlyBytesAfterReset(t *testing.T) {
	data := []byte{0xAA, 0x01, 0x02, 0x03}
	r := bits.NewReader(source.NewMemorySource(data))
	if err := r.ReadFully(make([]byte, 1)); err != nil {
		t.Fatalf("ReadFully: %v", err)
	}
	r.ResetCrcs()
	if err := r.ReadFully(make([]byte, 3)); err != nil {
		t.Fatalf("ReadFully: %v", err)
	}
	got := r.Crc8()

	r2 := bits.NewReader(source.NewMemorySource(data[1:]))
	r2.ResetCrcs()
	if err := r2.ReadFully(make([]byte, 3)); err != nil {
		t.Fatalf("ReadFully: %v", err)
	}
	want := r2.Crc8()
	if got != want {
		t.Fatalf("Crc8 leaked pre-reset byte: got %02X, want %02X", got, want)
	}
}

func TestSeekToResetsPosition(t *testing.T) {
	data := make([]byte, 32)
	for i := range data {
		data[i] = byte(i)
	}
	r := bits.NewReader(source.NewMemorySource(data))
	if err := r.ReadFully(make([]byte, 4)); err != nil {
		t.Fatalf("ReadFully: %v", err)
	}
	if err := r.SeekTo(16); err != nil {
		t.Fatalf("SeekTo: %v", err)
	}
	if got := r.Position(); got != 16 {
		t.Fatalf("Position after SeekTo = %d, want 16", got)
	}
	if got := r.BitPosition(); got != 0 {
		t.Fatalf("BitPosition after SeekTo = %d, want 0", got)
	}
	v, err := r.ReadByte()
	if err != nil {
		t.Fatalf("ReadByte: %v", err)
	}
	if v != 16 {
		t.Fatalf("byte after seek = %d, want 16", v)
	}
}

func TestReadRiceInts(t *testing.T) {
	// Rice-2 encode {-3, 0, 1} by hand: zigzag(-3)=5, zigzag(0)=0, zigzag(1)=2.
	// param=2: quotient/remainder of 5 is (1,1) -> "01" + "01" -> bits 0 1 0 1
	// Easiest to build these with readRiceIntSlow's inverse by packing unary+remainder directly.
	var bw bitWriter
	packRice(&bw, 2, 5) // zigzag(-3)
	packRice(&bw, 2, 0) // zigzag(0)
	packRice(&bw, 2, 2) // zigzag(1)
	r := bits.NewReader(source.NewMemorySource(bw.bytes()))

	out := make([]int32, 3)
	if err := r.ReadRiceInts(2, out, 0, 3); err != nil {
		t.Fatalf("ReadRiceInts: %v", err)
	}
	want := []int32{-3, 0, 1}
	if diff := cmp.Diff(want, out); diff != "" {
		t.Fatalf("ReadRiceInts mismatch (-want +got):\n%s", diff)
	}
}

// packRice writes one Rice-k code for a pre-zigzagged unsigned folded
// value: quotient unary zeros, a terminating 1, then k remainder bits.
func packRice(bw *bitWriter, k uint, folded uint32) {
	q := folded >> k
	for i := uint32(0); i < q; i++ {
		bw.writeBit(0)
	}
	bw.writeBit(1)
	for i := int(k) - 1; i >= 0; i-- {
		bw.writeBit(uint8((folded >> uint(i)) & 1))
	}
}

// bitWriter packs individual bits MSB-first into bytes, padding the final
// byte with zero bits, for synthesizing raw bitstream fixtures.
type bitWriter struct {
	buf     []byte
	cur     uint8
	curBits uint
}

func (w *bitWriter) writeBit(b uint8) {
	w.cur = w.cur<<1 | (b & 1)
	w.curBits++
	if w.curBits == 8 {
		w.buf = append(w.buf, w.cur)
		w.cur = 0
		w.curBits = 0
	}
}

func (w *bitWriter) bytes() []byte {
	if w.curBits == 0 {
		return w.buf
	}
	return append(append([]byte{}, w.buf...), w.cur<<(8-w.curBits))
}
