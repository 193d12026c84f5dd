package frame

import (
	"github.com/mycophonic/flac/internal/bits"
	"github.com/mycophonic/flac/internal/ferr"
)

// predictorType identifies how a subframe's samples are reconstructed.
type predictorType int

const (
	predConstant predictorType = iota
	predVerbatim
	predFixed
	predLPC
)

// fixedCoeffs holds the four built-in fixed-predictor coefficient sets.
// Order 0 has none: its "prediction" is always zero, so the residual is the
// sample itself.
var fixedCoeffs = [5][]int32{
	0: {},
	1: {1},
	2: {2, -1},
	3: {3, -3, 1},
	4: {4, -6, 4, -1},
}

// maxLPCAccumulator bounds the intermediate LPC accumulator to a signed
// 54-bit range. A conforming encoder never needs more; exceeding it means
// the coefficients or warm-up samples are corrupt.
const maxLPCAccumulator = int64(1) << 53

// subHeader describes a subframe's predictor before any samples are read.
type subHeader struct {
	pred   predictorType
	order  int
	wasted uint
}

// parseSubHeader reads the 8-bit subframe header: 1 zero padding bit, a
// 6-bit predictor/order code, and the wasted-bits-per-sample unary flag.
func parseSubHeader(br *bits.Reader) (subHeader, error) {
	padding, err := br.ReadUint(1)
	if err != nil {
		return subHeader{}, wrap(err, "frame.parseSubHeader: padding bit")
	}
	if padding != 0 {
		return subHeader{}, ferr.DataFormatf("frame.parseSubHeader: padding bit set")
	}

	code, err := br.ReadUint(6)
	if err != nil {
		return subHeader{}, wrap(err, "frame.parseSubHeader: predictor code")
	}
	h := subHeader{}
	switch {
	case code == 0:
		h.pred = predConstant
	case code == 1:
		h.pred = predVerbatim
	case code >= 8 && code <= 12:
		h.pred = predFixed
		h.order = int(code - 8)
	case code >= 32:
		h.pred = predLPC
		h.order = int(code-32) + 1
	default:
		return subHeader{}, ferr.DataFormatf("frame.parseSubHeader: reserved predictor code %d", code)
	}

	hasWasted, err := br.ReadUint(1)
	if err != nil {
		return subHeader{}, wrap(err, "frame.parseSubHeader: wasted-bits flag")
	}
	if hasWasted != 0 {
		u, err := br.ReadUnary()
		if err != nil {
			return subHeader{}, wrap(err, "frame.parseSubHeader: wasted-bits unary")
		}
		h.wasted = uint(u) + 1
	}
	return h, nil
}

// decodeSubframe reads one channel's subframe into out, a caller-owned
// int64 scratch slice of length blockSize (the frame assembler reuses the
// same two buffers across every subframe of every frame it decodes). bps
// is this subframe's sample depth before any wasted-bits adjustment (the
// frame assembler already added the +1 a side channel needs).
func decodeSubframe(br *bits.Reader, bps uint8, out []int64) error {
	h, err := parseSubHeader(br)
	if err != nil {
		return err
	}
	effectiveBps := int(bps) - int(h.wasted)
	if effectiveBps <= 0 {
		return ferr.DataFormatf("frame.decodeSubframe: wasted bits %d leaves no sample bits (depth %d)", h.wasted, bps)
	}

	switch h.pred {
	case predConstant:
		v, err := br.ReadSignedInt(uint(effectiveBps))
		if err != nil {
			return wrap(err, "frame.decodeSubframe: constant value")
		}
		for i := range out {
			out[i] = int64(v)
		}
	case predVerbatim:
		for i := range out {
			v, err := br.ReadSignedInt(uint(effectiveBps))
			if err != nil {
				return wrap(err, "frame.decodeSubframe: verbatim sample")
			}
			out[i] = int64(v)
		}
	case predFixed:
		if err := decodeFixed(br, h.order, effectiveBps, out); err != nil {
			return err
		}
	case predLPC:
		if err := decodeLPC(br, h.order, effectiveBps, out); err != nil {
			return err
		}
	}

	if h.wasted > 0 {
		for i := range out {
			out[i] <<= h.wasted
		}
	}
	return nil
}

func readWarmup(br *bits.Reader, order, bps int, out []int64) error {
	for i := 0; i < order; i++ {
		v, err := br.ReadSignedInt(uint(bps))
		if err != nil {
			return wrap(err, "frame.decodeSubframe: warm-up sample")
		}
		out[i] = int64(v)
	}
	return nil
}

func decodeFixed(br *bits.Reader, order, bps int, out []int64) error {
	if err := readWarmup(br, order, bps, out); err != nil {
		return err
	}
	residual := make([]int32, len(out)-order)
	if err := decodeResidual(br, order, len(out), residual); err != nil {
		return err
	}
	coeffs := fixedCoeffs[order]
	for i := order; i < len(out); i++ {
		var predicted int64
		for j, c := range coeffs {
			predicted += int64(c) * out[i-1-j]
		}
		out[i] = int64(residual[i-order]) + predicted
	}
	return nil
}

func decodeLPC(br *bits.Reader, order, bps int, out []int64) error {
	if err := readWarmup(br, order, bps, out); err != nil {
		return err
	}

	precisionCode, err := br.ReadUint(4)
	if err != nil {
		return wrap(err, "frame.decodeLPC: precision")
	}
	if precisionCode == 0xF {
		return ferr.DataFormatf("frame.decodeLPC: reserved precision code")
	}
	precision := uint(precisionCode) + 1

	shift, err := br.ReadSignedInt(5)
	if err != nil {
		return wrap(err, "frame.decodeLPC: shift")
	}
	if shift < 0 {
		return ferr.DataFormatf("frame.decodeLPC: negative shift %d", shift)
	}

	coeffs := make([]int32, order)
	for i := range coeffs {
		v, err := br.ReadSignedInt(precision)
		if err != nil {
			return wrap(err, "frame.decodeLPC: coefficient")
		}
		coeffs[i] = v
	}

	residual := make([]int32, len(out)-order)
	if err := decodeResidual(br, order, len(out), residual); err != nil {
		return err
	}

	for i := order; i < len(out); i++ {
		var acc int64
		for j, c := range coeffs {
			acc += int64(c) * out[i-1-j]
		}
		if acc >= maxLPCAccumulator || acc < -maxLPCAccumulator {
			return ferr.DataFormatf("frame.decodeLPC: accumulator overflowed 54-bit range at sample %d", i)
		}
		out[i] = int64(residual[i-order]) + acc>>uint(shift)
	}
	return nil
}

// decodeResidual reads a partitioned-Rice-coded residual of
// len(out)+order total predicted samples (order warm-up samples already
// consumed) into out.
func decodeResidual(br *bits.Reader, order, blockSize int, out []int32) error {
	method, err := br.ReadUint(2)
	if err != nil {
		return wrap(err, "frame.decodeResidual: coding method")
	}
	var paramSize uint
	switch method {
	case 0:
		paramSize = 4
	case 1:
		paramSize = 5
	default:
		return ferr.DataFormatf("frame.decodeResidual: reserved coding method %d", method)
	}

	partOrderField, err := br.ReadUint(4)
	if err != nil {
		return wrap(err, "frame.decodeResidual: partition order")
	}
	partOrder := int(partOrderField)
	numParts := 1 << partOrder
	if blockSize%numParts != 0 {
		return ferr.DataFormatf("frame.decodeResidual: block size %d not divisible by %d partitions", blockSize, numParts)
	}
	partSize := blockSize / numParts
	if partSize <= order {
		return ferr.DataFormatf("frame.decodeResidual: first partition size %d too small for predictor order %d", partSize, order)
	}

	escapeCode := uint32(1)<<paramSize - 1
	pos := 0
	for p := 0; p < numParts; p++ {
		n := partSize
		if p == 0 {
			n -= order
		}
		param, err := br.ReadUint(paramSize)
		if err != nil {
			return wrap(err, "frame.decodeResidual: partition rice parameter")
		}
		if param == escapeCode {
			rawBits, err := br.ReadUint(5)
			if err != nil {
				return wrap(err, "frame.decodeResidual: escape raw bit width")
			}
			if rawBits == 0 {
				for i := 0; i < n; i++ {
					out[pos] = 0
					pos++
				}
				continue
			}
			for i := 0; i < n; i++ {
				v, err := br.ReadSignedInt(uint(rawBits))
				if err != nil {
					return wrap(err, "frame.decodeResidual: escape raw sample")
				}
				out[pos] = v
				pos++
			}
			continue
		}
		if err := br.ReadRiceInts(uint(param), out, pos, n); err != nil {
			return wrap(err, "frame.decodeResidual: rice residual")
		}
		pos += n
	}
	return nil
}
