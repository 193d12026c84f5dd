package flac

import "github.com/mycophonic/flac/internal/ferr"

// Kind classifies the ways a FLAC bitstream or API call can fail.
type Kind = ferr.Kind

// Error kinds. CleanEof is never wrapped in an Error; it is surfaced as a
// bare io.EOF, matching the convention of this package's ReadFrame entry
// point.
const (
	DataFormat      = ferr.DataFormat
	CrcMismatch     = ferr.CrcMismatch
	UnexpectedEof   = ferr.UnexpectedEof
	IllegalArgument = ferr.IllegalArgument
	IllegalState    = ferr.IllegalState
	IoFailure       = ferr.IoFailure
)

// Error wraps an underlying cause with the Kind of failure it represents.
// Use errors.As to recover the Kind at a call site that needs to
// distinguish, say, CrcMismatch from DataFormat.
type Error = ferr.Error

// DataFormatf builds a DataFormat error.
func DataFormatf(format string, args ...any) error { return ferr.DataFormatf(format, args...) }

// CrcMismatchf builds a CrcMismatch error.
func CrcMismatchf(format string, args ...any) error { return ferr.CrcMismatchf(format, args...) }

// UnexpectedEoff builds an UnexpectedEof error.
func UnexpectedEoff(format string, args ...any) error { return ferr.UnexpectedEoff(format, args...) }

// IllegalArgumentf builds an IllegalArgument error.
func IllegalArgumentf(format string, args ...any) error {
	return ferr.IllegalArgumentf(format, args...)
}

// IllegalStatef builds an IllegalState error.
func IllegalStatef(format string, args ...any) error { return ferr.IllegalStatef(format, args...) }

// IoFailuref builds an IoFailure error wrapping an underlying I/O error.
func IoFailuref(err error) error { return ferr.IoFailuref(err) }
