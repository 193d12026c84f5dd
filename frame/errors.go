package frame

import (
	"io"

	"github.com/mycophonic/flac/internal/ferr"
)

// wrap turns a bare io.EOF/io.ErrUnexpectedEOF from internal/bits into an
// UnexpectedEof -- used everywhere in a frame's body where running out of
// data can no longer mean a clean end of stream, since at least the sync
// code has already been consumed.
func wrap(err error, where string) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return ferr.UnexpectedEoff("%s: %v", where, err)
	}
	return err
}
