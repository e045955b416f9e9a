package parser

import (
	"errors"
	"fmt"
	"io/fs"
)

var (
	// ErrResourceUnavailable is returned when an input file cannot be opened or read from disk.
	ErrResourceUnavailable = errors.New("resource unavailable")

	// ErrDecode is returned when the byte stream is not valid (compressed) UTF-8 text.
	ErrDecode = errors.New("decode error")

	// ErrEmptyNodeID is returned when a ground-truth line holds an empty member token.
	ErrEmptyNodeID = errors.New("empty node id")

	// ErrEmptyGroundTruth is returned when a ground-truth file registers no group.
	ErrEmptyGroundTruth = errors.New("empty ground truth")
)

// classifyReadError maps an error raised while reading a stream to
// ErrResourceUnavailable for file system failures and to ErrDecode for
// everything the decoders reject. Already classified errors pass through.
func classifyReadError(err error) error {
	for _, known := range []error{ErrResourceUnavailable, ErrDecode, ErrEmptyNodeID, ErrEmptyGroundTruth} {
		if errors.Is(err, known) {
			return err
		}
	}
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return fmt.Errorf("%w: %w", ErrResourceUnavailable, err)
	}
	return fmt.Errorf("%w: %w", ErrDecode, err)
}
