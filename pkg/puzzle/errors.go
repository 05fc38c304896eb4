package puzzle

import "errors"

var (
	// ErrInvalidArgument covers bad piece counts, grids, names and image paths.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrDecode means the source file exists but is not a decodable image.
	ErrDecode = errors.New("decode failure")
	// ErrIO means the output location or a tile could not be written.
	ErrIO = errors.New("io failure")
)
