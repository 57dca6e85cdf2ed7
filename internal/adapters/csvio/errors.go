package csvio

import "errors"

// Structural errors. Any of them aborts a run.
var (
	ErrMissingColumn = errors.New("missing required column")
	ErrEmptyFile     = errors.New("empty input file")
	ErrUnreadable    = errors.New("unreadable input file")
	ErrEncoding      = errors.New("unsupported encoding")
	ErrMalformedRow  = errors.New("malformed row")
)
