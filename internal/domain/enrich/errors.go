package enrich

import "errors"

// ErrRejected wraps the reason a raw record was dropped.
var ErrRejected = errors.New("record rejected")
