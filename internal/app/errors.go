package service

import "errors"

// Run errors. All of them abort the run before anything is committed.
var (
	ErrNoValidRecords = errors.New("no valid records after enrichment")
	ErrStaging        = errors.New("staging failed")
	ErrCommit         = errors.New("commit failed")
)
