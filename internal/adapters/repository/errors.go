package repository

import "errors"

// Sentinel kinds for sink errors.
var (
	ErrNoDatabase = errors.New("database not configured")
	ErrLoad       = errors.New("load failed")
)
