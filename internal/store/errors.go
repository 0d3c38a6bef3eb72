package store

import "errors"

// Sentinel errors returned by store accessors, grouped together in one
// file rather than scattered per call site.
var (
	ErrBlockNotFound       = errors.New("store: block not found")
	ErrBlockExists         = errors.New("store: block already exists")
	ErrAccountNotFound     = errors.New("store: account not found")
	ErrPendingNotFound     = errors.New("store: pending entry not found")
	ErrFrontierNotFound    = errors.New("store: frontier not found")
	ErrConfirmationMissing = errors.New("store: confirmation height not found")
	ErrUnsupportedVersion  = errors.New("store: no upgrade path from this schema version")
	ErrDowngradeRefused    = errors.New("store: refusing to open a newer schema with an older build")
)
