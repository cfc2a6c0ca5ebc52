package internalerr

import "errors"

// Sentinel errors for common cases
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrInvalidConfig    = errors.New("invalid configuration")
	ErrParse            = errors.New("parse error")
)

// Chaining errors. ErrUnknownSelectionMode and ErrSelectionInvariant abort a
// run; ErrMatcherExecution never leaves the rule applicator.
var (
	ErrUnknownSelectionMode = errors.New("unknown source selection mode")
	ErrMatcherExecution     = errors.New("matcher execution failed")
	ErrSelectionInvariant   = errors.New("selection invariant violated")
)
