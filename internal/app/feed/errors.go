package feed

import "errors"

// Failures of a single tick. None of them is fatal: the tracker logs and skips.
var (
	ErrNetwork                = errors.New("network error")
	ErrParse                  = errors.New("parse error")
	ErrPropagationUnavailable = errors.New("propagation unavailable")
)
