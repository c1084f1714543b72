package valve

import "errors"

// Flow errors a Downstream may return from Push. The valve never wraps what a
// downstream returns, so callers can compare against these with errors.Is.
var (
	ErrFlowFlushing  = errors.New("flow: flushing")
	ErrFlowEOS       = errors.New("flow: end of stream")
	ErrFlowNotLinked = errors.New("flow: not linked")
	ErrFlowError     = errors.New("flow: error")
)

var (
	ErrUnknownProperty = errors.New("unknown property")
	ErrNegativeHistory = errors.New("max-history must not be negative")
	ErrInvalidValue    = errors.New("invalid property value")
)
