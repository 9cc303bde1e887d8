package capture

import "errors"

// Capture errors. Configuration, state and timeout errors are recoverable and a
// caller may retry on the next arm cycle. ErrAllocationFailure is fatal at startup.
var (
	ErrInvalidConfiguration   = errors.New("capture: invalid configuration")
	ErrProgramMemoryExhausted = errors.New("capture: out of program space")
	ErrInvalidState           = errors.New("capture: invalid state")
	ErrAllocationFailure      = errors.New("capture: buffer allocation failed")
	ErrTransferTimeout        = errors.New("capture: transfer timeout")
)
