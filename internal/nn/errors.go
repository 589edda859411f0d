package nn

import "errors"

// Errors returned when building models or restoring their state.
var (
	ErrShapeMismatch    = errors.New("nn: parameter shape mismatch")
	ErrMissingParameter = errors.New("nn: missing parameter")
	ErrConfigMismatch   = errors.New("nn: invalid model configuration")
)
