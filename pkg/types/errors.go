package types

import "errors"

// ErrValidation marks a malformed request rejected before it reaches the
// lifecycle engine.
var ErrValidation = errors.New("validation failed")
