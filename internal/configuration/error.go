package configuration

import "errors"

// ErrInvalidOverride is an error that occurs when an environment file
// override cannot be parsed or violates a configuration invariant.
var ErrInvalidOverride = errors.New("invalid configuration override")
