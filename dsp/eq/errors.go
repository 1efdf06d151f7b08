package eq

import "errors"

var (
	// ErrInvalidParameter reports an out-of-range band index, a non-finite
	// parameter value, mismatched buffer lengths or a malformed preset.
	ErrInvalidParameter = errors.New("eq: invalid parameter")

	// ErrNoTransaction is returned by EndParameterUpdate without a matching
	// BeginParameterUpdate.
	ErrNoTransaction = errors.New("eq: no parameter update in progress")
)
