package bridge

import "errors"

var (
	// ErrInvalidHandle is returned for handles that do not name a live
	// instance.
	ErrInvalidHandle = errors.New("bridge: invalid handle")

	// ErrUnknownPreset is returned for preset names missing from the catalog.
	ErrUnknownPreset = errors.New("bridge: unknown preset")

	// ErrBuiltinPreset is returned when a user preset would replace a
	// built-in one.
	ErrBuiltinPreset = errors.New("bridge: built-in preset is read-only")

	// ErrPlatformUnavailable reports a missing audio backend or codec.
	ErrPlatformUnavailable = errors.New("bridge: platform unavailable")
)
