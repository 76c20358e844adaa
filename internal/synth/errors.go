package synth

import "errors"

var (
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrAddressCollision  = errors.New("address already used in bank")
	ErrAlreadyAssigned   = errors.New("already assigned")
	ErrNotFound          = errors.New("not found")
	ErrResolutionMiss    = errors.New("token did not resolve")
	ErrMalformedToken    = errors.New("malformed token")
	ErrUnsupportedFormat = errors.New("unsupported definition file format")
	ErrNoUsableSynth     = errors.New("no usable synth in definition file")
)
