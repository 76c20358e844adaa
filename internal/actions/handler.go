package actions

import (
	"context"

	"github.com/PixPMusic/gopher-instruments/internal/synth"
	gomidi "gitlab.com/gomidi/midi/v2"
)

// ActionHandler defines the interface for executing and validating actions
type ActionHandler interface {
	// Execute runs the code and returns output or error
	Execute(ctx context.Context, code string) (string, error)

	// Validate checks the syntax of the code
	Validate(code string) error
}

// Output is where actions send MIDI. The session implements it.
type Output interface {
	Send(msg gomidi.Message) error
	SendInstrument(channel uint8, ins *synth.Instrument) error
	Panic() error
}

// InstrumentResolver turns an instrument token into an instrument, falling
// back to a default when the token does not resolve.
type InstrumentResolver interface {
	ResolveInstrument(token string) *synth.Instrument
}
