package synth

import (
	"fmt"
	"strings"

	"github.com/PixPMusic/gopher-instruments/internal/midi"
	gomidi "gitlab.com/gomidi/midi/v2"
)

// Role is either Melodic or Drums.
type Role interface {
	isRole()
}

// Melodic is a transposable patch. Substitute, when set, is the GM1
// instrument used in place of this patch on a GM-only device.
type Melodic struct {
	Substitute *Instrument
}

// Drums is a percussion patch.
type Drums struct {
	Kit DrumKit
}

func (Melodic) isRole() {}
func (Drums) isRole()   {}

// Instrument is a named patch. It is created unbound and becomes bound when a
// Bank adds it; the bank and the resolved address never change afterwards.
type Instrument struct {
	patchName string
	addr      midi.Address
	role      Role
	bank      *Bank
}

// NewInstrument creates an unbound instrument. A nil role is Melodic without substitute.
func NewInstrument(patchName string, addr midi.Address, role Role) (*Instrument, error) {
	if strings.TrimSpace(patchName) == "" {
		return nil, fmt.Errorf("%w: blank patch name", ErrInvalidArgument)
	}
	if role == nil {
		role = Melodic{}
	}
	if m, ok := role.(Melodic); ok && m.Substitute != nil && !m.Substitute.IsGM1() {
		return nil, fmt.Errorf("%w: substitute %q of %q is not a GM1 instrument", ErrInvalidArgument, m.Substitute.PatchName(), patchName)
	}
	return &Instrument{patchName: patchName, addr: addr, role: role}, nil
}

// NewInstrumentFromParts builds the role from an optional drum kit and an
// optional substitute, which are mutually exclusive.
func NewInstrumentFromParts(patchName string, addr midi.Address, kit *DrumKit, substitute *Instrument) (*Instrument, error) {
	if kit != nil && substitute != nil {
		return nil, fmt.Errorf("%w: %q has both a drum kit and a substitute", ErrInvalidArgument, patchName)
	}
	if kit != nil {
		return NewInstrument(patchName, addr, Drums{Kit: *kit})
	}
	return NewInstrument(patchName, addr, Melodic{Substitute: substitute})
}

// assignBank binds the instrument to b with its resolved address. Only Bank calls it.
func (i *Instrument) assignBank(b *Bank, resolved midi.Address) error {
	if i.bank != nil {
		return fmt.Errorf("%w: %q already belongs to bank %q", ErrAlreadyAssigned, i.patchName, i.bank.Name())
	}
	i.addr = resolved
	i.bank = b
	return nil
}

func (i *Instrument) PatchName() string     { return i.patchName }
func (i *Instrument) Address() midi.Address { return i.addr }
func (i *Instrument) Role() Role            { return i.role }

// Bank returns the owning bank, nil while unbound.
func (i *Instrument) Bank() *Bank { return i.bank }

// Synth returns the synth of the owning bank, if any.
func (i *Instrument) Synth() *MidiSynth {
	if i.bank == nil {
		return nil
	}
	return i.bank.Synth()
}

func (i *Instrument) IsDrumKit() bool {
	_, ok := i.role.(Drums)
	return ok
}

// DrumKit returns the kit of a drums instrument.
func (i *Instrument) DrumKit() (DrumKit, bool) {
	d, ok := i.role.(Drums)
	return d.Kit, ok
}

// Substitute returns the GM1 substitute of a melodic instrument, or nil.
func (i *Instrument) Substitute() *Instrument {
	if m, ok := i.role.(Melodic); ok {
		return m.Substitute
	}
	return nil
}

// IsGM1 reports whether the instrument belongs to a GM1 bank.
func (i *Instrument) IsGM1() bool {
	return i.bank != nil && i.bank.IsGM1()
}

// FullName is the patch name qualified by the synth name when known.
func (i *Instrument) FullName() string {
	if s := i.Synth(); s != nil {
		return s.Name() + " - " + i.patchName
	}
	return i.patchName
}

// WireMessages returns the bank select and program change messages that
// select this instrument on channel.
func (i *Instrument) WireMessages(channel uint8) []gomidi.Message {
	return midi.PatchMessages(channel, i.addr)
}

// SaveToken returns the identity string of a bound instrument.
func (i *Instrument) SaveToken() (string, error) {
	s := i.Synth()
	if s == nil {
		return "", fmt.Errorf("%w: %q is not bound to a synth", ErrInvalidArgument, i.patchName)
	}
	return InstrumentToken{
		Version: TokenV1,
		Synth:   s.Token(),
		Bank:    i.bank.Name(),
		Patch:   i.patchName,
	}.String(), nil
}

func (i *Instrument) String() string {
	return fmt.Sprintf("%s %s", i.FullName(), i.addr)
}
