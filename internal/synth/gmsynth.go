package synth

import "github.com/PixPMusic/gopher-instruments/internal/midi"

const (
	GMSynthName    = "GM Synth"
	GMBankName     = "GM Bank"
	GMDrumsBank    = "GM Drums"
	gmManufacturer = "General MIDI"
)

// NewGM1Bank returns a bank holding the 128 GM1 programs, selected by
// Program Change only. Its instruments are the valid melodic substitutes.
func NewGM1Bank() *Bank {
	b, err := NewBank(GMBankName, 0, 0, midi.MethodPCOnly)
	if err != nil {
		panic(err)
	}
	b.gm1 = true
	for pc, name := range gm1Names {
		ins, err := NewInstrument(name, midi.MustAddress(pc, midi.Undefined, midi.Undefined, midi.MethodUndefined), Melodic{})
		if err == nil {
			err = b.Add(ins)
		}
		if err != nil {
			panic(err)
		}
	}
	return b
}

// NewGMSynth builds the General MIDI synth: the GM1 bank plus a drums bank
// holding the standard kit.
func NewGMSynth() *MidiSynth {
	s, err := NewMidiSynth(GMSynthName, gmManufacturer)
	if err != nil {
		panic(err)
	}
	s.SetCompatibility(CompatibilityUpdate{GM: Flag(true)})

	drums, err := NewBank(GMDrumsBank, 0, 0, midi.MethodPCOnly)
	if err != nil {
		panic(err)
	}
	kit, err := NewInstrument("Standard Kit", midi.MustAddress(0, midi.Undefined, midi.Undefined, midi.MethodUndefined),
		Drums{Kit: DrumKit{Type: KitStandard, KeyMap: KeyMapGM}})
	if err == nil {
		err = drums.Add(kit)
	}
	if err != nil {
		panic(err)
	}

	for _, b := range []*Bank{NewGM1Bank(), drums} {
		if err := s.AddBank(b); err != nil {
			panic(err)
		}
	}
	return s
}

// DefaultInstrument returns program 0 of the GM bank of gm, the fallback for
// unresolved instruments.
func DefaultInstrument(gm *MidiSynth) *Instrument {
	if b := gm.Bank(GMBankName); b != nil {
		return b.At(0)
	}
	return nil
}

// DefaultDrums returns the standard kit of gm.
func DefaultDrums(gm *MidiSynth) *Instrument {
	if b := gm.Bank(GMDrumsBank); b != nil {
		return b.At(0)
	}
	return nil
}
