// Package definition reads and writes synth definition files.
package definition

import (
	"fmt"
	"io"

	"github.com/PixPMusic/gopher-instruments/internal/midi"
	"github.com/PixPMusic/gopher-instruments/internal/synth"
	"gopkg.in/yaml.v3"
)

// Document is the structure shared by JSON and YAML definition files.
type Document struct {
	Synths []SynthDoc `json:"synths" yaml:"synths"`
}

type SynthDoc struct {
	Name         string    `json:"name" yaml:"name"`
	Manufacturer string    `json:"manufacturer,omitempty" yaml:"manufacturer,omitempty"`
	GM           bool      `json:"gm,omitempty" yaml:"gm,omitempty"`
	GM2          bool      `json:"gm2,omitempty" yaml:"gm2,omitempty"`
	XG           bool      `json:"xg,omitempty" yaml:"xg,omitempty"`
	GS           bool      `json:"gs,omitempty" yaml:"gs,omitempty"`
	Banks        []BankDoc `json:"banks" yaml:"banks"`
}

type BankDoc struct {
	Name        string          `json:"name" yaml:"name"`
	MSB         int             `json:"msb" yaml:"msb"`
	LSB         int             `json:"lsb" yaml:"lsb"`
	Method      string          `json:"method,omitempty" yaml:"method,omitempty"`
	Instruments []InstrumentDoc `json:"instruments" yaml:"instruments"`
}

// InstrumentDoc describes one patch. Omitted MSB, LSB and Method are taken
// from the bank. Substitute names a GM1 program.
type InstrumentDoc struct {
	Name       string      `json:"name" yaml:"name"`
	PC         int         `json:"pc" yaml:"pc"`
	MSB        *int        `json:"msb,omitempty" yaml:"msb,omitempty"`
	LSB        *int        `json:"lsb,omitempty" yaml:"lsb,omitempty"`
	Method     string      `json:"method,omitempty" yaml:"method,omitempty"`
	DrumKit    *DrumKitDoc `json:"drum_kit,omitempty" yaml:"drum_kit,omitempty"`
	Substitute string      `json:"substitute,omitempty" yaml:"substitute,omitempty"`
}

type DrumKitDoc struct {
	Type   string `json:"type,omitempty" yaml:"type,omitempty"`
	KeyMap string `json:"key_map,omitempty" yaml:"key_map,omitempty"`
}

// Build turns the document into synths. gm1 is the bank substitutes are
// looked up in; it may be nil when no instrument names one.
func (d Document) Build(gm1 *synth.Bank) ([]*synth.MidiSynth, error) {
	synths := make([]*synth.MidiSynth, 0, len(d.Synths))
	for _, sd := range d.Synths {
		s, err := sd.build(gm1)
		if err != nil {
			return nil, fmt.Errorf("synth %q: %w", sd.Name, err)
		}
		synths = append(synths, s)
	}
	return synths, nil
}

func (sd SynthDoc) build(gm1 *synth.Bank) (*synth.MidiSynth, error) {
	s, err := synth.NewMidiSynth(sd.Name, sd.Manufacturer)
	if err != nil {
		return nil, err
	}
	s.SetCompatibility(synth.CompatibilityUpdate{
		GM:  synth.Flag(sd.GM),
		GM2: synth.Flag(sd.GM2),
		XG:  synth.Flag(sd.XG),
		GS:  synth.Flag(sd.GS),
	})
	for _, bd := range sd.Banks {
		b, err := bd.build(gm1)
		if err != nil {
			return nil, fmt.Errorf("bank %q: %w", bd.Name, err)
		}
		if err := s.AddBank(b); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (bd BankDoc) build(gm1 *synth.Bank) (*synth.Bank, error) {
	method := midi.MethodMSBLSB
	if bd.Method != "" {
		m, err := midi.ParseBankSelectMethod(bd.Method)
		if err != nil {
			return nil, err
		}
		method = m
	}
	b, err := synth.NewBank(bd.Name, bd.MSB, bd.LSB, method)
	if err != nil {
		return nil, err
	}
	for _, id := range bd.Instruments {
		ins, err := id.build(gm1)
		if err != nil {
			return nil, fmt.Errorf("instrument %q: %w", id.Name, err)
		}
		if err := b.Add(ins); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func (id InstrumentDoc) build(gm1 *synth.Bank) (*synth.Instrument, error) {
	msb, lsb := midi.Undefined, midi.Undefined
	if id.MSB != nil {
		msb = *id.MSB
	}
	if id.LSB != nil {
		lsb = *id.LSB
	}
	method, err := midi.ParseBankSelectMethod(id.Method)
	if err != nil {
		return nil, err
	}
	addr, err := midi.NewAddress(id.PC, msb, lsb, method)
	if err != nil {
		return nil, err
	}

	var kit *synth.DrumKit
	if id.DrumKit != nil {
		k, err := synth.NewDrumKit(id.DrumKit.Type, id.DrumKit.KeyMap)
		if err != nil {
			return nil, err
		}
		kit = &k
	}
	var sub *synth.Instrument
	if id.Substitute != "" {
		if gm1 != nil {
			sub = gm1.ByPatchName(id.Substitute)
		}
		if sub == nil {
			return nil, fmt.Errorf("%w: unknown GM1 substitute %q", synth.ErrInvalidArgument, id.Substitute)
		}
	}
	return synth.NewInstrumentFromParts(id.Name, addr, kit, sub)
}

// NewDocument describes synths with their resolved addresses.
func NewDocument(synths []*synth.MidiSynth) Document {
	var d Document
	for _, s := range synths {
		c := s.Compatibility()
		sd := SynthDoc{
			Name:         s.Name(),
			Manufacturer: s.Manufacturer(),
			GM:           c.GM,
			GM2:          c.GM2,
			XG:           c.XG,
			GS:           c.GS,
		}
		for _, b := range s.Banks() {
			bd := BankDoc{
				Name:   b.Name(),
				MSB:    b.DefaultMSB(),
				LSB:    b.DefaultLSB(),
				Method: b.DefaultMethod().String(),
			}
			for _, ins := range b.Instruments() {
				bd.Instruments = append(bd.Instruments, instrumentDoc(ins))
			}
			sd.Banks = append(sd.Banks, bd)
		}
		d.Synths = append(d.Synths, sd)
	}
	return d
}

func instrumentDoc(ins *synth.Instrument) InstrumentDoc {
	addr := ins.Address()
	id := InstrumentDoc{
		Name:   ins.PatchName(),
		PC:     addr.ProgramChange(),
		Method: addr.Method().String(),
	}
	if v := addr.BankMSB(); v != midi.Undefined {
		id.MSB = &v
	}
	if v := addr.BankLSB(); v != midi.Undefined {
		id.LSB = &v
	}
	if kit, ok := ins.DrumKit(); ok {
		id.DrumKit = &DrumKitDoc{Type: string(kit.Type), KeyMap: string(kit.KeyMap)}
	}
	if sub := ins.Substitute(); sub != nil {
		id.Substitute = sub.PatchName()
	}
	return id
}

// EncodeYAML writes the document as YAML.
func (d Document) EncodeYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(d); err != nil {
		return fmt.Errorf("failed to encode definitions: %w", err)
	}
	return enc.Close()
}
