package synth

import (
	"fmt"
	"strings"
	"sync"

	"github.com/PixPMusic/gopher-instruments/internal/midi"
)

// Bank is an ordered collection of instruments whose resolved addresses are
// unique. A bank belongs to at most one synth.
type Bank struct {
	name      string
	defMSB    int
	defLSB    int
	defMethod midi.BankSelectMethod
	gm1       bool

	mu          sync.RWMutex
	synth       *MidiSynth
	instruments []*Instrument
	byAddress   map[midi.AddressKey]*Instrument
}

// NewBank creates an empty bank with the bank select defaults used to
// complete the addresses of the instruments it receives.
func NewBank(name string, msb, lsb int, method midi.BankSelectMethod) (*Bank, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: blank bank name", ErrInvalidArgument)
	}
	if msb < 0 || msb > 127 || lsb < 0 || lsb > 127 {
		return nil, fmt.Errorf("%w: bank %q default msb=%d lsb=%d", ErrInvalidArgument, name, msb, lsb)
	}
	if !isKnownMethod(method) {
		return nil, fmt.Errorf("%w: bank %q default method %s", ErrInvalidArgument, name, method)
	}
	return &Bank{
		name:      name,
		defMSB:    msb,
		defLSB:    lsb,
		defMethod: method,
		byAddress: make(map[midi.AddressKey]*Instrument),
	}, nil
}

func isKnownMethod(m midi.BankSelectMethod) bool {
	switch m {
	case midi.MethodMSBLSB, midi.MethodMSBOnly, midi.MethodLSBOnly, midi.MethodPCOnly:
		return true
	}
	return false
}

func (b *Bank) Name() string                         { return b.name }
func (b *Bank) DefaultMSB() int                      { return b.defMSB }
func (b *Bank) DefaultLSB() int                      { return b.defLSB }
func (b *Bank) DefaultMethod() midi.BankSelectMethod { return b.defMethod }

// IsGM1 reports whether this is a General MIDI level 1 bank.
func (b *Bank) IsGM1() bool { return b.gm1 }

// Synth returns the owning synth, nil if the bank was never added to one.
func (b *Bank) Synth() *MidiSynth {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.synth
}

// bindSynth is called by MidiSynth.AddBank.
func (b *Bank) bindSynth(s *MidiSynth) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.synth == s {
		return nil
	}
	if b.synth != nil {
		return fmt.Errorf("%w: bank %q already belongs to synth %q", ErrAlreadyAssigned, b.name, b.synth.Name())
	}
	b.synth = s
	return nil
}

// Add binds ins to the bank and appends it. Undefined address fields are
// completed from the bank defaults. The call fails without side effects when
// ins is already bound or when its resolved address is taken.
func (b *Bank) Add(ins *Instrument) error {
	if ins == nil {
		return fmt.Errorf("%w: nil instrument", ErrInvalidArgument)
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if ins.bank != nil {
		return fmt.Errorf("%w: %q already belongs to bank %q", ErrAlreadyAssigned, ins.patchName, ins.bank.Name())
	}
	resolved, err := ins.addr.WithBank(b.defMSB, b.defLSB, b.defMethod)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	if other, ok := b.byAddress[resolved.Key()]; ok {
		return fmt.Errorf("%w: %q and %q share %s in bank %q", ErrAddressCollision, ins.patchName, other.patchName, resolved, b.name)
	}
	if err := ins.assignBank(b, resolved); err != nil {
		return err
	}
	b.byAddress[resolved.Key()] = ins
	b.instruments = append(b.instruments, ins)
	return nil
}

// Remove removes ins from the bank. The instrument stays bound to the bank.
func (b *Bank) Remove(ins *Instrument) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, x := range b.instruments {
		if x == ins {
			b.instruments = append(b.instruments[:i], b.instruments[i+1:]...)
			delete(b.byAddress, ins.addr.Key())
			return true
		}
	}
	return false
}

// Clear removes every instrument.
func (b *Bank) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.instruments = nil
	b.byAddress = make(map[midi.AddressKey]*Instrument)
}

func (b *Bank) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.instruments)
}

// Instruments returns a copy of the instruments in insertion order.
func (b *Bank) Instruments() []*Instrument {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]*Instrument(nil), b.instruments...)
}

// At returns the instrument at index i, or nil when out of range.
func (b *Bank) At(i int) *Instrument {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if i < 0 || i >= len(b.instruments) {
		return nil
	}
	return b.instruments[i]
}

// IndexOf returns the position of ins, -1 if absent.
func (b *Bank) IndexOf(ins *Instrument) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.indexOf(ins)
}

func (b *Bank) indexOf(ins *Instrument) int {
	for i, x := range b.instruments {
		if x == ins {
			return i
		}
	}
	return -1
}

// ByPatchName returns the first instrument whose patch name equals name, ignoring case.
func (b *Bank) ByPatchName(name string) *Instrument {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ins := range b.instruments {
		if strings.EqualFold(ins.patchName, name) {
			return ins
		}
	}
	return nil
}

// ByAddress returns the instrument at the resolved address addr.
func (b *Bank) ByAddress(addr midi.Address) *Instrument {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.byAddress[addr.Key()]
}

// FindBySubstring returns the instruments whose patch name contains s, ignoring case.
func (b *Bank) FindBySubstring(s string) []*Instrument {
	s = strings.ToLower(s)
	return b.Find(func(ins *Instrument) bool {
		return strings.Contains(strings.ToLower(ins.patchName), s)
	})
}

// Find returns the instruments accepted by pred, in bank order.
func (b *Bank) Find(pred func(*Instrument) bool) []*Instrument {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var res []*Instrument
	for _, ins := range b.instruments {
		if pred(ins) {
			res = append(res, ins)
		}
	}
	return res
}

func (b *Bank) DrumsInstruments() []*Instrument {
	return b.Find((*Instrument).IsDrumKit)
}

func (b *Bank) NonDrumsInstruments() []*Instrument {
	return b.Find(func(ins *Instrument) bool { return !ins.IsDrumKit() })
}

// DrumsInstrumentsForKit returns the drums instruments matching kit. With
// tryHarder, a kit that is not STANDARD and has no match falls back to the
// STANDARD kit with the same key map.
func (b *Bank) DrumsInstrumentsForKit(kit DrumKit, tryHarder bool) []*Instrument {
	res := b.Find(kitMatcher(kit))
	if len(res) == 0 && tryHarder && kit.Type != KitStandard {
		res = b.Find(kitMatcher(DrumKit{Type: KitStandard, KeyMap: kit.KeyMap}))
	}
	return res
}

func kitMatcher(kit DrumKit) func(*Instrument) bool {
	return func(ins *Instrument) bool {
		k, ok := ins.DrumKit()
		return ok && k == kit
	}
}

// Next returns the instrument after ins, wrapping to the first.
func (b *Bank) Next(ins *Instrument) (*Instrument, error) {
	return b.step(ins, 1)
}

// Previous returns the instrument before ins, wrapping to the last.
func (b *Bank) Previous(ins *Instrument) (*Instrument, error) {
	return b.step(ins, -1)
}

func (b *Bank) step(ins *Instrument, delta int) (*Instrument, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	i := b.indexOf(ins)
	if i < 0 {
		return nil, fmt.Errorf("%w: instrument not in bank %q", ErrNotFound, b.name)
	}
	n := len(b.instruments)
	return b.instruments[(i+delta+n)%n], nil
}

func (b *Bank) String() string {
	return b.name
}
