package synth

import (
	"fmt"
	"strings"
	"sync"

	"github.com/PixPMusic/gopher-instruments/internal/midi"
)

// gmBankBase is the GM bank address imposed by GM2, XG and GS compliance.
var gmBankBase = midi.MustAddress(0, 0, 0, midi.MethodMSBLSB)

// Compatibility holds the standard compliance flags of a synth.
type Compatibility struct {
	GM, GM2, XG, GS bool
}

// CompatibilityUpdate lists flag overrides; nil fields keep their current value.
type CompatibilityUpdate struct {
	GM, GM2, XG, GS *bool
}

// Flag returns a pointer to v, for CompatibilityUpdate literals.
func Flag(v bool) *bool { return &v }

// MidiSynth is a named set of banks. Synths are identified by name and file.
type MidiSynth struct {
	name         string
	manufacturer string

	mu        sync.RWMutex
	file      string
	banks     []*Bank
	compat    Compatibility
	gmBankAdr midi.Address
}

// NewMidiSynth creates a synth. Commas are removed from name because they
// delimit legacy instrument tokens.
func NewMidiSynth(name, manufacturer string) (*MidiSynth, error) {
	name = strings.TrimSpace(strings.ReplaceAll(name, ",", ""))
	if name == "" {
		return nil, fmt.Errorf("%w: blank synth name", ErrInvalidArgument)
	}
	return &MidiSynth{
		name:         name,
		manufacturer: strings.TrimSpace(manufacturer),
		gmBankAdr:    gmBankBase,
	}, nil
}

func (s *MidiSynth) Name() string         { return s.name }
func (s *MidiSynth) Manufacturer() string { return s.manufacturer }

// File is the definition file the synth was read from, empty if none.
func (s *MidiSynth) File() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.file
}

func (s *MidiSynth) SetFile(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.file = path
}

// Equal compares name and file.
func (s *MidiSynth) Equal(o *MidiSynth) bool {
	if s == nil || o == nil {
		return s == o
	}
	return s.name == o.name && s.File() == o.File()
}

// AddBank binds b to the synth and appends it. Adding the same bank twice is a no-op.
func (s *MidiSynth) AddBank(b *Bank) error {
	if b == nil {
		return fmt.Errorf("%w: nil bank", ErrInvalidArgument)
	}
	if err := b.bindSynth(s); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, x := range s.banks {
		if x == b {
			return nil
		}
	}
	s.banks = append(s.banks, b)
	return nil
}

// Banks returns a copy of the banks in insertion order.
func (s *MidiSynth) Banks() []*Bank {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*Bank(nil), s.banks...)
}

// Bank returns the bank with the given name, ignoring case.
func (s *MidiSynth) Bank(name string) *Bank {
	for _, b := range s.Banks() {
		if strings.EqualFold(b.Name(), name) {
			return b
		}
	}
	return nil
}

func (s *MidiSynth) Compatibility() Compatibility {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.compat
}

// SetCompatibility merges u into the current flags, then enforces:
// GM2, XG or GS imply GM and a GM bank at MSB=LSB=0; GS excludes GM2 and XG.
// An explicit GM2 or XG request clears a GS flag that u does not set.
func (s *MidiSynth) SetCompatibility(u CompatibilityUpdate) Compatibility {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.compat
	if u.GM != nil {
		c.GM = *u.GM
	}
	if u.GM2 != nil {
		c.GM2 = *u.GM2
	}
	if u.XG != nil {
		c.XG = *u.XG
	}
	if u.GS != nil {
		c.GS = *u.GS
	}
	if c.GS && u.GS == nil && (isTrue(u.GM2) || isTrue(u.XG)) {
		c.GS = false
	}
	if c.GS {
		c.GM2, c.XG = false, false
	}
	if c.GM2 || c.XG || c.GS {
		c.GM = true
		s.gmBankAdr = gmBankBase
	}
	s.compat = c
	return c
}

func isTrue(b *bool) bool { return b != nil && *b }

// GMBankBaseAddress is the address of the first GM1 program in this synth.
func (s *MidiSynth) GMBankBaseAddress() midi.Address {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gmBankAdr
}

// SetGMBankBaseAddress fails when GM2, XG or GS compliance imposes MSB=LSB=0.
func (s *MidiSynth) SetGMBankBaseAddress(addr midi.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.compat
	if (c.GM2 || c.XG || c.GS) && (addr.BankMSB() != 0 || addr.BankLSB() != 0) {
		return fmt.Errorf("%w: GM2/XG/GS synth %q requires GM bank at MSB=LSB=0", ErrInvalidArgument, s.name)
	}
	s.gmBankAdr = addr
	return nil
}

// Instruments returns the instruments of every bank, bank by bank.
func (s *MidiSynth) Instruments() []*Instrument {
	return s.Find(func(*Instrument) bool { return true })
}

func (s *MidiSynth) InstrumentCount() int {
	n := 0
	for _, b := range s.Banks() {
		n += b.Len()
	}
	return n
}

// Find returns the instruments accepted by pred across all banks.
func (s *MidiSynth) Find(pred func(*Instrument) bool) []*Instrument {
	var res []*Instrument
	for _, b := range s.Banks() {
		res = append(res, b.Find(pred)...)
	}
	return res
}

// ByPatchName returns the first instrument named name, ignoring case.
func (s *MidiSynth) ByPatchName(name string) *Instrument {
	for _, b := range s.Banks() {
		if ins := b.ByPatchName(name); ins != nil {
			return ins
		}
	}
	return nil
}

// ByAddress returns the first instrument at addr.
func (s *MidiSynth) ByAddress(addr midi.Address) *Instrument {
	for _, b := range s.Banks() {
		if ins := b.ByAddress(addr); ins != nil {
			return ins
		}
	}
	return nil
}

// InstrumentsWithSubstitute returns the instruments whose GM1 substitute is gm.
func (s *MidiSynth) InstrumentsWithSubstitute(gm *Instrument) []*Instrument {
	if gm == nil {
		return nil
	}
	return s.Find(func(ins *Instrument) bool { return ins.Substitute() == gm })
}

func (s *MidiSynth) DrumsInstruments() []*Instrument {
	return s.Find((*Instrument).IsDrumKit)
}

func (s *MidiSynth) NonDrumsInstruments() []*Instrument {
	return s.Find(func(ins *Instrument) bool { return !ins.IsDrumKit() })
}

// DrumsInstrumentsForKit applies Bank.DrumsInstrumentsForKit across banks.
// The STANDARD fallback is only tried when no bank has an exact match.
func (s *MidiSynth) DrumsInstrumentsForKit(kit DrumKit, tryHarder bool) []*Instrument {
	res := s.Find(kitMatcher(kit))
	if len(res) == 0 && tryHarder && kit.Type != KitStandard {
		res = s.Find(kitMatcher(DrumKit{Type: KitStandard, KeyMap: kit.KeyMap}))
	}
	return res
}

// MatchingCoverage returns the fraction of other's resolved addresses that
// also exist in this synth. An empty bank scores 0.
func (s *MidiSynth) MatchingCoverage(other *Bank) float64 {
	instruments := other.Instruments()
	if len(instruments) == 0 {
		return 0
	}
	found := 0
	for _, ins := range instruments {
		if s.ByAddress(ins.Address()) != nil {
			found++
		}
	}
	return float64(found) / float64(len(instruments))
}

// Token returns the synth part of identity strings.
func (s *MidiSynth) Token() SynthToken {
	return SynthToken{Name: s.name, File: s.File()}
}

// SaveToken returns "<name>#:#<file or NOT_SET>".
func (s *MidiSynth) SaveToken() string {
	return s.Token().String()
}

func (s *MidiSynth) String() string {
	return s.name
}
