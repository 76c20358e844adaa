package synth

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

const (
	partSep   = "#_#"
	synthSep  = "#:#"
	legacySep = ","
	fileUnset = "NOT_SET"
)

// Token grammar versions. TokenV0 is the legacy comma separated form, read
// only when the v1 separator is absent.
const (
	TokenV0 = 0
	TokenV1 = 1
)

// SynthToken identifies a synth: "<name>#:#<file or NOT_SET>".
type SynthToken struct {
	Name string
	File string
}

func (t SynthToken) String() string {
	file := t.File
	if file == "" {
		file = fileUnset
	}
	return t.Name + synthSep + file
}

// ParseSynthToken decodes a synth token. A bare name without separator is
// accepted as a name with no file.
func ParseSynthToken(s string) (SynthToken, error) {
	s = strings.TrimSpace(s)
	name, file, found := strings.Cut(s, synthSep)
	name = strings.TrimSpace(name)
	if name == "" {
		return SynthToken{}, fmt.Errorf("%w: empty synth name in %q", ErrMalformedToken, s)
	}
	if !found || file == fileUnset {
		file = ""
	}
	if strings.Contains(file, synthSep) {
		return SynthToken{}, fmt.Errorf("%w: repeated %q in %q", ErrMalformedToken, synthSep, s)
	}
	return SynthToken{Name: name, File: file}, nil
}

// InstrumentToken identifies an instrument by synth, bank name and patch name.
type InstrumentToken struct {
	Version int
	Synth   SynthToken
	Bank    string
	Patch   string
}

// String always encodes the current grammar.
func (t InstrumentToken) String() string {
	return strings.Join([]string{t.Synth.String(), t.Bank, t.Patch}, partSep)
}

// ParseInstrumentToken decodes "<synthToken>#_#<bank>#_#<patch>", or the
// legacy "<synth>,<bank>,<patch>" form when "#_#" does not occur.
func ParseInstrumentToken(s string) (InstrumentToken, error) {
	var (
		parts   []string
		version = TokenV1
	)
	if strings.Contains(s, partSep) {
		parts = strings.Split(s, partSep)
	} else {
		version = TokenV0
		parts = strings.SplitN(s, legacySep, 3)
	}
	if len(parts) != 3 {
		return InstrumentToken{}, fmt.Errorf("%w: v%d token %q has %d parts, want 3", ErrMalformedToken, version, s, len(parts))
	}

	var st SynthToken
	var err error
	if version == TokenV1 {
		st, err = ParseSynthToken(parts[0])
		if err != nil {
			return InstrumentToken{}, err
		}
	} else {
		st = SynthToken{Name: strings.TrimSpace(parts[0])}
		if st.Name == "" {
			return InstrumentToken{}, fmt.Errorf("%w: empty synth name in %q", ErrMalformedToken, s)
		}
	}
	bank := strings.TrimSpace(parts[1])
	if bank == "" {
		return InstrumentToken{}, fmt.Errorf("%w: empty bank name in %q", ErrMalformedToken, s)
	}
	patch := strings.TrimSpace(parts[2])
	if patch == "" {
		return InstrumentToken{}, fmt.Errorf("%w: empty patch name in %q", ErrMalformedToken, s)
	}
	return InstrumentToken{Version: version, Synth: st, Bank: bank, Patch: patch}, nil
}

// SynthFinder locates a synth known to the application.
type SynthFinder interface {
	// FindSynth returns nil when no synth matches.
	FindSynth(name, file string) *MidiSynth
}

// LoadSynthFromToken resolves a synth token through finder.
func LoadSynthFromToken(token string, finder SynthFinder) (*MidiSynth, error) {
	st, err := ParseSynthToken(token)
	if err != nil {
		return nil, err
	}
	s := finder.FindSynth(st.Name, st.File)
	if s == nil {
		return nil, fmt.Errorf("%w: synth %q", ErrResolutionMiss, st)
	}
	return s, nil
}

// LoadInstrumentFromToken resolves an instrument token: synth through
// finder, then bank by name, then patch by name.
func LoadInstrumentFromToken(token string, finder SynthFinder) (*Instrument, error) {
	it, err := ParseInstrumentToken(token)
	if err != nil {
		return nil, err
	}
	s := finder.FindSynth(it.Synth.Name, it.Synth.File)
	if s == nil {
		return nil, fmt.Errorf("%w: synth %q", ErrResolutionMiss, it.Synth)
	}
	b := s.Bank(it.Bank)
	if b == nil {
		return nil, fmt.Errorf("%w: bank %q in synth %q", ErrResolutionMiss, it.Bank, s.Name())
	}
	ins := b.ByPatchName(it.Patch)
	if ins == nil {
		return nil, fmt.Errorf("%w: patch %q in bank %q", ErrResolutionMiss, it.Patch, b.Name())
	}
	return ins, nil
}

// ResolveInstrumentOrDefault never fails: any miss is logged and def is returned.
func ResolveInstrumentOrDefault(token string, finder SynthFinder, def *Instrument, log *zap.Logger) *Instrument {
	ins, err := LoadInstrumentFromToken(token, finder)
	if err == nil {
		return ins
	}
	if log != nil {
		log.Warn("instrument token not resolved, using default",
			zap.String("token", token),
			zap.String("default", def.FullName()),
			zap.Error(err))
	}
	return def
}
