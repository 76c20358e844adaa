package definition

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/PixPMusic/gopher-instruments/internal/midi"
	"github.com/PixPMusic/gopher-instruments/internal/synth"
	"github.com/sinshu/go-meltysynth/meltysynth"
)

const (
	percussionBank = 128
	percussionMSB  = 127
)

// SoundFontReader lists the presets of a .sf2 file as one synth named after
// the file. Each SoundFont bank becomes a bank selected by MSB; bank 128 holds
// the drum kits.
type SoundFontReader struct {
	gm1 *synth.Bank
}

func NewSoundFontReader(gm1 *synth.Bank) *SoundFontReader {
	return &SoundFontReader{gm1: gm1}
}

func (r *SoundFontReader) Extensions() []string { return []string{".sf2"} }

func (r *SoundFontReader) Read(in io.Reader, path string) ([]*synth.MidiSynth, error) {
	sf, err := meltysynth.NewSoundFont(in)
	if err != nil {
		return nil, fmt.Errorf("failed to parse soundfont: %w", err)
	}
	presets := make([]preset, 0, len(sf.Presets))
	for _, p := range sf.Presets {
		presets = append(presets, preset{name: p.Name, bank: int(p.BankNumber), patch: int(p.PatchNumber)})
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	s, err := buildSoundFontSynth(name, presets, r.gm1)
	if err != nil {
		return nil, err
	}
	return []*synth.MidiSynth{s}, nil
}

type preset struct {
	name  string
	bank  int
	patch int
}

func buildSoundFontSynth(name string, presets []preset, gm1 *synth.Bank) (*synth.MidiSynth, error) {
	s, err := synth.NewMidiSynth(name, "SoundFont")
	if err != nil {
		return nil, err
	}
	sort.SliceStable(presets, func(i, j int) bool {
		if presets[i].bank != presets[j].bank {
			return presets[i].bank < presets[j].bank
		}
		return presets[i].patch < presets[j].patch
	})

	banks := make(map[int]*synth.Bank)
	for _, p := range presets {
		if p.name == "EOP" || p.patch < 0 || p.patch > 127 {
			continue
		}
		if p.bank > 127 && p.bank != percussionBank {
			continue
		}
		b, ok := banks[p.bank]
		if !ok {
			if b, err = soundFontBank(p.bank); err != nil {
				return nil, err
			}
			if err := s.AddBank(b); err != nil {
				return nil, err
			}
			banks[p.bank] = b
		}

		var role synth.Role = synth.Melodic{}
		if p.bank == percussionBank {
			role = synth.Drums{Kit: synth.DrumKit{Type: kitTypeFromName(p.name), KeyMap: synth.KeyMapGM}}
		} else if gm1 != nil && gm1.IsGM1() {
			role = synth.Melodic{Substitute: gm1.At(p.patch)}
		}
		patchName := strings.TrimSpace(p.name)
		if patchName == "" {
			patchName = fmt.Sprintf("Preset %d:%d", p.bank, p.patch)
		}
		ins, err := synth.NewInstrument(patchName, midi.MustAddress(p.patch, midi.Undefined, midi.Undefined, midi.MethodUndefined), role)
		if err != nil {
			return nil, err
		}
		if err := b.Add(ins); err != nil && !errors.Is(err, synth.ErrAddressCollision) {
			return nil, err
		}
	}

	if b := banks[0]; b != nil && b.Len() == 128 {
		s.SetCompatibility(synth.CompatibilityUpdate{GM: synth.Flag(true)})
	}
	return s, nil
}

func soundFontBank(number int) (*synth.Bank, error) {
	if number == percussionBank {
		return synth.NewBank("Drums", percussionMSB, 0, midi.MethodMSBOnly)
	}
	return synth.NewBank(fmt.Sprintf("Bank %d", number), number, 0, midi.MethodMSBOnly)
}

var kitKeywords = []struct {
	keyword string
	kit     synth.KitType
}{
	{"room", synth.KitRoom},
	{"power", synth.KitPower},
	{"elec", synth.KitElectronic},
	{"808", synth.KitAnalog},
	{"analog", synth.KitAnalog},
	{"tr-", synth.KitAnalog},
	{"jazz", synth.KitJazz},
	{"brush", synth.KitBrush},
	{"orch", synth.KitOrchestra},
	{"sfx", synth.KitSFX},
	{"effect", synth.KitSFX},
}

func kitTypeFromName(name string) synth.KitType {
	lower := strings.ToLower(name)
	for _, k := range kitKeywords {
		if strings.Contains(lower, k.keyword) {
			return k.kit
		}
	}
	return synth.KitStandard
}
