package synth

import (
	"fmt"
	"strings"
)

// KitType is the ambiance of a drum kit.
type KitType string

const (
	KitStandard   KitType = "STANDARD"
	KitRoom       KitType = "ROOM"
	KitPower      KitType = "POWER"
	KitElectronic KitType = "ELECTRONIC"
	KitAnalog     KitType = "ANALOG"
	KitJazz       KitType = "JAZZ"
	KitBrush      KitType = "BRUSH"
	KitOrchestra  KitType = "ORCHESTRA"
	KitSFX        KitType = "SFX"
)

var kitTypes = []KitType{KitStandard, KitRoom, KitPower, KitElectronic, KitAnalog, KitJazz, KitBrush, KitOrchestra, KitSFX}

// KeyMap names the note-to-percussion mapping of a drum kit.
type KeyMap string

const (
	KeyMapGM     KeyMap = "GM"
	KeyMapGSGM2  KeyMap = "GS_GM2"
	KeyMapXG     KeyMap = "XG"
	KeyMapXGPerc KeyMap = "XG_PERC"
)

var keyMaps = []KeyMap{KeyMapGM, KeyMapGSGM2, KeyMapXG, KeyMapXGPerc}

// DrumKit describes a percussion patch. Kits are equal when both fields match.
type DrumKit struct {
	Type   KitType
	KeyMap KeyMap
}

// NewDrumKit parses kit type and key map names. Empty values default to
// STANDARD and GM.
func NewDrumKit(kitType, keyMap string) (DrumKit, error) {
	kit := DrumKit{Type: KitStandard, KeyMap: KeyMapGM}
	if s := strings.ToUpper(strings.TrimSpace(kitType)); s != "" {
		kit.Type = KitType(s)
		if !contains(kitTypes, kit.Type) {
			return DrumKit{}, fmt.Errorf("%w: unknown drum kit type %q", ErrInvalidArgument, kitType)
		}
	}
	if s := strings.ToUpper(strings.TrimSpace(keyMap)); s != "" {
		kit.KeyMap = KeyMap(s)
		if !contains(keyMaps, kit.KeyMap) {
			return DrumKit{}, fmt.Errorf("%w: unknown drum key map %q", ErrInvalidArgument, keyMap)
		}
	}
	return kit, nil
}

func (k DrumKit) String() string {
	return fmt.Sprintf("%s/%s", k.Type, k.KeyMap)
}

func contains[T comparable](list []T, v T) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
