package definition

import "github.com/PixPMusic/gopher-instruments/internal/synth"

// NewRegistry returns a reader registry for every supported format.
// Substitutes are resolved in gm1.
func NewRegistry(gm1 *synth.Bank) (*synth.ReaderRegistry, error) {
	jr, err := NewJSONReader(gm1)
	if err != nil {
		return nil, err
	}
	return synth.NewReaderRegistry(jr, NewYAMLReader(gm1), NewSoundFontReader(gm1)), nil
}
