package definition

import (
	"errors"
	"fmt"
	"io"

	"github.com/PixPMusic/gopher-instruments/internal/synth"
	"gopkg.in/yaml.v3"
)

// YAMLReader reads .yaml and .yml definition files. Unknown fields are rejected.
type YAMLReader struct {
	gm1 *synth.Bank
}

func NewYAMLReader(gm1 *synth.Bank) *YAMLReader {
	return &YAMLReader{gm1: gm1}
}

func (r *YAMLReader) Extensions() []string { return []string{".yaml", ".yml"} }

func (r *YAMLReader) Read(in io.Reader, path string) ([]*synth.MidiSynth, error) {
	dec := yaml.NewDecoder(in)
	dec.KnownFields(true)

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return doc.Build(r.gm1)
}
