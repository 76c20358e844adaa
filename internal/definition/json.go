package definition

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/PixPMusic/gopher-instruments/internal/synth"
	"github.com/xeipuuv/gojsonschema"
)

// ErrInvalidDocument is returned when a file does not match the definition schema.
var ErrInvalidDocument = errors.New("invalid synth definition document")

//go:embed schema.json
var schemaData []byte

// JSONReader reads .json definition files after validating them against the
// embedded schema.
type JSONReader struct {
	gm1    *synth.Bank
	schema *gojsonschema.Schema
}

func NewJSONReader(gm1 *synth.Bank) (*JSONReader, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaData))
	if err != nil {
		return nil, fmt.Errorf("failed to compile definition schema: %w", err)
	}
	return &JSONReader{gm1: gm1, schema: schema}, nil
}

func (r *JSONReader) Extensions() []string { return []string{".json"} }

func (r *JSONReader) Read(in io.Reader, path string) ([]*synth.MidiSynth, error) {
	data, err := io.ReadAll(in)
	if err != nil {
		return nil, err
	}
	res, err := r.schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if !res.Valid() {
		msgs := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			msgs = append(msgs, e.String())
		}
		return nil, fmt.Errorf("%w: %s", ErrInvalidDocument, strings.Join(msgs, "; "))
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return doc.Build(r.gm1)
}
