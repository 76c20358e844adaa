package synth

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// DefinitionReader parses a synth definition format.
type DefinitionReader interface {
	// Extensions lists the lower-case file extensions handled, with the dot.
	Extensions() []string
	// Read parses r; path is used for naming and error messages.
	Read(r io.Reader, path string) ([]*MidiSynth, error)
}

// ReaderRegistry maps file extensions to definition readers.
type ReaderRegistry struct {
	mu      sync.RWMutex
	readers map[string]DefinitionReader
}

func NewReaderRegistry(readers ...DefinitionReader) *ReaderRegistry {
	reg := &ReaderRegistry{readers: make(map[string]DefinitionReader)}
	for _, r := range readers {
		reg.Register(r)
	}
	return reg
}

// Register adds r for each of its extensions, replacing previous readers.
func (reg *ReaderRegistry) Register(r DefinitionReader) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	for _, ext := range r.Extensions() {
		reg.readers[strings.ToLower(ext)] = r
	}
}

// Reader returns the reader registered for the extension of path.
func (reg *ReaderRegistry) Reader(path string) (DefinitionReader, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	r, ok := reg.readers[strings.ToLower(filepath.Ext(path))]
	return r, ok
}

// LoadFromDefinitionFile reads the synths defined in path. Synths without
// instruments are dropped; the file's synths all get File() == path.
func (reg *ReaderRegistry) LoadFromDefinitionFile(path string) ([]*MidiSynth, error) {
	r, ok := reg.Reader(path)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open synth definition: %w", err)
	}
	defer f.Close()

	synths, err := r.Read(f, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	usable := synths[:0]
	for _, s := range synths {
		if s.InstrumentCount() == 0 {
			continue
		}
		s.SetFile(path)
		usable = append(usable, s)
	}
	if len(usable) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoUsableSynth, path)
	}
	return usable, nil
}
