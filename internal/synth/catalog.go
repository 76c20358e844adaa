package synth

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Catalog holds the synths known to the application and resolves tokens
// against them. It always contains the GM synth.
type Catalog struct {
	log *zap.Logger

	mu     sync.RWMutex
	gm     *MidiSynth
	synths []*MidiSynth
}

func NewCatalog(log *zap.Logger) *Catalog {
	if log == nil {
		log = zap.NewNop()
	}
	gm := NewGMSynth()
	return &Catalog{log: log, gm: gm, synths: []*MidiSynth{gm}}
}

// GM returns the built-in GM synth.
func (c *Catalog) GM() *MidiSynth { return c.gm }

// GM1Bank returns the bank of valid substitutes.
func (c *Catalog) GM1Bank() *Bank { return c.gm.Bank(GMBankName) }

// Add registers s. A synth with the same name and file is rejected.
func (c *Catalog) Add(s *MidiSynth) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, x := range c.synths {
		if x.Equal(s) {
			return fmt.Errorf("%w: synth %q already registered", ErrInvalidArgument, s.SaveToken())
		}
	}
	c.synths = append(c.synths, s)
	c.log.Debug("synth registered",
		zap.String("synth", s.Name()),
		zap.String("file", s.File()),
		zap.Int("instruments", s.InstrumentCount()))
	return nil
}

// Remove unregisters s. The GM synth cannot be removed.
func (c *Catalog) Remove(s *MidiSynth) bool {
	if s == c.gm {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, x := range c.synths {
		if x == s {
			c.synths = append(c.synths[:i], c.synths[i+1:]...)
			return true
		}
	}
	return false
}

func (c *Catalog) Synths() []*MidiSynth {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]*MidiSynth(nil), c.synths...)
}

// FindSynth matches name and file first, then name alone, ignoring case.
func (c *Catalog) FindSynth(name, file string) *MidiSynth {
	synths := c.Synths()
	for _, s := range synths {
		if strings.EqualFold(s.Name(), name) && s.File() == file {
			return s
		}
	}
	for _, s := range synths {
		if strings.EqualFold(s.Name(), name) {
			return s
		}
	}
	return nil
}

// LoadDefinitionFile reads path with readers and registers every usable synth.
func (c *Catalog) LoadDefinitionFile(path string, readers *ReaderRegistry) ([]*MidiSynth, error) {
	synths, err := readers.LoadFromDefinitionFile(path)
	if err != nil {
		return nil, err
	}
	added := make([]*MidiSynth, 0, len(synths))
	for _, s := range synths {
		if err := c.Add(s); err != nil {
			c.log.Warn("synth skipped", zap.String("file", path), zap.Error(err))
			continue
		}
		added = append(added, s)
	}
	c.log.Info("synth definition file loaded", zap.String("file", path), zap.Int("synths", len(added)))
	return added, nil
}

// DefaultInstrument is GM program 0.
func (c *Catalog) DefaultInstrument() *Instrument {
	return DefaultInstrument(c.gm)
}

// ResolveInstrument resolves token, falling back to the default instrument.
func (c *Catalog) ResolveInstrument(token string) *Instrument {
	return ResolveInstrumentOrDefault(token, c, c.DefaultInstrument(), c.log)
}
