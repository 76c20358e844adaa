// Package softsynth exposes a SoundFont synthesizer as a MIDI output port.
package softsynth

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/sinshu/go-meltysynth/meltysynth"
	"go.uber.org/zap"
)

// PortName is the name the internal synth is listed under among output devices.
const PortName = "Internal Synth"

// DefaultSampleRate is used when New is given a non-positive rate.
const DefaultSampleRate = 44100

var (
	// ErrShutdown is returned once the synth has been shut down.
	ErrShutdown = errors.New("internal synth shut down")
	// ErrNotOpen is returned by Send while the port is closed.
	ErrNotOpen = errors.New("internal synth port not open")
)

// Synth is the internal software synthesizer. Closing the port keeps the
// loaded soundbank; only Shutdown releases it.
type Synth struct {
	log        *zap.Logger
	sampleRate int32

	mu        sync.Mutex
	open      bool
	shutdown  bool
	soundbank string
	synth     *meltysynth.Synthesizer
}

func New(sampleRate int32, log *zap.Logger) *Synth {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Synth{log: log.Named("softsynth"), sampleRate: sampleRate}
}

func (s *Synth) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shutdown {
		return ErrShutdown
	}
	s.open = true
	return nil
}

// Close silences the synth and stops accepting messages. The soundbank stays loaded.
func (s *Synth) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.synth != nil {
		s.synth.NoteOffAll(true)
	}
	s.open = false
	return nil
}

func (s *Synth) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

func (s *Synth) Number() int             { return 0 }
func (s *Synth) String() string          { return PortName }
func (s *Synth) Underlying() interface{} { return s }

// Send feeds one channel message to the synthesizer. System messages are
// ignored, as is everything sent while no soundbank is loaded.
func (s *Synth) Send(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	status := data[0]
	if status < 0x80 || status >= 0xF0 {
		return nil
	}
	var d1, d2 int32
	if len(data) > 1 {
		d1 = int32(data[1])
	}
	if len(data) > 2 {
		d2 = int32(data[2])
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return ErrNotOpen
	}
	if s.synth == nil {
		return nil
	}
	s.synth.ProcessMidiMessage(int32(status&0x0F), int32(status&0xF0), d1, d2)
	return nil
}

// Render writes the next block of audio into left and right.
func (s *Synth) Render(left, right []float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.synth == nil {
		clear(left)
		clear(right)
		return
	}
	s.synth.Render(left, right)
}

// LoadSoundbank parses the SoundFont at path and makes it the active soundbank.
// On failure the synth is left without soundbank.
func (s *Synth) LoadSoundbank(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read soundbank: %w", err)
	}
	sf, err := meltysynth.NewSoundFont(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to parse soundbank %s: %w", path, err)
	}
	syn, err := meltysynth.NewSynthesizer(sf, meltysynth.NewSynthesizerSettings(s.sampleRate))
	if err != nil {
		return fmt.Errorf("failed to create synthesizer: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shutdown {
		return ErrShutdown
	}
	s.synth = syn
	s.soundbank = path
	s.log.Info("soundbank loaded", zap.String("file", path), zap.Int("presets", len(sf.Presets)))
	return nil
}

// UnloadSoundbank drops the active soundbank.
func (s *Synth) UnloadSoundbank() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.synth != nil {
		s.synth.NoteOffAll(true)
		s.log.Info("soundbank unloaded", zap.String("file", s.soundbank))
	}
	s.synth = nil
	s.soundbank = ""
}

// Soundbank returns the path of the active soundbank, empty if none.
func (s *Synth) Soundbank() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.soundbank
}

// Shutdown closes the port for good and releases the soundbank.
func (s *Synth) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shutdown {
		return nil
	}
	s.shutdown = true
	s.open = false
	s.synth = nil
	s.soundbank = ""
	return nil
}
