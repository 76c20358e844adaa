package session

import (
	"errors"
	"sync"
	"time"

	"github.com/PixPMusic/gopher-instruments/internal/midi"
	"gitlab.com/gomidi/midi/v2/drivers"
	"go.uber.org/zap"
)

var (
	ErrDeviceUnavailable = errors.New("MIDI device unavailable")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrClosed            = errors.New("session closed")
	ErrSoundbankLoad     = errors.New("soundbank load failed")
	ErrSuperseded        = errors.New("soundbank request superseded")
)

// DefaultOpenTimeout bounds how long a device open may block.
const DefaultOpenTimeout = 5 * time.Second

// Preference keys written by the session.
const (
	PrefOutDevice    = "session.out_device"
	PrefInDevice     = "session.in_device"
	PrefThru         = "session.thru"
	PrefSoundbank    = "session.soundbank"
	PrefMasterVolume = "session.master_volume"
)

// Preferences persists the session choices between runs.
type Preferences interface {
	Get(key string) (string, bool)
	Set(key, value string) error
}

// SoftSynth is the internal synthesizer: an output port whose soundbank can
// be swapped and which is only released by Shutdown.
type SoftSynth interface {
	drivers.Out
	LoadSoundbank(path string) error
	UnloadSoundbank()
	Soundbank() string
	Shutdown() error
}

type Option func(*Session)

func WithLogger(log *zap.Logger) Option {
	return func(s *Session) {
		if log != nil {
			s.log = log
		}
	}
}

// WithPorts sets the port manager used to find hardware devices.
func WithPorts(m *midi.Manager) Option {
	return func(s *Session) {
		s.ports = m
		s.ownsPorts = false
	}
}

func WithSoftSynth(synth SoftSynth) Option {
	return func(s *Session) { s.soft = synth }
}

func WithPreferences(p Preferences) Option {
	return func(s *Session) {
		if p != nil {
			s.prefs = p
		}
	}
}

// WithOpenTimeout bounds device opens; zero or less waits forever.
func WithOpenTimeout(d time.Duration) Option {
	return func(s *Session) { s.openTimeout = d }
}

// MemoryPreferences keeps preferences in memory only.
type MemoryPreferences struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemoryPreferences() *MemoryPreferences {
	return &MemoryPreferences{values: make(map[string]string)}
}

func (p *MemoryPreferences) Get(key string) (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	v, ok := p.values[key]
	return v, ok
}

func (p *MemoryPreferences) Set(key, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.values[key] = value
	return nil
}
