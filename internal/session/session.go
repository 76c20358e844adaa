// Package session owns the MIDI devices of the application: the output and
// input ports, thru routing, master volume and the internal synth soundbank.
package session

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/PixPMusic/gopher-instruments/internal/midi"
	"github.com/PixPMusic/gopher-instruments/internal/synth"
	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"go.uber.org/zap"
)

// MaxMasterVolume is the upper bound of the master volume factor.
const MaxMasterVolume = 2.0

// Session is the single owner of the MIDI devices. The rest of the
// application sends through Send and listens through Subscribe; neither
// changes when the underlying devices are swapped.
type Session struct {
	log         *zap.Logger
	ports       *midi.Manager
	ownsPorts   bool
	soft        SoftSynth
	prefs       Preferences
	openTimeout time.Duration

	// mu guards the output device and the closed flag. Sends hold it
	// shared, device changes hold it exclusively.
	mu     sync.RWMutex
	out    drivers.Out
	closed bool

	// inMu serialises input device changes. Lock order is inMu then mu.
	inMu   sync.Mutex
	in     drivers.In
	stopIn func()

	volume atomic.Uint64
	thru   atomic.Bool

	subMu       sync.RWMutex
	nextID      int
	subscribers map[int]func(gomidi.Message)
	listeners   map[int]func(Event)

	loader *soundbankLoader
}

// Open creates the session and restores the devices, thru mode, master
// volume and soundbank saved in the preferences. Restore failures are logged;
// without a saved output the internal synth is selected.
func Open(opts ...Option) *Session {
	s := &Session{
		log:         zap.NewNop(),
		ownsPorts:   true,
		prefs:       NewMemoryPreferences(),
		openTimeout: DefaultOpenTimeout,
		subscribers: make(map[int]func(gomidi.Message)),
		listeners:   make(map[int]func(Event)),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.ports == nil {
		s.ports = midi.NewManager(nil)
		s.ownsPorts = true
	}
	s.log = s.log.Named("session")
	s.volume.Store(math.Float64bits(1))
	s.loader = newSoundbankLoader(s)
	s.restore()
	return s
}

func (s *Session) restore() {
	if v, ok := s.prefs.Get(PrefThru); ok {
		if on, err := strconv.ParseBool(v); err == nil {
			s.thru.Store(on)
		}
	}
	if v, ok := s.prefs.Get(PrefMasterVolume); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil && validVolume(f) {
			s.volume.Store(math.Float64bits(f))
		}
	}

	restored := false
	if name, ok := s.prefs.Get(PrefOutDevice); ok && name != "" {
		if _, err := s.setOutDevice(name); err != nil {
			s.log.Warn("failed to restore output device", zap.String("device", name), zap.Error(err))
		} else {
			restored = true
		}
	}
	if !restored && s.soft != nil {
		if _, err := s.setOutDevice(s.soft.String()); err != nil {
			s.log.Error("failed to open internal synth", zap.Error(err))
		}
	}

	if name, ok := s.prefs.Get(PrefInDevice); ok && name != "" {
		if _, err := s.setInDevice(name); err != nil {
			s.log.Warn("failed to restore input device", zap.String("device", name), zap.Error(err))
		}
	}
	if path, ok := s.prefs.Get(PrefSoundbank); ok && path != "" && s.soft != nil {
		s.LoadSoundbankSilently(path)
	}
}

// OutDevices lists the selectable output devices, internal synth first.
func (s *Session) OutDevices() ([]string, error) {
	var names []string
	if s.soft != nil {
		names = append(names, s.soft.String())
	}
	ports, err := s.ports.ListOutPorts()
	if err != nil {
		return names, err
	}
	return append(names, ports...), nil
}

func (s *Session) InDevices() ([]string, error) {
	return s.ports.ListInPorts()
}

// OutDevice returns the name of the current output device, empty if none.
func (s *Session) OutDevice() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.out == nil {
		return ""
	}
	return s.out.String()
}

// InDevice returns the name of the current input device, empty if none.
func (s *Session) InDevice() string {
	s.inMu.Lock()
	defer s.inMu.Unlock()
	if s.in == nil {
		return ""
	}
	return s.in.String()
}

// SetOutDevice makes the named port the output device. The previous device
// is silenced and closed before the new one is opened; if the new one cannot
// be opened the previous one is reopened and ErrDeviceUnavailable returned.
func (s *Session) SetOutDevice(name string) error {
	actual, err := s.setOutDevice(name)
	if err != nil || actual == "" {
		return err
	}
	s.persist(PrefOutDevice, actual)
	s.notify(Event{Kind: OutDeviceChanged, Device: actual})
	return nil
}

// setOutDevice returns the name of the newly opened device, or "" when the
// device was already selected.
func (s *Session) setOutDevice(name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", ErrClosed
	}
	next, err := s.findOut(name)
	if err != nil {
		return "", err
	}
	prev := s.out
	if prev != nil && prev.String() == next.String() {
		return "", nil
	}

	if prev != nil {
		if err := s.closeOut(prev); err != nil {
			s.log.Warn("errors while closing output device", zap.String("device", prev.String()), zap.Error(err))
		}
		s.out = nil
	}
	if err := s.openPort(next); err != nil {
		s.log.Error("failed to open output device", zap.String("device", next.String()), zap.Error(err))
		if prev != nil {
			if rerr := s.openPort(prev); rerr != nil {
				s.log.Error("failed to reopen previous output device", zap.String("device", prev.String()), zap.Error(rerr))
				return "", fmt.Errorf("%w: %s: %w", ErrDeviceUnavailable, next.String(), errors.Join(err, rerr))
			}
			s.out = prev
		}
		return "", fmt.Errorf("%w: %s: %w", ErrDeviceUnavailable, next.String(), err)
	}
	s.out = next
	s.log.Info("output device opened", zap.String("device", next.String()))
	return next.String(), nil
}

func (s *Session) findOut(name string) (drivers.Out, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty device name", ErrInvalidArgument)
	}
	if s.soft != nil && name == s.soft.String() {
		return s.soft, nil
	}
	out, err := s.ports.GetOutPort(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDeviceUnavailable, err)
	}
	if out == nil {
		return nil, fmt.Errorf("%w: no output port matches %q", ErrDeviceUnavailable, name)
	}
	return out, nil
}

// CloseOutDevice silences and closes the output device. Messages sent
// afterwards are dropped until another device is selected.
func (s *Session) CloseOutDevice() error {
	s.mu.Lock()
	out := s.out
	var err error
	if out != nil {
		err = s.closeOut(out)
		s.out = nil
	}
	s.mu.Unlock()
	if out == nil {
		return nil
	}
	s.persist(PrefOutDevice, "")
	s.notify(Event{Kind: OutDeviceChanged})
	return err
}

// closeOut sends the panic sequence then closes out. The internal synth
// keeps its soundbank when closed.
func (s *Session) closeOut(out drivers.Out) error {
	err := errors.Join(sendAll(out, midi.PanicMessages()), out.Close())
	s.log.Info("output device closed", zap.String("device", out.String()))
	return err
}

func sendAll(out drivers.Out, msgs []gomidi.Message) error {
	var errs []error
	for _, m := range msgs {
		if err := out.Send(m.Bytes()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SetInDevice makes the named port the input device, with the same rollback
// as SetOutDevice.
func (s *Session) SetInDevice(name string) error {
	actual, err := s.setInDevice(name)
	if err != nil || actual == "" {
		return err
	}
	s.persist(PrefInDevice, actual)
	s.notify(Event{Kind: InDeviceChanged, Device: actual})
	return nil
}

func (s *Session) setInDevice(name string) (string, error) {
	s.inMu.Lock()
	defer s.inMu.Unlock()
	if s.isClosed() {
		return "", ErrClosed
	}
	if name == "" {
		return "", fmt.Errorf("%w: empty device name", ErrInvalidArgument)
	}
	next, err := s.ports.GetInPort(name)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrDeviceUnavailable, err)
	}
	if next == nil {
		return "", fmt.Errorf("%w: no input port matches %q", ErrDeviceUnavailable, name)
	}
	prev := s.in
	if prev != nil && prev.String() == next.String() {
		return "", nil
	}

	s.detachIn()
	if err := s.attachIn(next); err != nil {
		s.log.Error("failed to open input device", zap.String("device", next.String()), zap.Error(err))
		if prev != nil {
			if rerr := s.attachIn(prev); rerr != nil {
				s.log.Error("failed to reopen previous input device", zap.String("device", prev.String()), zap.Error(rerr))
				return "", fmt.Errorf("%w: %s: %w", ErrDeviceUnavailable, next.String(), errors.Join(err, rerr))
			}
		}
		return "", fmt.Errorf("%w: %s: %w", ErrDeviceUnavailable, next.String(), err)
	}
	s.log.Info("input device opened", zap.String("device", next.String()))
	return next.String(), nil
}

// CloseInDevice stops listening and closes the input device.
func (s *Session) CloseInDevice() {
	s.inMu.Lock()
	had := s.in != nil
	s.detachIn()
	s.inMu.Unlock()
	if had {
		s.persist(PrefInDevice, "")
		s.notify(Event{Kind: InDeviceChanged})
	}
}

// attachIn and detachIn are called with inMu held.
func (s *Session) attachIn(in drivers.In) error {
	if err := s.openPort(in); err != nil {
		return err
	}
	stop, err := gomidi.ListenTo(in, s.receive)
	if err != nil {
		_ = in.Close()
		return err
	}
	s.in, s.stopIn = in, stop
	return nil
}

func (s *Session) detachIn() {
	if s.stopIn != nil {
		s.stopIn()
	}
	if s.in != nil {
		if err := s.in.Close(); err != nil {
			s.log.Warn("failed to close input device", zap.String("device", s.in.String()), zap.Error(err))
		}
		s.log.Info("input device closed", zap.String("device", s.in.String()))
	}
	s.in, s.stopIn = nil, nil
}

func (s *Session) receive(msg gomidi.Message, _ int32) {
	if s.thru.Load() {
		if err := s.Send(msg); err != nil && !errors.Is(err, ErrClosed) {
			s.log.Debug("thru send failed", zap.Stringer("msg", msg), zap.Error(err))
		}
	}
	s.subMu.RLock()
	fns := make([]func(gomidi.Message), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		fns = append(fns, fn)
	}
	s.subMu.RUnlock()
	for _, fn := range fns {
		fn(msg)
	}
}

// Subscribe registers fn for every message received on the input device and
// returns a function removing it.
func (s *Session) Subscribe(fn func(gomidi.Message)) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextID
	s.nextID++
	s.subscribers[id] = fn
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subscribers, id)
	}
}

// Send writes msg to the output device after master volume scaling.
// Without output device the message is dropped.
func (s *Session) Send(msg gomidi.Message) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sendLocked(msg)
}

func (s *Session) sendLocked(msg gomidi.Message) error {
	if s.closed {
		return ErrClosed
	}
	if s.out == nil {
		return nil
	}
	msg = midi.ScaleVolume(msg, s.MasterVolume())
	return s.out.Send(msg.Bytes())
}

// SendInstrument selects ins on channel. The bank select and program change
// messages reach the same device.
func (s *Session) SendInstrument(channel uint8, ins *synth.Instrument) error {
	if channel >= midi.NumChannels {
		return fmt.Errorf("%w: channel %d", ErrInvalidArgument, channel)
	}
	if ins == nil {
		return fmt.Errorf("%w: nil instrument", ErrInvalidArgument)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range ins.WireMessages(channel) {
		if err := s.sendLocked(m); err != nil {
			return err
		}
	}
	return nil
}

// Panic silences every channel of the output device. It is safe in any state.
func (s *Session) Panic() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.out == nil {
		return nil
	}
	s.log.Info("panic", zap.String("device", s.out.String()))
	return sendAll(s.out, midi.PanicMessages())
}

// SetThru routes the input device to the output device when on.
func (s *Session) SetThru(on bool) {
	if s.thru.Swap(on) == on {
		return
	}
	s.log.Info("thru mode changed", zap.Bool("thru", on))
	s.persist(PrefThru, strconv.FormatBool(on))
	s.notify(Event{Kind: ThruChanged, Thru: on})
}

func (s *Session) Thru() bool { return s.thru.Load() }

func validVolume(f float64) bool {
	return !math.IsNaN(f) && f >= 0 && f <= MaxMasterVolume
}

// SetMasterVolume sets the factor applied to Volume controller values.
func (s *Session) SetMasterVolume(f float64) error {
	if !validVolume(f) {
		return fmt.Errorf("%w: master volume %v not in [0,%v]", ErrInvalidArgument, f, MaxMasterVolume)
	}
	if math.Float64frombits(s.volume.Swap(math.Float64bits(f))) == f {
		return nil
	}
	s.persist(PrefMasterVolume, strconv.FormatFloat(f, 'f', -1, 64))
	s.notify(Event{Kind: MasterVolumeChanged, MasterVolume: f})
	return nil
}

func (s *Session) MasterVolume() float64 {
	return math.Float64frombits(s.volume.Load())
}

func (s *Session) persist(key, value string) {
	if err := s.prefs.Set(key, value); err != nil {
		s.log.Warn("failed to save preference", zap.String("key", key), zap.Error(err))
	}
}

func (s *Session) isClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// Close silences and closes every device, stops the soundbank worker and
// shuts the internal synth down. Further calls return nil.
func (s *Session) Close() error {
	s.inMu.Lock()
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.inMu.Unlock()
		return nil
	}
	s.closed = true
	var errs []error
	if s.out != nil {
		errs = append(errs, s.closeOut(s.out))
		s.out = nil
	}
	s.mu.Unlock()
	s.detachIn()
	s.inMu.Unlock()

	s.loader.close()
	if s.soft != nil {
		errs = append(errs, s.soft.Shutdown())
	}
	if s.ownsPorts {
		s.ports.Close()
	}
	s.log.Info("session closed")
	return errors.Join(errs...)
}
