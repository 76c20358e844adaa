package session

import "fmt"

// EventKind tells which session setting changed.
type EventKind int

const (
	OutDeviceChanged EventKind = iota
	InDeviceChanged
	ThruChanged
	MasterVolumeChanged
	SoundbankLoaded
)

func (k EventKind) String() string {
	switch k {
	case OutDeviceChanged:
		return "out_device_changed"
	case InDeviceChanged:
		return "in_device_changed"
	case ThruChanged:
		return "thru_changed"
	case MasterVolumeChanged:
		return "master_volume_changed"
	case SoundbankLoaded:
		return "soundbank_loaded"
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// Event is delivered to OnChange listeners after a successful change. Only
// the field matching Kind is meaningful.
type Event struct {
	Kind         EventKind
	Device       string
	Thru         bool
	MasterVolume float64
	Soundbank    string
}

// OnChange registers fn for change notifications and returns a function
// removing it. Listeners run on the goroutine that made the change and must
// not block.
func (s *Session) OnChange(fn func(Event)) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.listeners, id)
	}
}

func (s *Session) notify(ev Event) {
	s.subMu.RLock()
	fns := make([]func(Event), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.subMu.RUnlock()
	for _, fn := range fns {
		fn(ev)
	}
}
