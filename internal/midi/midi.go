package midi

import (
	"fmt"
	"strings"
	"sync"

	"gitlab.com/gomidi/midi/v2/drivers"
)

// PortProvider enumerates the ports of a MIDI driver.
type PortProvider interface {
	Ins() ([]drivers.In, error)
	Outs() ([]drivers.Out, error)
}

// DriverPorts reads ports from the registered gomidi driver.
type DriverPorts struct{}

func (DriverPorts) Ins() ([]drivers.In, error)   { return drivers.Ins() }
func (DriverPorts) Outs() ([]drivers.Out, error) { return drivers.Outs() }

// Manager handles MIDI port discovery
type Manager struct {
	mu       sync.RWMutex
	provider PortProvider
}

// NewManager creates a port manager. A nil provider uses the registered driver.
func NewManager(provider PortProvider) *Manager {
	if provider == nil {
		provider = DriverPorts{}
	}
	return &Manager{provider: provider}
}

// Close cleans up the MIDI driver
func (m *Manager) Close() {
	if _, ok := m.provider.(DriverPorts); ok {
		drivers.Close()
	}
}

// ListInPorts returns the names of available MIDI input ports
func (m *Manager) ListInPorts() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ins, err := m.provider.Ins()
	if err != nil {
		return nil, fmt.Errorf("failed to list input ports: %w", err)
	}
	names := make([]string, 0, len(ins))
	for _, in := range ins {
		names = append(names, in.String())
	}
	return names, nil
}

// ListOutPorts returns the names of available MIDI output ports
func (m *Manager) ListOutPorts() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	outs, err := m.provider.Outs()
	if err != nil {
		return nil, fmt.Errorf("failed to list output ports: %w", err)
	}
	names := make([]string, 0, len(outs))
	for _, out := range outs {
		names = append(names, out.String())
	}
	return names, nil
}

// GetInPort returns an input port by name. An exact match wins over a
// substring match; nil means no port matched.
func (m *Manager) GetInPort(name string) (drivers.In, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ins, err := m.provider.Ins()
	if err != nil {
		return nil, fmt.Errorf("failed to list input ports: %w", err)
	}
	ports := make([]drivers.Port, len(ins))
	for i, in := range ins {
		ports[i] = in
	}
	if i := matchPort(ports, name); i >= 0 {
		return ins[i], nil
	}
	return nil, nil
}

// GetOutPort returns an output port by name, with the same matching as GetInPort.
func (m *Manager) GetOutPort(name string) (drivers.Out, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	outs, err := m.provider.Outs()
	if err != nil {
		return nil, fmt.Errorf("failed to list output ports: %w", err)
	}
	ports := make([]drivers.Port, len(outs))
	for i, out := range outs {
		ports[i] = out
	}
	if i := matchPort(ports, name); i >= 0 {
		return outs[i], nil
	}
	return nil, nil
}

func matchPort(ports []drivers.Port, name string) int {
	if name == "" {
		return -1
	}
	for i, p := range ports {
		if p.String() == name {
			return i
		}
	}
	for i, p := range ports {
		if strings.Contains(p.String(), name) {
			return i
		}
	}
	return -1
}
