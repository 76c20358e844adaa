package session

import (
	"errors"
	"fmt"
	"sync"

	"github.com/PixPMusic/gopher-instruments/internal/midi"
	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

// journal records port activity across devices so tests can check ordering.
type journal struct {
	mu      sync.Mutex
	entries []string
}

func (j *journal) add(format string, args ...any) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, fmt.Sprintf(format, args...))
}

func (j *journal) snapshot() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.entries...)
}

// index returns the position of the first entry equal to e, -1 if absent.
func (j *journal) index(e string) int {
	for i, x := range j.snapshot() {
		if x == e {
			return i
		}
	}
	return -1
}

func (j *journal) lastIndex(e string) int {
	entries := j.snapshot()
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i] == e {
			return i
		}
	}
	return -1
}

// fakePort is a drivers.In and drivers.Out.
type fakePort struct {
	name string
	j    *journal

	mu       sync.Mutex
	open     bool
	openErr  error
	openGate chan struct{}
	sent     []gomidi.Message
	listener func([]byte, int32)
}

func newFakePort(name string, j *journal) *fakePort {
	return &fakePort{name: name, j: j}
}

func (p *fakePort) Open() error {
	p.mu.Lock()
	gate := p.openGate
	p.mu.Unlock()
	if gate != nil {
		<-gate
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.openErr != nil {
		p.j.add("open failed %s", p.name)
		return p.openErr
	}
	p.open = true
	p.j.add("open %s", p.name)
	return nil
}

func (p *fakePort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.open = false
	p.j.add("close %s", p.name)
	return nil
}

func (p *fakePort) IsOpen() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.open
}

func (p *fakePort) Number() int             { return 0 }
func (p *fakePort) String() string          { return p.name }
func (p *fakePort) Underlying() interface{} { return nil }

func (p *fakePort) Send(b []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.open {
		return errors.New("port closed")
	}
	p.sent = append(p.sent, gomidi.Message(append([]byte(nil), b...)))
	p.j.add("send %s", p.name)
	return nil
}

func (p *fakePort) Listen(fn func([]byte, int32), _ drivers.ListenConfig) (func(), error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listener = fn
	p.j.add("listen %s", p.name)
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.listener = nil
		p.j.add("stop %s", p.name)
	}, nil
}

// emit delivers raw bytes as if received by the device.
func (p *fakePort) emit(b ...byte) bool {
	p.mu.Lock()
	fn := p.listener
	p.mu.Unlock()
	if fn == nil {
		return false
	}
	fn(b, 0)
	return true
}

func (p *fakePort) messages() []gomidi.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]gomidi.Message(nil), p.sent...)
}

func (p *fakePort) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = nil
}

func (p *fakePort) setOpenErr(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.openErr = err
}

type fakeProvider struct {
	ins  []*fakePort
	outs []*fakePort
}

func (f fakeProvider) Ins() ([]drivers.In, error) {
	ins := make([]drivers.In, len(f.ins))
	for i, p := range f.ins {
		ins[i] = p
	}
	return ins, nil
}

func (f fakeProvider) Outs() ([]drivers.Out, error) {
	outs := make([]drivers.Out, len(f.outs))
	for i, p := range f.outs {
		outs[i] = p
	}
	return outs, nil
}

func newFakeManager(ins, outs []*fakePort) *midi.Manager {
	return midi.NewManager(fakeProvider{ins: ins, outs: outs})
}

// fakeSynth is an internal synth whose soundbank operations are recorded.
type fakeSynth struct {
	*fakePort

	sbMu      sync.Mutex
	soundbank string
	loads     []string
	unloads   int
	failures  map[string]error
	gates     map[string]chan struct{}
	started   chan string
	shutdown  bool
}

func newFakeSynth(j *journal) *fakeSynth {
	return &fakeSynth{
		fakePort: newFakePort("Internal Synth", j),
		failures: make(map[string]error),
		gates:    make(map[string]chan struct{}),
		started:  make(chan string, 16),
	}
}

func (f *fakeSynth) LoadSoundbank(path string) error {
	f.sbMu.Lock()
	f.loads = append(f.loads, path)
	gate := f.gates[path]
	err := f.failures[path]
	f.sbMu.Unlock()

	f.started <- path
	if gate != nil {
		<-gate
	}
	if err != nil {
		return err
	}
	f.sbMu.Lock()
	defer f.sbMu.Unlock()
	f.soundbank = path
	return nil
}

func (f *fakeSynth) UnloadSoundbank() {
	f.sbMu.Lock()
	defer f.sbMu.Unlock()
	f.unloads++
	f.soundbank = ""
}

func (f *fakeSynth) Soundbank() string {
	f.sbMu.Lock()
	defer f.sbMu.Unlock()
	return f.soundbank
}

func (f *fakeSynth) Shutdown() error {
	f.sbMu.Lock()
	defer f.sbMu.Unlock()
	f.shutdown = true
	f.j.add("shutdown %s", f.name)
	return nil
}

func (f *fakeSynth) counts() (loads []string, unloads int) {
	f.sbMu.Lock()
	defer f.sbMu.Unlock()
	return append([]string(nil), f.loads...), f.unloads
}

func (f *fakeSynth) gate(path string) chan struct{} {
	f.sbMu.Lock()
	defer f.sbMu.Unlock()
	ch := make(chan struct{})
	f.gates[path] = ch
	return ch
}

func (f *fakeSynth) fail(path string, err error) {
	f.sbMu.Lock()
	defer f.sbMu.Unlock()
	f.failures[path] = err
}
