package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type progressLog struct {
	mu     sync.Mutex
	stages []Stage
}

func (l *progressLog) record(p Progress) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stages = append(l.stages, p.Stage)
}

func (l *progressLog) snapshot() []Stage {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Stage(nil), l.stages...)
}

func waitStarted(t *testing.T, soft *fakeSynth, path string) {
	t.Helper()
	select {
	case got := <-soft.started:
		require.Equal(t, path, got)
	case <-time.After(time.Second):
		t.Fatalf("load of %s never started", path)
	}
}

func waitDone(t *testing.T, r *LoadRequest) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	err := r.Wait(ctx)
	require.NotErrorIs(t, err, context.DeadlineExceeded)
	return err
}

func TestLoadSoundbank_SameFileIsNoop(t *testing.T) {
	r := newRig()
	s := r.open(t)
	var events eventLog
	s.OnChange(events.record)
	ctx := context.Background()

	var first progressLog
	require.NoError(t, s.LoadSoundbank(ctx, "/sb/a.sf2", first.record))
	assert.Equal(t, []Stage{StageQueued, StageLoading, StageDone}, first.snapshot())

	var second progressLog
	require.NoError(t, s.LoadSoundbank(ctx, "/sb/a.sf2", second.record))
	assert.Equal(t, []Stage{StageQueued, StageDone}, second.snapshot())

	loads, unloads := r.soft.counts()
	assert.Equal(t, []string{"/sb/a.sf2"}, loads)
	assert.Zero(t, unloads)
	assert.Equal(t, "/sb/a.sf2", s.Soundbank())
	assert.Equal(t, []Event{{Kind: SoundbankLoaded, Soundbank: "/sb/a.sf2"}}, events.snapshot())
	v, _ := r.prefs.Get(PrefSoundbank)
	assert.Equal(t, "/sb/a.sf2", v)
}

func TestLoadSoundbank_FailureRestoresPrevious(t *testing.T) {
	r := newRig()
	s := r.open(t)
	ctx := context.Background()
	require.NoError(t, s.LoadSoundbank(ctx, "/sb/a.sf2", nil))

	r.soft.fail("/sb/broken.sf2", errors.New("not a RIFF file"))
	var progress progressLog
	err := s.LoadSoundbank(ctx, "/sb/broken.sf2", progress.record)
	require.ErrorIs(t, err, ErrSoundbankLoad)
	assert.ErrorContains(t, err, "not a RIFF file")

	assert.Equal(t, []Stage{StageQueued, StageUnloading, StageLoading, StageRestoring, StageFailed}, progress.snapshot())
	loads, unloads := r.soft.counts()
	assert.Equal(t, []string{"/sb/a.sf2", "/sb/broken.sf2", "/sb/a.sf2"}, loads)
	assert.Equal(t, 1, unloads)
	assert.Equal(t, "/sb/a.sf2", s.Soundbank())
	v, _ := r.prefs.Get(PrefSoundbank)
	assert.Equal(t, "/sb/a.sf2", v)
}

func TestLoadSoundbank_NewerRequestSupersedesWaiting(t *testing.T) {
	r := newRig()
	s := r.open(t)
	gate := r.soft.gate("/sb/slow.sf2")

	slow := s.LoadSoundbankSilently("/sb/slow.sf2")
	waitStarted(t, r.soft, "/sb/slow.sf2")

	second := s.LoadSoundbankSilently("/sb/second.sf2")
	third := s.LoadSoundbankSilently("/sb/third.sf2")

	err := waitDone(t, second)
	require.ErrorIs(t, err, ErrSuperseded)
	assert.ErrorContains(t, err, "/sb/third.sf2")
	assert.Nil(t, slow.Err(), "running request is not superseded")

	close(gate)
	require.NoError(t, waitDone(t, slow))
	require.NoError(t, waitDone(t, third))

	loads, _ := r.soft.counts()
	assert.Equal(t, []string{"/sb/slow.sf2", "/sb/third.sf2"}, loads)
	assert.Equal(t, "/sb/third.sf2", s.Soundbank())
}

func TestLoadSoundbank_WaitCancelDoesNotCancelLoad(t *testing.T) {
	r := newRig()
	s := r.open(t)
	gate := r.soft.gate("/sb/slow.sf2")

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- s.LoadSoundbank(ctx, "/sb/slow.sf2", nil) }()
	waitStarted(t, r.soft, "/sb/slow.sf2")
	cancel()
	assert.ErrorIs(t, <-errc, context.Canceled)

	close(gate)
	assert.Eventually(t, func() bool { return s.Soundbank() == "/sb/slow.sf2" }, time.Second, 5*time.Millisecond)
}

func TestLoadSoundbank_CloseFailsWaitingRequest(t *testing.T) {
	r := newRig()
	s := r.open(t)
	gate := r.soft.gate("/sb/slow.sf2")

	slow := s.LoadSoundbankSilently("/sb/slow.sf2")
	waitStarted(t, r.soft, "/sb/slow.sf2")
	waiting := s.LoadSoundbankSilently("/sb/next.sf2")

	closed := make(chan error, 1)
	go func() { closed <- s.Close() }()
	assert.ErrorIs(t, waitDone(t, waiting), ErrClosed)

	close(gate)
	require.NoError(t, waitDone(t, slow))
	select {
	case err := <-closed:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Close did not return")
	}

	late := s.LoadSoundbankSilently("/sb/late.sf2")
	assert.ErrorIs(t, waitDone(t, late), ErrClosed)
	loads, _ := r.soft.counts()
	assert.Equal(t, []string{"/sb/slow.sf2"}, loads)
}

func TestLoadSoundbank_InvalidRequests(t *testing.T) {
	r := newRig()
	s := r.open(t)
	assert.ErrorIs(t, s.LoadSoundbank(context.Background(), "", nil), ErrInvalidArgument)

	bare := Open(WithLogger(zaptest.NewLogger(t)), WithPorts(newFakeManager(nil, nil)))
	defer bare.Close()
	var progress progressLog
	assert.ErrorIs(t, bare.LoadSoundbank(context.Background(), "/sb/a.sf2", progress.record), ErrSoundbankLoad)
	assert.Equal(t, []Stage{StageFailed}, progress.snapshot())
	assert.Empty(t, bare.Soundbank())
}
