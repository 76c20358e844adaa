package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Stage is a step of a soundbank request.
type Stage int

const (
	StageQueued Stage = iota
	StageUnloading
	StageLoading
	StageRestoring
	StageDone
	StageFailed
)

var stageNames = [...]string{"queued", "unloading", "loading", "restoring", "done", "failed"}

func (st Stage) String() string {
	if st >= 0 && int(st) < len(stageNames) {
		return stageNames[st]
	}
	return fmt.Sprintf("Stage(%d)", int(st))
}

// Progress is reported to interactive callers as a request advances.
type Progress struct {
	RequestID uuid.UUID
	Path      string
	Stage     Stage
}

// LoadRequest is a queued soundbank change.
type LoadRequest struct {
	ID   uuid.UUID
	Path string

	progress func(Progress)
	done     chan struct{}
	err      error
}

func newLoadRequest(path string, progress func(Progress)) *LoadRequest {
	return &LoadRequest{
		ID:       uuid.New(),
		Path:     path,
		progress: progress,
		done:     make(chan struct{}),
	}
}

// Done is closed once the request has completed, failed or been superseded.
func (r *LoadRequest) Done() <-chan struct{} { return r.done }

// Err returns the outcome of a completed request, nil while it is pending.
func (r *LoadRequest) Err() error {
	select {
	case <-r.done:
		return r.err
	default:
		return nil
	}
}

// Wait blocks until the request completes or ctx is done. Cancelling ctx
// does not cancel the request.
func (r *LoadRequest) Wait(ctx context.Context) error {
	select {
	case <-r.done:
		return r.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *LoadRequest) report(st Stage) {
	if r.progress != nil {
		r.progress(Progress{RequestID: r.ID, Path: r.Path, Stage: st})
	}
}

func (r *LoadRequest) finish(err error) {
	r.err = err
	if err != nil {
		r.report(StageFailed)
	}
	close(r.done)
}

// soundbankLoader runs soundbank requests one at a time. While one request
// runs, at most one more waits; a newer request replaces the waiting one.
type soundbankLoader struct {
	s *Session

	mu      sync.Mutex
	pending *LoadRequest
	closed  bool

	wake   chan struct{}
	quit   chan struct{}
	exited chan struct{}
}

func newSoundbankLoader(s *Session) *soundbankLoader {
	l := &soundbankLoader{
		s:      s,
		wake:   make(chan struct{}, 1),
		quit:   make(chan struct{}),
		exited: make(chan struct{}),
	}
	go l.run()
	return l
}

func (l *soundbankLoader) submit(r *LoadRequest) {
	r.report(StageQueued)
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		r.finish(ErrClosed)
		return
	}
	prev := l.pending
	l.pending = r
	l.mu.Unlock()

	if prev != nil {
		l.s.log.Info("soundbank request superseded",
			zap.String("request", prev.ID.String()),
			zap.String("file", prev.Path),
			zap.String("by", r.Path))
		prev.finish(fmt.Errorf("%w by %s", ErrSuperseded, r.Path))
	}
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

func (l *soundbankLoader) run() {
	defer close(l.exited)
	for {
		select {
		case <-l.quit:
			return
		case <-l.wake:
		}
		for {
			l.mu.Lock()
			r := l.pending
			l.pending = nil
			l.mu.Unlock()
			if r == nil {
				break
			}
			l.s.loadSoundbank(r)
		}
	}
}

// close fails the waiting request and waits for the running one.
func (l *soundbankLoader) close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	r := l.pending
	l.pending = nil
	l.mu.Unlock()

	if r != nil {
		r.finish(ErrClosed)
	}
	close(l.quit)
	<-l.exited
}

// LoadSoundbank loads path into the internal synth and waits for the outcome,
// reporting progress along the way. Loading the current soundbank is a no-op.
// On failure the previous soundbank is reloaded.
func (s *Session) LoadSoundbank(ctx context.Context, path string, progress func(Progress)) error {
	return s.submitSoundbank(path, progress).Wait(ctx)
}

// LoadSoundbankSilently queues path and returns immediately. Failures other
// than supersession and shutdown are logged.
func (s *Session) LoadSoundbankSilently(path string) *LoadRequest {
	r := s.submitSoundbank(path, nil)
	go func() {
		<-r.done
		if r.err != nil && !errors.Is(r.err, ErrSuperseded) && !errors.Is(r.err, ErrClosed) {
			s.log.Warn("background soundbank load failed", zap.String("file", path), zap.Error(r.err))
		}
	}()
	return r
}

func (s *Session) submitSoundbank(path string, progress func(Progress)) *LoadRequest {
	r := newLoadRequest(path, progress)
	switch {
	case path == "":
		r.finish(fmt.Errorf("%w: empty soundbank path", ErrInvalidArgument))
	case s.soft == nil:
		r.finish(fmt.Errorf("%w: no internal synth", ErrSoundbankLoad))
	default:
		s.loader.submit(r)
	}
	return r
}

// Soundbank returns the file loaded in the internal synth, empty if none.
func (s *Session) Soundbank() string {
	if s.soft == nil {
		return ""
	}
	return s.soft.Soundbank()
}

// loadSoundbank runs on the loader goroutine.
func (s *Session) loadSoundbank(r *LoadRequest) {
	log := s.log.With(zap.String("request", r.ID.String()), zap.String("file", r.Path))
	current := s.soft.Soundbank()
	if current == r.Path {
		log.Debug("soundbank already loaded")
		r.report(StageDone)
		r.finish(nil)
		return
	}

	if current != "" {
		r.report(StageUnloading)
		s.soft.UnloadSoundbank()
	}
	r.report(StageLoading)
	if err := s.soft.LoadSoundbank(r.Path); err != nil {
		log.Error("soundbank load failed", zap.Error(err))
		if current != "" {
			r.report(StageRestoring)
			if rerr := s.soft.LoadSoundbank(current); rerr != nil {
				log.Error("failed to reload previous soundbank", zap.String("previous", current), zap.Error(rerr))
			}
		}
		r.finish(fmt.Errorf("%w: %s: %w", ErrSoundbankLoad, r.Path, err))
		return
	}

	log.Info("soundbank loaded")
	s.persist(PrefSoundbank, r.Path)
	s.notify(Event{Kind: SoundbankLoaded, Soundbank: r.Path})
	r.report(StageDone)
	r.finish(nil)
}
