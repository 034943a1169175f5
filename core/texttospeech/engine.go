package texttospeech

import (
	"context"
	"errors"
	"sync"
)

// ErrCancelled is reported by a playback that was stopped by Cancel.
var ErrCancelled = errors.New("speech playback cancelled")

// Engine renders text to audible speech.
type Engine interface {
	// Play starts speaking text and returns immediately. The returned
	// playback finishes when the speech has been heard or cancelled.
	Play(ctx context.Context, text string) (Playback, error)
}

// Playback is a single in-flight speech. Cancel may be called from any
// goroutine and at any time, including after the playback is done.
type Playback interface {
	Done() <-chan struct{}
	// Err is only meaningful after Done is closed.
	Err() error
	Cancel()
}

// Wait blocks until the playback is done and returns its error. If ctx ends
// first the playback is cancelled.
func Wait(ctx context.Context, p Playback) error {
	select {
	case <-p.Done():
		return p.Err()
	case <-ctx.Done():
		p.Cancel()
		<-p.Done()
		return ctx.Err()
	}
}

// PlaybackHandle is a reusable [Playback] implementation for engines. The
// engine calls Finish exactly when its work is over; Cancel invokes the
// engine's stop function once.
type PlaybackHandle struct {
	done   chan struct{}
	stop   func()
	cancel sync.Once
	finish sync.Once

	mu        sync.Mutex
	err       error
	cancelled bool
}

func NewPlaybackHandle(stop func()) *PlaybackHandle {
	if stop == nil {
		stop = func() {}
	}
	return &PlaybackHandle{done: make(chan struct{}), stop: stop}
}

func (p *PlaybackHandle) Done() <-chan struct{} { return p.done }

func (p *PlaybackHandle) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *PlaybackHandle) Cancel() {
	p.cancel.Do(func() {
		p.mu.Lock()
		p.cancelled = true
		p.mu.Unlock()

		select {
		case <-p.done:
		default:
			p.stop()
		}
	})
}

func (p *PlaybackHandle) Cancelled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancelled
}

// Finish marks the playback as done. Errors of a cancelled playback are
// reported as [ErrCancelled].
func (p *PlaybackHandle) Finish(err error) {
	p.finish.Do(func() {
		p.mu.Lock()
		if p.cancelled {
			err = ErrCancelled
		}
		p.err = err
		p.mu.Unlock()
		close(p.done)
	})
}
