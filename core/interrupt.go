package assistant

import (
	"fmt"
	"sync"
	"sync/atomic"
)

type InterruptReason int32

const (
	InterruptNone InterruptReason = iota
	InterruptWakeWord
	InterruptShutdown
)

func (r InterruptReason) String() string {
	switch r {
	case InterruptNone:
		return "none"
	case InterruptWakeWord:
		return "wake_word"
	case InterruptShutdown:
		return "shutdown"
	default:
		return fmt.Sprintf("interrupt(%d)", int32(r))
	}
}

// InterruptFlag is the single cancellation signal shared between the
// interruption listener and the speech it interrupts. It can be set only
// once; the first reason wins.
type InterruptFlag struct {
	reason atomic.Int32
	once   sync.Once
	done   chan struct{}
}

func NewInterruptFlag() *InterruptFlag {
	return &InterruptFlag{done: make(chan struct{})}
}

// Set raises the flag and reports whether this call was the one that did.
func (f *InterruptFlag) Set(reason InterruptReason) bool {
	if reason == InterruptNone {
		return false
	}
	if !f.reason.CompareAndSwap(int32(InterruptNone), int32(reason)) {
		return false
	}
	f.once.Do(func() { close(f.done) })
	return true
}

func (f *InterruptFlag) IsSet() bool {
	return f != nil && f.Reason() != InterruptNone
}

func (f *InterruptFlag) Reason() InterruptReason {
	if f == nil {
		return InterruptNone
	}
	return InterruptReason(f.reason.Load())
}

// Done is closed once the flag is set. A nil flag never fires.
func (f *InterruptFlag) Done() <-chan struct{} {
	if f == nil {
		return nil
	}
	return f.done
}
