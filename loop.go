// Copyright 2017 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package msgpubsub

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"sync/atomic"

	"github.com/someonegg/gox/syncx"
)

// Handler is the message processor of a receive loop.
//
// Process is called on the loop goroutine, one message at a time, in receive
// order. It should complete as soon as possible, and must not call StopLoop
// or Close of its own subscriber. It is not valid to modify the payload.
type Handler interface {
	Process(ctx context.Context, topic string, payload []byte)
}

// The HandlerFunc type is an adapter to allow the use of
// ordinary functions as message handlers.  If f is a function
// with the appropriate signature, HandlerFunc(f) is a
// Handler object that calls f.
type HandlerFunc func(ctx context.Context, topic string, payload []byte)

// Process calls f(ctx, topic, payload).
func (f HandlerFunc) Process(ctx context.Context, topic string, payload []byte) {
	f(ctx, topic, payload)
}

// The default panic log function.
func (s *Subscriber) logPanic(v interface{}) {
	const size = 16 << 10
	buf := make([]byte, size)
	buf = buf[:runtime.Stack(buf, false)]
	s.log.Error("handler panic", slog.Any("panic", v), slog.String("stack", string(buf)))
}

// SetPanicLogFunc is optional, nil disables the panic log.
func (s *Subscriber) SetPanicLogFunc(f func(panicV interface{})) {
	s.loopMu.Lock()
	defer s.loopMu.Unlock()
	s.panicLogF = f
}

// StartLoop starts the receive loop: one goroutine which keeps receiving
// with a bounded wait and calls h for every message.
//
// It returns false, without side effects, if a loop is already running, h is
// nil, the subscriber is closed or its context terminated.
func (s *Subscriber) StartLoop(h Handler) bool {
	if h == nil {
		return false
	}

	s.loopMu.Lock()
	defer s.loopMu.Unlock()

	if s.running.Load() || s.closed() || s.ctx.Terminated() {
		return false
	}
	if s.doneD != nil {
		// the previous loop ended on its own and is exiting
		<-s.doneD
		s.quitF()
	}

	var ctx context.Context
	ctx, s.quitF = context.WithCancel(context.Background())
	s.quitD = syncx.NewDoneChan()
	s.doneD = syncx.NewDoneChan()
	s.setLoopError(nil)
	s.running.Store(true)

	go s.looping(ctx, h, s.quitD, s.doneD, s.panicLogF)
	return true
}

// StopLoop stops the receive loop and waits for its goroutine to exit. A
// handler call in progress completes, no handler is called after StopLoop
// returns. Without a running loop it does nothing.
func (s *Subscriber) StopLoop() {
	s.loopMu.Lock()
	defer s.loopMu.Unlock()

	if s.doneD == nil {
		return
	}

	s.quitD.SetDone()
	s.quitF()
	<-s.doneD

	s.running.Store(false)
	s.quitD, s.doneD, s.quitF = nil, nil, nil
}

// Running reports whether the receive loop is running.
func (s *Subscriber) Running() bool {
	return s.running.Load()
}

// LoopError returns why the last receive loop ended on its own, nil if it
// was stopped by StopLoop or is still running.
func (s *Subscriber) LoopError() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.loopErr
}

func (s *Subscriber) setLoopError(err error) {
	s.errMu.Lock()
	s.loopErr = err
	s.errMu.Unlock()
}

func (s *Subscriber) looping(ctx context.Context, h Handler, quitD, doneD syncx.DoneChan, panicLogF func(interface{})) {
	defer doneD.SetDone()
	defer s.running.Store(false)

	for {
		select {
		case <-quitD:
			return
		default:
		}

		// a message taken off the queue is always handled
		m, err := s.receive(s.set.LoopPollInterval, quitD, nil)
		switch {
		case err == nil:
			s.process(ctx, h, m, panicLogF)
		case errors.Is(err, ErrTimeout):
		default:
			s.setLoopError(err)
			s.log.Debug("receive loop ended", slog.String("reason", err.Error()))
			return
		}
	}
}

func (s *Subscriber) process(ctx context.Context, h Handler, m Message, panicLogF func(interface{})) {
	defer func() {
		if e := recover(); e != nil {
			atomic.AddInt64(&s.stat.PanicCount, 1)
			if panicLogF != nil {
				panicLogF(e)
			}
		}
	}()

	h.Process(ctx, m.Topic, m.Payload)
	atomic.AddInt64(&s.stat.DeliveredCount, 1)
}
