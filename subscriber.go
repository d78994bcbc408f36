// Copyright 2026 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package msgpubsub

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/someonegg/gox/syncx"

	"github.com/someonegg/msgpubsub/internal/slogx"
)

type SubscriberStatistics struct {
	// queued messages, after filtering
	ReceivedCount int64
	ReceivedBytes int64

	// no registered prefix matched
	FilteredCount int64
	// the receive queue was full
	DroppedCount int64

	// handler calls of the receive loop
	DeliveredCount int64
	PanicCount     int64
}

// Subscriber connects to an endpoint and receives the messages whose topic
// starts with one of its registered prefixes.
//
// Messages are read either with Receive, or by a receive loop started with
// StartLoop, but not both at once. Overlapping Receive calls from several
// goroutines are not supported.
type Subscriber struct {
	id        string
	addr      string
	transport Transport
	set       settings
	log       *slog.Logger

	ctx     *Context
	ownsCtx bool

	filters *filterSet
	queue   chan Message

	inproc *inprocEndpoint
	ipc    *ipcConnector

	closeOnce sync.Once
	closeD    syncx.DoneChan

	// receive loop
	loopMu    sync.Mutex
	running   atomic.Bool
	quitD     syncx.DoneChan
	doneD     syncx.DoneChan
	quitF     context.CancelFunc
	errMu     sync.Mutex
	loopErr   error
	panicLogF func(interface{})

	stat SubscriberStatistics
}

// NewSubscriber creates a subscriber with its own private context, released
// by Close. In-process endpoints of a private context are unreachable for
// other sockets, use Context.NewSubscriber for them.
func NewSubscriber(name string, t Transport, opts ...Option) (*Subscriber, error) {
	return newSubscriber(nil, true, name, t, opts)
}

func newSubscriber(ctx *Context, owns bool, name string, t Transport, opts []Option) (s *Subscriber, err error) {
	if owns {
		if ctx, err = NewContext(opts...); err != nil {
			return nil, err
		}
		defer func() {
			if err != nil {
				ctx.Close()
			}
		}()
	}

	set, err := ctx.set.apply(opts)
	if err != nil {
		return nil, err
	}
	addr, err := Address(set.IPCRoot, name, t)
	if err != nil {
		return nil, err
	}

	s = &Subscriber{
		id:        newID(),
		addr:      addr,
		transport: t,
		set:       set,
		ctx:       ctx,
		ownsCtx:   owns,
		filters:   newFilterSet(),
		queue:     make(chan Message, set.HighWaterMark),
		closeD:    syncx.NewDoneChan(),
	}
	s.log = set.logger.With(slogx.LoggerName("msgpubsub.subscriber"), slogx.Endpoint(addr), slogx.Socket(s.id))
	s.panicLogF = s.logPanic

	if err = ctx.attach(s.id, addr); err != nil {
		return nil, err
	}

	switch t {
	case InProc:
		s.inproc = ctx.endpoint(inprocName(addr))
		s.inproc.connect(s)
	case IPC:
		s.ipc = connectIPC(ipcPath(addr), set, s.log, s.deliver)
	}

	s.log.Debug("subscriber connecting")
	return s, nil
}

// Address returns the resolved address of the endpoint.
func (s *Subscriber) Address() string {
	return s.addr
}

// Connected reports whether the subscriber is attached to a bound publisher.
func (s *Subscriber) Connected() bool {
	switch s.transport {
	case InProc:
		return s.inproc.bound.Load()
	case IPC:
		return s.ipc.connected()
	}
	return false
}

func (s *Subscriber) closed() bool {
	return s.closeD.R().Done()
}

// Subscribe registers topic prefixes. Without argument it registers the empty
// prefix, which matches every topic. It returns false if the subscriber is
// closed.
func (s *Subscriber) Subscribe(prefixes ...string) bool {
	if s.closed() {
		return false
	}
	if len(prefixes) == 0 {
		prefixes = []string{""}
	}
	for _, p := range prefixes {
		s.filters.add(p)
	}
	return true
}

// Unsubscribe removes one prefix. Removing a prefix that is not registered
// does nothing. It returns false if the subscriber is closed.
func (s *Subscriber) Unsubscribe(prefix string) bool {
	if s.closed() {
		return false
	}
	s.filters.remove(prefix)
	return true
}

// Filters returns the registered prefixes in lexical order.
func (s *Subscriber) Filters() []string {
	return s.filters.list()
}

// deliver queues m if it matches the filters. It returns false when the
// message was dropped on a full queue.
func (s *Subscriber) deliver(m Message) bool {
	if !s.filters.match(m.Topic) {
		atomic.AddInt64(&s.stat.FilteredCount, 1)
		return true
	}

	select {
	case s.queue <- m:
		atomic.AddInt64(&s.stat.ReceivedCount, 1)
		atomic.AddInt64(&s.stat.ReceivedBytes, int64(len(m.Payload)))
		return true
	default:
		atomic.AddInt64(&s.stat.DroppedCount, 1)
		s.log.Debug("receive queue full, message dropped", slogx.Topic(m.Topic))
		return false
	}
}

// Receive waits for one message. A negative timeout waits forever, zero
// polls. ok is false on timeout and on any failure; use ReceiveContext to
// tell them apart.
func (s *Subscriber) Receive(timeout time.Duration) (topic string, payload []byte, ok bool) {
	m, err := s.receive(timeout, nil, nil)
	if err != nil {
		return "", nil, false
	}
	return m.Topic, m.Payload, true
}

// ReceiveContext waits for one message until ctx is done. The error is
// ctx.Err(), ErrClosed or ErrContextTerminated.
func (s *Subscriber) ReceiveContext(ctx context.Context) (Message, error) {
	m, err := s.receive(-1, nil, ctx.Done())
	if err == ErrTimeout {
		err = ctx.Err()
	}
	return m, err
}

// receive is the only suspension point of the subscriber. quit and cancel
// abort the wait with ErrTimeout.
func (s *Subscriber) receive(timeout time.Duration, quit syncx.DoneChan, cancel <-chan struct{}) (Message, error) {
	select {
	case <-s.closeD:
		return Message{}, ErrClosed
	case <-s.ctx.termD:
		return Message{}, ErrContextTerminated
	default:
	}

	if timeout == 0 {
		select {
		case m := <-s.queue:
			return m, nil
		default:
			return Message{}, ErrTimeout
		}
	}

	var timerC <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		timerC = timer.C
	}

	select {
	case m := <-s.queue:
		return m, nil
	case <-timerC:
		return Message{}, ErrTimeout
	case <-quit:
		return Message{}, ErrTimeout
	case <-cancel:
		return Message{}, ErrTimeout
	case <-s.closeD:
		return Message{}, ErrClosed
	case <-s.ctx.termD:
		return Message{}, ErrContextTerminated
	}
}

func (s *Subscriber) Statistics() SubscriberStatistics {
	return SubscriberStatistics{
		ReceivedCount:  atomic.LoadInt64(&s.stat.ReceivedCount),
		ReceivedBytes:  atomic.LoadInt64(&s.stat.ReceivedBytes),
		FilteredCount:  atomic.LoadInt64(&s.stat.FilteredCount),
		DroppedCount:   atomic.LoadInt64(&s.stat.DroppedCount),
		DeliveredCount: atomic.LoadInt64(&s.stat.DeliveredCount),
		PanicCount:     atomic.LoadInt64(&s.stat.PanicCount),
	}
}

// Close stops the receive loop, disconnects, then releases the context if
// the subscriber owns it. It is safe to call Close multiple times.
func (s *Subscriber) Close() error {
	s.closeOnce.Do(func() {
		s.closeD.SetDone()
		s.StopLoop()

		switch s.transport {
		case InProc:
			s.inproc.disconnect(s)
		case IPC:
			s.ipc.close()
		}

		s.ctx.detach(s.id)
		if s.ownsCtx {
			s.ctx.Close()
		}
		s.log.Debug("subscriber closed")
	})
	return nil
}
