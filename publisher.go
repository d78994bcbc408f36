// Copyright 2026 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package msgpubsub

import (
	"bytes"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/someonegg/gox/syncx"

	"github.com/someonegg/msgpubsub/internal/slogx"
)

type PublisherStatistics struct {
	// accepted Publish calls
	PublishedCount int64
	PublishedBytes int64

	// per subscriber, a full queue drops the message
	DroppedCount int64
}

// Publisher binds an endpoint and sends topic-tagged messages to every
// connected subscriber.
//
// A Publisher must not be used by several goroutines at once without
// external serialization.
type Publisher struct {
	id        string
	addr      string
	transport Transport
	set       settings
	log       *slog.Logger

	ctx     *Context
	ownsCtx bool

	inproc *inprocEndpoint
	ipc    *ipcListener

	closeOnce sync.Once
	closeD    syncx.DoneChan

	stat PublisherStatistics
}

// NewPublisher creates a publisher with its own private context, released
// by Close. In-process endpoints of a private context are unreachable for
// other sockets, use Context.NewPublisher for them.
func NewPublisher(name string, t Transport, opts ...Option) (*Publisher, error) {
	return newPublisher(nil, true, name, t, opts)
}

func newPublisher(ctx *Context, owns bool, name string, t Transport, opts []Option) (p *Publisher, err error) {
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

	p = &Publisher{
		id:        newID(),
		addr:      addr,
		transport: t,
		set:       set,
		ctx:       ctx,
		ownsCtx:   owns,
		closeD:    syncx.NewDoneChan(),
	}
	p.log = set.logger.With(slogx.LoggerName("msgpubsub.publisher"), slogx.Endpoint(addr), slogx.Socket(p.id))

	if err = ctx.attach(p.id, addr); err != nil {
		return nil, err
	}

	switch t {
	case InProc:
		ep := ctx.endpoint(inprocName(addr))
		err = ep.bind()
		p.inproc = ep
	case IPC:
		p.ipc, err = listenIPC(ipcPath(addr), set, p.log)
	}
	if err != nil {
		ctx.detach(p.id)
		p.log.Debug("bind failed", slogx.Error(err))
		return nil, err
	}

	p.log.Debug("publisher bound")
	return p, nil
}

// Address returns the resolved address of the endpoint.
func (p *Publisher) Address() string {
	return p.addr
}

// Publish sends the topic and payload as one message. It never blocks: a
// subscriber whose queue is full misses the message.
//
// It returns false only if the message could not be accepted, because the
// publisher is closed, its context terminated, or the topic or payload is
// longer than FrameMaxLength on any transport. There is no retry and no
// delivery confirmation.
func (p *Publisher) Publish(topic string, payload []byte) bool {
	select {
	case <-p.closeD:
		return false
	case <-p.ctx.termD:
		return false
	default:
	}

	if len(topic) > FrameMaxLength || len(payload) > FrameMaxLength {
		p.log.Debug("message too long", slogx.Topic(topic), slog.Int("size", len(payload)))
		return false
	}

	m := Message{Topic: topic, Payload: bytes.Clone(payload)}
	if m.Payload == nil {
		m.Payload = []byte{}
	}

	var dropped int
	switch p.transport {
	case InProc:
		dropped = p.inproc.publish(m)
	case IPC:
		dropped = p.ipc.publish(m)
	}

	atomic.AddInt64(&p.stat.PublishedCount, 1)
	atomic.AddInt64(&p.stat.PublishedBytes, int64(len(m.Payload)))
	if dropped > 0 {
		atomic.AddInt64(&p.stat.DroppedCount, int64(dropped))
		p.log.Debug("message dropped", slogx.Topic(topic), slog.Int("subscribers", dropped))
	}
	return true
}

// PublishString is Publish with a string payload.
func (p *Publisher) PublishString(topic, data string) bool {
	return p.Publish(topic, []byte(data))
}

// Peers returns the number of subscribers currently attached.
func (p *Publisher) Peers() int {
	switch p.transport {
	case InProc:
		return p.inproc.peers()
	case IPC:
		return p.ipc.numPeers()
	}
	return 0
}

func (p *Publisher) Statistics() PublisherStatistics {
	return PublisherStatistics{
		PublishedCount: atomic.LoadInt64(&p.stat.PublishedCount),
		PublishedBytes: atomic.LoadInt64(&p.stat.PublishedBytes),
		DroppedCount:   atomic.LoadInt64(&p.stat.DroppedCount),
	}
}

// Close unbinds the endpoint, then releases the context if the publisher
// owns it. It is safe to call Close multiple times.
func (p *Publisher) Close() error {
	p.closeOnce.Do(func() {
		p.closeD.SetDone()

		switch p.transport {
		case InProc:
			p.inproc.unbind()
		case IPC:
			p.ipc.close()
		}

		p.ctx.detach(p.id)
		if p.ownsCtx {
			p.ctx.Close()
		}
		p.log.Debug("publisher closed")
	})
	return nil
}
