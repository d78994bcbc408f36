// Copyright 2026 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package msgpubsub

import (
	"log/slog"
	"sync"

	"github.com/alphadose/haxmap"
	"github.com/google/uuid"
	"github.com/someonegg/gox/syncx"

	"github.com/someonegg/msgpubsub/internal/slogx"
)

// Context is the execution context shared by publishers and subscribers.
//
// Sockets of the in-process transport only reach each other when they are
// created on the same Context. A Context is safe for concurrent socket
// creation.
//
// Close terminates the context and blocks until every socket created on it
// is closed, so dependents must be closed first.
type Context struct {
	id  string
	set settings
	log *slog.Logger

	// in-process namespace, entries live as long as the context
	endpoints *haxmap.Map[string, *inprocEndpoint]

	mu         sync.Mutex
	idle       *sync.Cond
	sockets    map[string]string
	terminated bool
	termD      syncx.DoneChan
}

// NewContext allocates a new context. The options become the defaults of
// every socket created on it.
func NewContext(opts ...Option) (*Context, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}

	set, err := settings{Config: cfg}.apply(opts)
	if err != nil {
		return nil, err
	}

	c := &Context{
		id:        newID(),
		set:       set,
		endpoints: haxmap.New[string, *inprocEndpoint](),
		sockets:   make(map[string]string),
		termD:     syncx.NewDoneChan(),
	}
	c.idle = sync.NewCond(&c.mu)
	c.log = set.logger.With(slogx.LoggerName("msgpubsub"), slog.String("context", c.id))
	return c, nil
}

// Close terminates the context. Blocking receives of its sockets return
// immediately, new sockets can not be created, and Close waits until all
// existing sockets are closed. It is safe to call Close multiple times.
func (c *Context) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.terminated {
		c.terminated = true
		c.termD.SetDone()
		if n := len(c.sockets); n > 0 {
			c.log.Debug("waiting for sockets to close", slog.Int("sockets", n))
		}
	}

	for len(c.sockets) > 0 {
		c.idle.Wait()
	}
	return nil
}

// Terminated reports whether Close has been called.
func (c *Context) Terminated() bool {
	return c.termD.R().Done()
}

// NewPublisher creates a publisher borrowing this context.
func (c *Context) NewPublisher(name string, t Transport, opts ...Option) (*Publisher, error) {
	return newPublisher(c, false, name, t, opts)
}

// NewSubscriber creates a subscriber borrowing this context.
func (c *Context) NewSubscriber(name string, t Transport, opts ...Option) (*Subscriber, error) {
	return newSubscriber(c, false, name, t, opts)
}

func (c *Context) attach(id, addr string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.terminated {
		return ErrContextTerminated
	}
	c.sockets[id] = addr
	return nil
}

func (c *Context) detach(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.sockets, id)
	if len(c.sockets) == 0 {
		c.idle.Broadcast()
	}
}

func (c *Context) endpoint(name string) *inprocEndpoint {
	ep, _ := c.endpoints.GetOrCompute(name, func() *inprocEndpoint {
		return newInprocEndpoint(name)
	})
	return ep
}

func newID() string {
	return uuid.Must(uuid.NewV7()).String()
}
